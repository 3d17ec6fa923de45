// Файл: internal/dto/link_dto.go
package dto

import "github.com/google/uuid"

// IssueLinkDTO is POST /v1/links/issue's request body.
type IssueLinkDTO struct {
	ServiceID string `json:"service_id" validate:"required,tool_service_id"`
	ContextID string `json:"context_id" validate:"required,uuid4"`
	Role      string `json:"role" validate:"required,link_role"`
	SubjectID int64  `json:"subject_id" validate:"required"`
}

type IssueLinkResponse struct {
	JTI        string `json:"jti"`
	RunID      string `json:"run_id"`
	StartParam string `json:"start_param"`
}

// VerifyLinkDTO is POST /v1/links/verify's request body.
type VerifyLinkDTO struct {
	RawToken  string `json:"raw_token" validate:"required"`
	ServiceID string `json:"service_id" validate:"required"`
	SubjectID int64  `json:"subject_id" validate:"required"`
}

type VerifyLinkResponse struct {
	ContextID uuid.UUID `json:"context_id"`
	RunID     uuid.UUID `json:"run_id"`
	Role      string    `json:"role"`
	ServiceID string    `json:"service_id"`
}
