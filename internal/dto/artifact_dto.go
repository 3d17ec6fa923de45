// Файл: internal/dto/artifact_dto.go
package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ArtifactSummaryDTO is the shape returned by GET /v1/artifacts (list form).
type ArtifactSummaryDTO struct {
	ID                 uuid.UUID `json:"id"`
	ContextID          uuid.UUID `json:"context_id"`
	ServiceID          string    `json:"service_id"`
	RunID              uuid.UUID `json:"run_id"`
	SpecialistTelegram int64     `json:"specialist_telegram_id"`
	Summary            string    `json:"summary"`
	CreatedAt          time.Time `json:"created_at"`
}

// ArtifactDTO is the shape returned by GET /v1/artifacts/{id} (full form).
type ArtifactDTO struct {
	ArtifactSummaryDTO
	Payload json.RawMessage `json:"payload"`
}

type ListArtifactsQuery struct {
	ContextID string `query:"context_id" validate:"required,uuid4"`
	ServiceID string `query:"service_id"`
}
