// Файл: internal/services/artifact_service.go
package services

import (
	"context"
	"encoding/json"

	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/repositories"
	apperrors "psycheos-gateway/pkg/errors"

	"github.com/google/uuid"
)

// ArtifactService exposes the artifact store to the REST surface and to
// bot handlers persisting a run's output (spec §4.4/§6).
type ArtifactService struct {
	repo *repositories.ArtifactRepository
}

func NewArtifactService(repo *repositories.ArtifactRepository) *ArtifactService {
	return &ArtifactService{repo: repo}
}

// Save persists a handler's artifact; idempotent on (run_id, service_id).
func (s *ArtifactService) Save(ctx context.Context, runID, contextID uuid.UUID, serviceID string, specialistTelegram int64, payload json.RawMessage, summary string) error {
	return s.repo.Save(ctx, &entities.Artifact{
		ContextID:          contextID,
		ServiceID:          serviceID,
		RunID:              runID,
		SpecialistTelegram: specialistTelegram,
		Payload:            payload,
		Summary:            summary,
	})
}

func (s *ArtifactService) List(ctx context.Context, q dto.ListArtifactsQuery) ([]dto.ArtifactSummaryDTO, error) {
	contextID, err := uuid.Parse(q.ContextID)
	if err != nil {
		return nil, apperrors.ErrValidation
	}

	artifacts, err := s.repo.ListByContext(ctx, contextID, q.ServiceID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ArtifactSummaryDTO, len(artifacts))
	for i, a := range artifacts {
		out[i] = dto.ArtifactSummaryDTO{
			ID:                 a.ID,
			ContextID:          a.ContextID,
			ServiceID:          a.ServiceID,
			RunID:              a.RunID,
			SpecialistTelegram: a.SpecialistTelegram,
			Summary:            a.Summary,
			CreatedAt:          a.CreatedAt,
		}
	}
	return out, nil
}

func (s *ArtifactService) Get(ctx context.Context, id uuid.UUID) (*dto.ArtifactDTO, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.ErrNotFound
	}

	return &dto.ArtifactDTO{
		ArtifactSummaryDTO: dto.ArtifactSummaryDTO{
			ID:                 a.ID,
			ContextID:          a.ContextID,
			ServiceID:          a.ServiceID,
			RunID:              a.RunID,
			SpecialistTelegram: a.SpecialistTelegram,
			Summary:            a.Summary,
			CreatedAt:          a.CreatedAt,
		},
		Payload: a.Payload,
	}, nil
}
