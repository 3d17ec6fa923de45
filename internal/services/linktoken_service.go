// Файл: internal/services/linktoken_service.go
package services

import (
	"context"
	"time"

	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/repositories"
	apperrors "psycheos-gateway/pkg/errors"

	"github.com/google/uuid"
)

var toolServiceIDs = map[string]bool{
	"interpreter":     true,
	"conceptualizer":  true,
	"simulator":       true,
	"screen":          true,
}

// LinkTokenService implements the one-shot, per-user, per-service handoff
// token lifecycle: issue mints a fresh run_id+jti pair with a 24h TTL;
// verify runs the ordered compare-and-swap check chain and consumes the
// token on success (spec §4.3).
type LinkTokenService struct {
	repo     *repositories.LinkTokenRepository
	tokenTTL time.Duration
}

func NewLinkTokenService(repo *repositories.LinkTokenRepository, tokenTTL time.Duration) *LinkTokenService {
	return &LinkTokenService{repo: repo, tokenTTL: tokenTTL}
}

func (s *LinkTokenService) Issue(ctx context.Context, req dto.IssueLinkDTO) (*dto.IssueLinkResponse, error) {
	if !toolServiceIDs[req.ServiceID] {
		return nil, apperrors.ErrLinkInvalidService
	}
	role := entities.UserRole(req.Role)
	if !role.Valid() {
		return nil, apperrors.ErrLinkInvalidRole
	}
	if role == entities.RoleClient && req.ServiceID != "screen" {
		return nil, apperrors.ErrLinkRoleMismatch
	}

	contextID, err := uuid.Parse(req.ContextID)
	if err != nil {
		return nil, apperrors.ErrValidation
	}

	now := time.Now().UTC()
	token := &entities.LinkToken{
		JTI:       uuid.New(),
		RunID:     uuid.New(),
		ServiceID: req.ServiceID,
		ContextID: contextID,
		Role:      role,
		SubjectID: req.SubjectID,
		ExpiresAt: now.Add(s.tokenTTL),
	}

	if err := s.repo.Insert(ctx, token); err != nil {
		return nil, err
	}

	return &dto.IssueLinkResponse{
		JTI:        token.JTI.String(),
		RunID:      token.RunID.String(),
		StartParam: token.JTI.String(),
	}, nil
}

// Verify runs the ordered check chain from spec §4.3 and consumes the
// token via the repository's compare-and-swap on success.
func (s *LinkTokenService) Verify(ctx context.Context, req dto.VerifyLinkDTO) (*dto.VerifyLinkResponse, error) {
	jti, err := uuid.Parse(req.RawToken)
	if err != nil {
		return nil, apperrors.ErrLinkInvalidFormat
	}

	token, err := s.repo.FindByJTI(ctx, jti)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, apperrors.ErrLinkNotFound
	}
	if token.UsedAt != nil {
		return nil, apperrors.ErrLinkAlreadyUsed
	}

	now := time.Now().UTC()
	if now.After(token.ExpiresAt) {
		return nil, apperrors.ErrLinkExpired
	}
	if token.ServiceID != req.ServiceID {
		return nil, apperrors.ErrLinkWrongService
	}
	if token.SubjectID != req.SubjectID {
		return nil, apperrors.ErrLinkWrongUser
	}
	if token.Role == entities.RoleClient && token.ServiceID != "screen" {
		return nil, apperrors.ErrLinkRoleMismatch
	}

	won, err := s.repo.MarkUsed(ctx, jti, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the compare-and-swap race to a concurrent verify.
		return nil, apperrors.ErrLinkAlreadyUsed
	}

	return &dto.VerifyLinkResponse{
		ContextID: token.ContextID,
		RunID:     token.RunID,
		Role:      string(token.Role),
		ServiceID: token.ServiceID,
	}, nil
}
