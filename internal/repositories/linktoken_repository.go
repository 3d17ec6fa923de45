// Файл: internal/repositories/linktoken_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"psycheos-gateway/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LinkTokenRepository struct {
	db DBTX
}

func NewLinkTokenRepository(db DBTX) *LinkTokenRepository {
	return &LinkTokenRepository{db: db}
}

func (r *LinkTokenRepository) Insert(ctx context.Context, t *entities.LinkToken) error {
	t.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO link_tokens (jti, run_id, service_id, context_id, role, subject_id, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.JTI, t.RunID, t.ServiceID, t.ContextID, t.Role, t.SubjectID, t.ExpiresAt, t.UsedAt, t.CreatedAt)
	return err
}

func (r *LinkTokenRepository) FindByJTI(ctx context.Context, jti uuid.UUID) (*entities.LinkToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT jti, run_id, service_id, context_id, role, subject_id, expires_at, used_at, created_at
		FROM link_tokens WHERE jti = $1
	`, jti)

	var t entities.LinkToken
	if err := row.Scan(&t.JTI, &t.RunID, &t.ServiceID, &t.ContextID, &t.Role, &t.SubjectID, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// MarkUsed is the compare-and-swap: it only succeeds if used_at was still
// NULL at update time, so exactly one concurrent verify wins.
func (r *LinkTokenRepository) MarkUsed(ctx context.Context, jti uuid.UUID, usedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE link_tokens SET used_at = $2
		WHERE jti = $1 AND used_at IS NULL
	`, jti, usedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
