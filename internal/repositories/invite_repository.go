// Файл: internal/repositories/invite_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"psycheos-gateway/internal/entities"

	"github.com/jackc/pgx/v5"
)

type InviteRepository struct {
	db DBTX
}

func NewInviteRepository(db DBTX) *InviteRepository {
	return &InviteRepository{db: db}
}

func (r *InviteRepository) Create(ctx context.Context, inv *entities.Invite) error {
	inv.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO invites (token, creator_id, max_uses, used_count, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, inv.Token, inv.CreatorID, inv.MaxUses, inv.UsedCount, inv.ExpiresAt, inv.CreatedAt)
	return err
}

func (r *InviteRepository) FindByToken(ctx context.Context, token string) (*entities.Invite, error) {
	row := r.db.QueryRow(ctx, `
		SELECT token, creator_id, max_uses, used_count, expires_at, created_at
		FROM invites WHERE token = $1
	`, token)

	var inv entities.Invite
	if err := row.Scan(&inv.Token, &inv.CreatorID, &inv.MaxUses, &inv.UsedCount, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// Redeem increments used_count only while it is still below max_uses,
// mirroring the link-token compare-and-swap idiom for an N-shot grant.
func (r *InviteRepository) Redeem(ctx context.Context, token string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invites SET used_count = used_count + 1
		WHERE token = $1 AND used_count < max_uses AND expires_at > $2
	`, token, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
