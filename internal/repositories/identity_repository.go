// Файл: internal/repositories/identity_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"psycheos-gateway/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, telegram_id, role, status, created_at, updated_at
		FROM users WHERE telegram_id = $1
	`, telegramID)

	var u entities.User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, telegram_id, role, status, created_at, updated_at
		FROM users WHERE id = $1
	`, id)

	var u entities.User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetOrCreate implements "created on first contact; never deleted" (spec
// §3) — the substrate's only identity write path.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64, role entities.UserRole) (*entities.User, error) {
	existing, err := r.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	u := &entities.User{
		ID:         uuid.New(),
		TelegramID: telegramID,
		Role:       role,
		Status:     entities.UserStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO users (id, telegram_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_id) DO NOTHING
	`, u.ID, u.TelegramID, u.Role, u.Status, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return r.FindByTelegramID(ctx, telegramID)
}

type ContextRepository struct {
	db DBTX
}

func NewContextRepository(db DBTX) *ContextRepository {
	return &ContextRepository{db: db}
}

func (r *ContextRepository) Create(ctx context.Context, c *entities.Context) error {
	now := time.Now().UTC()
	c.ID = uuid.New()
	c.Status = entities.ContextStatusActive
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO contexts (id, specialist_id, client_label, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.SpecialistID, c.ClientLabel, c.Status, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ContextRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Context, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, specialist_id, client_label, status, created_at, updated_at
		FROM contexts WHERE id = $1
	`, id)

	var c entities.Context
	if err := row.Scan(&c.ID, &c.SpecialistID, &c.ClientLabel, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContextRepository) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE contexts SET status = $2, updated_at = $3 WHERE id = $1
	`, id, entities.ContextStatusArchived, time.Now().UTC())
	return err
}
