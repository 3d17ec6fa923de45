// Файл: internal/repositories/fsm_repository.go
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"psycheos-gateway/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FSMRepository stores one row per (bot_id, chat_id). The upsert is the
// teacher's raw-SQL repository style generalized with a conflict clause —
// none of the teacher's own repositories needed upsert, so the SQL shape is
// adapted from original_source's SQLAlchemy on_conflict_do_update.
type FSMRepository struct {
	db DBTX
}

func NewFSMRepository(db DBTX) *FSMRepository {
	return &FSMRepository{db: db}
}

func (r *FSMRepository) Load(ctx context.Context, botID string, chatID int64) (*entities.FSMState, error) {
	row := r.db.QueryRow(ctx, `
		SELECT bot_id, chat_id, user_id, role, state, state_payload, context_id, updated_at
		FROM fsm_states
		WHERE bot_id = $1 AND chat_id = $2
	`, botID, chatID)

	var s entities.FSMState
	var payload []byte
	if err := row.Scan(&s.BotID, &s.ChatID, &s.UserID, &s.Role, &s.State, &payload, &s.ContextID, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Payload = json.RawMessage(payload)
	return &s, nil
}

func (r *FSMRepository) Upsert(ctx context.Context, s *entities.FSMState) error {
	s.UpdatedAt = time.Now().UTC()
	if s.Payload == nil {
		s.Payload = json.RawMessage(`{}`)
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO fsm_states (bot_id, chat_id, user_id, role, state, state_payload, context_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (bot_id, chat_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			role = EXCLUDED.role,
			state = EXCLUDED.state,
			state_payload = EXCLUDED.state_payload,
			context_id = EXCLUDED.context_id,
			updated_at = EXCLUDED.updated_at
	`, s.BotID, s.ChatID, s.UserID, s.Role, s.State, []byte(s.Payload), s.ContextID, s.UpdatedAt)
	return err
}

// NewSessionID is a convenience used by handlers entering a fresh run.
func NewSessionID() uuid.UUID {
	return uuid.New()
}
