// Файл: internal/repositories/dedup_repository.go
package repositories

import (
	"context"
	"time"
)

// DedupRepository is the exactly-once delivery primitive: one row per
// (bot_id, update_id). INSERT ... ON CONFLICT DO NOTHING is the sole
// synchronization point required (spec §5 "Cross-request contention").
type DedupRepository struct {
	db DBTX
}

func NewDedupRepository(db DBTX) *DedupRepository {
	return &DedupRepository{db: db}
}

// TryInsert returns true if this is the first delivery of (botID, updateID).
func (r *DedupRepository) TryInsert(ctx context.Context, botID string, updateID, chatID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO update_dedup (bot_id, update_id, chat_id, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bot_id, update_id) DO NOTHING
	`, botID, updateID, chatID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
