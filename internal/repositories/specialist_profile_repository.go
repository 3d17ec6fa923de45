// Файл: internal/repositories/specialist_profile_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"psycheos-gateway/internal/entities"

	"github.com/jackc/pgx/v5"
)

// SpecialistProfileRepository backs the simulator's persistent rolling
// stability profile, kept in its own table per Open Question (a) — see
// entities.SpecialistProfile.
type SpecialistProfileRepository struct {
	db DBTX
}

func NewSpecialistProfileRepository(db DBTX) *SpecialistProfileRepository {
	return &SpecialistProfileRepository{db: db}
}

func (r *SpecialistProfileRepository) Get(ctx context.Context, specialistTelegram int64) (*entities.SpecialistProfile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT specialist_telegram_id, session_count, avg_tsi, avg_signal_green,
			avg_signal_yellow, avg_signal_red, rolling_delta_trust, updated_at
		FROM specialist_profiles WHERE specialist_telegram_id = $1
	`, specialistTelegram)

	var p entities.SpecialistProfile
	if err := row.Scan(&p.SpecialistTelegram, &p.SessionCount, &p.AvgTSI, &p.AvgSignalGreen,
		&p.AvgSignalYellow, &p.AvgSignalRed, &p.RollingDeltaTrust, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert folds a new session's stats into the rolling profile — last-writer-
// wins on the column values the caller computes (the blended average is the
// caller's responsibility; see internal/domainmath and the simulator
// handler's profile update step).
func (r *SpecialistProfileRepository) Upsert(ctx context.Context, p *entities.SpecialistProfile) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO specialist_profiles (
			specialist_telegram_id, session_count, avg_tsi, avg_signal_green,
			avg_signal_yellow, avg_signal_red, rolling_delta_trust, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (specialist_telegram_id) DO UPDATE SET
			session_count = EXCLUDED.session_count,
			avg_tsi = EXCLUDED.avg_tsi,
			avg_signal_green = EXCLUDED.avg_signal_green,
			avg_signal_yellow = EXCLUDED.avg_signal_yellow,
			avg_signal_red = EXCLUDED.avg_signal_red,
			rolling_delta_trust = EXCLUDED.rolling_delta_trust,
			updated_at = EXCLUDED.updated_at
	`, p.SpecialistTelegram, p.SessionCount, p.AvgTSI, p.AvgSignalGreen,
		p.AvgSignalYellow, p.AvgSignalRed, p.RollingDeltaTrust, p.UpdatedAt)
	return err
}
