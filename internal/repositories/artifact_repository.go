// Файл: internal/repositories/artifact_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/infrastructure/bd"
	"psycheos-gateway/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ArtifactRepository struct {
	db DBTX
}

func NewArtifactRepository(db DBTX) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Save is best-effort and retry-idempotent: ON CONFLICT DO NOTHING on
// (run_id, service_id) absorbs webhook retries silently (spec §4.4).
func (r *ArtifactRepository) Save(ctx context.Context, a *entities.Artifact) error {
	if a.RunID == uuid.Nil || a.ContextID == uuid.Nil {
		return nil
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO artifacts (id, context_id, service_id, run_id, specialist_telegram_id, payload, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, service_id) DO NOTHING
	`, a.ID, a.ContextID, a.ServiceID, a.RunID, a.SpecialistTelegram, []byte(a.Payload), a.Summary, a.CreatedAt)
	return err
}

func (r *ArtifactRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Artifact, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, context_id, service_id, run_id, specialist_telegram_id, payload, summary, created_at
		FROM artifacts WHERE id = $1
	`, id)

	var a entities.Artifact
	var payload []byte
	if err := row.Scan(&a.ID, &a.ContextID, &a.ServiceID, &a.RunID, &a.SpecialistTelegram, &payload, &a.Summary, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Payload = payload
	return &a, nil
}

// ListByContext returns the newest 20 artifacts for a context, optionally
// narrowed by service_id — reuses the teacher's squirrel filter builder
// (internal/infrastructure/bd.ApplyListParams) for the optional service_id
// filter; context scoping is a hard Where, never relaxed by the filter map.
func (r *ArtifactRepository) ListByContext(ctx context.Context, contextID uuid.UUID, serviceID string) ([]entities.Artifact, error) {
	builder := sq.Select("id", "context_id", "service_id", "run_id", "specialist_telegram_id", "payload", "summary", "created_at").
		From("artifacts").
		Where(sq.Eq{"context_id": contextID}).
		PlaceholderFormat(sq.Dollar)

	filter := types.Filter{
		Sort:           map[string]string{"created_at": "desc"},
		Filter:         map[string]interface{}{},
		Limit:          20,
		WithPagination: true,
	}
	if serviceID != "" {
		filter.Filter["service_id"] = serviceID
	}
	allowed := map[string]string{"service_id": "service_id", "created_at": "created_at"}
	builder = bd.ApplyListParams(builder, filter, allowed)

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Artifact
	for rows.Next() {
		var a entities.Artifact
		var payload []byte
		if err := rows.Scan(&a.ID, &a.ContextID, &a.ServiceID, &a.RunID, &a.SpecialistTelegram, &payload, &a.Summary, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Payload = payload
		out = append(out, a)
	}
	return out, rows.Err()
}
