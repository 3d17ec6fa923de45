// Файл: internal/repositories/screening_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"psycheos-gateway/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ScreeningRepository struct {
	db DBTX
}

func NewScreeningRepository(db DBTX) *ScreeningRepository {
	return &ScreeningRepository{db: db}
}

func (r *ScreeningRepository) Create(ctx context.Context, a *entities.ScreeningAssessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Status == "" {
		a.Status = entities.AssessmentStatusInProgress
	}
	if a.Phase == "" {
		a.Phase = entities.PhaseOne
	}
	if a.AxisVector == nil {
		a.AxisVector = []byte(`{}`)
	}
	if a.LayerVector == nil {
		a.LayerVector = []byte(`{}`)
	}
	if a.TensionMatrix == nil {
		a.TensionMatrix = []byte(`{}`)
	}
	if a.AmbiguityZones == nil {
		a.AmbiguityZones = []byte(`[]`)
	}
	if a.DominantCells == nil {
		a.DominantCells = []byte(`[]`)
	}
	if a.ResponseHistory == nil {
		a.ResponseHistory = []byte(`[]`)
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO screening_assessments (
			id, context_id, link_token_jti, specialist_user_id, client_chat_id,
			status, phase, phase1_completed, phase2_questions, phase3_questions,
			axis_vector, layer_vector, tension_matrix, rigidity, confidence,
			ambiguity_zones, dominant_cells, response_history, report_json, report_text,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22
		)
	`, a.ID, a.ContextID, a.LinkTokenJTI, a.SpecialistUserID, a.ClientChatID,
		a.Status, a.Phase, a.Phase1Completed, a.Phase2Questions, a.Phase3Questions,
		[]byte(a.AxisVector), []byte(a.LayerVector), []byte(a.TensionMatrix), a.Rigidity, a.Confidence,
		[]byte(a.AmbiguityZones), []byte(a.DominantCells), []byte(a.ResponseHistory), []byte(a.ReportJSON), a.ReportText,
		a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *ScreeningRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ScreeningAssessment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, context_id, link_token_jti, specialist_user_id, client_chat_id,
			status, phase, phase1_completed, phase2_questions, phase3_questions,
			axis_vector, layer_vector, tension_matrix, rigidity, confidence,
			ambiguity_zones, dominant_cells, response_history, report_json, report_text,
			created_at, updated_at
		FROM screening_assessments WHERE id = $1
	`, id)
	return scanAssessment(row)
}

func (r *ScreeningRepository) FindByClientChat(ctx context.Context, clientChatID int64) (*entities.ScreeningAssessment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, context_id, link_token_jti, specialist_user_id, client_chat_id,
			status, phase, phase1_completed, phase2_questions, phase3_questions,
			axis_vector, layer_vector, tension_matrix, rigidity, confidence,
			ambiguity_zones, dominant_cells, response_history, report_json, report_text,
			created_at, updated_at
		FROM screening_assessments WHERE client_chat_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, clientChatID)
	return scanAssessment(row)
}

func scanAssessment(row pgx.Row) (*entities.ScreeningAssessment, error) {
	var a entities.ScreeningAssessment
	var axis, layer, tension, ambiguity, dominant, history, report []byte
	err := row.Scan(&a.ID, &a.ContextID, &a.LinkTokenJTI, &a.SpecialistUserID, &a.ClientChatID,
		&a.Status, &a.Phase, &a.Phase1Completed, &a.Phase2Questions, &a.Phase3Questions,
		&axis, &layer, &tension, &a.Rigidity, &a.Confidence,
		&ambiguity, &dominant, &history, &report, &a.ReportText,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.AxisVector, a.LayerVector, a.TensionMatrix = axis, layer, tension
	a.AmbiguityZones, a.DominantCells, a.ResponseHistory, a.ReportJSON = ambiguity, dominant, history, report
	return &a, nil
}

// Update persists the whole mutable surface of an assessment every turn —
// the orchestrator always recomputes derived fields wholesale from
// response_history (spec §4.5 "never incrementally patched"), so a single
// UPDATE after each response keeps storage consistent with that invariant.
func (r *ScreeningRepository) Update(ctx context.Context, a *entities.ScreeningAssessment) error {
	a.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		UPDATE screening_assessments SET
			status = $2, phase = $3, phase1_completed = $4, phase2_questions = $5, phase3_questions = $6,
			axis_vector = $7, layer_vector = $8, tension_matrix = $9, rigidity = $10, confidence = $11,
			ambiguity_zones = $12, dominant_cells = $13, response_history = $14,
			report_json = $15, report_text = $16, updated_at = $17
		WHERE id = $1
	`, a.ID, a.Status, a.Phase, a.Phase1Completed, a.Phase2Questions, a.Phase3Questions,
		[]byte(a.AxisVector), []byte(a.LayerVector), []byte(a.TensionMatrix), a.Rigidity, a.Confidence,
		[]byte(a.AmbiguityZones), []byte(a.DominantCells), []byte(a.ResponseHistory),
		[]byte(a.ReportJSON), a.ReportText, a.UpdatedAt)
	return err
}
