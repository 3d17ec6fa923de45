// Package entities holds the persisted shapes of the gateway's data model.
// Entities embed types.BaseEntity the way the teacher's entities package
// does, preferring typed string-backed enums with Valid() methods over bare
// strings for anything with a closed value set.
package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleSpecialist UserRole = "specialist"
	RoleClient     UserRole = "client"
)

func (r UserRole) Valid() bool {
	return r == RoleSpecialist || r == RoleClient
}

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

type User struct {
	ID         uuid.UUID `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Role       UserRole  `db:"role"`
	Status     UserStatus `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type ContextStatus string

const (
	ContextStatusActive   ContextStatus = "active"
	ContextStatusArchived ContextStatus = "archived"
)

func (s ContextStatus) Valid() bool {
	return s == ContextStatusActive || s == ContextStatusArchived
}

// Context is a specialist-owned case ("the case" in spec terms); sessions
// across every tool bot attach artifacts to one Context.
type Context struct {
	ID          uuid.UUID     `db:"id"`
	SpecialistID uuid.UUID    `db:"specialist_id"`
	ClientLabel string        `db:"client_label"`
	Status      ContextStatus `db:"status"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

// Invite is a short-token, N-shot access grant a specialist can hand out so
// a new client can reach the front-office bot.
type Invite struct {
	Token      string    `db:"token"`
	CreatorID  uuid.UUID `db:"creator_id"`
	MaxUses    int       `db:"max_uses"`
	UsedCount  int       `db:"used_count"`
	ExpiresAt  time.Time `db:"expires_at"`
	CreatedAt  time.Time `db:"created_at"`
}

func (i Invite) Exhausted() bool {
	return i.UsedCount >= i.MaxUses
}

func (i Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// LinkToken is a one-shot, per-user, per-service handoff token: see
// internal/services.LinkTokenService for the issue/verify lifecycle.
type LinkToken struct {
	JTI        uuid.UUID  `db:"jti"`
	RunID      uuid.UUID  `db:"run_id"`
	ServiceID  string     `db:"service_id"`
	ContextID  uuid.UUID  `db:"context_id"`
	Role       UserRole   `db:"role"`
	SubjectID  int64      `db:"subject_id"`
	ExpiresAt  time.Time  `db:"expires_at"`
	UsedAt     *time.Time `db:"used_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// UpdateDedup is one row per (bot_id, update_id); its existence is the
// dedup primitive, never read for anything but the conflict check itself.
type UpdateDedup struct {
	BotID      string    `db:"bot_id"`
	UpdateID   int64     `db:"update_id"`
	ChatID     int64     `db:"chat_id"`
	ReceivedAt time.Time `db:"received_at"`
}

// FSMState is the (bot_id, chat_id) row carrying a handler's current state
// and an opaque payload only that handler may interpret.
type FSMState struct {
	BotID     string          `db:"bot_id"`
	ChatID    int64           `db:"chat_id"`
	UserID    uuid.UUID       `db:"user_id"`
	Role      UserRole        `db:"role"`
	State     string          `db:"state"`
	Payload   json.RawMessage `db:"state_payload"`
	ContextID *uuid.UUID      `db:"context_id"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Artifact is the persisted structured output of one completed run.
type Artifact struct {
	ID                 uuid.UUID       `db:"id"`
	ContextID          uuid.UUID       `db:"context_id"`
	ServiceID          string          `db:"service_id"`
	RunID              uuid.UUID       `db:"run_id"`
	SpecialistTelegram int64           `db:"specialist_telegram_id"`
	Payload            json.RawMessage `db:"payload"`
	Summary            string          `db:"summary"`
	CreatedAt          time.Time       `db:"created_at"`
}

type AssessmentStatus string

const (
	AssessmentStatusInProgress AssessmentStatus = "in_progress"
	AssessmentStatusCompleted AssessmentStatus = "completed"
)

type ScreeningPhase string

const (
	PhaseOne    ScreeningPhase = "phase1"
	PhaseTwo    ScreeningPhase = "phase2"
	PhaseThree  ScreeningPhase = "phase3"
	PhaseReport ScreeningPhase = "report"
)

// ScreeningAssessment is created alongside a screen link token and advances
// through the three-phase orchestrator until report generation marks it
// completed.
type ScreeningAssessment struct {
	ID                 uuid.UUID        `db:"id"`
	ContextID          uuid.UUID        `db:"context_id"`
	LinkTokenJTI        uuid.UUID       `db:"link_token_jti"`
	SpecialistUserID    int64           `db:"specialist_user_id"`
	ClientChatID        int64           `db:"client_chat_id"`
	Status              AssessmentStatus `db:"status"`
	Phase               ScreeningPhase   `db:"phase"`
	Phase1Completed     bool             `db:"phase1_completed"`
	Phase2Questions     int              `db:"phase2_questions"`
	Phase3Questions     int              `db:"phase3_questions"`
	AxisVector          json.RawMessage  `db:"axis_vector"`
	LayerVector         json.RawMessage  `db:"layer_vector"`
	TensionMatrix       json.RawMessage  `db:"tension_matrix"`
	Rigidity            float64          `db:"rigidity"`
	Confidence          float64          `db:"confidence"`
	AmbiguityZones      json.RawMessage  `db:"ambiguity_zones"`
	DominantCells       json.RawMessage  `db:"dominant_cells"`
	ResponseHistory     json.RawMessage  `db:"response_history"`
	ReportJSON          json.RawMessage  `db:"report_json"`
	ReportText          string           `db:"report_text"`
	CreatedAt           time.Time        `db:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at"`
}

// SpecialistProfile is the simulator's persistent per-specialist rolling
// stability profile. Kept in its own table keyed by specialist telegram id
// rather than aliased onto an FSM row — Open Question (a) in spec.md §9,
// resolved here in favor of the separate-table option the spec itself
// flags as preferable.
type SpecialistProfile struct {
	SpecialistTelegram int64     `db:"specialist_telegram_id"`
	SessionCount       int       `db:"session_count"`
	AvgTSI             float64   `db:"avg_tsi"`
	AvgSignalGreen     float64   `db:"avg_signal_green"`
	AvgSignalYellow    float64   `db:"avg_signal_yellow"`
	AvgSignalRed       float64   `db:"avg_signal_red"`
	RollingDeltaTrust  float64   `db:"rolling_delta_trust"`
	UpdatedAt          time.Time `db:"updated_at"`
}
