// Package decisionpolicy implements the conceptualizer's Socratic dialogue
// control: priority checking over the hypothesis set, question-type and
// target selection, and the continue/stop decision.
package decisionpolicy

import "time"

type PsycheLevel string

const (
	LevelL0 PsycheLevel = "L0"
	LevelL1 PsycheLevel = "L1"
	LevelL2 PsycheLevel = "L2"
	LevelL3 PsycheLevel = "L3"
	LevelL4 PsycheLevel = "L4"
)

type HypothesisType string

const (
	HypothesisStructural HypothesisType = "structural"
	HypothesisFunctional HypothesisType = "functional"
	HypothesisDynamic    HypothesisType = "dynamic"
	HypothesisManagerial HypothesisType = "managerial"
)

type ConfidenceLevel string

const (
	ConfidenceWeak        ConfidenceLevel = "weak"
	ConfidenceWorking     ConfidenceLevel = "working"
	ConfidenceDominant    ConfidenceLevel = "dominant"
	ConfidenceConditional ConfidenceLevel = "conditional"
)

type QuestionType string

const (
	QuestionLevelCheck        QuestionType = "level_check"
	QuestionFunctionCheck     QuestionType = "function_check"
	QuestionDynamicsCheck     QuestionType = "dynamics_check"
	QuestionAlternativesCheck QuestionType = "alternatives_check"
	QuestionControlCheck      QuestionType = "control_check"
	QuestionOther             QuestionType = "other"
)

type RedFlagSeverity string

const (
	RedFlagWarning  RedFlagSeverity = "warning"
	RedFlagStop     RedFlagSeverity = "stop"
	RedFlagCritical RedFlagSeverity = "critical"
)

// Hypothesis is one conceptualization hypothesis in a session's model.
type Hypothesis struct {
	ID          string
	Type        HypothesisType
	Levels      []PsycheLevel
	Formulation string
	Confidence  ConfidenceLevel
	Function    string
}

func (h Hypothesis) hasLevel(l PsycheLevel) bool {
	for _, lvl := range h.Levels {
		if lvl == l {
			return true
		}
	}
	return false
}

// RedFlag is a clinical/architectural/procedural concern raised during the
// dialogue; STOP and CRITICAL severities block progression to output.
type RedFlag struct {
	Severity    RedFlagSeverity
	Description string
}

// Progress tracks dialogue-turn counters.
type Progress struct {
	DialogueTurns int
}

// SessionState is the conceptualizer's accumulated hypothesis model, the
// input to every decision in this package.
type SessionState struct {
	SessionID  string
	Hypotheses []Hypothesis
	Progress   Progress
	RedFlags   []RedFlag
	UpdatedAt  time.Time
}

func (s SessionState) activeHypotheses() []Hypothesis {
	return s.Hypotheses
}

func (s SessionState) managerialHypotheses() []Hypothesis {
	var out []Hypothesis
	for _, h := range s.Hypotheses {
		if h.Type == HypothesisManagerial {
			out = append(out, h)
		}
	}
	return out
}

func (s SessionState) hasBlockingFlags() bool {
	for _, f := range s.RedFlags {
		if f.Severity == RedFlagStop || f.Severity == RedFlagCritical {
			return true
		}
	}
	return false
}

func (s SessionState) blockingRedFlags() []RedFlag {
	var out []RedFlag
	for _, f := range s.RedFlags {
		if f.Severity == RedFlagStop || f.Severity == RedFlagCritical {
			out = append(out, f)
		}
	}
	return out
}

// CanProceedToOutput is the minimal-model gate: at least two hypotheses,
// at least one managerial hypothesis, and no blocking red flags.
func (s SessionState) CanProceedToOutput() bool {
	if len(s.Hypotheses) < 2 {
		return false
	}
	if len(s.managerialHypotheses()) == 0 {
		return false
	}
	if s.hasBlockingFlags() {
		return false
	}
	return true
}
