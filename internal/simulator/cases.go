// Package simulator holds the client-engine side of a training session:
// the built-in case bank, session goal/mode labels, and Claude response
// parsing — everything the simulator handler needs that isn't dialogue
// control.
package simulator

import "psycheos-gateway/internal/domainmath"

type SessionGoal string

const (
	GoalContactStabilization  SessionGoal = "CONTACT_STABILIZATION"
	GoalDiagnosticClarif      SessionGoal = "DIAGNOSTIC_CLARIFICATION"
	GoalSymptomWork           SessionGoal = "SYMPTOM_WORK"
	GoalRegulatoryConflict    SessionGoal = "REGULATORY_CONFLICT"
	GoalCognitiveRestructure  SessionGoal = "COGNITIVE_RESTRUCTURING"
	GoalAffectWork            SessionGoal = "AFFECT_WORK"
	GoalCrisisSupport         SessionGoal = "CRISIS_SUPPORT"
	GoalTherapyTermination    SessionGoal = "THERAPY_TERMINATION"
)

var GoalLabels = map[SessionGoal]string{
	GoalContactStabilization: "Установление контакта и стабилизация",
	GoalDiagnosticClarif:     "Диагностическое уточнение",
	GoalSymptomWork:          "Работа с симптомом",
	GoalRegulatoryConflict:   "Работа с регуляторным конфликтом",
	GoalCognitiveRestructure: "Когнитивная реструктуризация",
	GoalAffectWork:           "Работа с аффектом",
	GoalCrisisSupport:        "Поддержка в кризисе",
	GoalTherapyTermination:   "Завершение терапии",
}

type SessionMode string

const (
	ModeTraining SessionMode = "TRAINING"
	ModePractice SessionMode = "PRACTICE"
)

var ModeLabels = map[SessionMode]string{
	ModeTraining: "🎓 Обучение (сигнал + объяснение)",
	ModePractice: "🏋️ Тренировка (только сигнал)",
}

type CrisisFlag string

const (
	CrisisNone     CrisisFlag = "NONE"
	CrisisModerate CrisisFlag = "MODERATE"
	CrisisHigh     CrisisFlag = "HIGH"
)

// BuiltinCase is one training-mode case: a fixed client profile (brief and
// crisis flag, which the system prompt is built from) and dynamics
// parameters, which feed the case complexity index (CCI).
type BuiltinCase struct {
	CaseID      string
	CaseName    string
	Difficulty  string
	ClientBrief string
	Dynamics    domainmath.CaseDynamics
	Crisis      CrisisFlag
}

// BuiltinCases is the training-mode case bank. A placeholder for the
// original's data-driven case file, which was not present in the
// retrieval pack — see DESIGN.md.
var BuiltinCases = []BuiltinCase{
	{
		CaseID:      "case-1",
		CaseName:    "Тревожная избегающая клиентка",
		Difficulty:  "moderate",
		ClientBrief: "Женщина, 29 лет. Жалобы: тревога, избегание социальных ситуаций.",
		Dynamics: domainmath.CaseDynamics{
			BaselineTensionL0: 55,
			Volatility:        0.4,
			L3Accessibility:   domainmath.AccessibilityModerate,
			EscalationSpeed:   domainmath.EscalationModerate,
			L0Reactivity:      domainmath.AccessibilityModerate,
			InterventionRange: domainmath.InterventionModerate,
		},
		Crisis: CrisisNone,
	},
	{
		CaseID:      "case-2",
		CaseName:    "Клиент в остром кризисе",
		Difficulty:  "high",
		ClientBrief: "Мужчина, 41 год. Острый кризис, высокая реактивность.",
		Dynamics: domainmath.CaseDynamics{
			BaselineTensionL0: 85,
			Volatility:        0.8,
			L3Accessibility:   domainmath.AccessibilityLow,
			EscalationSpeed:   domainmath.EscalationFast,
			L0Reactivity:      domainmath.AccessibilityHigh,
			InterventionRange: domainmath.InterventionNarrow,
		},
		Crisis: CrisisHigh,
	},
	{
		CaseID:      "case-3",
		CaseName:    "Стабильный долгосрочный клиент",
		Difficulty:  "low",
		ClientBrief: "Женщина, 35 лет. Долгосрочная терапия, хороший альянс.",
		Dynamics: domainmath.CaseDynamics{
			BaselineTensionL0: 30,
			Volatility:        0.2,
			L3Accessibility:   domainmath.AccessibilityHigh,
			EscalationSpeed:   domainmath.EscalationSlow,
			L0Reactivity:      domainmath.AccessibilityLow,
			InterventionRange: domainmath.InterventionWide,
		},
		Crisis: CrisisNone,
	},
}

func FindCase(caseID string) *BuiltinCase {
	for i := range BuiltinCases {
		if BuiltinCases[i].CaseID == caseID {
			return &BuiltinCases[i]
		}
	}
	return nil
}

// BuildSystemPrompt assembles the Claude client-engine system prompt from
// a case's brief and crisis flag and the session's goal/mode. The case's
// dynamics parameters are not part of the prompt.
func BuildSystemPrompt(brief string, crisis CrisisFlag, goal SessionGoal, mode SessionMode) string {
	crisisLine := "Кризисная ситуация отсутствует."
	if crisis != CrisisNone {
		crisisLine = "Внимание: в кейсе присутствует кризисная динамика уровня " + string(crisis) + "."
	}

	supervisorInstruction := "После реплики клиента выведи блок супервизора, отделённый строкой из дефисов, " +
		"с полями SIGNAL, SUPERVISOR [S<n>], ACTIVE_LAYER, MATCH, CASCADE_PROB, DELTA (trust, tension_L0, uncertainty, defense, cognitive)."
	if mode == ModePractice {
		supervisorInstruction = "После реплики клиента выведи только блок супервизора с полем SIGNAL."
	}

	return "Ты играешь роль клиента на терапевтической сессии.\n" +
		brief + "\n" + crisisLine + "\n" +
		"Цель сессии: " + GoalLabels[goal] + ".\n" +
		supervisorInstruction
}
