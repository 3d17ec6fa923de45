package decisionpolicy

const maxDialogueTurns = 20

// QuestionSelection is the decided next Socratic question, with the
// priority reasoning that produced it.
type QuestionSelection struct {
	QuestionText  string
	QuestionType  QuestionType
	Priority      Priority
	PriorityReason string
	Context       string
}

var priorityContext = map[Priority]string{
	PriorityCritical: "Критический вопрос для определения точки управления.",
	PriorityHigh:     "Тестируем гипотезу против альтернатив.",
	PriorityMedium:   "Организуем гипотезы по архитектуре.",
	PriorityLow:      "Уточняем понимание динамики.",
}

// Selector picks the next dialogue question and decides whether the
// dialogue should continue, given a session's accumulated hypothesis model.
type Selector struct {
	session  SessionState
	priority priorityChecker
}

func NewSelector(session SessionState) Selector {
	return Selector{session: session, priority: newPriorityChecker(session)}
}

func (s Selector) SelectNextQuestion() QuestionSelection {
	priority, reason := s.priority.checkPriority()
	qType := s.selectQuestionType(priority)
	target := s.identifyTarget(priority, qType)
	generator := questionGenerator{session: s.session, hypothesis: target}

	return QuestionSelection{
		QuestionText:   generator.generate(qType),
		QuestionType:   qType,
		Priority:       priority,
		PriorityReason: reason,
		Context:        priorityContext[priority],
	}
}

func (s Selector) selectQuestionType(priority Priority) QuestionType {
	switch priority {
	case PriorityCritical:
		return QuestionControlCheck
	case PriorityHigh:
		return QuestionAlternativesCheck
	case PriorityMedium:
		active := s.session.activeHypotheses()
		if len(active) >= 5 {
			hasStructural := false
			for _, h := range active {
				if h.Type == HypothesisStructural {
					hasStructural = true
					break
				}
			}
			if !hasStructural {
				return QuestionLevelCheck
			}
		}
		return QuestionFunctionCheck
	case PriorityLow:
		return QuestionDynamicsCheck
	default:
		turns := s.session.Progress.DialogueTurns
		switch {
		case turns < 3:
			return QuestionFunctionCheck
		case turns < 7:
			if turns%2 == 0 {
				return QuestionLevelCheck
			}
			return QuestionFunctionCheck
		default:
			return QuestionDynamicsCheck
		}
	}
}

func (s Selector) identifyTarget(priority Priority, qType QuestionType) *Hypothesis {
	active := s.session.activeHypotheses()
	if len(active) == 0 {
		return nil
	}

	if qType == QuestionAlternativesCheck {
		for i := range active {
			if active[i].Confidence == ConfidenceDominant {
				return &active[i]
			}
		}
	}

	if qType == QuestionFunctionCheck {
		var structural []Hypothesis
		for _, h := range active {
			if h.Type == HypothesisStructural {
				structural = append(structural, h)
			}
		}
		if len(structural) > 0 {
			for i := range structural {
				if structural[i].Function == "" {
					return &structural[i]
				}
			}
			return &structural[0]
		}
	}

	return &active[len(active)-1]
}

// ShouldContinueDialogue decides whether to keep asking questions: a turn
// cap, the minimal-model gate, and blocking red flags all end the dialogue.
func (s Selector) ShouldContinueDialogue() (bool, string) {
	if s.session.Progress.DialogueTurns >= maxDialogueTurns {
		return false, "reached dialogue turn limit"
	}
	if s.session.CanProceedToOutput() {
		return false, "minimal model achieved — ready for conceptualization"
	}
	if s.session.hasBlockingFlags() {
		blocking := s.session.blockingRedFlags()
		return false, "blocked by flag: " + blocking[0].Description
	}
	return true, "model incomplete — continuing dialogue"
}
