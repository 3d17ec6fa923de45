package decisionpolicy

import "strings"

// questionGenerator renders the Russian-language prompt text for a given
// question type, optionally targeting a specific hypothesis.
type questionGenerator struct {
	session    SessionState
	hypothesis *Hypothesis
}

func (g questionGenerator) generateLevelCheck() string {
	h := g.hypothesis
	if h == nil {
		return "Какой слой показывает максимальное напряжение?"
	}
	layersStr := joinLevels(h.Levels)
	if h.hasLevel(LevelL4) || h.hasLevel(LevelL3) {
		return "Вы отнесли это к " + layersStr + ". " +
			"Что конкретно указывает, что это именно этот уровень, " +
			"а не автоматическая реакция (L1) или выученный паттерн (L2)?"
	}
	if len(h.Levels) > 2 {
		return "Эта гипотеза охватывает несколько слоёв (" + layersStr + "). " +
			"Можем ли мы определить ОСНОВНОЙ слой, где напряжение максимально?"
	}
	return "Какие данные подтверждают отнесение к " + layersStr + "? " +
		"Могло ли это быть на другом уровне?"
}

func (g questionGenerator) generateFunctionCheck() string {
	if g.hypothesis != nil && g.hypothesis.Function != "" {
		return "Вы определили функцию как: '" + g.hypothesis.Function + "'. " +
			"Что сломается если система прекратит этот паттерн?"
	}
	return "Какую задачу решает система, поддерживая этот паттерн?"
}

func (g questionGenerator) generateDynamicsCheck() string {
	return "Что поддерживает этот паттерн во времени?"
}

func (g questionGenerator) generateAlternativesCheck() string {
	return "Какое альтернативное объяснение могло бы учесть те же данные?"
}

func (g questionGenerator) generateControlCheck() string {
	if len(g.session.managerialHypotheses()) == 0 {
		return "Где эта система может быть реально затронута? Что может измениться?"
	}
	return "Кто реальный агент изменения? Какова последовательность?"
}

func (g questionGenerator) generate(qType QuestionType) string {
	switch qType {
	case QuestionLevelCheck:
		return g.generateLevelCheck()
	case QuestionFunctionCheck:
		return g.generateFunctionCheck()
	case QuestionDynamicsCheck:
		return g.generateDynamicsCheck()
	case QuestionAlternativesCheck:
		return g.generateAlternativesCheck()
	case QuestionControlCheck:
		return g.generateControlCheck()
	default:
		return "Можете ли вы подробнее рассказать?"
	}
}

func joinLevels(levels []PsycheLevel) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}
