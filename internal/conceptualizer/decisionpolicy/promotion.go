package decisionpolicy

import "strings"

// managerialMarkers is the fixed lexicon spec.md's rule-based override
// checks a hypothesis formulation against: Russian terms for control,
// agency and intervention points. Two or more hits promote the hypothesis
// to managerial regardless of what the oracle itself classified it as.
var managerialMarkers = []string{
	"управля", "контрол", "рычаг", "точка воздействия", "вмешательств",
	"изменить", "агент изменени", "ответственн", "решение принимает",
	"может повлиять", "регулиру",
}

// PromoteManagerial applies the ≥2-marker override: if formulation contains
// at least two markers from the fixed lexicon, the hypothesis is treated
// as managerial even when the oracle classified it otherwise.
func PromoteManagerial(h Hypothesis) Hypothesis {
	if h.Type == HypothesisManagerial {
		return h
	}
	lower := strings.ToLower(h.Formulation)
	hits := 0
	for _, marker := range managerialMarkers {
		if strings.Contains(lower, marker) {
			hits++
			if hits >= 2 {
				h.Type = HypothesisManagerial
				return h
			}
		}
	}
	return h
}
