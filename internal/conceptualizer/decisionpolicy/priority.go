package decisionpolicy

// Priority ranks how urgently the dialogue needs to address a gap in the
// hypothesis model; lower value is more urgent.
type Priority int

const (
	PriorityCritical Priority = 1 // no managerial hypothesis
	PriorityHigh     Priority = 2 // dominant hypothesis without alternatives
	PriorityMedium   Priority = 3 // structural gaps
	PriorityLow      Priority = 4 // refinement
	PriorityNone     Priority = 5 // general exploration
)

type priorityCheck struct {
	priority Priority
	reason   string
}

// priorityChecker evaluates the session's hypothesis set against the four
// priority rules, in order, returning the first one that fires.
type priorityChecker struct {
	session SessionState
	active  []Hypothesis
	manager []Hypothesis
}

func newPriorityChecker(session SessionState) priorityChecker {
	return priorityChecker{
		session: session,
		active:  session.activeHypotheses(),
		manager: session.managerialHypotheses(),
	}
}

func (c priorityChecker) checkPriority() (Priority, string) {
	for _, check := range []func() priorityCheck{
		c.checkNoManagerial,
		c.checkDominantWithoutAlternatives,
		c.checkStructuralIssues,
		c.checkRefinementNeeded,
	} {
		if result := check(); result.priority != PriorityNone {
			return result.priority, result.reason
		}
	}
	return PriorityNone, "No specific priority — general exploration"
}

func (c priorityChecker) checkNoManagerial() priorityCheck {
	var s, f, d int
	for _, h := range c.active {
		switch h.Type {
		case HypothesisStructural:
			s++
		case HypothesisFunctional:
			f++
		case HypothesisDynamic:
			d++
		}
	}
	m := len(c.manager)

	if (s > 0 || f > 0 || d > 0) && m == 0 {
		return priorityCheck{PriorityCritical, "have understanding but no managerial hypothesis"}
	}
	if len(c.active) >= 3 && m == 0 {
		return priorityCheck{PriorityCritical, "model has hypotheses but no management point"}
	}
	return priorityCheck{PriorityNone, ""}
}

func (c priorityChecker) checkDominantWithoutAlternatives() priorityCheck {
	for _, dom := range c.active {
		if dom.Confidence != ConfidenceDominant {
			continue
		}
		hasAlternative := false
		for _, h := range c.active {
			if h.Type == dom.Type && h.ID != dom.ID {
				hasAlternative = true
				break
			}
		}
		if !hasAlternative {
			return priorityCheck{PriorityHigh, "dominant hypothesis has no alternatives"}
		}
	}
	return priorityCheck{PriorityNone, ""}
}

func (c priorityChecker) checkStructuralIssues() priorityCheck {
	if len(c.active) == 0 {
		return priorityCheck{PriorityNone, ""}
	}

	if len(c.active) >= 5 {
		hasStructural := false
		hasConfident := false
		for _, h := range c.active {
			if h.Type == HypothesisStructural {
				hasStructural = true
			}
			if h.Confidence == ConfidenceWorking || h.Confidence == ConfidenceDominant {
				hasConfident = true
			}
		}
		if !hasStructural {
			return priorityCheck{PriorityMedium, "hypotheses present but no structural hypothesis"}
		}
		if !hasConfident {
			return priorityCheck{PriorityMedium, "hypotheses present but all weak/conditional"}
		}
	}

	if len(c.active) >= 3 {
		layers := map[PsycheLevel]bool{}
		for _, h := range c.active {
			for _, l := range h.Levels {
				layers[l] = true
			}
		}
		if len(layers) == 1 {
			return priorityCheck{PriorityMedium, "all hypotheses on one layer; need multi-layer understanding"}
		}
	}

	return priorityCheck{PriorityNone, ""}
}

func (c priorityChecker) checkRefinementNeeded() priorityCheck {
	m := len(c.manager)
	total := len(c.active)
	if m == 0 || total < 2 || total > 6 {
		return priorityCheck{PriorityNone, ""}
	}
	types := map[HypothesisType]bool{}
	for _, h := range c.active {
		types[h.Type] = true
	}
	if len(types) >= 2 && m >= 1 {
		return priorityCheck{PriorityLow, "model nearly complete"}
	}
	return priorityCheck{PriorityNone, ""}
}
