// Package policy validates and repairs Interpreter oracle outputs against
// the six safety rules (R001-R010): hypothesis-count limits, diagnostic
// language, definitive trauma claims, pathologising language, substantive
// uncertainty, and LOW_DATA mode constraints.
package policy

import "regexp"

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
)

type Mode string

const (
	ModeStandard Mode = "STANDARD"
	ModeLowData  Mode = "LOW_DATA"
)

type Confidence string

const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceLow      Confidence = "low"
)

// Hypothesis is one interpretative hypothesis entry in an Interpreter output.
type Hypothesis struct {
	HypothesisText string `json:"hypothesis_text"`
	Limitations    string `json:"limitations"`
}

// UncertaintyProfile captures the output's stated confidence and its
// supporting gaps/ambiguities.
type UncertaintyProfile struct {
	OverallConfidence Confidence `json:"overall_confidence"`
	DataGaps          []string  `json:"data_gaps"`
	Ambiguities       []string  `json:"ambiguities"`
}

// PolicyFlags is the output's self-reported compliance surface, updated in
// place by Repair.
type PolicyFlags struct {
	ContainsDiagnosis       bool              `json:"contains_diagnosis"`
	ContainsTraumaClaim     bool              `json:"contains_trauma_claim"`
	ContainsPathologyLang   bool              `json:"contains_pathology_language"`
	UncertaintyPresent      bool              `json:"uncertainty_present"`
	RepairApplied           bool              `json:"repair_applied"`
	Violations              []ViolationRecord `json:"violations,omitempty"`
}

type ViolationRecord struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
}

// Meta carries the output's operating mode.
type Meta struct {
	Mode Mode `json:"mode"`
}

// Output is the typed Interpreter payload the policy engine validates and
// repairs — the one concrete payload type for this handler, serialised once
// per turn per the handler-boundary design note.
type Output struct {
	Meta                    Meta
	InterpretativeHypotheses []Hypothesis
	UncertaintyProfile      UncertaintyProfile
	PolicyFlags             PolicyFlags
}

// Violation is one failed rule check.
type Violation struct {
	RuleID   string
	Severity Severity
	Message  string
	Count    int
	Max      int
}

type ValidationResult struct {
	Valid         bool
	Violations    []Violation
	CriticalCount int
	ErrorCount    int
}

type RepairReport struct {
	Repaired bool
	Changes  []string
}

// Engine holds the compiled rule patterns and term-replacement tables.
type Engine struct {
	diagnosticPatterns []*regexp.Regexp
	traumaPatterns     []*regexp.Regexp
	pathologyPatterns  []*regexp.Regexp

	diagnosticReplacements []replacement
	pathologyReplacements  []replacement
}

type replacement struct {
	term        string
	replacement string
	pattern     *regexp.Regexp
}

func NewEngine() *Engine {
	return &Engine{
		diagnosticPatterns: compileAll(
			`(?i)\bPTSD\b`,
			`(?i)\bдепресси[яи]\b`,
			`(?i)\bтревожн\w+ расстройств\w+`,
			`(?i)\bОКР\b`,
			`(?i)\bбиполярн\w+`,
			`(?i)\bшизофрени\w+`,
			`(?i)\bдиагноз\b`,
		),
		traumaPatterns: compileAll(
			`(?i)\b(явно|очевидно|определённо) травм\w+`,
			`(?i)\bтравма присутствует\b`,
			`(?i)\bбыл\w* травмирован\w*`,
			`(?i)\bдетская травма\b`,
		),
		pathologyPatterns: compileAll(
			`(?i)\bдисфункциональн\w+`,
			`(?i)\bмаладаптивн\w+`,
			`(?i)\bпатологическ\w+`,
			`(?i)\bсломан\w+`,
			`(?i)\bповрежд[её]нн\w+`,
			`(?i)\bненормальн\w+`,
		),
		diagnosticReplacements: newReplacements(map[string]string{
			"PTSD":                "паттерны, которые могут относиться к непереработанным сложным переживаниям",
			"депрессия":           "состояния сниженного настроения",
			"депрессии":           "состояний сниженного настроения",
			"тревожное расстройство": "паттерны повышенной тревоги",
			"ОКР":                 "повторяющиеся паттерны мыслей и поведения",
			"биполярное":          "вариативность настроения",
			"шизофрения":          "сложности обработки реальности",
			"диагноз":             "наблюдаемые паттерны",
		}),
		pathologyReplacements: newReplacements(map[string]string{
			"дисфункциональный": "находящийся под напряжением",
			"дисфункциональная": "находящаяся под напряжением",
			"маладаптивный":     "не служащий в настоящее время",
			"маладаптивная":     "не служащая в настоящее время",
			"патологический":    "заметный паттерн",
			"патологическая":    "заметная структура",
			"сломанный":         "фрагментированный",
			"сломанная":         "фрагментированная",
			"повреждённый":      "затронутый",
			"повреждённая":      "затронутая",
			"ненормальный":      "атипичный",
			"ненормальная":      "атипичная",
		}),
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func newReplacements(m map[string]string) []replacement {
	out := make([]replacement, 0, len(m))
	for term, repl := range m {
		out = append(out, replacement{
			term:        term,
			replacement: repl,
			pattern:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`),
		})
	}
	return out
}

// Validate runs all six checks, in rule order, against output.
func (e *Engine) Validate(output Output) ValidationResult {
	var violations []Violation

	for _, check := range []func(Output) *Violation{
		e.checkHypothesisCount,
		e.checkDiagnosticLanguage,
		e.checkTraumaClaims,
		e.checkPathologyLanguage,
		e.checkUncertainty,
		e.checkModeConstraints,
	} {
		if v := check(output); v != nil {
			violations = append(violations, *v)
		}
	}

	result := ValidationResult{Valid: len(violations) == 0, Violations: violations}
	for _, v := range violations {
		switch v.Severity {
		case SeverityCritical:
			result.CriticalCount++
		case SeverityError:
			result.ErrorCount++
		}
	}
	return result
}

func maxHypotheses(mode Mode) int {
	if mode == ModeLowData {
		return 1
	}
	return 3
}

func (e *Engine) checkHypothesisCount(o Output) *Violation {
	max := maxHypotheses(o.Meta.Mode)
	count := len(o.InterpretativeHypotheses)
	if count > max {
		return &Violation{RuleID: "R001", Severity: SeverityError, Message: "hypothesis count exceeds mode limit", Count: count, Max: max}
	}
	return nil
}

func (e *Engine) checkDiagnosticLanguage(o Output) *Violation {
	found := 0
	for _, h := range o.InterpretativeHypotheses {
		text := h.HypothesisText + " " + h.Limitations
		for _, p := range e.diagnosticPatterns {
			if p.MatchString(text) {
				found++
			}
		}
	}
	if found > 0 {
		return &Violation{RuleID: "R002", Severity: SeverityCritical, Message: "diagnostic language detected", Count: found}
	}
	return nil
}

func (e *Engine) checkTraumaClaims(o Output) *Violation {
	found := 0
	for _, h := range o.InterpretativeHypotheses {
		for _, p := range e.traumaPatterns {
			if p.MatchString(h.HypothesisText) {
				found++
			}
		}
	}
	if found > 0 {
		return &Violation{RuleID: "R003", Severity: SeverityError, Message: "definitive trauma claims", Count: found}
	}
	return nil
}

func (e *Engine) checkPathologyLanguage(o Output) *Violation {
	found := 0
	for _, h := range o.InterpretativeHypotheses {
		text := h.HypothesisText + " " + h.Limitations
		for _, p := range e.pathologyPatterns {
			if p.MatchString(text) {
				found++
			}
		}
	}
	if found > 0 {
		return &Violation{RuleID: "R004", Severity: SeverityError, Message: "pathology language detected", Count: found}
	}
	return nil
}

func (e *Engine) checkUncertainty(o Output) *Violation {
	profile := o.UncertaintyProfile
	if profile.OverallConfidence == ConfidenceHigh && len(profile.DataGaps) == 0 && len(profile.Ambiguities) == 0 {
		return &Violation{RuleID: "R006", Severity: SeverityError, Message: "high confidence without substantive uncertainty"}
	}
	return nil
}

func (e *Engine) checkModeConstraints(o Output) *Violation {
	if o.Meta.Mode != ModeLowData {
		return nil
	}
	count := len(o.InterpretativeHypotheses)
	violated := count > 1 || o.UncertaintyProfile.OverallConfidence != ConfidenceLow
	if violated {
		return &Violation{RuleID: "R010", Severity: SeverityCritical, Message: "LOW_DATA mode constraints violated", Count: count}
	}
	return nil
}

// Repair attempts to fix every violation in validation, capping at two
// passes (a repaired output is re-validated by the caller; the engine
// itself runs each applicable rule's fix exactly once per call).
func (e *Engine) Repair(output Output, validation ValidationResult) (Output, RepairReport) {
	if validation.Valid {
		return output, RepairReport{Repaired: false}
	}

	repaired := output
	var changes []string

	for _, v := range validation.Violations {
		switch v.RuleID {
		case "R001":
			repaired = e.repairHypothesisCount(repaired, v.Max)
			changes = append(changes, "Reduced hypothesis count")
		case "R002":
			repaired = e.repairDiagnosticLanguage(repaired)
			changes = append(changes, "Removed diagnostic language")
		case "R003":
			repaired = e.repairTraumaClaims(repaired)
			changes = append(changes, "Added modality to trauma statements")
		case "R004":
			repaired = e.repairPathologyLanguage(repaired)
			changes = append(changes, "Neutralised pathology language")
		case "R006":
			repaired = e.repairUncertainty(repaired)
			changes = append(changes, "Enhanced uncertainty profile")
		case "R010":
			repaired = e.repairModeConstraints(repaired)
			changes = append(changes, "Enforced mode constraints")
		}
	}

	repaired.PolicyFlags.RepairApplied = true
	records := make([]ViolationRecord, len(validation.Violations))
	for i, v := range validation.Violations {
		records[i] = ViolationRecord{Rule: v.RuleID, Severity: v.Severity}
	}
	repaired.PolicyFlags.Violations = records

	return repaired, RepairReport{Repaired: true, Changes: changes}
}

func (e *Engine) repairHypothesisCount(o Output, max int) Output {
	if len(o.InterpretativeHypotheses) > max {
		o.InterpretativeHypotheses = o.InterpretativeHypotheses[:max]
	}
	return o
}

func (e *Engine) repairDiagnosticLanguage(o Output) Output {
	for i := range o.InterpretativeHypotheses {
		for _, r := range e.diagnosticReplacements {
			o.InterpretativeHypotheses[i].HypothesisText = r.pattern.ReplaceAllString(o.InterpretativeHypotheses[i].HypothesisText, r.replacement)
		}
	}
	o.PolicyFlags.ContainsDiagnosis = false
	return o
}

var (
	traumaPresentPattern = regexp.MustCompile(`(?i)\bтравма присутствует\b`)
	traumaExplicitPattern = regexp.MustCompile(`(?i)\b(явно|очевидно) травм\w+`)
)

func (e *Engine) repairTraumaClaims(o Output) Output {
	for i := range o.InterpretativeHypotheses {
		text := o.InterpretativeHypotheses[i].HypothesisText
		text = traumaPresentPattern.ReplaceAllString(text, "потенциально сложные переживания могут присутствовать")
		text = traumaExplicitPattern.ReplaceAllString(text, "потенциально значимые переживания")
		o.InterpretativeHypotheses[i].HypothesisText = text
	}
	o.PolicyFlags.ContainsTraumaClaim = false
	return o
}

func (e *Engine) repairPathologyLanguage(o Output) Output {
	for i := range o.InterpretativeHypotheses {
		for _, r := range e.pathologyReplacements {
			o.InterpretativeHypotheses[i].HypothesisText = r.pattern.ReplaceAllString(o.InterpretativeHypotheses[i].HypothesisText, r.replacement)
		}
	}
	o.PolicyFlags.ContainsPathologyLang = false
	return o
}

func (e *Engine) repairUncertainty(o Output) Output {
	if len(o.UncertaintyProfile.DataGaps) == 0 {
		o.UncertaintyProfile.DataGaps = []string{
			"Текущие жизненные обстоятельства клиента",
			"Исторический контекст символических элементов",
			"Феноменологические детали субъективного опыта",
		}
	}
	if len(o.UncertaintyProfile.Ambiguities) == 0 {
		o.UncertaintyProfile.Ambiguities = []string{
			"Символические значения культурно и персонально вариативны",
			"Существуют множественные валидные интерпретации этого материала",
		}
	}
	if o.UncertaintyProfile.OverallConfidence == ConfidenceHigh {
		o.UncertaintyProfile.OverallConfidence = ConfidenceModerate
	}
	o.PolicyFlags.UncertaintyPresent = true
	return o
}

func (e *Engine) repairModeConstraints(o Output) Output {
	if o.Meta.Mode != ModeLowData {
		return o
	}
	if len(o.InterpretativeHypotheses) > 1 {
		o.InterpretativeHypotheses = o.InterpretativeHypotheses[:1]
	}
	o.UncertaintyProfile.OverallConfidence = ConfidenceLow
	return o
}
