package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPTSDRepair(t *testing.T) {
	engine := NewEngine()
	output := Output{
		Meta: Meta{Mode: ModeStandard},
		InterpretativeHypotheses: []Hypothesis{
			{HypothesisText: "Клиент демонстрирует паттерны, характерные для PTSD."},
		},
		UncertaintyProfile: UncertaintyProfile{
			OverallConfidence: ConfidenceModerate,
			DataGaps:          []string{"нехватка сессий"},
		},
	}

	validation := engine.Validate(output)
	require.False(t, validation.Valid)
	require.Equal(t, 1, validation.CriticalCount)
	var found bool
	for _, v := range validation.Violations {
		if v.RuleID == "R002" {
			found = true
			assert.Equal(t, SeverityCritical, v.Severity)
		}
	}
	assert.True(t, found)

	repaired, report := engine.Repair(output, validation)
	assert.True(t, report.Repaired)
	assert.NotContains(t, repaired.InterpretativeHypotheses[0].HypothesisText, "PTSD")
	assert.True(t, repaired.PolicyFlags.RepairApplied)

	revalidation := engine.Validate(repaired)
	assert.True(t, revalidation.Valid)
}

func TestHypothesisCount_LowDataCapsAtOne(t *testing.T) {
	engine := NewEngine()
	output := Output{
		Meta: Meta{Mode: ModeLowData},
		InterpretativeHypotheses: []Hypothesis{
			{HypothesisText: "первая"},
			{HypothesisText: "вторая"},
		},
		UncertaintyProfile: UncertaintyProfile{OverallConfidence: ConfidenceLow},
	}
	validation := engine.Validate(output)
	require.False(t, validation.Valid)

	var hasR001, hasR010 bool
	for _, v := range validation.Violations {
		if v.RuleID == "R001" {
			hasR001 = true
		}
		if v.RuleID == "R010" {
			hasR010 = true
		}
	}
	assert.True(t, hasR001)
	assert.True(t, hasR010)

	repaired, _ := engine.Repair(output, validation)
	assert.Len(t, repaired.InterpretativeHypotheses, 1)
	assert.Equal(t, ConfidenceLow, repaired.UncertaintyProfile.OverallConfidence)
}

func TestUncertaintyCheck_HighConfidenceRequiresGapsOrAmbiguities(t *testing.T) {
	engine := NewEngine()
	output := Output{
		Meta:               Meta{Mode: ModeStandard},
		UncertaintyProfile: UncertaintyProfile{OverallConfidence: ConfidenceHigh},
	}
	validation := engine.Validate(output)
	var found bool
	for _, v := range validation.Violations {
		if v.RuleID == "R006" {
			found = true
		}
	}
	assert.True(t, found)

	repaired, _ := engine.Repair(output, validation)
	assert.NotEmpty(t, repaired.UncertaintyProfile.DataGaps)
	assert.Equal(t, ConfidenceModerate, repaired.UncertaintyProfile.OverallConfidence)
	assert.True(t, repaired.PolicyFlags.UncertaintyPresent)
}

func TestValidOutput_NoViolations(t *testing.T) {
	engine := NewEngine()
	output := Output{
		Meta: Meta{Mode: ModeStandard},
		InterpretativeHypotheses: []Hypothesis{
			{HypothesisText: "Наблюдается заметное напряжение в теме контроля."},
		},
		UncertaintyProfile: UncertaintyProfile{
			OverallConfidence: ConfidenceModerate,
			DataGaps:          []string{"ограниченный объём материала"},
		},
	}
	validation := engine.Validate(output)
	assert.True(t, validation.Valid)
	assert.Zero(t, validation.CriticalCount)
	assert.Zero(t, validation.ErrorCount)
}
