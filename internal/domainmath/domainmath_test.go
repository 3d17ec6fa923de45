package domainmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCCI_KnownValue(t *testing.T) {
	d := CaseDynamics{
		BaselineTensionL0: 60,
		Volatility:        0.4,
		L3Accessibility:   AccessibilityModerate,
		EscalationSpeed:   EscalationFast,
		L0Reactivity:      AccessibilityHigh,
		InterventionRange: InterventionNarrow,
	}
	// baselineL0=0.6 volatility=0.4 layerDepth=0.5 cascadeRisk=(0.75+0.75)/2=0.75 interventionWindow=0.75
	// 0.25*0.6 + 0.15*0.4 + 0.20*0.5 + 0.25*0.75 + 0.15*0.75 = 0.15+0.06+0.10+0.1875+0.1125 = 0.61
	assert.InDelta(t, 0.61, CCI(d), 1e-9)
}

func TestCCI_UnknownLevelDefaultsToModerate(t *testing.T) {
	d := CaseDynamics{L3Accessibility: AccessibilityLevel("bogus")}
	assert.InDelta(t, 0.5, d.L3Accessibility.value(), 1e-9)
}

func TestTSI_ClampsOutOfRangeComponents(t *testing.T) {
	c := StabilityComponents{
		RMatch:                1.5,
		LConsistency:          -0.3,
		Alliance:              0.8,
		UncertaintyModulation: 0.9,
		TherapistReactivity:   0.2,
	}
	// clamped: rMatch=1, lConsistency=0, alliance=0.8, uncertainty=0.9, reactivity=0.2
	// 0.25*1 + 0.20*0 + 0.20*0.8 + 0.20*0.9 + 0.15*0.8 = 0.25+0+0.16+0.18+0.12 = 0.71
	assert.InDelta(t, 0.71, TSI(c), 1e-9)
}

func TestBand_Thresholds(t *testing.T) {
	assert.Equal(t, BandHigh, Band(0.85))
	assert.Equal(t, BandFunctional, Band(0.70))
	assert.Equal(t, BandFunctional, Band(0.84))
	assert.Equal(t, BandUnstable, Band(0.50))
	assert.Equal(t, BandUnstable, Band(0.69))
	assert.Equal(t, BandCascadeRisk, Band(0.49))
}
