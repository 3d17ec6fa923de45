package screening

import (
	"context"
	"testing"

	"psycheos-gateway/internal/vectorengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	response string
	err      error
}

func (f *fakeOracle) Ask(_ context.Context, _, _, _ string, _ int) (string, error) {
	return f.response, f.err
}

func TestFallbackNode_PrefersAmbiguityZone(t *testing.T) {
	state := vectorengine.EngineState{AmbiguityZones: []string{"A2_L3"}}
	assert.Equal(t, "A2_L3", fallbackNode(state))
}

func TestFallbackNode_FallsBackToFirstNodeWhenNoValidZone(t *testing.T) {
	state := vectorengine.EngineState{AmbiguityZones: []string{"not_a_node"}}
	assert.Equal(t, AllPhase2Nodes()[0], fallbackNode(state))
}

func TestCheckStopPhase2_StopsWhenDeltasAreAllSmall(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{err: assert.AnError}}
	state := vectorengine.EngineState{
		Axis:       vectorengine.AxisVector{"A1": 0.01, "A2": 0.02, "A3": 0.0, "A4": 0.01},
		Confidence: 0.2,
	}
	prev := map[string]float64{"A1": 0.0, "A2": 0.0, "A3": 0.0, "A4": 0.0}
	assert.True(t, o.checkStopPhase2(context.Background(), state, prev, 1))
}

func TestCheckStopPhase2_ContinuesWhenDeltasLargeAndUnderLimit(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{err: assert.AnError}}
	state := vectorengine.EngineState{
		Axis:       vectorengine.AxisVector{"A1": 0.9, "A2": 0.0, "A3": 0.0, "A4": 0.0},
		Confidence: 0.2,
	}
	prev := map[string]float64{"A1": 0.0, "A2": 0.0, "A3": 0.0, "A4": 0.0}
	assert.False(t, o.checkStopPhase2(context.Background(), state, prev, 1))
}

func TestCheckStopPhase2_StopsAtQuestionLimitRegardlessOfDelta(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{err: assert.AnError}}
	state := vectorengine.EngineState{
		Axis:       vectorengine.AxisVector{"A1": 0.9, "A2": 0.0, "A3": 0.0, "A4": 0.0},
		Confidence: 0.2,
	}
	prev := map[string]float64{"A1": 0.0, "A2": 0.0, "A3": 0.0, "A4": 0.0}
	assert.True(t, o.checkStopPhase2(context.Background(), state, prev, maxPhase2Questions))
}

func TestCheckStopPhase2_HonorsOracleWhenItAnswers(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{response: `{"stop_phase2": true}`}}
	state := vectorengine.EngineState{
		Axis:       vectorengine.AxisVector{"A1": 0.9, "A2": 0.0, "A3": 0.0, "A4": 0.0},
		Confidence: 0.2,
	}
	prev := map[string]float64{"A1": 0.0, "A2": 0.0, "A3": 0.0, "A4": 0.0}
	assert.True(t, o.checkStopPhase2(context.Background(), state, prev, 1))
}

func TestSelectNextPhase2Question_FallsBackOnOracleError(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{err: assert.AnError}}
	state := vectorengine.EngineState{AmbiguityZones: []string{"A3_L2"}}
	action, err := o.selectNextPhase2Question(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "show_screen", action.Kind)
	assert.Equal(t, "A3_L2", action.Phase2Node)
	assert.NotNil(t, action.Screen)
}

func TestSelectNextPhase2Question_UsesOracleSelectedNodeWhenValid(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{response: `{"selected_node": "A1_L4"}`}}
	state := vectorengine.EngineState{}
	action, err := o.selectNextPhase2Question(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "A1_L4", action.Phase2Node)
}

func TestSelectNextPhase3Question_FallsBackOnOracleError(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{err: assert.AnError}}
	state := vectorengine.EngineState{AmbiguityZones: []string{"A4_L1"}}
	action, err := o.selectNextPhase3Question(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "show_screen", action.Kind)
	assert.Equal(t, "A4_L1", action.Phase2Node)
	template, _ := GetPhase2Template("A4_L1")
	assert.Equal(t, template.ReferenceQuestion, action.Screen.Question)
}

func TestSelectNextPhase3Question_UsesConstructedQuestionWhenOracleSucceeds(t *testing.T) {
	o := &Orchestrator{oracle: &fakeOracle{response: `{"question": "Custom?", "diagnostic_goal": "g", "options": ["a", "b", "c"]}`}}
	state := vectorengine.EngineState{AmbiguityZones: []string{"A2_L0"}}
	action, err := o.selectNextPhase3Question(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "Custom?", action.Screen.Question)
	assert.Len(t, action.Screen.Options, 3)
}
