package vectorengine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateVectors_EmptyIsZero(t *testing.T) {
	axis, layer := AggregateVectors(nil)
	for _, a := range Axes {
		assert.Zero(t, axis[a])
	}
	for _, l := range Layers {
		assert.Zero(t, layer[l])
	}
}

func TestComputeTensionMatrix_Has20Cells(t *testing.T) {
	axis := AxisVector{"A1": 0.5, "A2": -0.3, "A3": 0.1, "A4": 0.0}
	layer := LayerVector{"L0": 0.2, "L1": 0.1, "L2": 0.4, "L3": -0.2, "L4": 0.6}
	matrix := ComputeTensionMatrix(axis, layer)
	assert.Len(t, matrix, 20)
	assert.InDelta(t, layer["L2"]*axis["A1"], matrix["L2_A1"], 1e-9)
}

func TestFindAmbiguityZones_ThresholdExclusive(t *testing.T) {
	tension := TensionMatrix{"L0_A1": 0.099, "L0_A2": 0.1, "L0_A3": 0.2, "L0_A4": -0.05}
	zones := FindAmbiguityZones(tension)
	assert.Contains(t, zones, "A1_L0")
	assert.Contains(t, zones, "A4_L0")
	assert.NotContains(t, zones, "A2_L0")
	assert.NotContains(t, zones, "A3_L0")
}

func TestGetDominantCells_TopNByMagnitude(t *testing.T) {
	tension := TensionMatrix{"a": 0.9, "b": -0.95, "c": 0.1, "d": 0.5}
	top := GetDominantCells(tension, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0])
	assert.Equal(t, "a", top[1])
	assert.Equal(t, "d", top[2])
}

func TestComputeRigidity_PolarizationAndRepetition(t *testing.T) {
	// Every response has the exact same sign pattern and an extreme axis,
	// so polarization, strategy_repetition, and total should all sit high.
	responses := make([]Response, 5)
	for i := range responses {
		responses[i] = Response{AxisWeights: map[string]float64{"A1": 2, "A2": 2, "A3": 2, "A4": 2}}
	}
	axis, _ := AggregateVectors(responses)
	rigidity := ComputeRigidity(responses, axis)
	assert.Equal(t, 1.0, rigidity.Polarization)
	assert.Equal(t, 1.0, rigidity.StrategyRepetition)
	assert.InDelta(t, 1.0, rigidity.Total, 1e-9)
}

func TestComputeConfidence_Bounds(t *testing.T) {
	responses := []Response{
		{AxisWeights: map[string]float64{"A1": 1, "A2": -1, "A3": 0.5, "A4": 0}},
		{AxisWeights: map[string]float64{"A1": 0.9, "A2": -0.8, "A3": 0.4, "A4": 0.1}},
	}
	axis, _ := AggregateVectors(responses)
	confidence := ComputeConfidence(responses, axis, 5)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestProcessResponse_NeverPatchesIncrementally(t *testing.T) {
	r1 := Response{AxisWeights: map[string]float64{"A1": -1}, LayerWeights: map[string]float64{"L4": 1}}
	r2 := Response{AxisWeights: map[string]float64{"A1": -1, "A2": -1}, LayerWeights: map[string]float64{"L4": 1, "L2": 0.5}}

	viaSequence := ProcessResponse(ProcessResponse(EngineState{}, r1), r2)
	viaHistory := FromHistory([]Response{r1, r2})

	assert.Equal(t, viaHistory.Axis, viaSequence.Axis)
	assert.Equal(t, viaHistory.Layer, viaSequence.Layer)
	assert.Equal(t, viaHistory.Tension, viaSequence.Tension)
	assert.InDelta(t, viaHistory.Confidence, viaSequence.Confidence, 1e-12)
}

// TestCanonicalFourteenResponseCase mirrors the canonical fixture: a 14
// response sequence shaped so axis sums land A1<0, A2<0, A3>0, A4<0, and
// layer weights favor L4 > L2 > L0.
func TestCanonicalFourteenResponseCase(t *testing.T) {
	var state EngineState
	for i := 0; i < 14; i++ {
		r := Response{
			AxisWeights: map[string]float64{
				"A1": -0.8 - 0.01*float64(i),
				"A2": -0.4,
				"A3": 0.6,
				"A4": -0.2,
			},
			LayerWeights: map[string]float64{
				"L0": 0.1,
				"L1": 0.05,
				"L2": 0.5,
				"L3": 0.0,
				"L4": 0.9,
			},
		}
		state = ProcessResponse(state, r)
	}

	assert.Less(t, state.Axis["A1"], 0.0)
	assert.Less(t, state.Axis["A2"], 0.0)
	assert.Greater(t, state.Axis["A3"], 0.0)
	assert.Less(t, state.Axis["A4"], 0.0)

	assert.Greater(t, state.Layer["L4"], state.Layer["L2"])
	assert.Greater(t, state.Layer["L2"], state.Layer["L0"])

	assert.Len(t, state.Tension, 20)
	assert.Len(t, state.DominantCells, 3)
	assert.GreaterOrEqual(t, state.Confidence, 0.0)
	assert.LessOrEqual(t, state.Confidence, 1.0)
}

func TestAggregateVectors_AppliesTanh(t *testing.T) {
	responses := []Response{{AxisWeights: map[string]float64{"A1": 10}}}
	axis, _ := AggregateVectors(responses)
	assert.InDelta(t, math.Tanh(10), axis["A1"], 1e-9)
}
