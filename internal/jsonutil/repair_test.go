package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAndRepair_StripsFences(t *testing.T) {
	var out map[string]string
	err := ExtractAndRepair("```json\n{\"a\": \"b\"}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "b", out["a"])
}

func TestExtractAndRepair_ClosesTruncatedBraces(t *testing.T) {
	var out map[string]interface{}
	err := ExtractAndRepair(`{"a": 1, "b": {"c": 2`, &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestBalanceBraces_IgnoresBracesInStrings(t *testing.T) {
	result := balanceBraces(`{"text": "contains { and [ chars"`)
	assert.Equal(t, `{"text": "contains { and [ chars"}`, result)
}
