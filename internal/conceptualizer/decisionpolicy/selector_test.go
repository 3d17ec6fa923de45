package decisionpolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPriority_NoManagerialIsCritical(t *testing.T) {
	session := SessionState{
		Hypotheses: []Hypothesis{
			{ID: "1", Type: HypothesisStructural, Levels: []PsycheLevel{LevelL2}},
		},
	}
	priority, _ := newPriorityChecker(session).checkPriority()
	assert.Equal(t, PriorityCritical, priority)
}

func TestCheckPriority_DominantWithoutAlternativesIsHigh(t *testing.T) {
	session := SessionState{
		Hypotheses: []Hypothesis{
			{ID: "1", Type: HypothesisStructural, Confidence: ConfidenceDominant},
			{ID: "2", Type: HypothesisManagerial, Confidence: ConfidenceWorking},
		},
	}
	priority, _ := newPriorityChecker(session).checkPriority()
	assert.Equal(t, PriorityHigh, priority)
}

func TestCheckPriority_LowWhenModelNearlyComplete(t *testing.T) {
	session := SessionState{
		Hypotheses: []Hypothesis{
			{ID: "1", Type: HypothesisStructural, Confidence: ConfidenceWorking},
			{ID: "2", Type: HypothesisFunctional, Confidence: ConfidenceWorking},
			{ID: "3", Type: HypothesisManagerial, Confidence: ConfidenceWorking},
		},
	}
	priority, _ := newPriorityChecker(session).checkPriority()
	assert.Equal(t, PriorityLow, priority)
}

func TestCanProceedToOutput_RequiresManagerialAndNoBlockingFlags(t *testing.T) {
	session := SessionState{
		Hypotheses: []Hypothesis{
			{ID: "1", Type: HypothesisStructural},
			{ID: "2", Type: HypothesisManagerial},
		},
	}
	assert.True(t, session.CanProceedToOutput())

	session.RedFlags = []RedFlag{{Severity: RedFlagStop, Description: "halt"}}
	assert.False(t, session.CanProceedToOutput())
}

func TestShouldContinueDialogue_StopsAtTurnLimit(t *testing.T) {
	session := SessionState{Progress: Progress{DialogueTurns: 20}}
	ok, _ := NewSelector(session).ShouldContinueDialogue()
	assert.False(t, ok)
}

func TestShouldContinueDialogue_StopsWhenModelReady(t *testing.T) {
	session := SessionState{
		Hypotheses: []Hypothesis{
			{ID: "1", Type: HypothesisStructural},
			{ID: "2", Type: HypothesisManagerial},
		},
	}
	ok, reason := NewSelector(session).ShouldContinueDialogue()
	assert.False(t, ok)
	assert.Contains(t, reason, "ready")
}

func TestSelectNextQuestion_CriticalYieldsControlCheck(t *testing.T) {
	session := SessionState{
		Hypotheses: []Hypothesis{
			{ID: "1", Type: HypothesisStructural, Levels: []PsycheLevel{LevelL2}},
		},
	}
	selection := NewSelector(session).SelectNextQuestion()
	assert.Equal(t, PriorityCritical, selection.Priority)
	assert.Equal(t, QuestionControlCheck, selection.QuestionType)
	assert.NotEmpty(t, selection.QuestionText)
}
