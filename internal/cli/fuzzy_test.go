package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestExitLiteralFindsCloseMatch(t *testing.T) {
	lit, ok := suggestExitLiteral("xit")
	assert.True(t, ok)
	assert.Equal(t, "exit", lit)
}

func TestSuggestExitLiteralRejectsUnrelatedInput(t *testing.T) {
	_, ok := suggestExitLiteral("zzzzz")
	assert.False(t, ok)
}

func TestSuggestExitLiteralRejectsOutOfRangeLength(t *testing.T) {
	_, ok := suggestExitLiteral("x")
	assert.False(t, ok, "single-character input is below the scoring floor")

	_, ok = suggestExitLiteral("exitquitbye")
	assert.False(t, ok, "input longer than any literal plus slack is rejected outright")
}

func TestFuzzyScoreRequiresSubsequence(t *testing.T) {
	_, ok := fuzzyScore("qz", "exit")
	assert.False(t, ok)
}
