package search

import (
	"testing"

	"github.com/arborly/sftrie/pkg/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioKeys is the fixed key set a handful of worked examples are
// checked against: small enough to reason about by hand, varied enough to
// exercise branching at every trie depth.
var scenarioKeys = []string{"A", "AM", "AMD", "AMP", "CAD", "CA", "CAM", "CAMP", "CM", "CMD", "DM", "MD"}

func TestScenarioApproxAD(t *testing.T) {
	c := buildClient(t, scenarioKeys...)
	got := map[string]int{}
	c.Approx(text.FromString("AD"), 1, func(key text.Text[byte], node, edits int) bool {
		got[text.String(key)] = edits
		return true
	})
	assert.Equal(t, map[string]int{"A": 1, "AM": 1, "AMD": 1, "CAD": 1, "MD": 1}, got)
}

func TestScenarioApproxCorp(t *testing.T) {
	c := buildClient(t, scenarioKeys...)

	var hitsK1 []string
	c.Approx(text.FromString("CORP"), 1, func(key text.Text[byte], node, edits int) bool {
		hitsK1 = append(hitsK1, text.String(key))
		return true
	})
	assert.Empty(t, hitsK1)

	type hit struct {
		key   string
		edits int
	}
	var hitsK2 []hit
	c.Approx(text.FromString("CORP"), 2, func(key text.Text[byte], node, edits int) bool {
		hitsK2 = append(hitsK2, hit{text.String(key), edits})
		return true
	})
	require.Len(t, hitsK2, 1)
	assert.Equal(t, "CAMP", hitsK2[0].key)
	assert.Equal(t, 2, hitsK2[0].edits)
}

func TestScenarioPredictA(t *testing.T) {
	c := buildClient(t, scenarioKeys...)
	var got []string
	ok := c.Predict(text.FromString("A"), func(key text.Text[byte], node int) bool {
		got = append(got, text.String(key))
		return true
	})
	require.True(t, ok)
	assert.Equal(t, []string{"A", "AM", "AMD", "AMP"}, got)
}

func TestScenarioPrefixAmplify(t *testing.T) {
	c := buildClient(t, scenarioKeys...)
	var got []string
	c.Prefix(text.FromString("AMPLIFY"), func(prefix text.Text[byte], node int) bool {
		got = append(got, text.String(prefix))
		return true
	})
	assert.Equal(t, []string{"A", "AM", "AMP"}, got)
}

func TestScenarioEmptyKey(t *testing.T) {
	c := buildClient(t, "")
	assert.True(t, c.Exact(text.FromString("")))
	assert.False(t, c.Exact(text.FromString("A")))

	var got []string
	c.Approx(text.FromString(""), 1, func(key text.Text[byte], node, edits int) bool {
		got = append(got, text.String(key))
		assert.Equal(t, 0, edits)
		return true
	})
	assert.Equal(t, []string{""}, got)
}
