package levenshtein

import (
	"testing"

	"github.com/arborly/sftrie/pkg/text"
	"github.com/stretchr/testify/assert"
)

func feed(d *DFA[byte], s string) bool {
	for i := 0; i < len(s); i++ {
		if !d.Update(s[i]) {
			return false
		}
	}
	return true
}

func TestDFAExactMatch(t *testing.T) {
	d := New(text.FromString("kitten"), 2)
	ok := feed(d, "kitten")
	assert.True(t, ok)
	assert.True(t, d.Matched())
	assert.Equal(t, 0, d.Distance())
}

func TestDFAWithinBudget(t *testing.T) {
	d := New(text.FromString("kitten"), 3)
	ok := feed(d, "sitting")
	assert.True(t, ok)
	assert.True(t, d.Matched())
	assert.Equal(t, 3, d.Distance())
}

func TestDFAOverBudgetRejected(t *testing.T) {
	d := New(text.FromString("kitten"), 1)
	assert.False(t, feed(d, "sitting"))
}

func TestDFABackRestoresCursor(t *testing.T) {
	d := New(text.FromString("cat"), 1)
	require := func(b bool) {
		if !b {
			t.Fatal("update failed")
		}
	}
	require(d.Update('c'))
	require(d.Update('a'))
	before := d.Distance()
	require(d.Update('t'))
	assert.True(t, d.Matched())
	d.Back()
	assert.Equal(t, before, d.Distance())
	assert.False(t, d.Matched())
}

func TestDFANoMatchBeyondBudget(t *testing.T) {
	d := New(text.FromString("cat"), 1)
	ok := feed(d, "dog")
	if ok {
		assert.False(t, d.Matched())
	}
}

func TestDFAMaxDistance(t *testing.T) {
	d := New(text.FromString("anything"), 3)
	assert.Equal(t, 3, d.MaxDistance())
}

func acceptsFullString(d *DFA[byte], s string) bool {
	for i := 0; i < len(s); i++ {
		if !d.Update(s[i]) {
			return false
		}
	}
	return d.Matched()
}

func TestDFACorpK1AcceptsWithinBudget(t *testing.T) {
	accepted := []string{"CORP", "ORP", "COP", "COR", "CCORP", "COORP", "CORPS", "KORP", "CARP", "CORE"}
	for _, s := range accepted {
		d := New(text.FromString("CORP"), 1)
		assert.True(t, acceptsFullString(d, s), "expected %q to be accepted", s)
	}
}

func TestDFACorpK1RejectsBeyondBudget(t *testing.T) {
	rejected := []string{"RP", "CO", "CR", "CORPUS", "RECORP", "COORRP", "CAMP", "LORD", "CARE"}
	for _, s := range rejected {
		d := New(text.FromString("CORP"), 1)
		assert.False(t, acceptsFullString(d, s), "expected %q to be rejected", s)
	}
}
