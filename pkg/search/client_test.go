package search

import (
	"sort"
	"testing"

	"github.com/arborly/sftrie/pkg/sft"
	"github.com/arborly/sftrie/pkg/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildClient(t *testing.T, words ...string) *Client[byte, uint32] {
	keys := make([]text.Text[byte], len(words))
	for i, w := range words {
		keys[i] = text.FromString(w)
	}
	trie, err := sft.BuildFromUnsorted[byte, uint32](keys, 0)
	require.NoError(t, err)
	return New[byte, uint32](trie)
}

func TestClientExact(t *testing.T) {
	c := buildClient(t, "cat", "car", "cart", "dog")
	assert.True(t, c.Exact(text.FromString("cart")))
	assert.False(t, c.Exact(text.FromString("ca")))
}

func TestClientPrefix(t *testing.T) {
	c := buildClient(t, "a", "ab", "abc")
	var got []string
	c.Prefix(text.FromString("abc"), func(prefix text.Text[byte], node int) bool {
		got = append(got, text.String(prefix))
		return true
	})
	assert.Equal(t, []string{"a", "ab", "abc"}, got)
}

func TestClientPredict(t *testing.T) {
	c := buildClient(t, "cat", "car", "cart", "dog")
	var got []string
	ok := c.Predict(text.FromString("ca"), func(key text.Text[byte], node int) bool {
		got = append(got, text.String(key))
		return true
	})
	require.True(t, ok)
	sort.Strings(got)
	assert.Equal(t, []string{"car", "cart", "cat"}, got)
}

func TestClientPredictMissingQuery(t *testing.T) {
	c := buildClient(t, "cat", "dog")
	ok := c.Predict(text.FromString("zzz"), func(key text.Text[byte], node int) bool {
		t.Fatal("should not be called")
		return true
	})
	assert.False(t, ok)
}

func TestClientApprox(t *testing.T) {
	c := buildClient(t, "cat", "cap", "car", "dog")
	got := map[string]int{}
	c.Approx(text.FromString("cat"), 1, func(key text.Text[byte], node, edits int) bool {
		got[text.String(key)] = edits
		return true
	})
	assert.Equal(t, 0, got["cat"])
	assert.Equal(t, 1, got["cap"])
	assert.Equal(t, 1, got["car"])
	_, hasDog := got["dog"]
	assert.False(t, hasDog)
}

func TestClientApproxStopsEarly(t *testing.T) {
	c := buildClient(t, "cat", "cap", "car")
	n := 0
	c.Approx(text.FromString("cat"), 1, func(key text.Text[byte], node, edits int) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n)
}

func TestClientApproxIter(t *testing.T) {
	c := buildClient(t, "cat", "cap", "car", "dog")
	it := c.ApproxIter(text.FromString("cat"), 1)
	defer it.Close()

	got := map[string]int{}
	for it.Next() {
		r := it.Result()
		got[text.String(r.Key)] = r.Edits
	}
	assert.Equal(t, 0, got["cat"])
	assert.Equal(t, 1, got["cap"])
	assert.Equal(t, 1, got["car"])
}

func TestClientApproxIterEarlyClose(t *testing.T) {
	c := buildClient(t, "cat", "cap", "car", "cab", "can")
	it := c.ApproxIter(text.FromString("cat"), 2)
	require.True(t, it.Next())
	it.Close()
}

func TestClientApproxPredict(t *testing.T) {
	c := buildClient(t, "cart", "carts", "card", "dog")
	type hit struct{ prefix, whole int }
	got := map[string]hit{}
	c.ApproxPredict(text.FromString("car"), 1, func(key text.Text[byte], node, editsPrefix, editsWhole int) bool {
		got[text.String(key)] = hit{editsPrefix, editsWhole}
		return true
	})
	require.Contains(t, got, "cart")
	require.Contains(t, got, "carts")
	require.Contains(t, got, "card")
	assert.Equal(t, 0, got["cart"].prefix)
}
