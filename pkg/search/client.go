// Package search implements the query operations over a built trie: exact
// lookup, common-prefix and predictive enumeration, and the two
// Levenshtein-automaton joint walks (approximate search and approximate
// predictive search) that interleave trie traversal with DFA transitions
// so only reachable, within-budget branches are ever visited.
package search

import (
	"github.com/arborly/sftrie/pkg/levenshtein"
	"github.com/arborly/sftrie/pkg/sft"
	"github.com/arborly/sftrie/pkg/text"
)

// Client bundles a built trie with the query operations that read it. It
// holds no mutable state of its own; every method is safe to call
// concurrently from multiple goroutines, mirroring the trie's own
// read-only-after-build contract.
type Client[S text.Symbol, O text.Offset] struct {
	trie *sft.Trie[S, O]
}

// New wraps an already-built trie for querying.
func New[S text.Symbol, O text.Offset](t *sft.Trie[S, O]) *Client[S, O] {
	return &Client[S, O]{trie: t}
}

// Exact reports whether query is a key of the underlying set.
func (c *Client[S, O]) Exact(query text.Text[S]) bool {
	return c.trie.Exact(query)
}

// Prefix visits every prefix of query that is itself a key, in increasing
// length order. Returning false from visit stops the walk early.
func (c *Client[S, O]) Prefix(query text.Text[S], visit func(prefix text.Text[S], node int) bool) {
	c.trie.WalkPrefix(query, func(length, node int) bool {
		return visit(query[:length], node)
	})
}

// Predict visits every key that has query as a prefix, in lexicographic
// order. Returning false from visit stops the walk early. ok is false if
// query itself is not reachable in the trie, in which case visit is never
// called.
func (c *Client[S, O]) Predict(query text.Text[S], visit func(key text.Text[S], node int) bool) (ok bool) {
	node, ok := c.trie.Locate(query)
	if !ok {
		return false
	}
	c.trie.WalkSubtree(node, query, visit)
	return true
}

// Approx visits every key within maxEdits edits of query, along with its
// exact edit distance. Keys are visited in the trie's depth-first order,
// not sorted by distance.
func (c *Client[S, O]) Approx(query text.Text[S], maxEdits int, visit func(key text.Text[S], node, edits int) bool) {
	matcher := levenshtein.New(query, maxEdits)
	buf := make(text.Text[S], 0, len(query)+maxEdits)
	c.approxStep(matcher, c.trie.Root(), &buf, visit)
}

func (c *Client[S, O]) approxStep(matcher *levenshtein.DFA[S], node int, buf *text.Text[S], visit func(text.Text[S], int, int) bool) bool {
	if c.trie.Match(node) && matcher.Matched() {
		if !visit(*buf, node, matcher.Distance()) {
			return false
		}
	}
	if c.trie.Leaf(node) || !matcher.CanMatch() {
		return true
	}
	for ci := c.trie.Children(node); ; {
		label := ci.Label()
		if matcher.Update(label) {
			*buf = append(*buf, label)
			ok := c.approxStep(matcher, ci.Index(), buf, visit)
			*buf = (*buf)[:len(*buf)-1]
			matcher.Back()
			if !ok {
				return false
			}
		}
		if !ci.Incrementable() {
			break
		}
		ci.Next()
	}
	return true
}

// ApproxPredict visits every key reachable by first matching some prefix
// of it within maxEdits edits and then extending freely (counting each
// further extension as one more edit), reporting both the edit distance of
// the best matching prefix and the edit distance computed against the
// whole key. This is the search a "did you mean, and complete it" UI needs:
// it tolerates typos in the part already typed. Keys are visited in the
// trie's depth-first order, not sorted by either distance.
func (c *Client[S, O]) ApproxPredict(query text.Text[S], maxEdits int, visit func(key text.Text[S], node, editsPrefix, editsWhole int) bool) {
	matcher := levenshtein.New(query, maxEdits)
	buf := make(text.Text[S], 0, len(query)+maxEdits)
	c.approxPredictStep(maxEdits, matcher, c.trie.Root(), &buf, visit)
}

func (c *Client[S, O]) approxPredictStep(maxEdits int, matcher *levenshtein.DFA[S], node int, buf *text.Text[S], visit func(text.Text[S], int, int, int) bool) bool {
	if matcher.Matched() {
		return c.correctApproxPredictResults(maxEdits, matcher, node, buf, matcher.Distance(), matcher.Distance(), visit)
	}
	if c.trie.Leaf(node) || !matcher.CanMatch() {
		return true
	}
	for ci := c.trie.Children(node); ; {
		label := ci.Label()
		if matcher.Update(label) {
			*buf = append(*buf, label)
			ok := c.approxPredictStep(maxEdits, matcher, ci.Index(), buf, visit)
			*buf = (*buf)[:len(*buf)-1]
			matcher.Back()
			if !ok {
				return false
			}
		}
		if !ci.Incrementable() {
			break
		}
		ci.Next()
	}
	return true
}

// correctApproxPredictResults runs once the query has matched some prefix
// within budget: it keeps walking every remaining descendant regardless of
// further matcher failures (counting each as one more edit against the
// whole key), but keeps feeding the matcher as long as it still accepts so
// edits_prefix tracks the best distance found against any prefix of the
// current key, not just the one where matching first succeeded.
func (c *Client[S, O]) correctApproxPredictResults(maxEdits int, matcher *levenshtein.DFA[S], node int, buf *text.Text[S], prefixEdits, currentEdits int, visit func(text.Text[S], int, int, int) bool) bool {
	if c.trie.Match(node) {
		if !visit(*buf, node, min(prefixEdits, currentEdits), currentEdits) {
			return false
		}
	}
	if c.trie.Leaf(node) {
		return true
	}
	for ci := c.trie.Children(node); ; {
		label := ci.Label()
		*buf = append(*buf, label)

		var ok bool
		if currentEdits <= maxEdits && len(*buf) <= len(matcher.Pattern) && matcher.Update(label) {
			ok = c.correctApproxPredictResults(maxEdits, matcher, ci.Index(), buf, min(prefixEdits, matcher.Distance()), matcher.Distance(), visit)
			matcher.Back()
		} else {
			ok = c.correctApproxPredictResults(maxEdits, matcher, ci.Index(), buf, prefixEdits, currentEdits+1, visit)
		}

		*buf = (*buf)[:len(*buf)-1]
		if !ok {
			return false
		}
		if !ci.Incrementable() {
			break
		}
		ci.Next()
	}
	return true
}
