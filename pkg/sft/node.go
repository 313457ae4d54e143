// Package sft implements the succinct flat trie: the sorted key set of an
// Index packed into one contiguous node array so that a node's children
// occupy a contiguous, label-sorted range with an O(1)-computable extent.
//
// A Trie holds topology only (the set flavor). MapTrie adds a parallel
// value array for the map flavor; both share exactly the node layout
// described here.
package sft

import "github.com/arborly/sftrie/pkg/text"

// node is one packed record: the incoming edge's label, whether this node
// terminates a key, whether it has no children, and the start of its own
// child block. Child index arithmetic uses plain int internally; Offset
// type parameters on Trie/MapTrie only govern the width used when the
// array is persisted (see persist.go).
type node[S text.Symbol] struct {
	label S
	match bool
	leaf  bool
	next  int
}

// Trie is the succinct flat trie over a sorted, duplicate-free key set.
// The zero value is not usable; construct with Build or Load.
type Trie[S text.Symbol, O text.Offset] struct {
	nodes []node[S]
}

// Root is always index 0.
func (t *Trie[S, O]) Root() int { return 0 }

// NodeCount returns the number of real nodes, excluding the trailing
// sentinel.
func (t *Trie[S, O]) NodeCount() int { return len(t.nodes) - 1 }

// Label returns the incoming edge symbol of node i. Undefined for the root.
func (t *Trie[S, O]) Label(i int) S { return t.nodes[i].label }

// Match reports whether node i terminates a key.
func (t *Trie[S, O]) Match(i int) bool { return t.nodes[i].match }

// Leaf reports whether node i has no children.
func (t *Trie[S, O]) Leaf(i int) bool { return t.nodes[i].leaf }

// ChildrenStart returns the first index of node i's child block.
func (t *Trie[S, O]) ChildrenStart(i int) int { return t.nodes[i].next }

// ChildrenEnd returns one past the last index of node i's child block,
// computed in O(1) via the next node's own next pointer.
func (t *Trie[S, O]) ChildrenEnd(i int) int {
	return t.nodes[t.nodes[i].next].next
}

// FindChild looks up the child of node i carrying the given label, using
// the halving-then-linear hybrid search mandated for sibling blocks: binary
// search narrows the range while it's wider than 16 entries, then a linear
// scan finds (or fails to find) the exact match.
func (t *Trie[S, O]) FindChild(i int, label S) (int, bool) {
	if t.nodes[i].leaf {
		return 0, false
	}
	return findInRange(t.nodes, t.ChildrenStart(i), t.ChildrenEnd(i), label)
}

func findInRange[S text.Symbol](nodes []node[S], lo, hi int, label S) (int, bool) {
	for hi-lo > 16 {
		mid := lo + (hi-lo)/2
		if nodes[mid].label < label {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	for i := lo; i < hi; i++ {
		if nodes[i].label == label {
			return i, true
		}
	}
	return -1, false
}
