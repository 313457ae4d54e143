package sft

import "github.com/arborly/sftrie/pkg/text"

// Exact reports whether query is a key of the trie: walk from the root,
// binary-searching each sibling block for the next symbol, and check the
// match flag of the node the whole key lands on.
func (t *Trie[S, O]) Exact(query text.Text[S]) bool {
	cur, ok := t.Locate(query)
	return ok && t.Match(cur)
}

// Locate walks query from the root and returns the node it lands on,
// whether or not that node is a match. ok is false if query cannot be
// fully consumed (some symbol has no matching child along the walk), which
// means no key of K has query as a prefix. ok being true does not by itself
// mean query is a key; check Match on the returned node.
func (t *Trie[S, O]) Locate(query text.Text[S]) (int, bool) {
	cur := t.Root()
	for _, sym := range query {
		next, ok := t.FindChild(cur, sym)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// WalkPrefix visits, in increasing length, every node along query's walk
// from the root that is a match — i.e. every prefix of query that is a key
// of K. visit receives the prefix length and the node index; returning
// false stops the walk early.
func (t *Trie[S, O]) WalkPrefix(query text.Text[S], visit func(length int, node int) bool) {
	cur := t.Root()
	if t.Match(cur) {
		if !visit(0, cur) {
			return
		}
	}
	for i, sym := range query {
		next, ok := t.FindChild(cur, sym)
		if !ok {
			return
		}
		cur = next
		if t.Match(cur) {
			if !visit(i+1, cur) {
				return
			}
		}
	}
}

// WalkSubtree performs a pre-order depth-first enumeration of node's
// descendants (node included), calling visit with the full reconstructed
// key and node index at every match. prefix is the key spelled out by the
// path from the root to node; key slices passed to visit are only valid
// for the duration of the call (the backing array is reused between
// calls). Returning false from visit stops the walk early.
func (t *Trie[S, O]) WalkSubtree(node int, prefix text.Text[S], visit func(key text.Text[S], node int) bool) {
	buf := text.Clone(prefix)
	t.walkSubtree(node, &buf, visit)
}

func (t *Trie[S, O]) walkSubtree(node int, buf *text.Text[S], visit func(key text.Text[S], node int) bool) bool {
	if t.Match(node) {
		if !visit(*buf, node) {
			return false
		}
	}
	if t.Leaf(node) {
		return true
	}
	for c := t.Children(node); ; {
		*buf = append(*buf, c.Label())
		if !t.walkSubtree(c.Index(), buf, visit) {
			*buf = (*buf)[:len(*buf)-1]
			return false
		}
		*buf = (*buf)[:len(*buf)-1]
		if !c.Next() {
			break
		}
	}
	return true
}

// ChildIterator is an ordered cursor over one node's children, following
// the contract in the design: Incrementable reports whether there is a
// next sibling, and the accessors read the current child.
type ChildIterator[S text.Symbol, O text.Offset] struct {
	t   *Trie[S, O]
	idx int
	end int
}

// Children returns an iterator positioned at node i's first child. Calling
// it on a leaf node yields an iterator with no valid position; check Leaf
// first.
func (t *Trie[S, O]) Children(i int) ChildIterator[S, O] {
	return ChildIterator[S, O]{t: t, idx: t.ChildrenStart(i), end: t.ChildrenEnd(i)}
}

// Index returns the current child's node index.
func (c ChildIterator[S, O]) Index() int { return c.idx }

// Label returns the current child's incoming edge symbol.
func (c ChildIterator[S, O]) Label() S { return c.t.Label(c.idx) }

// Match reports whether the current child terminates a key.
func (c ChildIterator[S, O]) Match() bool { return c.t.Match(c.idx) }

// Leaf reports whether the current child has no children of its own.
func (c ChildIterator[S, O]) Leaf() bool { return c.t.Leaf(c.idx) }

// Incrementable reports whether there is a next sibling after the current
// child.
func (c ChildIterator[S, O]) Incrementable() bool { return c.idx+1 < c.end }

// Next advances to the next sibling, returning false (and leaving the
// iterator unmoved) if there is none.
func (c *ChildIterator[S, O]) Next() bool {
	if !c.Incrementable() {
		return false
	}
	c.idx++
	return true
}
