package sft

import (
	"fmt"

	"github.com/arborly/sftrie/pkg/keyset"
	"github.com/arborly/sftrie/pkg/text"
)

// MapTrie is the map flavor of the succinct flat trie: the same node
// layout as Trie, plus a value array and a per-node value index for match
// nodes. It embeds *Trie so every topology operation (Label, Match, Leaf,
// ChildrenStart/End, FindChild) is shared unmodified.
type MapTrie[S text.Symbol, O text.Offset, V any] struct {
	*Trie[S, O]
	values     []V
	valueIndex []int // aligned with nodes; meaningful only where Match(i)
}

// BuildMap constructs a map-flavor trie from pre-sorted, duplicate-free
// key-value entries.
func BuildMap[S text.Symbol, O text.Offset, V any](sortedEntries []keyset.Entry[S, V]) (*MapTrie[S, O, V], error) {
	keys := make([]text.Text[S], len(sortedEntries))
	values := make([]V, len(sortedEntries))
	for i, e := range sortedEntries {
		keys[i] = e.Key
		values[i] = e.Value
	}
	if !keyset.IsSorted(keys) {
		return nil, fmt.Errorf("sft: keys are not strictly sorted and duplicate-free")
	}
	nodes, matchKey := buildNodes(keys)
	return &MapTrie[S, O, V]{
		Trie:       &Trie[S, O]{nodes: nodes},
		values:     values,
		valueIndex: matchKey,
	}, nil
}

// BuildMapFromUnsorted sorts and deduplicates entries key-major before
// building.
func BuildMapFromUnsorted[S text.Symbol, O text.Offset, V any](entries []keyset.Entry[S, V], policy keyset.DuplicatePolicy) (*MapTrie[S, O, V], error) {
	sorted, err := keyset.SortEntries(entries, policy)
	if err != nil {
		return nil, err
	}
	return BuildMap[S, O, V](sorted)
}

// Value returns the value stored at node i, if i is a match node.
func (m *MapTrie[S, O, V]) Value(i int) (V, bool) {
	if !m.Match(i) {
		var zero V
		return zero, false
	}
	idx := m.valueIndex[i]
	if idx < 0 {
		var zero V
		return zero, false
	}
	return m.values[idx], true
}

// SetValue overwrites the value at node i in place, without touching the
// key set. This is the only form of mutation the index permits, and it is
// exposed only through RawTrie in pkg/sftrie's façade.
func (m *MapTrie[S, O, V]) SetValue(i int, v V) bool {
	if !m.Match(i) || m.valueIndex[i] < 0 {
		return false
	}
	m.values[m.valueIndex[i]] = v
	return true
}
