package sft

import (
	"fmt"

	"github.com/arborly/sftrie/pkg/keyset"
	"github.com/arborly/sftrie/pkg/text"
)

// Build constructs a set-flavor Trie from a pre-sorted, duplicate-free key
// list. Per the "Input malformed" error policy, an unsorted or duplicate
// input fails fast rather than silently producing a broken trie.
func Build[S text.Symbol, O text.Offset](sortedKeys []text.Text[S]) (*Trie[S, O], error) {
	if !keyset.IsSorted(sortedKeys) {
		return nil, fmt.Errorf("sft: keys are not strictly sorted and duplicate-free")
	}
	nodes, _ := buildNodes(sortedKeys)
	return &Trie[S, O]{nodes: nodes}, nil
}

// BuildFromUnsorted sorts and deduplicates keys before building. It is a
// convenience for callers who have not pre-sorted their input.
func BuildFromUnsorted[S text.Symbol, O text.Offset](keys []text.Text[S], policy keyset.DuplicatePolicy) (*Trie[S, O], error) {
	sorted, err := keyset.SortKeys(keys, policy)
	if err != nil {
		return nil, err
	}
	return Build[S, O](sorted)
}

// buildNodes runs the breadth-first work-queue construction described in
// the design: each pending item owns the key range [lo, hi) that passes
// through it and its depth; children are emitted one per distinct d-th
// symbol, partitioning the range, and a sentinel node is appended last so
// that ChildrenEnd is always computable in O(1).
//
// The second return value maps node index to the sortedKeys index that
// terminates there (-1 if the node is not a match); MapTrie uses it to
// align its parallel value array, the set flavor ignores it.
func buildNodes[S text.Symbol](sortedKeys []text.Text[S]) ([]node[S], []int) {
	type pending struct {
		self  int
		lo    int
		hi    int
		depth int
	}

	nodes := make([]node[S], 1, len(sortedKeys)+2)
	nodes[0] = node[S]{} // root placeholder, label is unused
	matchKey := make([]int, 1, len(sortedKeys)+2)
	matchKey[0] = -1

	queue := []pending{{self: 0, lo: 0, hi: len(sortedKeys), depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		lo, hi, depth := cur.lo, cur.hi, cur.depth
		if lo < hi && len(sortedKeys[lo]) == depth {
			nodes[cur.self].match = true
			matchKey[cur.self] = lo
			lo++
		}

		childStart := len(nodes)
		if lo == hi {
			nodes[cur.self].leaf = true
			nodes[cur.self].next = childStart
			continue
		}
		nodes[cur.self].next = childStart

		i := lo
		for i < hi {
			label := sortedKeys[i][depth]
			j := i + 1
			for j < hi && sortedKeys[j][depth] == label {
				j++
			}

			childIdx := len(nodes)
			nodes = append(nodes, node[S]{label: label})
			matchKey = append(matchKey, -1)
			queue = append(queue, pending{self: childIdx, lo: i, hi: j, depth: depth + 1})
			i = j
		}
	}

	// sentinel: terminates the last node's child block and carries
	// next = total node count + 1, per the on-disk/in-memory contract.
	nodes = append(nodes, node[S]{next: len(nodes) + 1})
	matchKey = append(matchKey, -1)
	return nodes, matchKey
}
