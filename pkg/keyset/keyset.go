// Package keyset prepares raw key and key-value input for pkg/sft's
// builder: lexicographic sort plus duplicate handling. The trie builder
// requires a unique, sorted key sequence; this package is where that
// invariant is established and, if violated upstream, caught early.
package keyset

import (
	"fmt"
	"sort"

	"github.com/arborly/sftrie/pkg/text"
)

// DuplicatePolicy controls how repeated keys are handled while preparing
// a key set.
type DuplicatePolicy int

const (
	// DuplicateError fails fast the moment a duplicate key is found.
	DuplicateError DuplicatePolicy = iota
	// DuplicateKeepFirst silently drops every occurrence after the first.
	DuplicateKeepFirst
	// DuplicateKeepLast silently drops every occurrence before the last.
	DuplicateKeepLast
)

// Entry pairs a key with an associated value, for the map flavor of the
// trie. Pure key sets (the set flavor) just use []text.Text[S] directly.
type Entry[S text.Symbol, V any] struct {
	Key   text.Text[S]
	Value V
}

// SortKeys sorts keys lexicographically and removes duplicates according
// to policy. It never mutates the input slice; it returns a fresh sorted
// slice.
func SortKeys[S text.Symbol](keys []text.Text[S], policy DuplicatePolicy) ([]text.Text[S], error) {
	sorted := make([]text.Text[S], len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return text.Less(sorted[i], sorted[j]) })
	return dedupeKeys(sorted, policy)
}

func dedupeKeys[S text.Symbol](sorted []text.Text[S], policy DuplicatePolicy) ([]text.Text[S], error) {
	if len(sorted) == 0 {
		return sorted, nil
	}
	out := sorted[:1]
	for i := 1; i < len(sorted); i++ {
		if text.Compare(sorted[i], sorted[i-1]) == 0 {
			switch policy {
			case DuplicateError:
				return nil, fmt.Errorf("keyset: duplicate key %v at sorted position %d", sorted[i], i)
			case DuplicateKeepFirst:
				continue
			case DuplicateKeepLast:
				out[len(out)-1] = sorted[i]
				continue
			default:
				return nil, fmt.Errorf("keyset: unknown duplicate policy %d", policy)
			}
		}
		out = append(out, sorted[i])
	}
	return out, nil
}

// SortEntries sorts key-value entries key-major (lexicographically by key)
// and removes duplicate keys according to policy. DuplicateKeepFirst and
// DuplicateKeepLast control which entry's value survives.
func SortEntries[S text.Symbol, V any](entries []Entry[S, V], policy DuplicatePolicy) ([]Entry[S, V], error) {
	sorted := make([]Entry[S, V], len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return text.Less(sorted[i].Key, sorted[j].Key) })
	return dedupeEntries(sorted, policy)
}

func dedupeEntries[S text.Symbol, V any](sorted []Entry[S, V], policy DuplicatePolicy) ([]Entry[S, V], error) {
	if len(sorted) == 0 {
		return sorted, nil
	}
	out := sorted[:1]
	for i := 1; i < len(sorted); i++ {
		if text.Compare(sorted[i].Key, sorted[i-1].Key) == 0 {
			switch policy {
			case DuplicateError:
				return nil, fmt.Errorf("keyset: duplicate key %v at sorted position %d", sorted[i].Key, i)
			case DuplicateKeepFirst:
				continue
			case DuplicateKeepLast:
				out[len(out)-1] = sorted[i]
				continue
			default:
				return nil, fmt.Errorf("keyset: unknown duplicate policy %d", policy)
			}
		}
		out = append(out, sorted[i])
	}
	return out, nil
}

// IsSorted reports whether keys are already strictly increasing, with no
// duplicates. The trie builder calls this to fail fast on malformed input
// per the "Input malformed" error policy.
func IsSorted[S text.Symbol](keys []text.Text[S]) bool {
	for i := 1; i < len(keys); i++ {
		if text.Compare(keys[i-1], keys[i]) >= 0 {
			return false
		}
	}
	return true
}
