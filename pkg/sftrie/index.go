// Package sftrie is the library's public façade: build or load an Index
// (or MapIndex) once, then hand out as many search.Client values from it
// as callers need. The index itself is read-only after construction, and
// a search.Client carries no mutable state either: each query call builds
// its own matcher and key buffer.
package sftrie

import (
	"io"

	"github.com/arborly/sftrie/pkg/keyset"
	"github.com/arborly/sftrie/pkg/search"
	"github.com/arborly/sftrie/pkg/sft"
	"github.com/arborly/sftrie/pkg/text"
)

// Index is the set flavor's façade: a built trie plus the ability to hand
// out search clients and persist itself.
type Index[S text.Symbol, O text.Offset] struct {
	trie *sft.Trie[S, O]
}

// Build constructs an Index from pre-sorted, duplicate-free keys.
func Build[S text.Symbol, O text.Offset](sortedKeys []text.Text[S]) (*Index[S, O], error) {
	t, err := sft.Build[S, O](sortedKeys)
	if err != nil {
		return nil, err
	}
	return &Index[S, O]{trie: t}, nil
}

// BuildFromUnsorted sorts keys before building, per policy.
func BuildFromUnsorted[S text.Symbol, O text.Offset](keys []text.Text[S], policy keyset.DuplicatePolicy) (*Index[S, O], error) {
	t, err := sft.BuildFromUnsorted[S, O](keys, policy)
	if err != nil {
		return nil, err
	}
	return &Index[S, O]{trie: t}, nil
}

// Load reads an Index previously written by Save.
func Load[S text.Symbol, O text.Offset](r io.Reader) (*Index[S, O], error) {
	t, err := sft.LoadTrie[S, O](r)
	if err != nil {
		return nil, err
	}
	return &Index[S, O]{trie: t}, nil
}

// LoadFile reads an Index from a file path.
func LoadFile[S text.Symbol, O text.Offset](path string) (*Index[S, O], error) {
	t, err := sft.LoadTrieFile[S, O](path)
	if err != nil {
		return nil, err
	}
	return &Index[S, O]{trie: t}, nil
}

// Save writes the index to w in the SFTI binary format.
func (idx *Index[S, O]) Save(w io.Writer) error { return idx.trie.Save(w) }

// SaveFile writes the index to a file at path.
func (idx *Index[S, O]) SaveFile(path string) error { return idx.trie.SaveFile(path) }

// Searcher returns a fresh search.Client sharing this index's trie. The
// client keeps no per-query state between calls, so one client may also be
// shared across goroutines.
func (idx *Index[S, O]) Searcher() *search.Client[S, O] {
	return search.New[S, O](idx.trie)
}

// RawTrie exposes the underlying topology directly, for callers that need
// node-level access (e.g. a server layer resolving a search.Client result
// node back to a key without re-walking).
func (idx *Index[S, O]) RawTrie() *sft.Trie[S, O] { return idx.trie }

// MapIndex is the map flavor's façade, the same shape as Index plus
// per-key values and RawTrie access for in-place value mutation.
type MapIndex[S text.Symbol, O text.Offset, V any] struct {
	trie *sft.MapTrie[S, O, V]
}

// BuildMap constructs a MapIndex from pre-sorted, duplicate-free entries.
func BuildMap[S text.Symbol, O text.Offset, V any](sortedEntries []keyset.Entry[S, V]) (*MapIndex[S, O, V], error) {
	t, err := sft.BuildMap[S, O, V](sortedEntries)
	if err != nil {
		return nil, err
	}
	return &MapIndex[S, O, V]{trie: t}, nil
}

// BuildMapFromUnsorted sorts entries key-major before building, per policy.
func BuildMapFromUnsorted[S text.Symbol, O text.Offset, V any](entries []keyset.Entry[S, V], policy keyset.DuplicatePolicy) (*MapIndex[S, O, V], error) {
	t, err := sft.BuildMapFromUnsorted[S, O, V](entries, policy)
	if err != nil {
		return nil, err
	}
	return &MapIndex[S, O, V]{trie: t}, nil
}

// LoadMap reads a MapIndex previously written by Save.
func LoadMap[S text.Symbol, O text.Offset, V any](r io.Reader) (*MapIndex[S, O, V], error) {
	t, err := sft.LoadMap[S, O, V](r)
	if err != nil {
		return nil, err
	}
	return &MapIndex[S, O, V]{trie: t}, nil
}

// LoadMapFile reads a MapIndex from a file path.
func LoadMapFile[S text.Symbol, O text.Offset, V any](path string) (*MapIndex[S, O, V], error) {
	t, err := sft.LoadMapFile[S, O, V](path)
	if err != nil {
		return nil, err
	}
	return &MapIndex[S, O, V]{trie: t}, nil
}

// Save writes the index to w in the SFTI binary format.
func (idx *MapIndex[S, O, V]) Save(w io.Writer) error { return idx.trie.Save(w) }

// SaveFile writes the index to a file at path.
func (idx *MapIndex[S, O, V]) SaveFile(path string) error { return idx.trie.SaveFile(path) }

// Searcher returns a fresh search.Client sharing this index's trie
// topology. Resolve a result node's value with RawTrie().Value(node).
func (idx *MapIndex[S, O, V]) Searcher() *search.Client[S, O] {
	return search.New[S, O](idx.trie.Trie)
}

// RawTrie exposes the underlying MapTrie directly. This is the only way
// to mutate the index after construction: SetValue overwrites a value in
// place without touching the key set, per the façade's documented
// mutation contract (values only, never keys).
func (idx *MapIndex[S, O, V]) RawTrie() *sft.MapTrie[S, O, V] { return idx.trie }
