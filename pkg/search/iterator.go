package search

import (
	"sync"

	"github.com/arborly/sftrie/pkg/text"
)

// ApproxResult is one hit from an approximate search: the matched key, its
// trie node (for a MapTrie caller to fetch the associated value through),
// and the exact edit distance from the query.
type ApproxResult[S text.Symbol] struct {
	Key   text.Text[S]
	Node  int
	Edits int
}

// ApproxIterator is a pull-based forward iterator over Approx's results,
// for callers that want to stop after the first few hits without asking
// the walk to buffer everything up front. The walk itself runs on its own
// goroutine and blocks on handing off each result, so an abandoned
// iterator must be closed to let that goroutine exit.
type ApproxIterator[S text.Symbol] struct {
	results chan ApproxResult[S]
	stop    chan struct{}
	once    sync.Once
	cur     ApproxResult[S]
}

// ApproxIter returns a lazy iterator over Approx(query, maxEdits, ...),
// equivalent to Approx but pulled one result at a time via Next/Result.
func (c *Client[S, O]) ApproxIter(query text.Text[S], maxEdits int) *ApproxIterator[S] {
	it := &ApproxIterator[S]{
		results: make(chan ApproxResult[S]),
		stop:    make(chan struct{}),
	}
	go func() {
		defer close(it.results)
		c.Approx(query, maxEdits, func(key text.Text[S], node, edits int) bool {
			select {
			case it.results <- ApproxResult[S]{Key: text.Clone(key), Node: node, Edits: edits}:
				return true
			case <-it.stop:
				return false
			}
		})
	}()
	return it
}

// Next advances to the next result, reporting whether one was available.
func (it *ApproxIterator[S]) Next() bool {
	r, ok := <-it.results
	if !ok {
		return false
	}
	it.cur = r
	return true
}

// Result returns the result Next just advanced to.
func (it *ApproxIterator[S]) Result() ApproxResult[S] {
	return it.cur
}

// Close signals the background walk to stop and releases its goroutine.
// Safe to call more than once, and safe to call after Next has already
// returned false.
func (it *ApproxIterator[S]) Close() {
	it.once.Do(func() { close(it.stop) })
}
