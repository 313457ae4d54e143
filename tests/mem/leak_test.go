//go:build test

// Package mem exercises every goroutine-owning construct in the module
// under repeated use, watching for leaked goroutines and unbounded growth
// rather than asserting exact byte counts.
package mem

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/arborly/sftrie/pkg/dictionary"
	"github.com/arborly/sftrie/pkg/sftrie"
	"github.com/arborly/sftrie/pkg/text"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var testQueries = []string{
	"a", "ab", "abc", "abcd",
	"h", "he", "hel", "hell", "hello",
	"w", "wo", "wor", "worl", "world",
	"p", "pr", "pro", "prog", "program",
	"t", "th", "the", "ther", "there",
	"c", "co", "com", "comp", "computer",
}

func buildTestIndex(t *testing.T) *sftrie.Index[byte, uint32] {
	t.Helper()
	words := []string{
		"apple", "apply", "application", "banana", "band", "bandana",
		"cat", "catalog", "catapult", "dog", "dodge", "hello", "help",
		"world", "worker", "program", "progress", "there", "thermal",
		"computer", "compute", "computation",
	}
	keys := make([]text.Text[byte], len(words))
	for i, w := range words {
		keys[i] = text.FromString(w)
	}
	idx, err := sftrie.BuildFromUnsorted[byte, uint32](keys, 0)
	if err != nil {
		t.Fatalf("building test index: %v", err)
	}
	return idx
}

func snapshotGoroutines() (runtime.MemStats, int) {
	runtime.GC()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m, runtime.NumGoroutine()
}

// TestApproxIteratorGoroutineLifecycle drains an ApproxIterator to
// exhaustion and separately abandons one mid-walk via Close, across many
// repetitions, and checks neither pattern leaves goroutines behind.
func TestApproxIteratorGoroutineLifecycle(t *testing.T) {
	idx := buildTestIndex(t)
	client := idx.Searcher()

	baselineMem, baselineGoroutines := snapshotGoroutines()

	iterations := 2000
	for i := 0; i < iterations; i++ {
		it := client.ApproxIter(text.FromString("comptuer"), 2)
		for it.Next() {
			_ = it.Result()
		}
		it.Close()
	}
	for i := 0; i < iterations; i++ {
		it := client.ApproxIter(text.FromString("progrma"), 3)
		it.Next()
		_ = it.Result()
		it.Close()
	}

	finalMem, finalGoroutines := snapshotGoroutines()

	goroutineDelta := finalGoroutines - baselineGoroutines
	memDelta := int64(finalMem.Alloc) - int64(baselineMem.Alloc)
	t.Logf("iterations=%d goroutine_delta=%d mem_delta=%d bytes", iterations*2, goroutineDelta, memDelta)

	if goroutineDelta > 2 {
		t.Errorf("goroutine leak detected in ApproxIterator: %d goroutines leaked", goroutineDelta)
	}
}

// TestApproxIteratorConcurrent runs many iterators concurrently from
// independent clients, which is the pattern a server handling concurrent
// queries actually exercises.
func TestApproxIteratorConcurrent(t *testing.T) {
	idx := buildTestIndex(t)

	_, baselineGoroutines := snapshotGoroutines()

	workers := 8
	perWorker := 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := idx.Searcher()
			for i := 0; i < perWorker; i++ {
				for _, q := range testQueries {
					it := client.ApproxIter(text.FromString(q), 1)
					count := 0
					for it.Next() && count < 3 {
						_ = it.Result()
						count++
					}
					it.Close()
				}
			}
		}()
	}
	wg.Wait()

	_, finalGoroutines := snapshotGoroutines()
	goroutineDelta := finalGoroutines - baselineGoroutines
	t.Logf("workers=%d per_worker=%d goroutine_delta=%d", workers, perWorker, goroutineDelta)

	if goroutineDelta > workers {
		t.Errorf("goroutine leak detected under concurrent iterator use: %d leaked", goroutineDelta)
	}
}

// TestChunkLoaderStopReleasesBackgroundLoader verifies Stop tears down the
// loader's background goroutine promptly, across repeated start/stop
// cycles against a directory holding a single small chunk file.
func TestChunkLoaderStopReleasesBackgroundLoader(t *testing.T) {
	dir := t.TempDir()
	writeTestChunk(t, dir, 0, []string{"alpha", "beta", "gamma"})

	baselineMem, baselineGoroutines := snapshotGoroutines()

	cycles := 200
	for i := 0; i < cycles; i++ {
		cl := dictionary.NewChunkLoader(dir, 10000, 0, 3, time.Millisecond)
		if err := cl.StartLazyLoading(); err != nil {
			t.Fatalf("cycle %d: StartLazyLoading: %v", i, err)
		}
		cl.Stop()
	}

	// background loader goroutines exit asynchronously on Stop; give them
	// a beat to actually unwind before the final snapshot.
	time.Sleep(20 * time.Millisecond)
	finalMem, finalGoroutines := snapshotGoroutines()

	goroutineDelta := finalGoroutines - baselineGoroutines
	memDelta := int64(finalMem.Alloc) - int64(baselineMem.Alloc)
	t.Logf("cycles=%d goroutine_delta=%d mem_delta=%d bytes", cycles, goroutineDelta, memDelta)

	if goroutineDelta > 2 {
		t.Errorf("goroutine leak detected in ChunkLoader: %d goroutines leaked", goroutineDelta)
	}
}

// TestChunkLoaderFreezeStability stages a small on-disk chunk file
// repeatedly, freezing and discarding the loader each time, checking
// memory does not grow unboundedly across cycles.
func TestChunkLoaderFreezeStability(t *testing.T) {
	dir := t.TempDir()
	writeTestChunk(t, dir, 0, []string{"alpha", "beta", "gamma", "delta"})

	baselineMem, _ := snapshotGoroutines()

	cycles := 100
	maxMemDelta := int64(0)
	for i := 0; i < cycles; i++ {
		cl := dictionary.NewChunkLoader(dir, 10000, 0, 3, time.Millisecond)
		if err := cl.StartLazyLoading(); err != nil {
			t.Fatalf("cycle %d: StartLazyLoading: %v", i, err)
		}
		if err := cl.Load(0); err != nil {
			t.Fatalf("cycle %d: Load: %v", i, err)
		}
		if _, err := cl.Freeze(); err != nil {
			t.Fatalf("cycle %d: Freeze: %v", i, err)
		}
		cl.Stop()

		if i%20 == 0 {
			m, _ := snapshotGoroutines()
			delta := int64(m.Alloc) - int64(baselineMem.Alloc)
			if delta > maxMemDelta {
				maxMemDelta = delta
			}
			t.Logf("cycle=%d mem_delta=%d bytes", i, delta)
		}
	}

	if maxMemDelta > 10*1024*1024 {
		t.Errorf("excessive peak memory usage across freeze cycles: %d bytes", maxMemDelta)
	}
}

// writeTestChunk writes a minimal dict_%04d.bin chunk in the same framing
// ChunkLoader.loadChunk expects: a little-endian int32 entry count header,
// followed by that many (uint16 length-prefixed word, uint16 rank)
// records.
func writeTestChunk(t *testing.T, dir string, id int, words []string) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("dict_%04d.bin", id))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating chunk file: %v", err)
	}
	defer f.Close()

	le32 := func(v int32) []byte {
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
	le16 := func(v uint16) []byte {
		return []byte{byte(v), byte(v >> 8)}
	}

	if _, err := f.Write(le32(int32(len(words)))); err != nil {
		t.Fatalf("writing entry count: %v", err)
	}
	for i, w := range words {
		if _, err := f.Write(le16(uint16(len(w)))); err != nil {
			t.Fatalf("writing word length: %v", err)
		}
		if _, err := f.Write([]byte(w)); err != nil {
			t.Fatalf("writing word: %v", err)
		}
		if _, err := f.Write(le16(uint16(len(words) - i))); err != nil {
			t.Fatalf("writing rank: %v", err)
		}
	}
}
