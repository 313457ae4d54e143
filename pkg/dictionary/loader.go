package dictionary

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Entry is one staged (key, rank) pair, ready to be sorted and handed to
// sft.Build/sft.BuildMap once every chunk has been staged.
type Entry struct {
	Key   []byte
	Value uint32
}

// ChunkInfo describes a chunk file found on disk.
type ChunkInfo struct {
	ID        int
	Filename  string
	WordCount int
}

// LoaderStats reports the loader's current staging progress.
type LoaderStats struct {
	TotalWords      int
	LoadedChunks    int
	AvailableChunks int
	MaxRank         uint32
	IsLoading       bool
}

// ChunkLoader stages dictionary entries from dict_%04d.bin chunk files into
// an in-memory patricia.Trie, chunk by chunk, on a background goroutine with
// retry-with-backoff. Once staging is done, Freeze drains the trie into a
// sorted []Entry suitable for sft.Build/sft.BuildMap.
type ChunkLoader struct {
	dirPath      string
	chunkSize    int
	maxWords     int
	loadedChunks map[int]bool
	chunkEntries map[int]map[string]uint32
	trie         *patricia.Trie
	totalWords   int
	maxRank      uint32
	mu           sync.RWMutex
	loadingCh    chan int
	done         chan struct{}
	errorCount   map[int]int
	maxRetries   int
	backoff      time.Duration
}

// NewChunkLoader creates a loader rooted at dirPath. maxWords of 0 means
// "load everything available".
func NewChunkLoader(dirPath string, chunkSize, maxWords, maxRetries int, backoff time.Duration) *ChunkLoader {
	return &ChunkLoader{
		dirPath:      dirPath,
		chunkSize:    chunkSize,
		maxWords:     maxWords,
		loadedChunks: make(map[int]bool),
		chunkEntries: make(map[int]map[string]uint32),
		trie:         patricia.NewTrie(),
		loadingCh:    make(chan int, 10),
		done:         make(chan struct{}),
		errorCount:   make(map[int]int),
		maxRetries:   maxRetries,
		backoff:      backoff,
	}
}

// GetAvailable scans the directory for available chunk files.
func (cl *ChunkLoader) GetAvailable() ([]ChunkInfo, error) {
	pattern := filepath.Join(cl.dirPath, "dict_*.bin")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		basename := filepath.Base(file)
		if strings.HasPrefix(basename, "dict_") && strings.HasSuffix(basename, ".bin") {
			idStr := strings.TrimSuffix(strings.TrimPrefix(basename, "dict_"), ".bin")
			id, err := strconv.Atoi(idStr)
			if err != nil {
				continue
			}
			wordCount, err := cl.peekChunkWordCount(file)
			if err != nil {
				log.Warnf("failed to get word count for chunk %s: %v", file, err)
				wordCount = 0
			}
			chunks = append(chunks, ChunkInfo{ID: id, Filename: file, WordCount: wordCount})
		}
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })
	return chunks, nil
}

func (cl *ChunkLoader) peekChunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	count, err := readChunkHeader(bufio.NewReader(file))
	return int(count), err
}

// readChunkHeader reads the little-endian int32 entry-count header shared
// by every chunk file; formats.go uses this for format validation too.
func readChunkHeader(r io.Reader) (int32, error) {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// StartLazyLoading begins staging chunks on a background goroutine.
func (cl *ChunkLoader) StartLazyLoading() error {
	chunks, err := cl.GetAvailable()
	if err != nil {
		return fmt.Errorf("failed to get available chunks: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunk files found in %s", cl.dirPath)
	}

	log.Debugf("found %d chunk files", len(chunks))
	go cl.backgroundLoader()

	wordsToLoad := cl.maxWords
	if wordsToLoad == 0 {
		for _, chunk := range chunks {
			wordsToLoad += chunk.WordCount
		}
	}

	loaded := 0
	for _, chunk := range chunks {
		if loaded >= wordsToLoad {
			break
		}
		select {
		case cl.loadingCh <- chunk.ID:
			log.Debugf("queued chunk %d for loading", chunk.ID)
		case <-time.After(100 * time.Millisecond):
			log.Warnf("loading queue full, chunk %d will be loaded later", chunk.ID)
		}
		loaded += chunk.WordCount
	}
	return nil
}

func (cl *ChunkLoader) backgroundLoader() {
	for {
		select {
		case chunkID := <-cl.loadingCh:
			if err := cl.loadChunk(chunkID); err != nil {
				log.Errorf("failed to load chunk %d: %v", chunkID, err)

				cl.mu.Lock()
				cl.errorCount[chunkID]++
				attempts := cl.errorCount[chunkID]
				cl.mu.Unlock()

				if attempts < cl.maxRetries {
					log.Debugf("retrying chunk %d (attempt %d/%d)", chunkID, attempts+1, cl.maxRetries)
					go func(id int, attempt int) {
						time.Sleep(time.Duration(attempt) * cl.backoff)
						select {
						case cl.loadingCh <- id:
						case <-cl.done:
						}
					}(chunkID, attempts)
				} else {
					log.Errorf("chunk %d failed %d times, giving up", chunkID, cl.maxRetries)
				}
			} else {
				log.Debugf("successfully loaded chunk %d", chunkID)
			}
		case <-cl.done:
			return
		}
	}
}

// Load stages a specific chunk by ID, no-op if already staged.
func (cl *ChunkLoader) Load(chunkID int) error {
	cl.mu.RLock()
	already := cl.loadedChunks[chunkID]
	cl.mu.RUnlock()
	if already {
		return nil
	}
	return cl.loadChunk(chunkID)
}

func (cl *ChunkLoader) loadChunk(chunkID int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.loadedChunks[chunkID] {
		return nil
	}

	filename := filepath.Join(cl.dirPath, fmt.Sprintf("dict_%04d.bin", chunkID))
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open chunk file %s: %w", filename, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	total, err := readChunkHeader(reader)
	if err != nil {
		return fmt.Errorf("failed to read chunk header: %w", err)
	}
	log.Debugf("loading chunk %d with %d entries", chunkID, total)

	entries := make(map[string]uint32, total)
	count := int32(0)
	for count < total {
		var keyLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &keyLen); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read key length: %w", err)
		}

		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(reader, keyBytes); err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}

		var rank uint16
		if err := binary.Read(reader, binary.LittleEndian, &rank); err != nil {
			return fmt.Errorf("failed to read rank: %w", err)
		}

		key := string(keyBytes)
		value := uint32(rank)
		cl.trie.Insert(patricia.Prefix(key), value)
		entries[key] = value

		cl.totalWords++
		if value > cl.maxRank {
			cl.maxRank = value
		}
		count++
	}

	cl.chunkEntries[chunkID] = entries
	cl.loadedChunks[chunkID] = true
	log.Debugf("chunk %d loaded: %d entries", chunkID, count)
	return nil
}

// Evict removes a staged chunk and rebuilds the trie without it.
func (cl *ChunkLoader) Evict(chunkID int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if !cl.loadedChunks[chunkID] {
		return fmt.Errorf("chunk %d is not loaded", chunkID)
	}
	delete(cl.loadedChunks, chunkID)

	entries, ok := cl.chunkEntries[chunkID]
	if !ok {
		return fmt.Errorf("chunk %d entry data not found", chunkID)
	}
	cl.totalWords -= len(entries)
	delete(cl.chunkEntries, chunkID)
	cl.rebuildTrie()

	log.Debugf("evicted chunk %d", chunkID)
	return nil
}

func (cl *ChunkLoader) rebuildTrie() {
	cl.trie = patricia.NewTrie()
	cl.maxRank = 0
	for chunkID, loaded := range cl.loadedChunks {
		if !loaded {
			continue
		}
		for key, value := range cl.chunkEntries[chunkID] {
			cl.trie.Insert(patricia.Prefix(key), value)
			if value > cl.maxRank {
				cl.maxRank = value
			}
		}
	}
	log.Debugf("trie rebuilt with %d staged chunks", len(cl.loadedChunks))
}

// GetStats reports current staging progress.
func (cl *ChunkLoader) GetStats() LoaderStats {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	chunks, _ := cl.GetAvailable()
	return LoaderStats{
		TotalWords:      cl.totalWords,
		LoadedChunks:    len(cl.loadedChunks),
		AvailableChunks: len(chunks),
		MaxRank:         cl.maxRank,
		IsLoading:       len(cl.loadingCh) > 0,
	}
}

// Stop halts the background loader goroutine.
func (cl *ChunkLoader) Stop() {
	close(cl.done)
}

// GetLoadedIDs returns the IDs of currently staged chunks, sorted.
func (cl *ChunkLoader) GetLoadedIDs() []int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	ids := make([]int, 0, len(cl.loadedChunks))
	for id, loaded := range cl.loadedChunks {
		if loaded {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Freeze drains the staged trie into a key-sorted []Entry, ready for
// sft.Build or sft.BuildMap. The loader should not be used for further
// staging after Freeze is called.
func (cl *ChunkLoader) Freeze() ([]Entry, error) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	entries := make([]Entry, 0, cl.totalWords)
	err := cl.trie.Visit(func(prefix patricia.Prefix, item patricia.Item) error {
		value, ok := item.(uint32)
		if !ok {
			return fmt.Errorf("unexpected staged value type %T", item)
		}
		entries = append(entries, Entry{Key: append([]byte(nil), prefix...), Value: value})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain staged trie: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].Key, entries[j].Key) < 0 })
	return entries, nil
}

// LoadTextFile parses a FormatText dictionary: one "word<TAB>freq" per
// line, blank lines and lines starting with "#" ignored. When no line has a
// tab-separated frequency column, frequencies are assigned by position, so
// a bare word list still produces a usable, strictly-decreasing-by-
// popularity rank order. In a file where some lines do carry a frequency,
// the lines without one get frequency 0.
func LoadTextFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: opening text file %s: %w", path, err)
	}
	defer f.Close()

	var words []string
	var freqs []uint32
	haveFreq := false

	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		word := strings.TrimSpace(parts[0])
		if word == "" {
			continue
		}
		words = append(words, word)
		if len(parts) == 2 {
			freq, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("dictionary: %s:%d: malformed frequency %q: %w", path, lineNo, parts[1], err)
			}
			freqs = append(freqs, uint32(freq))
			haveFreq = true
		} else {
			freqs = append(freqs, 0)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: reading text file %s: %w", path, err)
	}

	if !haveFreq {
		n := uint32(len(words))
		for i := range freqs {
			freqs[i] = n - uint32(i)
		}
	}

	entries := make([]Entry, len(words))
	for i, w := range words {
		entries[i] = Entry{Key: []byte(w), Value: freqs[i]}
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].Key, entries[j].Key) < 0 })
	return entries, nil
}

// IngestOptions controls how LoadFromPath stages a chunk directory; it
// has no effect when path names a single file.
type IngestOptions struct {
	ChunkSize      int
	MaxWords       int
	MaxLoadRetries int
	RetryBackoff   time.Duration

	// MaxChunks, if positive, caps ingestion to the MaxChunks
	// lowest-numbered chunk files instead of staging every chunk found
	// in the directory, via RuntimeLoader.SetDictionarySize.
	MaxChunks int
}

// LoadFromPath loads dictionary entries from path, dispatching on its
// shape: a directory is staged chunk by chunk with a ChunkLoader and
// frozen once every chunk file has loaded; a file is routed through
// DetectFileFormat (currently only FormatText is ingestible this way — an
// SFTI index file should be loaded directly with sftrie.LoadMapFile
// instead of re-ingested).
func LoadFromPath(path string, opts IngestOptions) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loadFromChunkDir(path, opts)
	}

	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatText:
		return LoadTextFile(path)
	default:
		return nil, fmt.Errorf("dictionary: %s is not ingestible directly (format %v); load a prebuilt SFTI index instead", path, format)
	}
}

func loadFromChunkDir(dir string, opts IngestOptions) ([]Entry, error) {
	loader := NewChunkLoader(dir, opts.ChunkSize, opts.MaxWords, opts.MaxLoadRetries, opts.RetryBackoff)
	if err := loader.StartLazyLoading(); err != nil {
		return nil, err
	}
	defer loader.Stop()

	available, err := loader.GetAvailable()
	if err != nil {
		return nil, err
	}

	targetChunks := len(available)
	if opts.MaxChunks > 0 && opts.MaxChunks < targetChunks {
		targetChunks = opts.MaxChunks
	}
	if targetChunks == 0 {
		return loader.Freeze()
	}

	for {
		if loader.GetStats().LoadedChunks >= targetChunks {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if opts.MaxChunks > 0 {
		sizer := NewRuntimeLoader(loader)
		if err := sizer.SetDictionarySize(targetChunks); err != nil {
			return nil, fmt.Errorf("dictionary: capping ingestion to %d chunks: %w", targetChunks, err)
		}
	}
	return loader.Freeze()
}
