package dictionary

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// RuntimeLoader adjusts how many chunks a ChunkLoader has staged, letting a
// caller (LoadFromPath's MaxChunks cap) grow or shrink the in-memory staging
// set before Freeze is called, without restarting the whole ingestion.
type RuntimeLoader struct {
	chunkLoader  *ChunkLoader
	targetChunks int
	mu           sync.RWMutex
}

// NewRuntimeLoader wraps an existing ChunkLoader.
func NewRuntimeLoader(chunkLoader *ChunkLoader) *RuntimeLoader {
	return &RuntimeLoader{chunkLoader: chunkLoader}
}

// GetAvailableChunkCount returns the total number of available chunk files.
func (rl *RuntimeLoader) GetAvailableChunkCount() (int, error) {
	chunks, err := rl.chunkLoader.GetAvailable()
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// GetMaxWordsAvailable returns the maximum number of words stageable from
// every chunk file on disk.
func (rl *RuntimeLoader) GetMaxWordsAvailable() (int, error) {
	chunks, err := rl.chunkLoader.GetAvailable()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, chunk := range chunks {
		total += chunk.WordCount
	}
	return total, nil
}

// SetDictionarySize grows or shrinks the staged set to targetChunks chunks.
func (rl *RuntimeLoader) SetDictionarySize(targetChunks int) error {
	if targetChunks < 1 {
		return fmt.Errorf("minimum dictionary size is 1 chunk")
	}

	available, err := rl.chunkLoader.GetAvailable()
	if err != nil {
		return fmt.Errorf("failed to list available chunks: %w", err)
	}
	if len(available) < targetChunks {
		return fmt.Errorf("only %d chunks available, requested %d", len(available), targetChunks)
	}

	currentChunks := rl.chunkLoader.GetStats().LoadedChunks
	log.Debugf("setting dictionary size: current=%d chunks, target=%d chunks", currentChunks, targetChunks)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	switch {
	case targetChunks > currentChunks:
		if err := rl.loadAdditionalChunks(available, targetChunks-currentChunks); err != nil {
			return err
		}
	case targetChunks < currentChunks:
		if err := rl.unloadExcessChunks(currentChunks - targetChunks); err != nil {
			return err
		}
	}
	rl.targetChunks = targetChunks
	return nil
}

func (rl *RuntimeLoader) loadAdditionalChunks(available []ChunkInfo, additional int) error {
	sort.Slice(available, func(i, j int) bool { return available[i].ID < available[j].ID })

	alreadyLoaded := make(map[int]bool)
	for _, id := range rl.chunkLoader.GetLoadedIDs() {
		alreadyLoaded[id] = true
	}

	loaded := 0
	for _, chunk := range available {
		if loaded >= additional {
			break
		}
		if alreadyLoaded[chunk.ID] {
			continue
		}
		if err := rl.chunkLoader.Load(chunk.ID); err != nil {
			log.Warnf("failed to load chunk %d: %v", chunk.ID, err)
			continue
		}
		loaded++
	}
	log.Debugf("loaded %d additional chunks", loaded)
	return nil
}

func (rl *RuntimeLoader) unloadExcessChunks(excess int) error {
	loadedIDs := rl.chunkLoader.GetLoadedIDs()
	if len(loadedIDs) == 0 {
		return nil
	}
	sort.Sort(sort.Reverse(sort.IntSlice(loadedIDs)))

	unloaded := 0
	for _, id := range loadedIDs {
		if unloaded >= excess {
			break
		}
		if err := rl.chunkLoader.Evict(id); err != nil {
			log.Warnf("failed to unload chunk %d: %v", id, err)
			continue
		}
		unloaded++
	}
	log.Debugf("unloaded %d chunks", unloaded)
	return nil
}

// DictionarySizeOption describes one selectable dictionary size.
type DictionarySizeOption struct {
	ChunkCount int    `json:"chunkCount"`
	WordCount  int    `json:"wordCount"`
	SizeLabel  string `json:"sizeLabel"`
}

// GetDictionarySizeOptions returns the available dictionary size choices.
func (rl *RuntimeLoader) GetDictionarySizeOptions() ([]DictionarySizeOption, error) {
	chunks, err := rl.chunkLoader.GetAvailable()
	if err != nil {
		return nil, err
	}

	options := make([]DictionarySizeOption, 0, len(chunks))
	total := 0
	for i, chunk := range chunks {
		total += chunk.WordCount
		options = append(options, DictionarySizeOption{
			ChunkCount: i + 1,
			WordCount:  total,
			SizeLabel:  fmt.Sprintf("%dK words", total/1000),
		})
	}
	return options, nil
}
