// Command sftserve runs the msgpack IPC server: it builds or loads an
// SFTI index exactly as cmd/sftrie does, then answers exact, prefix,
// predict, approx, and approx_predict requests over stdin/stdout until
// EOF, fronted by an advisory LRU cache of recent results.
//
// Usage:
//
//	sftserve -data ./dictdata
//	sftserve -index ./dict.sfti -config ./config.toml
//
// Config (~/.config/sftrie/config.toml, or -config):
//
//	[server]
//	max_results = 50
//	default_max_edits = 2
//	max_max_edits = 4
//	enable_approx_predict = true
//	hot_cache_size = 256
//
// The wire protocol is a stream of msgpack-encoded envelopes, each
// {"type": ..., "payload": ...}; see pkg/server for the request/response
// shapes of every supported type.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/arborly/sftrie/internal/logger"
	"github.com/arborly/sftrie/internal/utils"
	"github.com/arborly/sftrie/pkg/config"
	"github.com/arborly/sftrie/pkg/dictionary"
	"github.com/arborly/sftrie/pkg/hotcache"
	"github.com/arborly/sftrie/pkg/keyset"
	"github.com/arborly/sftrie/pkg/server"
	"github.com/arborly/sftrie/pkg/sftrie"
	"github.com/charmbracelet/log"
)

func main() {
	var (
		dataPath   = flag.String("data", "", "dictionary source: a chunk directory or a word<TAB>freq text file")
		indexPath  = flag.String("index", "", "load an already-built SFTI index instead of ingesting -data")
		configPath = flag.String("config", "", "path to config.toml (defaults to the per-user config dir)")
		maxChunks  = flag.Int("max-chunks", 0, "cap chunk-directory ingestion to this many chunks (0 loads every chunk found)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	cfg, cfgPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	log.Debugf("active config: %s", config.GetActiveConfigPath(cfgPath))

	lg := logger.New("sftserve")

	idx, err := loadOrBuildIndex(*indexPath, *dataPath, *maxChunks, cfg)
	if err != nil {
		lg.Fatal("failed to prepare index", "err", err)
	}

	var cache *hotcache.Cache[any]
	if cfg.Server.HotCacheSize > 0 {
		cache = hotcache.New[any](cfg.Server.HotCacheSize)
	}

	srv := server.NewServer(idx.Searcher(), cache, cfg.Server.MaxResults, cfg.Server.DefaultMaxEdits, cfg.Server.MaxMaxEdits)
	lg.Info("serving", "max_results", cfg.Server.MaxResults, "default_max_edits", cfg.Server.DefaultMaxEdits)
	if err := srv.Start(); err != nil {
		lg.Fatal("server exited with error", "err", err)
	}
}

func loadOrBuildIndex(indexPath, dataPath string, maxChunks int, cfg *config.Config) (*sftrie.MapIndex[byte, uint32, uint32], error) {
	if indexPath != "" {
		return sftrie.LoadMapFile[byte, uint32, uint32](indexPath)
	}
	dataPath = resolveDataPath(dataPath, cfg)
	if dataPath == "" {
		return nil, fmt.Errorf("one of -index or -data is required")
	}

	entries, err := dictionary.LoadFromPath(dataPath, dictIngestOptions(cfg, maxChunks))
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", dataPath, err)
	}

	kv := make([]keyset.Entry[byte, uint32], len(entries))
	for i, e := range entries {
		kv[i] = keyset.Entry[byte, uint32]{Key: e.Key, Value: e.Value}
	}
	return sftrie.BuildMapFromUnsorted[byte, uint32, uint32](kv, keyset.DuplicateKeepLast)
}

// resolveDataPath fills in an unset -data flag from the config's configured
// dictionary directory, resolving a relative path against the executable's
// own location first, then the current working directory, then a handful
// of other conventional install layouts. An explicit -data flag always wins
// outright.
func resolveDataPath(dataPath string, cfg *config.Config) string {
	if dataPath != "" {
		return dataPath
	}
	if cfg.Dict.DataDir == "" {
		return ""
	}
	resolver, err := utils.NewPathResolver()
	if err != nil {
		log.Debugf("path resolver unavailable, using configured dict dir as-is: %v", err)
		return cfg.Dict.DataDir
	}
	resolved, err := resolver.GetDataDir(cfg.Dict.DataDir)
	if err != nil {
		log.Debugf("resolving configured dict dir %s: %v", cfg.Dict.DataDir, err)
		return cfg.Dict.DataDir
	}
	return resolved
}

func dictIngestOptions(cfg *config.Config, maxChunks int) dictionary.IngestOptions {
	return dictionary.IngestOptions{
		ChunkSize:      cfg.Dict.ChunkSize,
		MaxWords:       cfg.Dict.MaxWords,
		MaxLoadRetries: cfg.Dict.MaxLoadRetries,
		RetryBackoff:   time.Duration(cfg.Dict.RetryBackoffMS) * time.Millisecond,
		MaxChunks:      maxChunks,
	}
}
