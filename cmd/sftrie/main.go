// Command sftrie is the interactive CLI: it builds (or loads) an SFTI
// index from a dictionary source and drives an interactive REPL over it,
// supporting exact, prefix, predictive, approximate, and approximate
// predictive queries.
//
// Usage:
//
//	sftrie -data ./dictdata -save ./dict.sfti
//	sftrie -index ./dict.sfti
//	sftrie -data words.txt -limit 20 -max-edits 2
//	sftrie -data ./dictdata -max-chunks 4
//
// Dictionary sources (-data):
//
//   - a directory of dict_%04d.bin chunk files (the chunked staging
//     format a bulk ingestion pipeline produces)
//   - a single plain-text file, one "word<TAB>frequency" per line
//
// -index loads an already-built SFTI index directly, skipping ingestion
// entirely. -save writes out the index built from -data so a later run
// can load it with -index instead of re-ingesting.
//
// Config (~/.config/sftrie/config.toml, or -config):
//
//	[cli]
//	default_limit = 10
//	default_max_edits = 2
//	no_color = false
//	suggest_on_typo = true
//
// REPL grammar: a bare query is an exact lookup; a trailing "%" or "<"
// requests every key that is a prefix of query; a trailing "*" requests every
// key that has query as a prefix; a trailing "?" (optionally preceded by
// a digit run overriding the edit budget) requests an approximate match;
// a trailing "&" requests an approximate predictive match. "save=PATH"
// dumps the current index to PATH. "exit", "quit", or "bye" ends the
// session.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arborly/sftrie/internal/cli"
	"github.com/arborly/sftrie/internal/logger"
	"github.com/arborly/sftrie/internal/utils"
	"github.com/arborly/sftrie/pkg/config"
	"github.com/arborly/sftrie/pkg/dictionary"
	"github.com/arborly/sftrie/pkg/keyset"
	"github.com/arborly/sftrie/pkg/sftrie"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const version = "0.1.0"

func main() {
	var (
		dataPath   = flag.String("data", "", "dictionary source: a chunk directory or a word<TAB>freq text file")
		indexPath  = flag.String("index", "", "load an already-built SFTI index instead of ingesting -data")
		savePath   = flag.String("save", "", "write the built index to this path before starting the REPL")
		configPath = flag.String("config", "", "path to config.toml (defaults to the per-user config dir)")
		limit      = flag.Int("limit", 0, "override the REPL's result limit (0 keeps the config default)")
		maxEdits   = flag.Int("max-edits", 0, "override the REPL's default edit budget (0 keeps the config default)")
		maxChunks  = flag.Int("max-chunks", 0, "cap chunk-directory ingestion to this many chunks (0 loads every chunk found)")
		noColor    = flag.Bool("no-color", false, "disable lipgloss styling in REPL output")
		debug      = flag.Bool("debug", false, "enable debug logging")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		printVersion()
		return
	}

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

	lg := logger.Default("sftrie")

	idx, err := loadOrBuildIndex(*indexPath, *dataPath, *maxChunks, cfg)
	if err != nil {
		lg.Fatal("failed to prepare index", "err", err)
	}

	if *savePath != "" {
		if err := idx.SaveFile(*savePath); err != nil {
			lg.Fatal("failed to save index", "path", *savePath, "err", err)
		}
		lg.Infof("saved index to %s", *savePath)
	}

	effectiveLimit := cfg.CLI.DefaultLimit
	if *limit > 0 {
		effectiveLimit = *limit
	}
	effectiveMaxEdits := cfg.CLI.DefaultMaxEdits
	if *maxEdits > 0 {
		effectiveMaxEdits = *maxEdits
	}

	repl := cli.New(
		idx.Searcher(),
		cli.RawTrieValueLookup(idx.RawTrie()),
		effectiveMaxEdits,
		effectiveLimit,
		*noColor || cfg.CLI.NoColor,
		cfg.CLI.SuggestOnTypo,
		idx.SaveFile,
		os.Stdin,
		os.Stdout,
	)
	os.Exit(int(repl.Run()))
}

// loadOrBuildIndex resolves the CLI's -index/-data flags into a ready
// map-flavor index: load one directly if -index is set, otherwise stage
// and freeze a dictionary from -data and build one from the result.
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

func printVersion() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#56949f", Dark: "#9ccfd8"}).
		Render(fmt.Sprintf("sftrie %s", version))
	fmt.Println(banner)
	fmt.Println(strings.Repeat("-", len("sftrie ")+len(version)))
	fmt.Println("succinct flat trie + Levenshtein-automaton string index")
}
