// Package config manages TOML configuration for the sftrie CLI and IPC
// server: where the index and dictionary files live, the defaults each
// query form falls back to, and how the chunked loader paces itself.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure.
type Config struct {
	Server ServerConfig `toml:"server"`
	Dict   DictConfig   `toml:"dict"`
	CLI    CliConfig    `toml:"cli"`
}

// ServerConfig has IPC server related options.
type ServerConfig struct {
	MaxResults          int  `toml:"max_results"`
	DefaultMaxEdits     int  `toml:"default_max_edits"`
	MaxMaxEdits         int  `toml:"max_max_edits"`
	EnableApproxPredict bool `toml:"enable_approx_predict"`
	HotCacheSize        int  `toml:"hot_cache_size"`
}

// DictConfig holds dictionary ingestion options.
type DictConfig struct {
	DataDir        string `toml:"data_dir"`
	ChunkSize      int    `toml:"chunk_size"`
	MaxWords       int    `toml:"max_words"`
	RetryBackoffMS int    `toml:"retry_backoff_ms"`
	MaxLoadRetries int    `toml:"max_load_retries"`
}

// CliConfig holds interactive REPL options.
type CliConfig struct {
	DefaultLimit    int  `toml:"default_limit"`
	DefaultMaxEdits int  `toml:"default_max_edits"`
	NoColor         bool `toml:"no_color"`
	SuggestOnTypo   bool `toml:"suggest_on_typo"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := executableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "sftrie")
	if canUseConfigDir(primaryPath) {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "sftrie")
	if canUseConfigDir(macOSPath) {
		return macOSPath, nil
	}
	execDir, err := executableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/sftrie/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err = InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxResults:          50,
			DefaultMaxEdits:     2,
			MaxMaxEdits:         4,
			EnableApproxPredict: true,
			HotCacheSize:        256,
		},
		Dict: DictConfig{
			DataDir:        "./data",
			ChunkSize:      10000,
			MaxWords:       500000,
			RetryBackoffMS: 200,
			MaxLoadRetries: 3,
		},
		CLI: CliConfig{
			DefaultLimit:    10,
			DefaultMaxEdits: 2,
			NoColor:         false,
			SuggestOnTypo:   true,
		},
	}
}

// InitConfig loads config from file or creates default if missing.
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if _, statErr := os.Stat(configPath); statErr != nil {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Warnf("TOML parsing error in config file %s: %v. Attempting partial recovery...", configPath, err)
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to recover whatever sections of a TOML file are
// still well-formed, falling back to defaults section by section instead
// of failing the whole load over one bad key.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}
	tempConfig := make(map[string]any)
	if _, err := toml.Decode(string(data), &tempConfig); err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if serverSection, ok := extractSection(tempConfig, "server"); ok {
		extractServerConfig(serverSection, &config.Server)
	}
	if dictSection, ok := extractSection(tempConfig, "dict"); ok {
		extractDictConfig(dictSection, &config.Dict)
	}
	if cliSection, ok := extractSection(tempConfig, "cli"); ok {
		extractCliConfig(cliSection, &config.CLI)
	}
	return config, nil
}

func extractSection(data map[string]any, sectionName string) (map[string]any, bool) {
	section, ok := data[sectionName].(map[string]any)
	return section, ok
}

func extractInt64(data map[string]any, key string) (int, bool) {
	if val, ok := data[key].(int64); ok {
		return int(val), true
	}
	return 0, false
}

func extractBool(data map[string]any, key string) (bool, bool) {
	if val, ok := data[key].(bool); ok {
		return val, true
	}
	return false, false
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := extractInt64(data, "max_results"); ok {
		server.MaxResults = val
	}
	if val, ok := extractInt64(data, "default_max_edits"); ok {
		server.DefaultMaxEdits = val
	}
	if val, ok := extractInt64(data, "max_max_edits"); ok {
		server.MaxMaxEdits = val
	}
	if val, ok := extractBool(data, "enable_approx_predict"); ok {
		server.EnableApproxPredict = val
	}
	if val, ok := extractInt64(data, "hot_cache_size"); ok {
		server.HotCacheSize = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := extractInt64(data, "chunk_size"); ok {
		dict.ChunkSize = val
	}
	if val, ok := extractInt64(data, "max_words"); ok {
		dict.MaxWords = val
	}
	if val, ok := extractInt64(data, "retry_backoff_ms"); ok {
		dict.RetryBackoffMS = val
	}
	if val, ok := extractInt64(data, "max_load_retries"); ok {
		dict.MaxLoadRetries = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := extractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := extractInt64(data, "default_max_edits"); ok {
		cli.DefaultMaxEdits = val
	}
	if val, ok := extractBool(data, "no_color"); ok {
		cli.NoColor = val
	}
	if val, ok := extractBool(data, "suggest_on_typo"); ok {
		cli.SuggestOnTypo = val
	}
}

// RebuildConfigFile force creates a new config.toml at the default path.
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of the loaded config file.
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	if !filepath.IsAbs(configPath) {
		if absPath, err := filepath.Abs(configPath); err == nil {
			return absPath
		}
	}
	return configPath
}

// SaveConfig saves into a TOML file.
func SaveConfig(config *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		log.Errorf("Failed to create file: %v", err)
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(config)
}

// Update changes config values in place and saves to file.
func (c *Config) Update(configPath string, maxResults, defaultMaxEdits *int, enableApproxPredict *bool) error {
	server := &c.Server
	if maxResults != nil {
		server.MaxResults = *maxResults
	}
	if defaultMaxEdits != nil {
		server.DefaultMaxEdits = *defaultMaxEdits
	}
	if enableApproxPredict != nil {
		server.EnableApproxPredict = *enableApproxPredict
	}
	return SaveConfig(c, configPath)
}

// canUseConfigDir reports whether dirPath exists (creating it if not) and
// can actually be written to.
func canUseConfigDir(dirPath string) bool {
	if _, err := os.Stat(dirPath); err != nil {
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			log.Warnf("Cannot create directory %s: %v", dirPath, err)
			return false
		}
	}
	return canWriteDir(dirPath)
}

func canWriteDir(dirPath string) bool {
	probe := filepath.Join(dirPath, ".write_test")
	file, err := os.Create(probe)
	if err != nil {
		log.Warnf("Cannot write to directory %s: %v", dirPath, err)
		return false
	}
	file.Close()
	os.Remove(probe)
	return true
}

// executableDir is the fallback config location when the home directory
// can't be resolved or isn't writable: the directory the running binary
// lives in.
func executableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(execPath), nil
}
