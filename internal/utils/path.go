package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver locates a dictionary data directory relative to the running
// binary, for deployments where the working directory isn't guaranteed to
// be the install directory (a chunk directory shipped next to the
// executable, for instance, rather than wherever the shell happened to cd).
type PathResolver struct {
	executableDir string
	configDir     string
}

// NewPathResolver resolves the current executable's location up front so
// GetDataDir doesn't re-derive it on every call.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}
	execDir := filepath.Dir(execPath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: execDir,
		configDir:     getConfigDir(homeDir),
	}
	log.Debugf("path resolver initialized: execDir=%s configDir=%s", execDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the platform's conventional per-user config
// directory for sftrie.
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", "sftrie")
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "sftrie")
		}
		return filepath.Join(homeDir, ".config", "sftrie")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "sftrie")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "sftrie")
	default:
		return filepath.Join(homeDir, ".sftrie")
	}
}

// GetDataDir resolves a dictionary directory containing dict_*.bin chunk
// files, trying in order: userSpecifiedPath as given (if absolute), next to
// the executable, under the current working directory, and a handful of
// conventional install layouts (execDir/data, execDir's parent/data,
// configDir/data). The first candidate that actually contains chunk files
// wins; if none do, the exec-relative candidate is returned anyway so the
// caller's own error reporting names a sensible path.
func (pr *PathResolver) GetDataDir(userSpecifiedPath string) (string, error) {
	var candidatePaths []string

	if filepath.IsAbs(userSpecifiedPath) {
		candidatePaths = append(candidatePaths, userSpecifiedPath)
	}

	execRelativePath := filepath.Join(pr.executableDir, userSpecifiedPath)
	candidatePaths = append(candidatePaths, execRelativePath)

	if cwd, err := os.Getwd(); err == nil {
		candidatePaths = append(candidatePaths, filepath.Join(cwd, userSpecifiedPath))
	}

	candidatePaths = append(candidatePaths,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	)

	for _, path := range candidatePaths {
		if pr.isValidDataDir(path) {
			log.Debugf("found valid data directory: %s", path)
			return path, nil
		}
		log.Debugf("data directory candidate not valid: %s", path)
	}

	return execRelativePath, nil
}

// isValidDataDir reports whether path exists and contains at least one
// chunk file.
func (pr *PathResolver) isValidDataDir(path string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(path, "dict_*.bin"))
	if err != nil {
		return false
	}
	return len(matches) > 0
}
