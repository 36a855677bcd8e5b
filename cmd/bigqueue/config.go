package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/arenafile/bigqueue/pkg/bigqueue"
)

// FileConfig is the subset of bigqueue.Config that can be set from a config
// file, plus the default queue directory. CLI flags always win over it.
type FileConfig struct {
	QueueDir       string `json:"queue_dir,omitempty"` //nolint:tagliatelle
	ArenaSize      int64  `json:"arena_size,omitempty"`
	MaxArenasInMem int    `json:"max_arenas_in_mem,omitempty"`
}

// ConfigFileName is the default project-local config file name.
const ConfigFileName = ".bigqueue.json"

var errConfigFileNotFound = errors.New("config file not found")

// globalConfigPath returns $XDG_CONFIG_HOME/bigqueue/config.json, falling
// back to ~/.config/bigqueue/config.json.
func globalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bigqueue", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "bigqueue", "config.json")
}

// loadFileConfig merges the project-local config file over the global one
// (project wins), tolerating either being absent. An explicit configPath
// must exist or loading fails.
func loadFileConfig(workDir, configPath string) (FileConfig, error) {
	var cfg FileConfig

	if globalPath := globalConfigPath(); globalPath != "" {
		global, loaded, err := readConfigFile(globalPath, false)
		if err != nil {
			return FileConfig{}, err
		}

		if loaded {
			cfg = mergeFileConfig(cfg, global)
		}
	}

	projectPath := configPath
	mustExist := configPath != ""

	if projectPath == "" {
		projectPath = filepath.Join(workDir, ConfigFileName)
	} else if !filepath.IsAbs(projectPath) {
		projectPath = filepath.Join(workDir, projectPath)
	}

	project, loaded, err := readConfigFile(projectPath, mustExist)
	if err != nil {
		return FileConfig{}, err
	}

	if loaded {
		cfg = mergeFileConfig(cfg, project)
	}

	return cfg, nil
}

func readConfigFile(path string, mustExist bool) (FileConfig, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path is user-controlled by design
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return FileConfig{}, false, fmt.Errorf("%w: %s", errConfigFileNotFound, path)
			}

			return FileConfig{}, false, nil
		}

		return FileConfig{}, false, fmt.Errorf("reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return FileConfig{}, false, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}

	var cfg FileConfig

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return FileConfig{}, false, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return cfg, true, nil
}

func mergeFileConfig(base, overlay FileConfig) FileConfig {
	if overlay.QueueDir != "" {
		base.QueueDir = overlay.QueueDir
	}

	if overlay.ArenaSize != 0 {
		base.ArenaSize = overlay.ArenaSize
	}

	if overlay.MaxArenasInMem != 0 {
		base.MaxArenasInMem = overlay.MaxArenasInMem
	}

	return base
}

// resolveConfig applies file config under CLI flags: any flag the caller
// explicitly set (tracked via setFlags) overrides the file's value.
func resolveConfig(fileCfg FileConfig, dirArg string, arenaSize int64, maxArenas int, setFlags map[string]bool) (string, bigqueue.Config) {
	dir := dirArg
	if dir == "" && fileCfg.QueueDir != "" {
		dir = fileCfg.QueueDir
	}

	cfg := bigqueue.DefaultConfig()

	if fileCfg.ArenaSize != 0 {
		cfg.ArenaSize = fileCfg.ArenaSize
	}

	if fileCfg.MaxArenasInMem != 0 {
		cfg.MaxArenasInMem = fileCfg.MaxArenasInMem
	}

	if setFlags["arena-size"] {
		cfg.ArenaSize = arenaSize
	}

	if setFlags["max-arenas"] {
		cfg.MaxArenasInMem = maxArenas
	}

	return dir, cfg
}
