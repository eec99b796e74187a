package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Validation contains the business thresholds used by chain validation and
// conflict detection. The defaults mirror the values observed in production;
// they are policy, not law, so every one of them is tunable.
type Validation struct {
	// ChainEpsilon is the tolerance applied to the per-territory 100% rollup
	// invariant. Rollups within ChainEpsilon of 100 are valid.
	ChainEpsilon float64 `toml:"chain_epsilon"`
	// OverclaimEpsilon is the slack allowed before combined cross-account
	// ownership counts as an overclaim.
	OverclaimEpsilon float64 `toml:"overclaim_epsilon"`
	// Overclaim severity breakpoints, expressed as excess over 100.
	OverclaimMediumExcess   float64 `toml:"overclaim_medium_excess"`
	OverclaimHighExcess     float64 `toml:"overclaim_high_excess"`
	OverclaimCriticalExcess float64 `toml:"overclaim_critical_excess"`
	// TitleSimilarityFloor is the cosine similarity below which two member
	// titles are considered a metadata mismatch.
	TitleSimilarityFloor float64 `toml:"title_similarity_floor"`
}

// Scan contains tuning for matching job execution.
type Scan struct {
	// BatchSize is the number of works processed between progress flushes.
	BatchSize int `toml:"batch_size"`
	// WorksPerSecond throttles the catalog walk. Zero disables throttling.
	WorksPerSecond int `toml:"works_per_second"`
	// LeaseTTLSeconds is the lifetime of the job lease; a running job renews
	// it on every progress flush.
	LeaseTTLSeconds int `toml:"lease_ttl_seconds"`
	// PageSize is the catalog read page size.
	PageSize int `toml:"page_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// API contains tuning for the operator HTTP API.
type API struct {
	// StatsCacheSeconds is the TTL for the cached aggregate stats response.
	StatsCacheSeconds int `toml:"stats_cache_seconds"`
}

// Config encapsulates all configuration values for cadenza.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Validation: chain epsilon, overclaim thresholds, severity breakpoints
//   - Scan: matching job batch sizes, throttling, lease lifetime
//   - API: operator API tuning
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Validation Validation `toml:"validation"`
	Scan       Scan       `toml:"scan"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cadenza/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cadenza.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for name, field := range map[string]*string{
		"data_dir": &c.Paths.DataDir,
		"log_dir":  &c.Paths.LogDir,
	} {
		expanded, err := expandPath(*field)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", name, err)
		}
		*field = expanded
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the path to the catalog database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
