package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cadenza/internal/config"
)

func TestLoadDefaultsWhenNoFileExists(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "cadenza", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7419" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Validation.ChainEpsilon != 0.01 {
		t.Fatalf("unexpected chain epsilon: %v", cfg.Validation.ChainEpsilon)
	}
	if cfg.Validation.OverclaimMediumExcess >= cfg.Validation.OverclaimHighExcess ||
		cfg.Validation.OverclaimHighExcess >= cfg.Validation.OverclaimCriticalExcess {
		t.Fatal("default overclaim breakpoints are not strictly increasing")
	}
	if cfg.Scan.BatchSize <= 0 || cfg.Scan.PageSize <= 0 {
		t.Fatalf("unexpected scan tuning: batch %d page %d", cfg.Scan.BatchSize, cfg.Scan.PageSize)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if got := cfg.DatabasePath(); got != filepath.Join(wantData, "catalog.db") {
		t.Fatalf("unexpected database path: %q", got)
	}
}

func TestLoadParsesExplicitFileAndExpandsTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "cadenza.toml")
	body := `
[paths]
data_dir = "~/rights/data"
log_dir = "~/rights/logs"
api_bind = "127.0.0.1:9000"

[validation]
chain_epsilon = 0.05

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved %q exists=%v, want %q true", resolved, exists, path)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "rights", "data") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.DataDir)
	}
	if cfg.Validation.ChainEpsilon != 0.05 {
		t.Fatalf("override not applied: %v", cfg.Validation.ChainEpsilon)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging values not normalized: %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	// Unset sections keep their defaults.
	if cfg.Validation.TitleSimilarityFloor != config.Default().Validation.TitleSimilarityFloor {
		t.Fatalf("unexpected similarity floor: %v", cfg.Validation.TitleSimilarityFloor)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{
			name:    "empty data dir",
			mutate:  func(c *config.Config) { c.Paths.DataDir = " " },
			wantSub: "data_dir",
		},
		{
			name:    "malformed bind address",
			mutate:  func(c *config.Config) { c.Paths.APIBind = "localhost" },
			wantSub: "api_bind",
		},
		{
			name:    "chain epsilon out of range",
			mutate:  func(c *config.Config) { c.Validation.ChainEpsilon = 1.5 },
			wantSub: "chain_epsilon",
		},
		{
			name:    "unordered overclaim breakpoints",
			mutate:  func(c *config.Config) { c.Validation.OverclaimHighExcess = 4 },
			wantSub: "breakpoints",
		},
		{
			name:    "similarity floor above one",
			mutate:  func(c *config.Config) { c.Validation.TitleSimilarityFloor = 1.2 },
			wantSub: "title_similarity_floor",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *config.Config) { c.Scan.BatchSize = 0 },
			wantSub: "batch_size",
		},
		{
			name:    "zero lease ttl",
			mutate:  func(c *config.Config) { c.Scan.LeaseTTLSeconds = 0 },
			wantSub: "lease_ttl",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantSub: "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if cfg.Paths.APIBind == "" {
		t.Fatal("sample config missing api bind")
	}
}
