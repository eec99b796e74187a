package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if bind := strings.TrimSpace(c.Paths.APIBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("paths.api_bind %q is not host:port: %w", bind, err)
		}
	}
	return nil
}

func (c *Config) validateValidation() error {
	if c.Validation.ChainEpsilon < 0 || c.Validation.ChainEpsilon >= 1 {
		return errors.New("validation.chain_epsilon must be in [0, 1)")
	}
	if c.Validation.OverclaimEpsilon < 0 {
		return errors.New("validation.overclaim_epsilon must not be negative")
	}
	m, h, crit := c.Validation.OverclaimMediumExcess, c.Validation.OverclaimHighExcess, c.Validation.OverclaimCriticalExcess
	if m <= 0 || h <= m || crit <= h {
		return errors.New("validation overclaim breakpoints must satisfy 0 < medium < high < critical")
	}
	if c.Validation.TitleSimilarityFloor < 0 || c.Validation.TitleSimilarityFloor > 1 {
		return errors.New("validation.title_similarity_floor must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.BatchSize <= 0 {
		return errors.New("scan.batch_size must be positive")
	}
	if c.Scan.WorksPerSecond < 0 {
		return errors.New("scan.works_per_second must not be negative")
	}
	if c.Scan.LeaseTTLSeconds <= 0 {
		return errors.New("scan.lease_ttl_seconds must be positive")
	}
	if c.Scan.PageSize <= 0 {
		return errors.New("scan.page_size must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.StatsCacheSeconds < 0 {
		return errors.New("api.stats_cache_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console, json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported (debug, info, warn, error)", c.Logging.Level)
	}
	return nil
}
