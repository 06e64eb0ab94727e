// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package config provides typed application configuration loaded via Koanf v2
// from layered sources: built-in defaults, an optional YAML file, and
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the HTTP listen port.
	Port int `koanf:"port"`

	// Timeout applies to request read/write and graceful shutdown.
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the sliding window for the per-IP rate limit.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings for the ratings history store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty string opens an in-memory
	// database (used by tests).
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// CatalogConfig holds TMDB client and metadata cache settings.
type CatalogConfig struct {
	// APIKey is the TMDB API key. Required unless the catalog is stubbed.
	APIKey string `koanf:"api_key"`

	// BaseURL is the TMDB API root.
	BaseURL string `koanf:"base_url"`

	// Language is the preferred metadata language (e.g. "en-US").
	Language string `koanf:"language"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond bounds outbound TMDB calls. TMDB's public tier
	// allows ~50 req/s; stay well below it.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// RetryAttempts is the number of retries for transient failures.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryDelay is the initial backoff delay, doubled per attempt.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// CachePath is the Badger directory for the local movie metadata cache.
	CachePath string `koanf:"cache_path"`

	// CacheTTL marks cached metadata stale after this duration. Stale
	// entries are still served as fallback when TMDB is unreachable.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	// BuildOnStartup triggers a model build when the service starts.
	BuildOnStartup bool `koanf:"build_on_startup"`

	// RefreshInterval is how often the model is rebuilt in the background.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// BuildTimeout bounds a single model build, including catalog fetches.
	BuildTimeout time.Duration `koanf:"build_timeout"`

	// MinCorpusSize is the minimum number of resolvable items required
	// for a build to succeed.
	MinCorpusSize int `koanf:"min_corpus_size"`

	// OverviewLimit caps the overview text used in feature documents,
	// in characters.
	OverviewLimit int `koanf:"overview_limit"`

	// DefaultN is the recommendation count when the request omits n.
	DefaultN int `koanf:"default_n"`

	// MaxN caps the recommendation count per request.
	MaxN int `koanf:"max_n"`

	// ModelPath is the directory for persisted model artifacts.
	// Empty disables persistence (model is rebuilt every start).
	ModelPath string `koanf:"model_path"`

	// KeepModelVersions is how many persisted artifact versions to retain.
	KeepModelVersions int `koanf:"keep_model_versions"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must not be empty")
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("catalog.requests_per_second must be positive, got %v", c.Catalog.RequestsPerSecond)
	}
	if c.Catalog.RetryAttempts < 0 {
		return fmt.Errorf("catalog.retry_attempts must not be negative, got %d", c.Catalog.RetryAttempts)
	}
	if c.Recommend.MinCorpusSize < 1 {
		return fmt.Errorf("recommend.min_corpus_size must be at least 1, got %d", c.Recommend.MinCorpusSize)
	}
	if c.Recommend.OverviewLimit < 0 {
		return fmt.Errorf("recommend.overview_limit must not be negative, got %d", c.Recommend.OverviewLimit)
	}
	if c.Recommend.DefaultN < 1 {
		return fmt.Errorf("recommend.default_n must be at least 1, got %d", c.Recommend.DefaultN)
	}
	if c.Recommend.MaxN < c.Recommend.DefaultN {
		return fmt.Errorf("recommend.max_n (%d) must be >= recommend.default_n (%d)",
			c.Recommend.MaxN, c.Recommend.DefaultN)
	}
	if c.Recommend.RefreshInterval < 0 {
		return fmt.Errorf("recommend.refresh_interval must not be negative, got %v", c.Recommend.RefreshInterval)
	}
	return nil
}
