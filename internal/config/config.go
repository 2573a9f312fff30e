// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from a config file and
// environment variables (Koanf v2 layering, see koanf.go).
//
// Configuration Categories:
//
//  1. Domain tuning: MoviesPerRoom, MaxGenres, the quality-gate thresholds,
//     and the metadata client's flow-control knobs.
//  2. Infrastructure: Storage (BadgerDB path, NATS JetStream URL/stream),
//     Metadata (TMDB base URL and API key), Server (HTTP bind address).
//  3. Observability: Logging.
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Pool     PoolConfig     `koanf:"pool"`
	Metadata MetadataConfig `koanf:"metadata"`
	Storage  StorageConfig  `koanf:"storage"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// PoolConfig holds the content-pool builder's quality-gate and room-lifecycle knobs.
type PoolConfig struct {
	MoviesPerRoom              int      `koanf:"movies_per_room"`
	MaxGenres                  int      `koanf:"max_genres"`
	WesternLanguages           []string `koanf:"western_languages"`
	MinOverviewLength          int      `koanf:"min_overview_length"`
	PlaceholderOverviewPhrases []string `koanf:"placeholder_overview_phrases"`
	InappropriateKeywords      []string `koanf:"inappropriate_keywords"`
	MinVoteCount               int      `koanf:"min_vote_count"`
	MinReleaseYear             int      `koanf:"min_release_year"`
	RoomTTL                    time.Duration `koanf:"room_ttl"`
	MatchNotificationTopic     string   `koanf:"match_notification_topic"`
}

// MetadataConfig configures the TMDB HTTP client's flow-control and resilience knobs.
type MetadataConfig struct {
	BaseURL            string        `koanf:"base_url"`
	APIKey             string        `koanf:"api_key"`
	RateLimitMsPerCall int           `koanf:"rate_limit_ms_per_call"`
	RetryBaseMs        int           `koanf:"retry_base_ms"`
	RetryMaxMs         int           `koanf:"retry_max_ms"`
	MaxRetries         int           `koanf:"max_retries"`
	CircuitFailureThreshold uint32   `koanf:"circuit_failure_threshold"`
	CircuitResetMs     int           `koanf:"circuit_reset_ms"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
}

// StorageConfig configures the durable record store and the change-feed transport.
type StorageConfig struct {
	BadgerPath     string `koanf:"badger_path"`
	BadgerInMemory bool   `koanf:"badger_in_memory"`
	NATSURL        string `koanf:"nats_url"`
	NATSEmbedded   bool   `koanf:"nats_embedded"`
	NATSStoreDir   string `koanf:"nats_store_dir"`
	StreamName     string `koanf:"stream_name"`
	StreamSubject  string `koanf:"stream_subject"`
}

// ServerConfig configures the inbound HTTP/WebSocket API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RoomCreateTimeout time.Duration `koanf:"room_create_timeout"`
	VoteWriteTimeout  time.Duration `koanf:"vote_write_timeout"`
	CORSAllowedOrigins []string     `koanf:"cors_allowed_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that required fields are present and internally consistent.
func (c *Config) Validate() error {
	if c.Pool.MoviesPerRoom <= 0 {
		return fmt.Errorf("pool.movies_per_room must be positive, got %d", c.Pool.MoviesPerRoom)
	}
	if c.Pool.MaxGenres < 0 || c.Pool.MaxGenres > 2 {
		return fmt.Errorf("pool.max_genres must be between 0 and 2, got %d", c.Pool.MaxGenres)
	}
	if len(c.Pool.WesternLanguages) == 0 {
		return fmt.Errorf("pool.western_languages must not be empty")
	}
	if c.Metadata.APIKey == "" {
		return fmt.Errorf("metadata.api_key is required")
	}
	if c.Metadata.BaseURL == "" {
		return fmt.Errorf("metadata.base_url is required")
	}
	if c.Storage.BadgerPath == "" && !c.Storage.BadgerInMemory {
		return fmt.Errorf("storage.badger_path is required unless storage.badger_in_memory is set")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	return nil
}
