// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/roomengine/config.yaml",
	"/etc/roomengine/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every documented default applied.
func defaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			MoviesPerRoom:    50,
			MaxGenres:        2,
			WesternLanguages: []string{"en", "es", "fr", "it", "de", "pt"},
			MinOverviewLength: 20,
			PlaceholderOverviewPhrases: []string{
				"descripción no disponible",
				"no description available",
				"sin descripción",
				"n/a",
				"tbd",
				"coming soon",
			},
			InappropriateKeywords:  []string{},
			MinVoteCount:           50,
			MinReleaseYear:         1990,
			RoomTTL:                24 * time.Hour,
			MatchNotificationTopic: "rooms.matched",
		},
		Metadata: MetadataConfig{
			BaseURL:                 "https://api.themoviedb.org/3",
			RateLimitMsPerCall:      250,
			RetryBaseMs:             1000,
			RetryMaxMs:              30000,
			MaxRetries:              3,
			CircuitFailureThreshold: 5,
			CircuitResetMs:          60000,
			RequestTimeout:          10 * time.Second,
		},
		Storage: StorageConfig{
			BadgerPath:    "./data/roomengine",
			NATSEmbedded:  false,
			NATSStoreDir:  "./data/roomengine-nats",
			StreamName:    "ROOM_EVENTS",
			StreamSubject: "rooms.>",
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			RoomCreateTimeout: 60 * time.Second,
			VoteWriteTimeout:  2 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config by layering, in increasing priority: built-in
// defaults, an optional YAML config file, and environment variables
// (prefix ROOMENGINE_, nested keys separated by "__", e.g.
// ROOMENGINE_METADATA__API_KEY maps to metadata.api_key).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	configPath := os.Getenv(ConfigPathEnvVar)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	} else {
		for _, p := range DefaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				if loadErr := k.Load(file.Provider(p), yaml.Parser()); loadErr != nil {
					return nil, fmt.Errorf("load config file %s: %w", p, loadErr)
				}
				break
			}
		}
	}

	envProvider := env.ProviderWithValue("ROOMENGINE_", ".", func(rawKey, value string) (string, interface{}) {
		key := strings.ToLower(strings.TrimPrefix(rawKey, "ROOMENGINE_"))
		key = strings.ReplaceAll(key, "__", ".")
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
