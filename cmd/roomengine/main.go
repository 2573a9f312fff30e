// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package main is the entry point for the room engine server.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load via Koanf v2 (defaults, file, environment)
//  2. Storage: BadgerDB record store plus its change feed (in-memory, or
//     NATS JetStream when built with -tags=nats and storage.nats_url is set)
//  3. Metadata client: TMDB-backed, rate limited and circuit broken
//  4. Pool builder, room catalog, and match notification hub
//  5. Vote consensus engine: subscribes to the change feed in the background
//  6. Room lifecycle service and TTL sweeper
//  7. HTTP/WebSocket server
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits up to 10s for in-flight requests, then
// closes the change feed and storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/roomengine/internal/api"
	"github.com/tomtom215/roomengine/internal/catalog"
	"github.com/tomtom215/roomengine/internal/config"
	"github.com/tomtom215/roomengine/internal/consensus"
	"github.com/tomtom215/roomengine/internal/logging"
	"github.com/tomtom215/roomengine/internal/metadata"
	"github.com/tomtom215/roomengine/internal/notify"
	"github.com/tomtom215/roomengine/internal/pool"
	"github.com/tomtom215/roomengine/internal/room"
	"github.com/tomtom215/roomengine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting room engine")

	feed, embeddedNATS, err := newChangeFeed(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize change feed")
	}
	if embeddedNATS != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := embeddedNATS.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded nats server")
			}
		}()
	}

	store, err := storage.NewBadgerStore(cfg.Storage.BadgerPath, cfg.Storage.BadgerInMemory, feed)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()
	logging.Info().Str("path", cfg.Storage.BadgerPath).Msg("Storage initialized")

	metadataClient := metadata.NewTMDBClient(metadata.Config{
		BaseURL:                 cfg.Metadata.BaseURL,
		APIKey:                  cfg.Metadata.APIKey,
		Language:                "en-US",
		MinVoteCount:            cfg.Pool.MinVoteCount,
		MinReleaseYear:          cfg.Pool.MinReleaseYear,
		RateLimitMsPerCall:      cfg.Metadata.RateLimitMsPerCall,
		RetryBaseMs:             cfg.Metadata.RetryBaseMs,
		RetryMaxMs:              cfg.Metadata.RetryMaxMs,
		MaxRetries:              cfg.Metadata.MaxRetries,
		CircuitFailureThreshold: cfg.Metadata.CircuitFailureThreshold,
		CircuitResetMs:          cfg.Metadata.CircuitResetMs,
		RequestTimeout:          cfg.Metadata.RequestTimeout,
	})

	builder := pool.NewBuilder(metadataClient, store, cfg.Pool)
	cat := catalog.New(store)
	hub := notify.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := consensus.New(store, feed, hub, cfg.Pool.MatchNotificationTopic)
	go func() {
		if err := engine.Run(ctx, "vote-consensus"); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Vote consensus engine stopped")
		}
	}()
	logging.Info().Msg("Vote consensus engine started")

	roomSvc := room.New(builder, store, cat)

	sweeper := room.NewSweeper(store, cfg.Pool.RoomTTL)
	go sweeper.Run(ctx)
	logging.Info().Dur("interval", cfg.Pool.RoomTTL).Msg("TTL sweeper started")

	handler := api.NewHandler(roomSvc, store, feed, metadataClient, hub)
	mwCfg := &api.ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization"},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,
		RateLimitRequests:    cfg.Server.RateLimitRequests,
		RateLimitWindow:      cfg.Server.RateLimitWindow,
	}
	router := api.NewRouter(handler, mwCfg)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErrCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Error during HTTP server shutdown")
	}

	if err := feed.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing change feed")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// newChangeFeed selects NATS JetStream when configured, falling back to
// the in-process feed for single-instance deployments. storage.nats_embedded
// starts a self-contained JetStream instance so a single-instance deployment
// gets durable delivery without operating an external NATS cluster; it
// takes precedence over storage.nats_url when both are set. Either NATS
// path without the nats build tag fails fast rather than silently
// degrading to in-memory delivery.
func newChangeFeed(cfg config.StorageConfig) (storage.ChangeFeed, *storage.EmbeddedNATS, error) {
	natsURL := cfg.NATSURL
	var embedded *storage.EmbeddedNATS

	if cfg.NATSEmbedded {
		ns, err := storage.NewEmbeddedNATS(storage.EmbeddedNATSConfig{
			Host:              "127.0.0.1",
			Port:              -1,
			StoreDir:          cfg.NATSStoreDir,
			JetStreamMaxMem:   256 * 1024 * 1024,
			JetStreamMaxStore: 1024 * 1024 * 1024,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded nats server: %w", err)
		}
		embedded = ns
		natsURL = ns.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Started embedded NATS JetStream server")
	}

	if natsURL == "" {
		logging.Info().Msg("Using in-memory change feed (storage.nats_url not set)")
		return storage.NewInMemoryChangeFeed(), nil, nil
	}

	feedCfg := storage.NATSChangeFeedConfig{
		URL:           natsURL,
		StreamName:    cfg.StreamName,
		StreamSubject: cfg.StreamSubject,
	}
	feed, err := storage.NewNATSChangeFeed(context.Background(), feedCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats change feed: %w", err)
	}
	logging.Info().Str("url", natsURL).Msg("Using NATS JetStream change feed")
	return feed, embedded, nil
}
