// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

//go:build nats

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedNATSConfig configures the self-contained JetStream instance used
// when no external NATS deployment is available.
type EmbeddedNATSConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// EmbeddedNATS wraps a nats-server/v2 instance with lifecycle management,
// giving a single-instance deployment a durable JetStream change feed
// without requiring an externally operated NATS cluster.
type EmbeddedNATS struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedNATS starts an embedded JetStream-enabled NATS server and
// blocks until it is ready to accept connections or 30s elapses.
func NewEmbeddedNATS(cfg EmbeddedNATSConfig) (*EmbeddedNATS, error) {
	opts := &server.Options{
		ServerName:         "roomengine",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		DontListen:         false,
		MaxPayload:         8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded nats server: %w", err)
	}

	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready within timeout")
	}

	return &EmbeddedNATS{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL NewNATSChangeFeed should dial.
func (e *EmbeddedNATS) ClientURL() string {
	return e.clientURL
}

// Shutdown stops the server, waiting for it to finish shutting down or
// ctx to be canceled, whichever comes first.
func (e *EmbeddedNATS) Shutdown(ctx context.Context) error {
	e.server.Shutdown()
	done := make(chan struct{})
	go func() {
		e.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Running reports whether the embedded server is still accepting
// connections.
func (e *EmbeddedNATS) Running() bool {
	return e.server.Running()
}
