// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

//go:build !nats

package storage

import (
	"context"
	"fmt"
	"sync"
)

// NATSChangeFeedConfig carries the URL and stream fields of the
// nats-enabled config under the same names; MaxAge, MaxReconnects and
// ReconnectWait exist only in the nats build.
type NATSChangeFeedConfig struct {
	URL           string
	StreamName    string
	StreamSubject string
}

// DefaultNATSChangeFeedConfig returns url with the default stream name and
// subject, matching the nats-enabled signature.
func DefaultNATSChangeFeedConfig(url string) NATSChangeFeedConfig {
	return NATSChangeFeedConfig{URL: url, StreamName: "ROOM_EVENTS", StreamSubject: "rooms.>"}
}

// NATSChangeFeed is unavailable without the nats build tag. Use
// NewInMemoryChangeFeed for local development and tests, or build with
// -tags=nats for durable JetStream delivery.
type NATSChangeFeed struct{}

// NewNATSChangeFeed always fails in a !nats build.
func NewNATSChangeFeed(ctx context.Context, cfg NATSChangeFeedConfig) (*NATSChangeFeed, error) {
	return nil, fmt.Errorf("nats change feed not available: build with -tags=nats")
}

func (f *NATSChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	return fmt.Errorf("nats change feed not available: build with -tags=nats")
}

func (f *NATSChangeFeed) Subscribe(ctx context.Context, durableName string, handler ChangeHandler) error {
	return fmt.Errorf("nats change feed not available: build with -tags=nats")
}

func (f *NATSChangeFeed) Healthy(ctx context.Context) bool { return false }

func (f *NATSChangeFeed) Close() error { return nil }

// InMemoryChangeFeed is a process-local ChangeFeed used for single-instance
// deployments and tests. It does not persist across restarts: a restarted
// process loses any undelivered events, trading the nats-tagged build's
// durability for zero external dependencies.
type InMemoryChangeFeed struct {
	mu       sync.Mutex
	handlers map[string]ChangeHandler
}

// NewInMemoryChangeFeed returns a ready-to-use in-process ChangeFeed.
func NewInMemoryChangeFeed() *InMemoryChangeFeed {
	return &InMemoryChangeFeed{handlers: make(map[string]ChangeHandler)}
}

func (f *InMemoryChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	f.mu.Lock()
	handlers := make([]ChangeHandler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (f *InMemoryChangeFeed) Subscribe(ctx context.Context, durableName string, handler ChangeHandler) error {
	f.mu.Lock()
	f.handlers[durableName] = handler
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	delete(f.handlers, durableName)
	f.mu.Unlock()

	return ctx.Err()
}

// Healthy always reports true: an in-process feed has no connection to lose.
func (f *InMemoryChangeFeed) Healthy(ctx context.Context) bool { return true }

func (f *InMemoryChangeFeed) Close() error { return nil }
