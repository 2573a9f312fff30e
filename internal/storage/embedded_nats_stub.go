// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

//go:build !nats

package storage

import (
	"context"
	"fmt"
)

// EmbeddedNATSConfig mirrors the nats-enabled config shape so callers
// compile against the same field names regardless of build tags.
type EmbeddedNATSConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// EmbeddedNATS is unavailable without the nats build tag.
type EmbeddedNATS struct{}

// NewEmbeddedNATS always fails in a !nats build.
func NewEmbeddedNATS(cfg EmbeddedNATSConfig) (*EmbeddedNATS, error) {
	return nil, fmt.Errorf("embedded nats server not available: build with -tags=nats")
}

func (e *EmbeddedNATS) ClientURL() string { return "" }

func (e *EmbeddedNATS) Shutdown(ctx context.Context) error { return nil }

func (e *EmbeddedNATS) Running() bool { return false }
