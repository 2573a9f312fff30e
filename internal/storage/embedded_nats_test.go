// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

//go:build nats

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedNATSStartsAndAcceptsConnections(t *testing.T) {
	t.Parallel()

	ns, err := NewEmbeddedNATS(EmbeddedNATSConfig{
		Host:              "127.0.0.1",
		Port:              -1, // random free port
		StoreDir:          t.TempDir(),
		JetStreamMaxMem:   64 * 1024 * 1024,
		JetStreamMaxStore: 64 * 1024 * 1024,
	})
	require.NoError(t, err)
	require.True(t, ns.Running())
	require.NotEmpty(t, ns.ClientURL())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ns.Shutdown(ctx))
}

func TestEmbeddedNATSFeedsChangeFeedConnection(t *testing.T) {
	t.Parallel()

	ns, err := NewEmbeddedNATS(EmbeddedNATSConfig{
		Host:              "127.0.0.1",
		Port:              -1,
		StoreDir:          t.TempDir(),
		JetStreamMaxMem:   64 * 1024 * 1024,
		JetStreamMaxStore: 64 * 1024 * 1024,
	})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ns.Shutdown(ctx)
	}()

	feed, err := NewNATSChangeFeed(context.Background(), NATSChangeFeedConfig{
		URL:           ns.ClientURL(),
		StreamName:    "ROOM_EVENTS",
		StreamSubject: "room.events",
	})
	require.NoError(t, err)
	defer feed.Close()
}
