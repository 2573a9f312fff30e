// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

//go:build !nats

package notify

import (
	"context"
	"fmt"

	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// NATSNotifier is unavailable without the nats build tag.
type NATSNotifier struct{}

// NewNATSNotifier returns a NATSNotifier whose Publish always errors.
func NewNATSNotifier(_ interface{}) *NATSNotifier {
	return &NATSNotifier{}
}

func (n *NATSNotifier) Publish(_ context.Context, _ string, _ roomtypes.MatchEvent) error {
	return fmt.Errorf("nats notifier not available: build with -tags=nats")
}
