// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

//go:build nats

package notify

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// NATSNotifier publishes match notifications onto a JetStream subject,
// deduplicating by RoomID via JetStream's message-ID idempotency window so
// a redelivered consensus event never produces two visible notifications.
type NATSNotifier struct {
	js jetstream.JetStream
}

// NewNATSNotifier wraps an existing JetStream context.
func NewNATSNotifier(js jetstream.JetStream) *NATSNotifier {
	return &NATSNotifier{js: js}
}

func (n *NATSNotifier) Publish(ctx context.Context, topic string, event roomtypes.MatchEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	_, err = n.js.Publish(ctx, topic, payload, jetstream.WithMsgID(event.RoomID))
	if err != nil {
		return fmt.Errorf("publish match notification: %w", err)
	}
	return nil
}
