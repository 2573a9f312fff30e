// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package notify publishes match notifications to a room's subscribers.
// It is the sink the consensus engine writes to once a room matches, and
// the transport behind subscribeRoomEvents.
package notify

import (
	"context"
	"sync"

	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// Notifier publishes a MatchEvent to topic. Implementations must make the
// publish safe to retry: the consensus engine redelivers on any error, so a
// Notifier that isn't idempotent under a repeated RoomID can double-notify.
type Notifier interface {
	Publish(ctx context.Context, topic string, event roomtypes.MatchEvent) error
}

// InMemoryNotifier is the in-process test double. It deduplicates by
// RoomID so tests can assert exactly one notification is visible per
// subscriber even under redelivery, without a real broker.
type InMemoryNotifier struct {
	mu       sync.Mutex
	byRoomID map[string]roomtypes.MatchEvent
	order    []string
}

// NewInMemoryNotifier returns an empty InMemoryNotifier.
func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{byRoomID: make(map[string]roomtypes.MatchEvent)}
}

// Publish records event, overwriting any prior notification for the same
// room so repeated delivery never produces more than one visible event.
func (n *InMemoryNotifier) Publish(_ context.Context, _ string, event roomtypes.MatchEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.byRoomID[event.RoomID]; !exists {
		n.order = append(n.order, event.RoomID)
	}
	n.byRoomID[event.RoomID] = event
	return nil
}

// Events returns every distinct notification published so far, in
// first-publish order.
func (n *InMemoryNotifier) Events() []roomtypes.MatchEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]roomtypes.MatchEvent, 0, len(n.order))
	for _, roomID := range n.order {
		events = append(events, n.byRoomID[roomID])
	}
	return events
}

// CountFor returns how many times Publish was effectively visible for
// roomID: always 0 or 1, since Publish dedupes.
func (n *InMemoryNotifier) CountFor(roomID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.byRoomID[roomID]; ok {
		return 1
	}
	return 0
}
