// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package notify

import (
	"context"
	"sync"

	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// Hub is an in-process fan-out broadcaster: it satisfies Notifier so the
// consensus engine can publish through it directly, and exposes Subscribe
// so subscribeRoomEvents can stream a room's match notification to exactly
// the WebSocket connections currently watching that room.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan roomtypes.MatchEvent
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan roomtypes.MatchEvent)}
}

// Publish fans event out to every live subscriber of event.RoomID. A
// subscriber whose channel is full is skipped rather than blocking the
// publisher; it will miss the event but the connection stays alive.
func (h *Hub) Publish(_ context.Context, _ string, event roomtypes.MatchEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[event.RoomID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a new listener for roomID. The returned channel
// (buffer of one) receives subsequent MatchEvents published for that room,
// except those Publish drops while the buffer is full; the
// returned cancel func unregisters it and must be called to avoid leaking
// the channel slot.
func (h *Hub) Subscribe(roomID string) (<-chan roomtypes.MatchEvent, func()) {
	ch := make(chan roomtypes.MatchEvent, 1)

	h.mu.Lock()
	h.subs[roomID] = append(h.subs[roomID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		peers := h.subs[roomID]
		for i, c := range peers {
			if c == ch {
				h.subs[roomID] = append(peers[:i], peers[i+1:]...)
				break
			}
		}
		if len(h.subs[roomID]) == 0 {
			delete(h.subs, roomID)
		}
		close(ch)
	}
	return ch, cancel
}
