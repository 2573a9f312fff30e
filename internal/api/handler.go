// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package api

import (
	"github.com/tomtom215/roomengine/internal/metadata"
	"github.com/tomtom215/roomengine/internal/notify"
	"github.com/tomtom215/roomengine/internal/room"
	"github.com/tomtom215/roomengine/internal/storage"
)

// Handler wires the HTTP layer to the room lifecycle service, the storage
// and change-feed abstractions and metadata client it needs directly for
// readiness checks, and the hub that fans match events out to
// subscribeRoomEvents connections.
type Handler struct {
	rooms    *room.Service
	store    storage.Store
	feed     storage.ChangeFeed
	metadata metadata.Client
	hub      *notify.Hub
}

// NewHandler constructs a Handler. rooms and hub must be non-nil; store,
// feed, and metadataClient are used only by the health and readiness
// endpoints.
func NewHandler(rooms *room.Service, store storage.Store, feed storage.ChangeFeed, metadataClient metadata.Client, hub *notify.Hub) *Handler {
	return &Handler{rooms: rooms, store: store, feed: feed, metadata: metadataClient, hub: hub}
}
