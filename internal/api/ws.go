// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/logging"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect cross-origin, so every origin is accepted
	// here. The CORS middleware only sets response headers and does not
	// reject upgrade requests from origins outside its allowlist.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SubscribeRoomEvents handles GET /rooms/{roomID}/events, upgrading to a
// WebSocket and streaming the MatchEvents the Hub delivers for the room
// until the client disconnects.
func (h *Handler) SubscribeRoomEvents(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		NewResponseWriter(w, r).BadRequest("user_id is required")
		return
	}

	isMember, err := h.rooms.IsMember(r.Context(), roomID, userID)
	if err != nil {
		writeServiceError(NewResponseWriter(w, r), err)
		return
	}
	if !isMember {
		writeServiceError(NewResponseWriter(w, r), apperr.New(apperr.NotMember, "user is not a member of this room"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("room_id", roomID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe(roomID)
	defer cancel()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
