// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/pool"
	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// kindStatus maps an apperr.Kind to the HTTP status it should surface as.
func kindStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.InsufficientContent:
		return http.StatusUnprocessableEntity
	case apperr.RoomFull, apperr.RoomClosed, apperr.AlreadyMember, apperr.AlreadyVoted:
		return http.StatusConflict
	case apperr.NotMember, apperr.ItemNotInRoom:
		return http.StatusNotFound
	case apperr.UpstreamUnavailable:
		return http.StatusBadGateway
	case apperr.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps err to the appropriate HTTP response, using the
// apperr.Kind machinery so every handler reports consistently.
func writeServiceError(rw *ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	rw.Error(kindStatus(kind), string(kind), err.Error())
}

type createRoomRequest struct {
	MediaType roomtypes.MediaType `json:"media_type"`
	Genres    []int               `json:"genres"`
	Name      string              `json:"name"`
	Capacity  int                 `json:"capacity"`
}

// CreateRoom handles POST /rooms.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var body createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.BadRequest("invalid request body")
		return
	}

	room, entries, err := h.rooms.CreateRoom(r.Context(), pool.CreateRoomRequest{
		MediaType: body.MediaType,
		Genres:    body.Genres,
		Name:      body.Name,
		Capacity:  body.Capacity,
	})
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	rw.Created(map[string]interface{}{
		"room":    room,
		"catalog": entries,
	})
}

type joinRoomRequest struct {
	UserID string `json:"user_id"`
}

// JoinRoom handles POST /rooms/{roomID}/join.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	roomID := chi.URLParam(r, "roomID")

	var body joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		rw.BadRequest("user_id is required")
		return
	}

	room, err := h.rooms.JoinRoom(r.Context(), roomID, body.UserID)
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	rw.Success(room)
}

type joinByInviteCodeRequest struct {
	InviteCode string `json:"invite_code"`
	UserID     string `json:"user_id"`
}

// JoinRoomByInviteCode handles POST /rooms/join, resolving an invite code
// to a room before admitting the member.
func (h *Handler) JoinRoomByInviteCode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var body joinByInviteCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InviteCode == "" || body.UserID == "" {
		rw.BadRequest("invite_code and user_id are required")
		return
	}

	target, _, err := h.rooms.RoomByInviteCode(r.Context(), body.InviteCode)
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	room, err := h.rooms.JoinRoom(r.Context(), target.RoomID, body.UserID)
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	rw.Success(room)
}

// NextItem handles GET /rooms/{roomID}/next?user_id=....
func (h *Handler) NextItem(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	roomID := chi.URLParam(r, "roomID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		rw.BadRequest("user_id is required")
		return
	}

	entry, err := h.rooms.NextItem(r.Context(), roomID, userID)
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	rw.Success(entry)
}

type voteRequest struct {
	UserID   string             `json:"user_id"`
	ItemID   string             `json:"item_id"`
	Decision roomtypes.Decision `json:"decision"`
}

// Vote handles POST /rooms/{roomID}/votes.
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	roomID := chi.URLParam(r, "roomID")

	var body voteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.ItemID == "" {
		rw.BadRequest("user_id, item_id, and decision are required")
		return
	}
	if body.Decision != roomtypes.DecisionYes && body.Decision != roomtypes.DecisionNo {
		rw.BadRequest("decision must be YES or NO")
		return
	}

	if err := h.rooms.CastVote(r.Context(), roomID, body.UserID, body.ItemID, body.Decision); err != nil {
		writeServiceError(rw, err)
		return
	}

	rw.Success(map[string]string{"status": "recorded"})
}

// Progress handles GET /rooms/{roomID}/progress?user_id=....
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	roomID := chi.URLParam(r, "roomID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		rw.BadRequest("user_id is required")
		return
	}

	votedCount, total, remaining, err := h.rooms.Progress(r.Context(), roomID, userID)
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	rw.Success(map[string]int{
		"voted_count": votedCount,
		"total":       total,
		"remaining":   remaining,
	})
}
