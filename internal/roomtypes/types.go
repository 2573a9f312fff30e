// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package roomtypes holds the five entities of the room-lifecycle data
// model: Room, RoomMember, CatalogEntry, Vote, and MatchEvent.
package roomtypes

import "time"

// MediaType selects which of the two TMDB-shaped endpoints a room's catalog is built from.
type MediaType string

const (
	MediaMovie MediaType = "MOVIE"
	MediaTV    MediaType = "TV"
)

// Valid reports whether m is one of the two recognized media types.
func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

// RoomStatus is the Room state-machine position.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "WAITING"
	StatusVoting  RoomStatus = "VOTING"
	StatusMatched RoomStatus = "MATCHED"
	StatusExpired RoomStatus = "EXPIRED"
)

// Decision is a member's vote on a single catalog entry.
type Decision string

const (
	DecisionYes Decision = "YES"
	DecisionNo  Decision = "NO"
)

// Priority is the tier a CatalogEntry was accepted under.
type Priority int

const (
	PriorityStrict     Priority = 1
	PriorityPermissive Priority = 2
	PriorityPopular    Priority = 3
)

// MoviesPerRoom is the fixed catalog size every room carries.
const MoviesPerRoom = 50

// Room is the shared voting unit.
type Room struct {
	RoomID      string     `json:"room_id"`
	InviteCode  string     `json:"invite_code"`
	Name        string     `json:"name"`
	MediaType   MediaType  `json:"media_type"`
	Genres      []int      `json:"genres"`
	Capacity    int        `json:"capacity"`
	Status      RoomStatus `json:"status"`
	MatchedItem string     `json:"matched_item,omitempty"`
	MatchedAt   *time.Time `json:"matched_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	MemberCount int        `json:"member_count"`
}

// RoomMember is one participant of a Room.
type RoomMember struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	Active   bool      `json:"active"`
}

// CatalogEntry is one immutable slot of a room's 50-item catalog.
type CatalogEntry struct {
	RoomID           string    `json:"room_id"`
	SequenceIndex    int       `json:"sequence_index"`
	ItemID           string    `json:"item_id"`
	Title            string    `json:"title"`
	Overview         string    `json:"overview"`
	PosterPath       string    `json:"poster_path"`
	ReleaseDate      string    `json:"release_date"`
	OriginalLanguage string    `json:"original_language"`
	Genres           []int     `json:"genres"`
	VoteAverage      float64   `json:"vote_average"`
	Priority         Priority  `json:"priority"`
}

// Vote is one member's decision on one catalog item.
type Vote struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	ItemID   string    `json:"item_id"`
	Decision Decision  `json:"decision"`
	VotedAt  time.Time `json:"voted_at"`
}

// MatchEvent is the single consensus event produced by a Room's lifetime.
type MatchEvent struct {
	RoomID           string    `json:"room_id"`
	ItemID           string    `json:"item_id"`
	MatchedAt        time.Time `json:"matched_at"`
	CapacitySnapshot int       `json:"capacity_snapshot"`
}

// ExhaustedItemID is the sentinel CatalogEntry.ItemID returned by the
// catalog's NextFor once a user has voted on all 50 entries.
const ExhaustedItemID = ""

// IsExhausted reports whether entry is the EXHAUSTED sentinel.
func (e CatalogEntry) IsExhausted() bool {
	return e.ItemID == ExhaustedItemID
}
