// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package roomtypes

import "fmt"

// Storage key construction. Every component that reads or writes a record
// goes through these helpers so the key shape changes in exactly one place.

// RoomKey is the primary key for a Room record.
func RoomKey(roomID string) string {
	return "room:" + roomID
}

// RoomInviteIndexKey is the secondary index pointing an invite code at its RoomKey.
func RoomInviteIndexKey(inviteCode string) string {
	return "roomidx:" + inviteCode
}

// CatalogEntryKey is the primary key for one catalog slot, zero-padded so
// RangeGet over CatalogPrefix(roomID) returns entries in sequence order.
func CatalogEntryKey(roomID string, sequenceIndex int) string {
	return fmt.Sprintf("catalog:%s:%03d", roomID, sequenceIndex)
}

// CatalogPrefix bounds a RangeGet over every CatalogEntry of a room.
func CatalogPrefix(roomID string) string {
	return "catalog:" + roomID + ":"
}

// MemberKey is the primary key for one RoomMember record.
func MemberKey(roomID, userID string) string {
	return "member:" + roomID + ":" + userID
}

// MemberPrefix bounds a RangeGet over every RoomMember of a room.
func MemberPrefix(roomID string) string {
	return "member:" + roomID + ":"
}

// VoteKey is the primary key for one Vote record.
func VoteKey(roomID, userID, itemID string) string {
	return "vote:" + roomID + ":" + userID + "#" + itemID
}

// VotePrefix bounds a RangeGet over every Vote cast in a room.
func VotePrefix(roomID string) string {
	return "vote:" + roomID + ":"
}

// VoteUserPrefix bounds a RangeGet over every Vote cast by one user in a
// room, used to derive the user's cursor from the count of items voted on.
func VoteUserPrefix(roomID, userID string) string {
	return "vote:" + roomID + ":" + userID + "#"
}

// CatalogItemIndexKey is the secondary index pointing a room's item
// identifier at its CatalogEntryKey, used to validate that a vote
// references an item actually in the room's catalog without a full scan.
func CatalogItemIndexKey(roomID, itemID string) string {
	return "catalogitem:" + roomID + ":" + itemID
}

// VoteTallyKey is the primary key for the YES-vote counter of one item.
func VoteTallyKey(roomID, itemID string) string {
	return "votetally:" + roomID + ":" + itemID
}

// MatchEventKey is the primary key for a room's unique MatchEvent record.
func MatchEventKey(roomID string) string {
	return "matchevent:" + roomID
}
