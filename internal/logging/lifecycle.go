// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// LifecycleEvent represents a room-lifecycle event for structured audit logging:
// room creation, membership changes, vote outcomes, and match transitions.
type LifecycleEvent struct {
	// Event is the type of event (e.g., "room_created", "member_joined", "vote_rejected", "room_matched").
	Event string
	// RoomID is the room identifier.
	RoomID string
	// UserID is the acting user's identifier (if known).
	UserID string
	// ItemID is the catalog item identifier involved, if any.
	ItemID string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
	// Details contains additional sanitized details.
	Details map[string]string
}

// LifecycleLogger provides structured logging for room lifecycle events.
// It automatically sanitizes sensitive values (API keys, tokens) before logging.
type LifecycleLogger struct {
	logger zerolog.Logger
}

// NewLifecycleLogger creates a new lifecycle logger.
func NewLifecycleLogger() *LifecycleLogger {
	return &LifecycleLogger{
		logger: With().Str("component", "room").Logger(),
	}
}

// NewLifecycleLoggerWithLogger creates a lifecycle logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLifecycleLoggerWithLogger(logger zerolog.Logger) *LifecycleLogger {
	return &LifecycleLogger{
		logger: logger.With().Str("component", "room").Logger(),
	}
}

// LogEvent logs a lifecycle event with automatic sanitization.
func (l *LifecycleLogger) LogEvent(event *LifecycleEvent) {
	e := l.logger.Info().Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}

	if event.RoomID != "" {
		e = e.Str("room_id", event.RoomID)
	}
	if event.UserID != "" {
		e = e.Str("user_id", SanitizeUserID(event.UserID))
	}
	if event.ItemID != "" {
		e = e.Str("item_id", event.ItemID)
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// LogRoomCreated logs successful room creation with its final catalog size.
func (l *LifecycleLogger) LogRoomCreated(roomID string, catalogSize int) {
	l.LogEvent(&LifecycleEvent{
		Event:   "room_created",
		RoomID:  roomID,
		Success: true,
		Details: map[string]string{"catalog_size": itoa(catalogSize)},
	})
}

// LogRoomCreateFailed logs a failed room creation attempt.
func (l *LifecycleLogger) LogRoomCreateFailed(roomID, reason string) {
	l.LogEvent(&LifecycleEvent{
		Event:   "room_create_failed",
		RoomID:  roomID,
		Success: false,
		Error:   reason,
	})
}

// LogMemberJoined logs a successful room join.
func (l *LifecycleLogger) LogMemberJoined(roomID, userID string, memberCount, capacity int) {
	l.LogEvent(&LifecycleEvent{
		Event:   "member_joined",
		RoomID:  roomID,
		UserID:  userID,
		Success: true,
		Details: map[string]string{
			"member_count": itoa(memberCount),
			"capacity":     itoa(capacity),
		},
	})
}

// LogVoteRejected logs a vote rejected by a domain invariant.
func (l *LifecycleLogger) LogVoteRejected(roomID, userID, itemID, reason string) {
	l.LogEvent(&LifecycleEvent{
		Event:   "vote_rejected",
		RoomID:  roomID,
		UserID:  userID,
		ItemID:  itemID,
		Success: false,
		Error:   reason,
	})
}

// LogRoomMatched logs the sole MATCHED transition for a room.
func (l *LifecycleLogger) LogRoomMatched(roomID, itemID string, capacity int) {
	l.LogEvent(&LifecycleEvent{
		Event:   "room_matched",
		RoomID:  roomID,
		ItemID:  itemID,
		Success: true,
		Details: map[string]string{"capacity": itoa(capacity)},
	})
}

// LogRoomExpired logs a TTL-driven expiry transition.
func (l *LifecycleLogger) LogRoomExpired(roomID string) {
	l.LogEvent(&LifecycleEvent{
		Event:   "room_expired",
		RoomID:  roomID,
		Success: true,
	})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ============================================================
// Sanitization Functions
// ============================================================

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9" -> "eyJh...VCJ9"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUserID masks a user ID for privacy.
// Example: "user-12345678" -> "user...5678"
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeError removes potentially sensitive information (API keys, tokens) from error messages.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"token",
		"api_key",
		"apikey",
		"bearer",
		"authorization",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "upstream error (redacted)"
		}
	}

	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := map[string]bool{
		"api_key":       true,
		"apikey":        true,
		"token":         true,
		"password":      true,
		"secret":        true,
		"authorization": true,
		"bearer":        true,
	}

	if sensitiveKeys[lowerKey] {
		return SanitizeToken(value)
	}

	return value
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
