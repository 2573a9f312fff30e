// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package apperr defines the error kinds shared by every component of the
// room lifecycle engine. Components never let a bare error cross their
// public API; they wrap it with New/Wrap so callers can branch on Kind
// instead of string-matching error messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories every component surfaces.
type Kind string

const (
	// Validation marks an input that violates a precondition.
	Validation Kind = "VALIDATION"
	// InsufficientContent marks a pool build that could not reach 50 items.
	InsufficientContent Kind = "INSUFFICIENT_CONTENT"
	// RoomFull marks a join attempt against a room at capacity.
	RoomFull Kind = "ROOM_FULL"
	// RoomClosed marks an operation against a MATCHED or EXPIRED room.
	RoomClosed Kind = "ROOM_CLOSED"
	// AlreadyMember marks a duplicate join by the same user.
	AlreadyMember Kind = "ALREADY_MEMBER"
	// AlreadyVoted marks a second, distinct vote on the same item.
	AlreadyVoted Kind = "ALREADY_VOTED"
	// NotMember marks an operation by a user absent from the room.
	NotMember Kind = "NOT_MEMBER"
	// ItemNotInRoom marks a vote referencing an item outside the room's catalog.
	ItemNotInRoom Kind = "ITEM_NOT_IN_ROOM"
	// ConditionFailed marks a lost optimistic-write race at the storage layer.
	ConditionFailed Kind = "CONDITION_FAILED"
	// Transient marks a retryable network/throttling failure.
	Transient Kind = "TRANSIENT"
	// Timeout marks a deadline exceeded.
	Timeout Kind = "TIMEOUT"
	// UpstreamUnavailable marks a fast-failed call because a circuit breaker is open.
	UpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
)

// Error is the concrete error type returned across component boundaries.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error carrying cause as its Unwrap target.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Transient for unrecognized
// errors so that callers retry rather than give up on an unclassified fault.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transient
}

// Retryable reports whether the error kind is safe to retry locally under a
// bounded backoff policy.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Transient, Timeout:
		return true
	default:
		return false
	}
}
