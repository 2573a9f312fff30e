// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package storage implements the durable record store and change feed that
// back the room catalog, membership, and vote tally. Records are addressed
// by opaque string keys; callers are responsible for key construction and
// value encoding.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/roomengine/internal/apperr"
)

// ErrNotFound is returned by Get and IndexQuery when no record exists for a key.
var ErrNotFound = errors.New("storage: key not found")

// ErrConditionFailed is returned by PutConditional when the expected
// precondition does not hold at write time.
var ErrConditionFailed = errors.New("storage: condition failed")

// Record is a single stored value plus its version, used to detect
// concurrent modification for conditional writes.
type Record struct {
	Key     string
	Value   []byte
	Version uint64
}

// Condition describes the expected state of a key before a conditional
// write is allowed to proceed.
type Condition struct {
	// MustExist requires the key to already hold a value.
	MustExist bool
	// MustNotExist requires the key to be absent.
	MustNotExist bool
	// ExpectedValue, when non-nil, requires the current value to equal
	// this byte slice exactly. Only the store's tests set it; the room
	// status transitions guard with ExpectedVersion.
	ExpectedValue []byte
	// ExpectedVersion, when non-zero, requires the current record
	// version to match.
	ExpectedVersion uint64
}

// ChangeEvent describes a single mutation observed on the change feed.
type ChangeEvent struct {
	Key       string
	Value     []byte
	Kind      ChangeKind
	Sequence  uint64
	Timestamp time.Time
}

// ChangeKind classifies a ChangeEvent.
type ChangeKind string

const (
	ChangePut       ChangeKind = "PUT"
	ChangeIncrement ChangeKind = "INCREMENT"
)

// ChangeHandler processes one change feed event. With the NATS feed, an
// error negatively acknowledges the event so JetStream redelivers it; the
// in-memory feed does not redeliver and returns the error from Publish.
type ChangeHandler func(ctx context.Context, event ChangeEvent) error

// Store is the storage abstraction contract: a durable key/value record
// store with conditional writes, integer counters, prefix range scans,
// and a secondary-index lookup, plus an ordered change feed over its puts
// and counter increments (deletes are not published).
type Store interface {
	// Get returns the current value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)

	// Put unconditionally stores value at key and returns the new version.
	Put(ctx context.Context, key string, value []byte) (uint64, error)

	// PutConditional stores value at key only if cond holds, returning
	// ErrConditionFailed (classified as apperr.ConditionFailed) otherwise.
	// This is the primitive behind every atomic status transition:
	// room capacity admission, WAITING->VOTING, and the single winning
	// VOTING->MATCHED transition.
	PutConditional(ctx context.Context, key string, value []byte, cond Condition) (uint64, error)

	// IncrementCounter atomically adds delta to the integer counter
	// stored at key (creating it at 0 if absent) and returns the new
	// total. Used for per-item YES tallies.
	IncrementCounter(ctx context.Context, key string, delta int64) (int64, error)

	// RangeGet returns every record whose key has the given prefix,
	// ordered lexicographically by key. Used to enumerate a room's
	// catalog entries and members.
	RangeGet(ctx context.Context, prefix string) ([]Record, error)

	// IndexQuery resolves a secondary index key (e.g. an invite code)
	// to the primary record it points at.
	IndexQuery(ctx context.Context, indexKey string) (Record, error)

	// Delete removes key unconditionally. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases underlying resources.
	Close() error
}

// ChangeFeed is the ordered delivery contract consumed by the vote
// consensus engine. The NATS implementation uses a durable JetStream
// consumer: a restarted consumer resumes from its acknowledged position,
// and unacknowledged events are redelivered up to the consumer's
// MaxDeliver limit. InMemoryChangeFeed calls the currently subscribed
// handlers once, synchronously; it keeps no delivery progress and does
// not redeliver.
type ChangeFeed interface {
	// Publish appends an event so subscribers observe the mutation. The
	// store implementation calls this internally after every successful
	// Put, PutConditional and IncrementCounter; Delete publishes no event.
	// It is exported so callers that batch writes outside a
	// single Store call (none currently do) could still emit events.
	Publish(ctx context.Context, event ChangeEvent) error

	// Subscribe registers handler as a durable consumer identified by
	// name. Delivery order is preserved per key prefix class (rooms,
	// votes) but not globally across classes. Subscribe blocks until ctx
	// is canceled or an unrecoverable error occurs.
	Subscribe(ctx context.Context, durableName string, handler ChangeHandler) error

	// Healthy reports whether the feed can currently accept publishes,
	// for use by readiness checks. It must not block on a full round
	// trip; a cached connection-state check is sufficient.
	Healthy(ctx context.Context) bool

	Close() error
}

func classifyBadgerErr(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.Transient, "storage operation failed", err)
}
