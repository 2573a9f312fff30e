// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package consensus implements the vote consensus engine: a change-feed
// subscriber that detects, exactly once per room, the first catalog entry
// every current member voted YES on, transitions the Room to MATCHED, and
// publishes the notification. It never calls back into the Vote store; the
// change feed is its only input.
package consensus

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/logging"
	"github.com/tomtom215/roomengine/internal/metrics"
	"github.com/tomtom215/roomengine/internal/notify"
	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

// Clock abstracts time.Now so tests can pin MatchedAt.
type Clock func() time.Time

// Engine drives the per-vote pipeline from change-feed events.
type Engine struct {
	store    storage.Store
	feed     storage.ChangeFeed
	notifier notify.Notifier
	topic    string
	clock    Clock
}

// New wires an Engine against its Storage Abstraction, change feed,
// notification sink, and the configured match-notification topic.
func New(store storage.Store, feed storage.ChangeFeed, notifier notify.Notifier, topic string) *Engine {
	return &Engine{store: store, feed: feed, notifier: notifier, topic: topic, clock: time.Now}
}

// Run subscribes durableName to the change feed and processes every Vote
// insertion until ctx is canceled.
func (e *Engine) Run(ctx context.Context, durableName string) error {
	return e.feed.Subscribe(ctx, durableName, e.handleEvent)
}

// handleEvent filters the feed down to Vote record insertions and runs the
// consensus pipeline on each.
func (e *Engine) handleEvent(ctx context.Context, event storage.ChangeEvent) error {
	if event.Kind != storage.ChangePut || !strings.HasPrefix(event.Key, "vote:") {
		return nil
	}

	var vote roomtypes.Vote
	if err := json.Unmarshal(event.Value, &vote); err != nil {
		// Malformed Vote is a permanent error: log it and let the cursor
		// advance rather than retry forever.
		logging.CtxErr(ctx, err).Str("key", event.Key).Msg("dropping malformed vote change-feed event")
		return nil
	}

	return e.ProcessVote(ctx, vote)
}

// ProcessVote runs the six-step pipeline for one Vote. It is exported so
// tests (and any future synchronous vote path) can drive the pipeline
// directly without a change feed in the loop.
func (e *Engine) ProcessVote(ctx context.Context, vote roomtypes.Vote) error {
	roomRecord, err := e.store.Get(ctx, roomtypes.RoomKey(vote.RoomID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var room roomtypes.Room
	if err := json.Unmarshal(roomRecord.Value, &room); err != nil {
		logging.CtxErr(ctx, err).Str("room_id", vote.RoomID).Msg("dropping vote for undecodable room record")
		return nil
	}

	if room.Status != roomtypes.StatusVoting {
		return nil
	}
	if vote.Decision != roomtypes.DecisionYes {
		return nil
	}

	newYesCount, err := e.store.IncrementCounter(ctx, roomtypes.VoteTallyKey(vote.RoomID, vote.ItemID), 1)
	if err != nil {
		return err
	}
	metrics.VoteTallyIncrements.Inc()

	if newYesCount < int64(room.Capacity) {
		return nil
	}

	return e.tryMatch(ctx, room, roomRecord.Version, vote.ItemID)
}

// tryMatch attempts the single-shot VOTING->MATCHED transition and, on
// success, writes the MatchEvent and publishes the notification. Losing the
// race is not an error: it means another event already won.
func (e *Engine) tryMatch(ctx context.Context, room roomtypes.Room, expectedVersion uint64, itemID string) error {
	matchedAt := e.clock().UTC()
	room.Status = roomtypes.StatusMatched
	room.MatchedItem = itemID
	room.MatchedAt = &matchedAt

	updatedBytes, err := json.Marshal(room)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "marshal matched room", err)
	}

	_, err = e.store.PutConditional(ctx, roomtypes.RoomKey(room.RoomID), updatedBytes, storage.Condition{
		MustExist:       true,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		if apperr.Is(err, apperr.ConditionFailed) {
			return nil
		}
		return err
	}

	return e.commitMatch(ctx, room, matchedAt)
}

// commitMatch writes the room's unique MatchEvent and publishes the
// notification. The MatchEvent write is idempotent under putConditional
// (absent), so a redelivered event that reaches this point after a prior
// successful commit simply no-ops.
func (e *Engine) commitMatch(ctx context.Context, room roomtypes.Room, matchedAt time.Time) error {
	event := roomtypes.MatchEvent{
		RoomID:           room.RoomID,
		ItemID:           room.MatchedItem,
		MatchedAt:        matchedAt,
		CapacitySnapshot: room.Capacity,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "marshal match event", err)
	}

	_, err = e.store.PutConditional(ctx, roomtypes.MatchEventKey(room.RoomID), eventBytes, storage.Condition{MustNotExist: true})
	if err != nil {
		if apperr.Is(err, apperr.ConditionFailed) {
			return nil
		}
		return err
	}

	metrics.MatchesTotal.Inc()
	metrics.MatchLatency.Observe(matchedAt.Sub(room.CreatedAt).Seconds())

	if e.notifier == nil {
		return nil
	}
	return e.notifier.Publish(ctx, e.topic, event)
}
