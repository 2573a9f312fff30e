// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package room

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/logging"
	"github.com/tomtom215/roomengine/internal/metrics"
	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

// Sweeper periodically walks every Room record and expires the ones whose
// TTL has elapsed: WAITING or VOTING rooms past ExpiresAt become EXPIRED.
// MATCHED is a terminal state of its own and is never touched here, even
// past its ExpiresAt.
type Sweeper struct {
	store    storage.Store
	interval time.Duration
	clock    Clock
}

// NewSweeper wires a Sweeper to run its pass every interval.
func NewSweeper(store storage.Store, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval, clock: time.Now}
}

// Run blocks, sweeping on interval until ctx is canceled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweepOnce(ctx)
		}
	}
}

func (sw *Sweeper) sweepOnce(ctx context.Context) {
	records, err := sw.store.RangeGet(ctx, "room:")
	if err != nil {
		logging.CtxErr(ctx, err).Msg("ttl sweep: range rooms failed")
		return
	}

	now := sw.clock().UTC()
	for _, record := range records {
		var room roomtypes.Room
		if unmarshalErr := json.Unmarshal(record.Value, &room); unmarshalErr != nil {
			logging.CtxErr(ctx, unmarshalErr).Str("key", record.Key).Msg("ttl sweep: dropping undecodable room record")
			continue
		}
		if room.Status != roomtypes.StatusWaiting && room.Status != roomtypes.StatusVoting {
			continue
		}
		if now.Before(room.ExpiresAt) {
			continue
		}

		room.Status = roomtypes.StatusExpired
		updated, marshalErr := json.Marshal(room)
		if marshalErr != nil {
			logging.CtxErr(ctx, marshalErr).Str("room_id", room.RoomID).Msg("ttl sweep: marshal expired room failed")
			continue
		}

		_, putErr := sw.store.PutConditional(ctx, record.Key, updated, storage.Condition{
			MustExist:       true,
			ExpectedVersion: record.Version,
		})
		if putErr != nil {
			if apperr.Is(putErr, apperr.ConditionFailed) {
				// Room changed state concurrently (e.g. just matched); leave it.
				continue
			}
			logging.CtxErr(ctx, putErr).Str("room_id", room.RoomID).Msg("ttl sweep: expire write failed")
			continue
		}
		metrics.RoomExpirations.Inc()
	}
}
