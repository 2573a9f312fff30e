// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package room

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

func seedRoomForSweep(t *testing.T, store storage.Store, roomID string, status roomtypes.RoomStatus, expiresAt time.Time) {
	t.Helper()
	room := roomtypes.Room{RoomID: roomID, Status: status, Capacity: 2, ExpiresAt: expiresAt, CreatedAt: expiresAt.Add(-time.Hour)}
	data, err := json.Marshal(room)
	require.NoError(t, err)
	_, err = store.PutConditional(context.Background(), roomtypes.RoomKey(roomID), data, storage.Condition{MustNotExist: true})
	require.NoError(t, err)
}

func readRoomStatus(t *testing.T, store storage.Store, roomID string) roomtypes.RoomStatus {
	t.Helper()
	record, err := store.Get(context.Background(), roomtypes.RoomKey(roomID))
	require.NoError(t, err)
	var room roomtypes.Room
	require.NoError(t, json.Unmarshal(record.Value, &room))
	return room.Status
}

func TestSweeperExpiresWaitingAndVotingRoomsPastTTL(t *testing.T) {
	store, err := storage.NewBadgerStore("", true, storage.NewInMemoryChangeFeed())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Now().UTC()
	seedRoomForSweep(t, store, "expired-waiting", roomtypes.StatusWaiting, now.Add(-time.Minute))
	seedRoomForSweep(t, store, "expired-voting", roomtypes.StatusVoting, now.Add(-time.Minute))
	seedRoomForSweep(t, store, "not-yet-expired", roomtypes.StatusWaiting, now.Add(time.Hour))
	seedRoomForSweep(t, store, "already-matched", roomtypes.StatusMatched, now.Add(-time.Minute))

	sweeper := NewSweeper(store, time.Hour)
	sweeper.clock = func() time.Time { return now }
	sweeper.sweepOnce(context.Background())

	assert.Equal(t, roomtypes.StatusExpired, readRoomStatus(t, store, "expired-waiting"))
	assert.Equal(t, roomtypes.StatusExpired, readRoomStatus(t, store, "expired-voting"))
	assert.Equal(t, roomtypes.StatusWaiting, readRoomStatus(t, store, "not-yet-expired"))
	assert.Equal(t, roomtypes.StatusMatched, readRoomStatus(t, store, "already-matched"))
}
