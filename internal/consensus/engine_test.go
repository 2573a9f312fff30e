// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package consensus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/roomengine/internal/notify"
	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, storage.Store, *notify.InMemoryNotifier) {
	t.Helper()
	store, err := storage.NewBadgerStore("", true, storage.NewInMemoryChangeFeed())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	notifier := notify.NewInMemoryNotifier()
	return New(store, nil, notifier, "rooms.matched"), store, notifier
}

func seedVotingRoom(t *testing.T, store storage.Store, roomID string, capacity int) {
	t.Helper()
	room := roomtypes.Room{
		RoomID:    roomID,
		Capacity:  capacity,
		Status:    roomtypes.StatusVoting,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(room)
	require.NoError(t, err)
	_, err = store.PutConditional(context.Background(), roomtypes.RoomKey(roomID), data, storage.Condition{MustNotExist: true})
	require.NoError(t, err)
}

func readRoom(t *testing.T, store storage.Store, roomID string) roomtypes.Room {
	t.Helper()
	record, err := store.Get(context.Background(), roomtypes.RoomKey(roomID))
	require.NoError(t, err)
	var room roomtypes.Room
	require.NoError(t, json.Unmarshal(record.Value, &room))
	return room
}

func TestProcessVoteScenarioDUnanimousMatchInTwoPersonRoom(t *testing.T) {
	engine, store, notifier := newTestEngine(t)
	seedVotingRoom(t, store, "room1", 2)

	err := engine.ProcessVote(context.Background(), roomtypes.Vote{RoomID: "room1", UserID: "u1", ItemID: "itemX", Decision: roomtypes.DecisionYes})
	require.NoError(t, err)
	room := readRoom(t, store, "room1")
	assert.Equal(t, roomtypes.StatusVoting, room.Status)

	err = engine.ProcessVote(context.Background(), roomtypes.Vote{RoomID: "room1", UserID: "u2", ItemID: "itemX", Decision: roomtypes.DecisionYes})
	require.NoError(t, err)

	room = readRoom(t, store, "room1")
	assert.Equal(t, roomtypes.StatusMatched, room.Status)
	assert.Equal(t, "itemX", room.MatchedItem)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "room1", events[0].RoomID)
	assert.Equal(t, "itemX", events[0].ItemID)

	record, err := store.Get(context.Background(), roomtypes.MatchEventKey("room1"))
	require.NoError(t, err)
	assert.NotEmpty(t, record.Value)
}

func TestProcessVoteDropsWhenDecisionIsNo(t *testing.T) {
	engine, store, notifier := newTestEngine(t)
	seedVotingRoom(t, store, "room1", 1)

	err := engine.ProcessVote(context.Background(), roomtypes.Vote{RoomID: "room1", UserID: "u1", ItemID: "itemX", Decision: roomtypes.DecisionNo})
	require.NoError(t, err)

	room := readRoom(t, store, "room1")
	assert.Equal(t, roomtypes.StatusVoting, room.Status)
	assert.Empty(t, notifier.Events())
}

func TestProcessVoteDropsWhenRoomNotVoting(t *testing.T) {
	engine, store, notifier := newTestEngine(t)
	seedVotingRoom(t, store, "room1", 1)
	room := readRoom(t, store, "room1")
	room.Status = roomtypes.StatusWaiting
	data, err := json.Marshal(room)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), roomtypes.RoomKey("room1"), data)
	require.NoError(t, err)

	err = engine.ProcessVote(context.Background(), roomtypes.Vote{RoomID: "room1", UserID: "u1", ItemID: "itemX", Decision: roomtypes.DecisionYes})
	require.NoError(t, err)
	assert.Empty(t, notifier.Events())
}

func TestProcessVoteCapacityOneMatchesOnFirstYes(t *testing.T) {
	engine, store, notifier := newTestEngine(t)
	seedVotingRoom(t, store, "room1", 1)

	err := engine.ProcessVote(context.Background(), roomtypes.Vote{RoomID: "room1", UserID: "u1", ItemID: "itemX", Decision: roomtypes.DecisionYes})
	require.NoError(t, err)

	room := readRoom(t, store, "room1")
	assert.Equal(t, roomtypes.StatusMatched, room.Status)
	assert.Len(t, notifier.Events(), 1)
}

func TestProcessVoteReplayAfterMatchProducesNoAdditionalEvents(t *testing.T) {
	engine, store, notifier := newTestEngine(t)
	seedVotingRoom(t, store, "room1", 1)

	require.NoError(t, engine.ProcessVote(context.Background(), roomtypes.Vote{RoomID: "room1", UserID: "u1", ItemID: "itemX", Decision: roomtypes.DecisionYes}))
	require.Len(t, notifier.Events(), 1)

	// Replay of the same change-feed event after the room is already MATCHED.
	require.NoError(t, engine.ProcessVote(context.Background(), roomtypes.Vote{RoomID: "room1", UserID: "u1", ItemID: "itemX", Decision: roomtypes.DecisionYes}))
	assert.Len(t, notifier.Events(), 1)
}

func TestProcessVoteScenarioEConcurrentVotesOnlyOneWinner(t *testing.T) {
	engine, store, notifier := newTestEngine(t)
	seedVotingRoom(t, store, "room1", 2)

	votes := []roomtypes.Vote{
		{RoomID: "room1", UserID: "u1", ItemID: "itemA", Decision: roomtypes.DecisionYes},
		{RoomID: "room1", UserID: "u2", ItemID: "itemA", Decision: roomtypes.DecisionYes},
		{RoomID: "room1", UserID: "u1", ItemID: "itemB", Decision: roomtypes.DecisionYes},
		{RoomID: "room1", UserID: "u2", ItemID: "itemB", Decision: roomtypes.DecisionYes},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(votes))
	for i, vote := range votes {
		wg.Add(1)
		go func(i int, v roomtypes.Vote) {
			defer wg.Done()
			errs[i] = engine.ProcessVote(context.Background(), v)
		}(i, vote)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	room := readRoom(t, store, "room1")
	assert.Equal(t, roomtypes.StatusMatched, room.Status)
	assert.Contains(t, []string{"itemA", "itemB"}, room.MatchedItem)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, room.MatchedItem, events[0].ItemID)
}
