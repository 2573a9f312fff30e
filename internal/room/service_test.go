// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/catalog"
	"github.com/tomtom215/roomengine/internal/config"
	"github.com/tomtom215/roomengine/internal/metadata"
	"github.com/tomtom215/roomengine/internal/pool"
	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

type fakeMetadataClient struct {
	items []metadata.RawItem
}

func (f *fakeMetadataClient) Discover(_ context.Context, req metadata.DiscoverRequest) (*metadata.DiscoverResult, error) {
	if req.Page > 1 {
		return &metadata.DiscoverResult{Page: req.Page, TotalPages: 1}, nil
	}
	return &metadata.DiscoverResult{Page: 1, TotalPages: 1, TotalResults: len(f.items), Items: f.items}, nil
}

func (f *fakeMetadataClient) GenresFor(_ context.Context, _ roomtypes.MediaType) ([]metadata.Genre, error) {
	return nil, nil
}

func (f *fakeMetadataClient) Healthy() bool { return true }

func makeItems(n int) []metadata.RawItem {
	items := make([]metadata.RawItem, n)
	for i := 0; i < n; i++ {
		items[i] = metadata.RawItem{
			ID:               i + 1,
			Title:            fmt.Sprintf("Movie %d", i+1),
			ReleaseDate:      "2020-01-01",
			Overview:         strings.Repeat("a", 120),
			PosterPath:       "/poster.jpg",
			OriginalLanguage: "en",
			GenreIDs:         []int{28},
			VoteAverage:      7.5,
			VoteCount:        1000,
		}
	}
	return items
}

func newTestService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store, err := storage.NewBadgerStore("", true, storage.NewInMemoryChangeFeed())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.PoolConfig{
		MaxGenres:                  2,
		WesternLanguages:           []string{"en"},
		MinOverviewLength:          20,
		PlaceholderOverviewPhrases: []string{"no description available"},
		RoomTTL:                    0,
	}
	client := &fakeMetadataClient{items: makeItems(50)}
	builder := pool.NewBuilder(client, store, cfg)
	cat := catalog.New(store)
	return New(builder, store, cat), store
}

func createTestRoom(t *testing.T, svc *Service, capacity int) *roomtypes.Room {
	t.Helper()
	room, _, err := svc.CreateRoom(context.Background(), pool.CreateRoomRequest{
		MediaType: roomtypes.MediaMovie,
		Genres:    []int{28},
		Name:      "Test Room",
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return room
}

func TestJoinRoomAdmitsUntilCapacityThenTransitionsToVoting(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 2)

	updated, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)
	assert.Equal(t, roomtypes.StatusWaiting, updated.Status)
	assert.Equal(t, 1, updated.MemberCount)

	updated, err = svc.JoinRoom(context.Background(), room.RoomID, "bob")
	require.NoError(t, err)
	assert.Equal(t, roomtypes.StatusVoting, updated.Status)
	assert.Equal(t, 2, updated.MemberCount)
}

func TestJoinRoomRejectsDuplicateMember(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 2)

	_, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)

	_, err = svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.AlreadyMember))
}

func TestJoinRoomRejectsOnceFull(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 1)

	_, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)

	_, err = svc.JoinRoom(context.Background(), room.RoomID, "bob")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.RoomFull))
}

func TestJoinRoomConcurrentJoinersNeverExceedCapacity(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 3)

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	var wg sync.WaitGroup
	results := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, results[i] = svc.JoinRoom(context.Background(), room.RoomID, userID)
		}(i, u)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t, apperr.Is(err, apperr.RoomFull))
		}
	}
	assert.Equal(t, 3, successes)

	final, _, err := svc.Room(context.Background(), room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, 3, final.MemberCount)
	assert.Equal(t, roomtypes.StatusVoting, final.Status)
}

func TestCastVoteRejectsNonMember(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 2)
	_, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)

	err = svc.CastVote(context.Background(), room.RoomID, "stranger", "1", roomtypes.DecisionYes)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotMember))
}

func TestCastVoteRejectsItemOutsideCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 1)
	_, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)

	err = svc.CastVote(context.Background(), room.RoomID, "alice", "not-a-real-item", roomtypes.DecisionYes)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ItemNotInRoom))
}

func TestCastVoteIsIdempotentOnReplayOfSameDecision(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 1)
	_, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.CastVote(context.Background(), room.RoomID, "alice", "1", roomtypes.DecisionYes))
	require.NoError(t, svc.CastVote(context.Background(), room.RoomID, "alice", "1", roomtypes.DecisionYes))
}

func TestCastVoteRejectsConflictingSecondDecision(t *testing.T) {
	svc, _ := newTestService(t)
	room := createTestRoom(t, svc, 1)
	_, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.CastVote(context.Background(), room.RoomID, "alice", "1", roomtypes.DecisionYes))
	err = svc.CastVote(context.Background(), room.RoomID, "alice", "1", roomtypes.DecisionNo)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.AlreadyVoted))
}

func TestCastVoteRejectsWhenRoomClosed(t *testing.T) {
	svc, store := newTestService(t)
	room := createTestRoom(t, svc, 1)
	_, err := svc.JoinRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)

	closed, _, err := svc.Room(context.Background(), room.RoomID)
	require.NoError(t, err)
	closed.Status = roomtypes.StatusExpired
	data, marshalErr := json.Marshal(closed)
	require.NoError(t, marshalErr)
	_, err = store.Put(context.Background(), roomtypes.RoomKey(room.RoomID), data)
	require.NoError(t, err)

	err = svc.CastVote(context.Background(), room.RoomID, "alice", "1", roomtypes.DecisionYes)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.RoomClosed))
}
