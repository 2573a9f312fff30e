// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package room orchestrates the room lifecycle operations createRoom,
// joinRoom, and vote by composing the pool builder, storage abstraction, and
// room catalog. It owns the two places where membership and capacity must
// change atomically: join admission and vote recording. The MATCHED
// transition itself belongs to the consensus engine, which this package
// never calls directly; votes reach it only through the change feed.
package room

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/catalog"
	"github.com/tomtom215/roomengine/internal/metrics"
	"github.com/tomtom215/roomengine/internal/pool"
	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

// maxJoinCASAttempts bounds the compare-and-set retry loop JoinRoom runs
// against the Room record when admitting a member under concurrent joins.
const maxJoinCASAttempts = 10

// Clock abstracts time.Now so tests can pin JoinedAt/VotedAt.
type Clock func() time.Time

// Service is the room lifecycle orchestrator.
type Service struct {
	builder *pool.Builder
	store   storage.Store
	catalog *catalog.Catalog
	clock   Clock
}

// New wires a Service against its Pool Builder, Storage Abstraction, and
// Room Catalog.
func New(builder *pool.Builder, store storage.Store, cat *catalog.Catalog) *Service {
	return &Service{builder: builder, store: store, catalog: cat, clock: time.Now}
}

// CreateRoom delegates to the Pool Builder; the orchestration layer adds
// nothing here because room creation has no membership or state-machine
// concerns of its own beyond what CreateRoomRequest already captures.
func (s *Service) CreateRoom(ctx context.Context, req pool.CreateRoomRequest) (*roomtypes.Room, []roomtypes.CatalogEntry, error) {
	return s.builder.CreateRoom(ctx, req)
}

// RoomByInviteCode resolves an invite code to its Room record.
func (s *Service) RoomByInviteCode(ctx context.Context, inviteCode string) (roomtypes.Room, uint64, error) {
	record, err := s.store.IndexQuery(ctx, roomtypes.RoomInviteIndexKey(strings.ToUpper(inviteCode)))
	if errors.Is(err, storage.ErrNotFound) {
		return roomtypes.Room{}, 0, apperr.New(apperr.Validation, "no room for invite code")
	}
	if err != nil {
		return roomtypes.Room{}, 0, err
	}
	return decodeRoom(record)
}

// Room reads a Room record by id.
func (s *Service) Room(ctx context.Context, roomID string) (roomtypes.Room, uint64, error) {
	record, err := s.store.Get(ctx, roomtypes.RoomKey(roomID))
	if errors.Is(err, storage.ErrNotFound) {
		return roomtypes.Room{}, 0, apperr.New(apperr.Validation, "room not found")
	}
	if err != nil {
		return roomtypes.Room{}, 0, err
	}
	return decodeRoom(record)
}

func decodeRoom(record storage.Record) (roomtypes.Room, uint64, error) {
	var room roomtypes.Room
	if err := json.Unmarshal(record.Value, &room); err != nil {
		return roomtypes.Room{}, 0, apperr.Wrap(apperr.Transient, "decode room record", err)
	}
	return room, record.Version, nil
}

// JoinRoom admits userID to roomID. Membership uniqueness is reserved first
// via a conditional write keyed by (room, user) so two concurrent joins by
// the same user can never both succeed; admission against capacity and the
// WAITING->VOTING transition then run as a bounded compare-and-set loop
// against the Room record, since MemberCount lives inside that record
// rather than behind its own counter key.
func (s *Service) JoinRoom(ctx context.Context, roomID, userID string) (roomtypes.Room, error) {
	memberBytes, err := json.Marshal(roomtypes.RoomMember{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: s.clock().UTC(),
		Active:   true,
	})
	if err != nil {
		return roomtypes.Room{}, apperr.Wrap(apperr.Transient, "marshal room member", err)
	}

	if _, err := s.store.PutConditional(ctx, roomtypes.MemberKey(roomID, userID), memberBytes, storage.Condition{MustNotExist: true}); err != nil {
		if apperr.Is(err, apperr.ConditionFailed) {
			metrics.RoomJoins.WithLabelValues(string(apperr.AlreadyMember)).Inc()
			return roomtypes.Room{}, apperr.New(apperr.AlreadyMember, "user already joined this room")
		}
		metrics.RoomJoins.WithLabelValues("error").Inc()
		return roomtypes.Room{}, err
	}

	room, err := s.admitMember(ctx, roomID)
	if err != nil {
		// Compensate the membership reservation so a rejected join
		// doesn't permanently burn the user's ALREADY_MEMBER slot.
		_ = s.store.Delete(context.WithoutCancel(ctx), roomtypes.MemberKey(roomID, userID))
		metrics.RoomJoins.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return roomtypes.Room{}, err
	}

	metrics.RoomJoins.WithLabelValues("success").Inc()
	return room, nil
}

func (s *Service) admitMember(ctx context.Context, roomID string) (roomtypes.Room, error) {
	for attempt := 0; attempt < maxJoinCASAttempts; attempt++ {
		record, err := s.store.Get(ctx, roomtypes.RoomKey(roomID))
		if errors.Is(err, storage.ErrNotFound) {
			return roomtypes.Room{}, apperr.New(apperr.Validation, "room not found")
		}
		if err != nil {
			return roomtypes.Room{}, err
		}

		room, _, err := decodeRoom(record)
		if err != nil {
			return roomtypes.Room{}, err
		}

		if room.Status == roomtypes.StatusMatched || room.Status == roomtypes.StatusExpired {
			return roomtypes.Room{}, apperr.New(apperr.RoomClosed, "room is no longer accepting members")
		}
		if room.MemberCount >= room.Capacity {
			return roomtypes.Room{}, apperr.New(apperr.RoomFull, "room is at capacity")
		}

		room.MemberCount++
		if room.MemberCount >= room.Capacity {
			room.Status = roomtypes.StatusVoting
		}

		updated, err := json.Marshal(room)
		if err != nil {
			return roomtypes.Room{}, apperr.Wrap(apperr.Transient, "marshal room record", err)
		}

		_, err = s.store.PutConditional(ctx, roomtypes.RoomKey(roomID), updated, storage.Condition{
			MustExist:       true,
			ExpectedVersion: record.Version,
		})
		if err == nil {
			return room, nil
		}
		if !apperr.Is(err, apperr.ConditionFailed) {
			return roomtypes.Room{}, err
		}
		// Lost the race to a concurrent joiner; reread and retry.
	}
	return roomtypes.Room{}, apperr.New(apperr.Transient, "exceeded retries joining room")
}

// CastVote validates membership, room state, and catalog membership of
// itemID, then records the Vote. A replay of the same (user, item, decision)
// is idempotent; a second distinct decision on the same item is rejected as
// ALREADY_VOTED. The consensus engine, not this method, decides whether the
// vote causes a match — CastVote's job ends at a durably persisted Vote row.
func (s *Service) CastVote(ctx context.Context, roomID, userID, itemID string, decision roomtypes.Decision) error {
	if _, err := s.store.Get(ctx, roomtypes.MemberKey(roomID, userID)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RoomVotesCast.WithLabelValues(string(apperr.NotMember)).Inc()
			return apperr.New(apperr.NotMember, "user is not a member of this room")
		}
		return err
	}

	room, _, err := s.Room(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status == roomtypes.StatusMatched || room.Status == roomtypes.StatusExpired {
		metrics.RoomVotesCast.WithLabelValues(string(apperr.RoomClosed)).Inc()
		return apperr.New(apperr.RoomClosed, "room is no longer accepting votes")
	}

	if _, err := s.store.IndexQuery(ctx, roomtypes.CatalogItemIndexKey(roomID, itemID)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RoomVotesCast.WithLabelValues(string(apperr.ItemNotInRoom)).Inc()
			return apperr.New(apperr.ItemNotInRoom, "item is not in this room's catalog")
		}
		return err
	}

	vote := roomtypes.Vote{RoomID: roomID, UserID: userID, ItemID: itemID, Decision: decision, VotedAt: s.clock().UTC()}
	voteBytes, err := json.Marshal(vote)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "marshal vote record", err)
	}

	_, err = s.store.PutConditional(ctx, roomtypes.VoteKey(roomID, userID, itemID), voteBytes, storage.Condition{MustNotExist: true})
	if err == nil {
		metrics.RoomVotesCast.WithLabelValues("success").Inc()
		return nil
	}
	if !apperr.Is(err, apperr.ConditionFailed) {
		return err
	}

	existing, getErr := s.store.Get(ctx, roomtypes.VoteKey(roomID, userID, itemID))
	if getErr != nil {
		return getErr
	}
	var priorVote roomtypes.Vote
	if unmarshalErr := json.Unmarshal(existing.Value, &priorVote); unmarshalErr != nil {
		return apperr.Wrap(apperr.Transient, "decode existing vote record", unmarshalErr)
	}
	if priorVote.Decision == decision {
		// Same vote replayed: already durable, nothing to do.
		metrics.RoomVotesCast.WithLabelValues("success").Inc()
		return nil
	}
	metrics.RoomVotesCast.WithLabelValues(string(apperr.AlreadyVoted)).Inc()
	return apperr.New(apperr.AlreadyVoted, "a different decision was already recorded for this item")
}

// NextItem delegates to the Room Catalog.
func (s *Service) NextItem(ctx context.Context, roomID, userID string) (roomtypes.CatalogEntry, error) {
	return s.catalog.NextFor(ctx, roomID, userID)
}

// Progress delegates to the Room Catalog.
func (s *Service) Progress(ctx context.Context, roomID, userID string) (votedCount, total, remaining int, err error) {
	return s.catalog.Progress(ctx, roomID, userID)
}

// IsMember reports whether userID has joined roomID.
func (s *Service) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	_, err := s.store.Get(ctx, roomtypes.MemberKey(roomID, userID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
