// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package pool implements the content-pool builder: the three-tier
// fetch/validate loop that turns a createRoom request into exactly fifty
// validated CatalogEntry rows plus the Room record they belong to.
package pool

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/config"
	"github.com/tomtom215/roomengine/internal/metadata"
	"github.com/tomtom215/roomengine/internal/metrics"
	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

// Clock abstracts time.Now so tests can pin the created/expires timestamps.
type Clock func() time.Time

// Builder assembles and persists a room's catalog. A Builder's per-room
// build is sequential: callers must not invoke CreateRoom for the same
// in-flight room concurrently, though distinct rooms build independently.
type Builder struct {
	metadata metadata.Client
	store    storage.Store
	cfg      config.PoolConfig
	clock    Clock
}

// NewBuilder wires a Builder against its Metadata Client, Storage
// Abstraction, and pool configuration.
func NewBuilder(client metadata.Client, store storage.Store, cfg config.PoolConfig) *Builder {
	return &Builder{metadata: client, store: store, cfg: cfg, clock: time.Now}
}

// CreateRoomRequest parameterizes a pool build.
type CreateRoomRequest struct {
	MediaType roomtypes.MediaType
	Genres    []int
	Name      string
	Capacity  int
}

// tierSpec is one pass of the three-tier fallback.
type tierSpec struct {
	expr     metadata.GenreExpr
	priority roomtypes.Priority
}

// CreateRoom runs the full pool-build pipeline: validate, fetch/gate/assemble
// fifty candidates, then persist the Room and its catalog atomically from
// the caller's point of view (partial writes are compensated, never left
// visible).
func (b *Builder) CreateRoom(ctx context.Context, req CreateRoomRequest) (*roomtypes.Room, []roomtypes.CatalogEntry, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		metrics.PoolBuildDuration.WithLabelValues(string(req.MediaType), outcome).Observe(time.Since(start).Seconds())
	}()

	if err := b.validate(req); err != nil {
		outcome = "validation_error"
		return nil, nil, err
	}

	entries, err := b.assembleCatalog(ctx, req)
	if err != nil {
		outcome = string(apperr.KindOf(err))
		return nil, nil, err
	}

	now := b.clock().UTC()
	room := &roomtypes.Room{
		RoomID:      uuid.NewString(),
		InviteCode:  generateInviteCode(),
		Name:        req.Name,
		MediaType:   req.MediaType,
		Genres:      req.Genres,
		Capacity:    req.Capacity,
		Status:      roomtypes.StatusWaiting,
		CreatedAt:   now,
		ExpiresAt:   now.Add(b.cfg.RoomTTL),
		MemberCount: 0,
	}

	for i := range entries {
		entries[i].RoomID = room.RoomID
		entries[i].SequenceIndex = i
	}

	if err := b.persist(ctx, room, entries); err != nil {
		outcome = string(apperr.KindOf(err))
		return nil, nil, err
	}

	return room, entries, nil
}

func (b *Builder) validate(req CreateRoomRequest) error {
	if !req.MediaType.Valid() {
		return apperr.New(apperr.Validation, "unknown media type: "+string(req.MediaType))
	}
	if len(req.Genres) > b.cfg.MaxGenres {
		return apperr.New(apperr.Validation, fmt.Sprintf("at most %d genres allowed, got %d", b.cfg.MaxGenres, len(req.Genres)))
	}
	if req.Capacity <= 0 {
		return apperr.New(apperr.Validation, "capacity must be positive")
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperr.New(apperr.Validation, "name must not be empty")
	}
	return nil
}

// assembleCatalog runs the three-tier fetch/validate loop and returns
// exactly fifty entries, stable-sorted by priority, or INSUFFICIENT_CONTENT.
func (b *Builder) assembleCatalog(ctx context.Context, req CreateRoomRequest) ([]roomtypes.CatalogEntry, error) {
	tiers := make([]tierSpec, 0, 3)
	if len(req.Genres) > 0 {
		tiers = append(tiers,
			tierSpec{expr: metadata.GenreAll, priority: roomtypes.PriorityStrict},
			tierSpec{expr: metadata.GenreAny, priority: roomtypes.PriorityPermissive},
		)
	}
	tiers = append(tiers, tierSpec{expr: metadata.GenreNone, priority: roomtypes.PriorityPopular})

	accumulated := make([]roomtypes.CatalogEntry, 0, roomtypes.MoviesPerRoom)
	seen := make(map[string]bool, roomtypes.MoviesPerRoom*2)

	for _, tier := range tiers {
		if len(accumulated) >= roomtypes.MoviesPerRoom {
			break
		}
		if err := b.runTier(ctx, req, tier, &accumulated, seen); err != nil {
			return nil, err
		}
	}

	if len(accumulated) < roomtypes.MoviesPerRoom {
		metrics.PoolBuildFailures.WithLabelValues("insufficient_content").Inc()
		return nil, apperr.New(apperr.InsufficientContent,
			fmt.Sprintf("only %d of %d items survived the quality gate", len(accumulated), roomtypes.MoviesPerRoom))
	}

	sort.SliceStable(accumulated, func(i, j int) bool {
		return accumulated[i].Priority < accumulated[j].Priority
	})

	return accumulated[:roomtypes.MoviesPerRoom], nil
}

// runTier pages through discover results for one tier until the tier
// exhausts or the accumulator reaches fifty entries.
func (b *Builder) runTier(ctx context.Context, req CreateRoomRequest, tier tierSpec, accumulated *[]roomtypes.CatalogEntry, seen map[string]bool) error {
	page := 1
	for {
		if len(*accumulated) >= roomtypes.MoviesPerRoom {
			return nil
		}

		result, err := b.metadata.Discover(ctx, metadata.DiscoverRequest{
			MediaType: req.MediaType,
			Genres:    req.Genres,
			Expr:      tier.expr,
			Page:      page,
		})
		if err != nil {
			return err
		}
		if len(result.Items) == 0 {
			return nil
		}

		for _, item := range result.Items {
			if len(*accumulated) >= roomtypes.MoviesPerRoom {
				return nil
			}
			id := strconv.Itoa(item.ID)
			if seen[id] {
				continue
			}
			if !passesQualityGate(item, req.MediaType, b.cfg) {
				continue
			}
			seen[id] = true
			*accumulated = append(*accumulated, toCatalogEntry(item, req.MediaType, tier.priority))
			metrics.PoolBuildTierAccepted.WithLabelValues(tierLabel(tier.priority)).Inc()
		}

		if page >= result.TotalPages {
			return nil
		}
		page++
	}
}

func tierLabel(priority roomtypes.Priority) string {
	switch priority {
	case roomtypes.PriorityStrict:
		return "strict"
	case roomtypes.PriorityPermissive:
		return "permissive"
	default:
		return "popular"
	}
}

func toCatalogEntry(item metadata.RawItem, mediaType roomtypes.MediaType, priority roomtypes.Priority) roomtypes.CatalogEntry {
	title, date := item.Title, item.ReleaseDate
	if mediaType == roomtypes.MediaTV {
		title, date = item.Name, item.FirstAirDate
	}
	return roomtypes.CatalogEntry{
		ItemID:           strconv.Itoa(item.ID),
		Title:            title,
		Overview:         item.Overview,
		PosterPath:       item.PosterPath,
		ReleaseDate:      date,
		OriginalLanguage: item.OriginalLanguage,
		Genres:           item.GenreIDs,
		VoteAverage:      item.VoteAverage,
		Priority:         priority,
	}
}

func generateInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// persist writes the Room record, its invite-code index, and every
// CatalogEntry. Any failure triggers best-effort compensation of whatever
// was already written, so a partial catalog is never left visible.
func (b *Builder) persist(ctx context.Context, room *roomtypes.Room, entries []roomtypes.CatalogEntry) error {
	roomBytes, err := json.Marshal(room)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "marshal room record", err)
	}

	if _, err := b.store.PutConditional(ctx, roomtypes.RoomKey(room.RoomID), roomBytes, storage.Condition{MustNotExist: true}); err != nil {
		metrics.PoolBuildFailures.WithLabelValues("room_persist_failed").Inc()
		return apperr.Wrap(apperr.Transient, "persist room record", err)
	}

	written := []string{roomtypes.RoomKey(room.RoomID)}
	compensate := func() {
		cleanupCtx := context.WithoutCancel(ctx)
		for _, key := range written {
			_ = b.store.Delete(cleanupCtx, key)
		}
	}

	if _, err := b.store.Put(ctx, roomtypes.RoomInviteIndexKey(room.InviteCode), []byte(roomtypes.RoomKey(room.RoomID))); err != nil {
		compensate()
		metrics.PoolBuildFailures.WithLabelValues("index_persist_failed").Inc()
		return apperr.Wrap(apperr.Transient, "persist invite index", err)
	}
	written = append(written, roomtypes.RoomInviteIndexKey(room.InviteCode))

	for _, entry := range entries {
		entryBytes, err := json.Marshal(entry)
		if err != nil {
			compensate()
			return apperr.Wrap(apperr.Transient, "marshal catalog entry", err)
		}

		key := roomtypes.CatalogEntryKey(room.RoomID, entry.SequenceIndex)
		if _, err := b.store.Put(ctx, key, entryBytes); err != nil {
			compensate()
			metrics.PoolBuildFailures.WithLabelValues("catalog_persist_failed").Inc()
			return apperr.Wrap(apperr.Transient, "persist catalog entry", err)
		}
		written = append(written, key)

		itemIndexKey := roomtypes.CatalogItemIndexKey(room.RoomID, entry.ItemID)
		if _, err := b.store.Put(ctx, itemIndexKey, []byte(key)); err != nil {
			compensate()
			metrics.PoolBuildFailures.WithLabelValues("catalog_persist_failed").Inc()
			return apperr.Wrap(apperr.Transient, "persist catalog item index", err)
		}
		written = append(written, itemIndexKey)
	}

	return nil
}
