// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package catalog serves the room's movie catalog to members: returning the
// next item for a user, advancing their cursor after a vote, and reporting
// progress. The cursor is derived from the Vote index, never stored.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/roomtypes"
	"github.com/tomtom215/roomengine/internal/storage"
)

// batchWindowSize is the size of the warm-state batch window.
const batchWindowSize = 10

// preloadThreshold triggers the next batch fetch once this fraction of the
// current batch has been consumed.
const preloadThreshold = 0.8

// batchKey identifies one cached window of a room's catalog.
type batchKey struct {
	roomID     string
	batchIndex int
}

// Catalog serves CatalogEntry rows to room members. Entries are immutable
// once persisted, so the in-memory batch cache never needs invalidation.
type Catalog struct {
	store storage.Store

	mu    sync.Mutex
	cache map[batchKey][]roomtypes.CatalogEntry
}

// New wires a Catalog against the Storage Abstraction.
func New(store storage.Store) *Catalog {
	return &Catalog{store: store, cache: make(map[batchKey][]roomtypes.CatalogEntry)}
}

// NextFor returns the CatalogEntry at user's current cursor position, or
// the EXHAUSTED sentinel once the user has voted on all fifty entries.
// Idempotent: repeated calls with no intervening vote return the same entry.
func (c *Catalog) NextFor(ctx context.Context, roomID, userID string) (roomtypes.CatalogEntry, error) {
	votedCount, err := c.votedCount(ctx, roomID, userID)
	if err != nil {
		return roomtypes.CatalogEntry{}, err
	}
	if votedCount >= roomtypes.MoviesPerRoom {
		return roomtypes.CatalogEntry{}, nil
	}

	entry, err := c.entryAt(ctx, roomID, votedCount)
	if err != nil {
		return roomtypes.CatalogEntry{}, err
	}

	c.maybePreload(ctx, roomID, votedCount)
	return entry, nil
}

// Advance is a no-op against storage: the cursor is derived from the Vote
// index, so once a vote is persisted the next NextFor call observes the
// advanced position automatically. It exists as an explicit step so callers
// always advance after persisting a vote, and so a future stored-cursor
// implementation has a single call site to change.
func (c *Catalog) Advance(ctx context.Context, roomID, userID string) error {
	_, err := c.votedCount(ctx, roomID, userID)
	return err
}

// Progress reports (votedCount, total, remaining) for a user in a room.
func (c *Catalog) Progress(ctx context.Context, roomID, userID string) (votedCount, total, remaining int, err error) {
	votedCount, err = c.votedCount(ctx, roomID, userID)
	if err != nil {
		return 0, 0, 0, err
	}
	return votedCount, roomtypes.MoviesPerRoom, roomtypes.MoviesPerRoom - votedCount, nil
}

func (c *Catalog) votedCount(ctx context.Context, roomID, userID string) (int, error) {
	records, err := c.store.RangeGet(ctx, roomtypes.VoteUserPrefix(roomID, userID))
	if err != nil {
		return 0, apperr.Wrap(apperr.Transient, "range vote records", err)
	}
	return len(records), nil
}

// entryAt resolves the catalog entry at sequenceIndex, preferring the batch
// cache and falling back to a direct storage read.
func (c *Catalog) entryAt(ctx context.Context, roomID string, sequenceIndex int) (roomtypes.CatalogEntry, error) {
	batchIndex := sequenceIndex / batchWindowSize

	if entries, ok := c.cachedBatch(roomID, batchIndex); ok {
		offset := sequenceIndex % batchWindowSize
		if offset < len(entries) {
			return entries[offset], nil
		}
	}

	entries, err := c.loadBatch(ctx, roomID, batchIndex)
	if err != nil {
		return roomtypes.CatalogEntry{}, err
	}

	offset := sequenceIndex % batchWindowSize
	if offset >= len(entries) {
		return roomtypes.CatalogEntry{}, apperr.New(apperr.Validation, "sequence index out of range for room catalog")
	}
	return entries[offset], nil
}

func (c *Catalog) cachedBatch(roomID string, batchIndex int) ([]roomtypes.CatalogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.cache[batchKey{roomID: roomID, batchIndex: batchIndex}]
	return entries, ok
}

// loadBatch reads one window of CatalogEntry records from storage and
// caches it. CatalogEntries are immutable once written, so the cache never
// needs to be invalidated.
func (c *Catalog) loadBatch(ctx context.Context, roomID string, batchIndex int) ([]roomtypes.CatalogEntry, error) {
	records, err := c.store.RangeGet(ctx, roomtypes.CatalogPrefix(roomID))
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "range catalog entries", err)
	}

	entries := make([]roomtypes.CatalogEntry, 0, len(records))
	for _, record := range records {
		var entry roomtypes.CatalogEntry
		if unmarshalErr := json.Unmarshal(record.Value, &entry); unmarshalErr != nil {
			return nil, apperr.Wrap(apperr.Transient, "decode catalog entry", unmarshalErr)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SequenceIndex < entries[j].SequenceIndex })

	windowStart := batchIndex * batchWindowSize
	windowEnd := windowStart + batchWindowSize
	if windowEnd > len(entries) {
		windowEnd = len(entries)
	}
	if windowStart >= len(entries) {
		return nil, apperr.New(apperr.Validation, "batch index out of range for room catalog")
	}
	window := entries[windowStart:windowEnd]

	c.mu.Lock()
	c.cache[batchKey{roomID: roomID, batchIndex: batchIndex}] = window
	c.mu.Unlock()

	return window, nil
}

// maybePreload schedules a fetch of the next batch once the current one is
// preloadThreshold consumed. Preload runs synchronously: it reads the
// room's catalog from storage into the cache (no metadata provider traffic
// is involved) inline rather than on a background goroutine.
func (c *Catalog) maybePreload(ctx context.Context, roomID string, votedCount int) {
	batchIndex := votedCount / batchWindowSize
	offsetInBatch := votedCount % batchWindowSize
	if float64(offsetInBatch) < float64(batchWindowSize)*preloadThreshold {
		return
	}
	if _, ok := c.cachedBatch(roomID, batchIndex+1); ok {
		return
	}
	_, _ = c.loadBatch(ctx, roomID, batchIndex+1)
}
