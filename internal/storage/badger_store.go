// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/roomengine/internal/apperr"
)

// versionKeySuffix separates a record's value entry from its version
// counter entry so version bumps don't require re-reading the value.
const versionKeySuffix = "\x00v"

// BadgerStore is a BadgerDB-backed Store. Writes are published to an
// attached ChangeFeed after the underlying transaction commits.
type BadgerStore struct {
	db    *badger.DB
	feed  ChangeFeed
	seqMu sync.Mutex
	seq   uint64
}

// NewBadgerStore opens (or creates) a BadgerDB database at path. Pass
// inMemory true for ephemeral storage (used by tests and local dev), in
// which case path is ignored.
func NewBadgerStore(path string, inMemory bool, feed ChangeFeed) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &BadgerStore{db: db, feed: feed}, nil
}

func (s *BadgerStore) nextSequence() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}

// maxConflictRetries bounds the retry loop for badger.ErrConflict, the
// optimistic-concurrency-control error Badger returns when a transaction's
// read set was invalidated by a concurrently committed write. Badger's own
// documentation recommends retrying such transactions; the vote consensus
// engine's concurrent counter increments and conditional room writes are
// exactly the contended-key workload this guards.
const maxConflictRetries = 20

// updateWithConflictRetry runs fn inside a Badger read-write transaction,
// retrying on ErrConflict so a contended key (a shared vote tally, a room
// record under concurrent votes) doesn't surface a spurious transient
// failure to the caller.
func (s *BadgerStore) updateWithConflictRetry(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *BadgerStore) Get(ctx context.Context, key string) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec = Record{Key: key, Value: val, Version: versionFromItem(txn, key)}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, classifyBadgerErr(err)
	}
	return rec, nil
}

func versionFromItem(txn *badger.Txn, key string) uint64 {
	item, err := txn.Get([]byte(key + versionKeySuffix))
	if err != nil {
		return 0
	}
	var v uint64
	_ = item.Value(func(val []byte) error {
		if len(val) == 8 {
			v = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	return v
}

func (s *BadgerStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	var version uint64
	err := s.updateWithConflictRetry(func(txn *badger.Txn) error {
		version = versionFromItem(txn, key) + 1
		if err := txn.Set([]byte(key), value); err != nil {
			return err
		}
		return txn.Set([]byte(key+versionKeySuffix), encodeVersion(version))
	})
	if err != nil {
		return 0, classifyBadgerErr(err)
	}
	s.emit(ctx, key, value, ChangePut)
	return version, nil
}

func encodeVersion(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// PutConditional enforces cond inside a single BadgerDB transaction so the
// check-then-set is atomic with respect to concurrent writers. This is the
// primitive the vote consensus engine relies on to guarantee exactly one
// writer ever observes a successful VOTING->MATCHED transition.
func (s *BadgerStore) PutConditional(ctx context.Context, key string, value []byte, cond Condition) (uint64, error) {
	var version uint64
	err := s.updateWithConflictRetry(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(key))
		exists := getErr == nil
		if getErr != nil && !errors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}

		if cond.MustExist && !exists {
			return ErrConditionFailed
		}
		if cond.MustNotExist && exists {
			return ErrConditionFailed
		}
		if cond.ExpectedValue != nil {
			if !exists {
				return ErrConditionFailed
			}
			cur, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(cur) != string(cond.ExpectedValue) {
				return ErrConditionFailed
			}
		}

		curVersion := versionFromItem(txn, key)
		if cond.ExpectedVersion != 0 && curVersion != cond.ExpectedVersion {
			return ErrConditionFailed
		}

		version = curVersion + 1
		if err := txn.Set([]byte(key), value); err != nil {
			return err
		}
		return txn.Set([]byte(key+versionKeySuffix), encodeVersion(version))
	})

	if errors.Is(err, ErrConditionFailed) {
		return 0, apperr.Wrap(apperr.ConditionFailed, "precondition not met for "+key, ErrConditionFailed)
	}
	if err != nil {
		return 0, classifyBadgerErr(err)
	}
	s.emit(ctx, key, value, ChangePut)
	return version, nil
}

// IncrementCounter stores the running total as an 8-byte big-endian
// integer so RangeGet-based inspection tools can read it without a
// counter-specific decoder.
func (s *BadgerStore) IncrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	var total int64
	err := s.updateWithConflictRetry(func(txn *badger.Txn) error {
		var cur int64
		item, getErr := txn.Get([]byte(key))
		if getErr == nil {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if len(val) == 8 {
				cur = int64(binary.BigEndian.Uint64(val))
			}
		} else if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}

		total = cur + delta
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(total))
		return txn.Set([]byte(key), buf)
	})
	if err != nil {
		return 0, classifyBadgerErr(err)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(total))
	s.emit(ctx, key, buf, ChangeIncrement)
	return total, nil
}

// RangeGet scans every key with the given prefix. Version and counter
// shadow entries (versionKeySuffix) are excluded from results.
func (s *BadgerStore) RangeGet(ctx context.Context, prefix string) ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if strings.HasSuffix(key, versionKeySuffix) {
				continue
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			records = append(records, Record{Key: key, Value: val, Version: versionFromItem(txn, key)})
		}
		return nil
	})
	if err != nil {
		return nil, classifyBadgerErr(err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// IndexQuery treats the value stored at indexKey as a pointer to the
// primary record's key (the pattern used by invite-code -> room-id
// lookups) and dereferences it with a second Get, which is a separate read
// transaction.
func (s *BadgerStore) IndexQuery(ctx context.Context, indexKey string) (Record, error) {
	pointer, err := s.Get(ctx, indexKey)
	if err != nil {
		return Record{}, err
	}
	return s.Get(ctx, string(pointer.Value))
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.updateWithConflictRetry(func(txn *badger.Txn) error {
		if delErr := txn.Delete([]byte(key)); delErr != nil && !errors.Is(delErr, badger.ErrKeyNotFound) {
			return delErr
		}
		if delErr := txn.Delete([]byte(key + versionKeySuffix)); delErr != nil && !errors.Is(delErr, badger.ErrKeyNotFound) {
			return delErr
		}
		return nil
	})
	if err != nil {
		return classifyBadgerErr(err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) emit(ctx context.Context, key string, value []byte, kind ChangeKind) {
	if s.feed == nil {
		return
	}
	event := ChangeEvent{
		Key:       key,
		Value:     value,
		Kind:      kind,
		Sequence:  s.nextSequence(),
		Timestamp: time.Now().UTC(),
	}
	// Publish errors are not returned to the caller: the write to Badger
	// already committed and must not be rolled back because the feed
	// lagged. The NATS feed counts publish failures in its metrics; the
	// in-memory feed records nothing.
	_ = s.feed.Publish(ctx, event)
}
