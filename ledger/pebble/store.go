package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/ledger"
)

// Options configures the store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Sync forces a WAL fsync on every append.
	Sync bool
	// InMemory keeps the database on an in-memory filesystem.
	InMemory bool
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
}

type topicMeta struct {
	Memo    string    `msgpack:"memo"`
	LastSeq uint64    `msgpack:"last_seq"`
	LastTS  time.Time `msgpack:"last_ts"`
}

// Store is a ledger.Store persisted in Pebble.
type Store struct {
	db  *pebble.DB
	wo  *pebble.WriteOptions
	now func() time.Time

	mu     sync.RWMutex
	closed bool
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("pebblestore: closed")

// Open creates or opens a store.
func Open(opts Options) (*Store, error) {
	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}

	switch {
	case opts.InMemory:
		po.FS = vfs.NewMem()
	case opts.DataDir == "":
		return nil, errors.New("pebblestore: Options.DataDir is required")
	}

	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %q: %w", opts.DataDir, err)
	}

	wo := pebble.NoSync
	if opts.Sync {
		wo = pebble.Sync
	}

	return &Store{db: db, wo: wo, now: time.Now}, nil
}

// CreateTopic implements ledger.Store.
func (s *Store) CreateTopic(_ context.Context, memo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	var n uint64
	raw, err := s.get(topicCounterKey)
	if err != nil {
		return "", err
	}
	if len(raw) >= 8 {
		n = binary.BigEndian.Uint64(raw[:8])
	}
	n++
	id := ledger.TopicID(n)

	meta, err := msgpack.Marshal(&topicMeta{Memo: memo})
	if err != nil {
		return "", err
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Set(topicCounterKey, appendBE8(nil, n), nil); err != nil {
		return "", err
	}
	if err := b.Set(keyMeta(id), meta, nil); err != nil {
		return "", err
	}
	if err := b.Commit(s.wo); err != nil {
		return "", fmt.Errorf("create topic %s: %w", id, err)
	}

	return id, nil
}

// Append implements ledger.Store.
func (s *Store) Append(_ context.Context, topicID string, rec ledger.Record) (core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.LogEntry{}, ErrClosed
	}

	meta, err := s.meta(topicID)
	if err != nil {
		return core.LogEntry{}, err
	}

	meta.LastSeq++
	meta.LastTS = ledger.NextTimestamp(meta.LastTS, s.now())
	e := ledger.Entry(rec, int64(meta.LastSeq), meta.LastTS)

	val, err := msgpack.Marshal(&e)
	if err != nil {
		return core.LogEntry{}, err
	}
	metaVal, err := msgpack.Marshal(meta)
	if err != nil {
		return core.LogEntry{}, err
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Set(keyEntry(topicID, meta.LastSeq), val, nil); err != nil {
		return core.LogEntry{}, err
	}
	if err := b.Set(keyMeta(topicID), metaVal, nil); err != nil {
		return core.LogEntry{}, err
	}
	if err := b.Commit(s.wo); err != nil {
		return core.LogEntry{}, fmt.Errorf("append to %s: %w", topicID, err)
	}

	return e, nil
}

// Entries implements ledger.Store.
func (s *Store) Entries(_ context.Context, topicID string) ([]core.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	if _, err := s.meta(topicID); err != nil {
		return nil, err
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyEntry(topicID, 0),
		UpperBound: append(keyEntry(topicID, ^uint64(0)), 0x00),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []core.LogEntry
	for iter.First(); iter.Valid(); iter.Next() {
		var e core.LogEntry
		if err := msgpack.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("decode entry of %s: %w", topicID, err)
		}
		e.ConsensusTimestamp = e.ConsensusTimestamp.UTC()
		entries = append(entries, e)
	}

	return entries, iter.Error()
}

// Memo returns the memo topicID was created with.
func (s *Store) Memo(topicID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrClosed
	}

	meta, err := s.meta(topicID)
	if err != nil {
		return "", err
	}
	return meta.Memo, nil
}

// Close implements ledger.Store. In-flight operations finish first; later
// ones fail with ErrClosed.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) meta(topicID string) (*topicMeta, error) {
	raw, err := s.get(keyMeta(topicID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrTopicNotFound, topicID)
	}
	var m topicMeta
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode meta of %s: %w", topicID, err)
	}
	m.LastTS = m.LastTS.UTC()
	return &m, nil
}

// get copies the value for key; a missing key yields (nil, nil).
func (s *Store) get(key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

var _ ledger.Store = (*Store)(nil)
