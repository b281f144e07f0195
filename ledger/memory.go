package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/topicmesh/core"
)

type memTopic struct {
	memo    string
	entries []core.LogEntry
}

// InMemoryStore is a Store backed by process memory. It is safe for
// concurrent use.
type InMemoryStore struct {
	mu     sync.RWMutex
	next   uint64
	topics map[string]*memTopic
	now    func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{topics: make(map[string]*memTopic), now: time.Now}
}

// CreateTopic implements Store.
func (s *InMemoryStore) CreateTopic(_ context.Context, memo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := TopicID(s.next)
	s.topics[id] = &memTopic{memo: memo}
	return id, nil
}

// Append implements Store.
func (s *InMemoryStore) Append(_ context.Context, topicID string, rec Record) (core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topicID]
	if !ok {
		return core.LogEntry{}, fmt.Errorf("%w: %s", core.ErrTopicNotFound, topicID)
	}
	var last time.Time
	if n := len(t.entries); n > 0 {
		last = t.entries[n-1].ConsensusTimestamp
	}
	e := Entry(rec, int64(len(t.entries))+1, NextTimestamp(last, s.now()))
	t.entries = append(t.entries, e)
	return e, nil
}

// Entries implements Store.
func (s *InMemoryStore) Entries(_ context.Context, topicID string) ([]core.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTopicNotFound, topicID)
	}
	return append([]core.LogEntry(nil), t.entries...), nil
}

// Memo returns the memo topicID was created with.
func (s *InMemoryStore) Memo(topicID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[topicID]
	if !ok {
		return "", false
	}
	return t.memo, true
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }

var _ Store = (*InMemoryStore)(nil)
