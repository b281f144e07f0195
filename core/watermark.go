package core

import (
	"sync"
	"time"
)

// Watermark is a non-decreasing position marker over a topic. It is the
// highest sequence number or timestamp an instance has finished attempting
// to process. Advance never moves it backwards.
type Watermark[T any] struct {
	mu    sync.RWMutex
	value T
	less  func(a, b T) bool
}

// NewSequenceWatermark creates a watermark over sequence numbers.
func NewSequenceWatermark(start int64) *Watermark[int64] {
	return &Watermark[int64]{value: start, less: func(a, b int64) bool { return a < b }}
}

// NewTimestampWatermark creates a watermark over consensus timestamps.
func NewTimestampWatermark(start time.Time) *Watermark[time.Time] {
	return &Watermark[time.Time]{value: start, less: func(a, b time.Time) bool { return a.Before(b) }}
}

// Value returns the current position.
func (w *Watermark[T]) Value() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.value
}

// Beyond reports whether v lies strictly after the current position.
func (w *Watermark[T]) Beyond(v T) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.less(w.value, v)
}

// Advance moves the position to v if v is beyond it and reports whether it moved.
func (w *Watermark[T]) Advance(v T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.less(w.value, v) {
		return false
	}
	w.value = v
	return true
}

// SeenSet tracks request ids already turned into connections. It is safe for
// concurrent use.
type SeenSet struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewSeenSet builds a set pre-populated with ids.
func NewSeenSet(ids ...int64) *SeenSet {
	s := &SeenSet{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Add records id and reports whether it was new.
func (s *SeenSet) Add(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains reports whether id was recorded.
func (s *SeenSet) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of recorded ids.
func (s *SeenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
