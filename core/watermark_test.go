package core

import (
	"sync"
	"testing"
	"time"
)

func TestSequenceWatermark(t *testing.T) {
	w := NewSequenceWatermark(0)
	if !w.Beyond(1) || w.Beyond(0) {
		t.Fatalf("Beyond must be strict")
	}
	if !w.Advance(5) || w.Value() != 5 {
		t.Fatalf("Advance(5) failed, value=%d", w.Value())
	}
	if w.Advance(3) || w.Advance(5) || w.Value() != 5 {
		t.Fatalf("watermark moved backwards or sideways: %d", w.Value())
	}
}

func TestTimestampWatermark(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := NewTimestampWatermark(base)
	if w.Beyond(base) || w.Beyond(base.Add(-time.Nanosecond)) {
		t.Fatalf("entries at or before the start are not beyond it")
	}
	next := base.Add(time.Millisecond)
	if !w.Advance(next) || !w.Value().Equal(next) {
		t.Fatalf("Advance failed")
	}
	if w.Advance(base) {
		t.Fatalf("older timestamp must not advance")
	}
}

func TestWatermark_ConcurrentAdvanceIsMonotonic(t *testing.T) {
	w := NewSequenceWatermark(0)
	var wg sync.WaitGroup
	for i := int64(1); i <= 100; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			w.Advance(v)
		}(i)
	}
	wg.Wait()
	if w.Value() != 100 {
		t.Fatalf("value = %d, want 100", w.Value())
	}
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet(1, 2)
	if !s.Contains(1) || s.Contains(3) || s.Len() != 2 {
		t.Fatalf("seeded set mismatch")
	}
	if !s.Add(3) || s.Add(3) {
		t.Fatalf("Add must report novelty")
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestAttemptBudget(t *testing.T) {
	b := NewAttemptBudget(2)
	if err := b.Take(); err != nil || b.Last() {
		t.Fatalf("first take: err=%v last=%v", err, b.Last())
	}
	if err := b.Take(); err != nil || !b.Last() || b.Remaining() != 0 {
		t.Fatalf("second take should be the last")
	}
	if err := b.Take(); err == nil {
		t.Fatalf("budget exceeded without error")
	}
	if b.Used() != 2 {
		t.Fatalf("used = %d", b.Used())
	}
	if NewAttemptBudget(0).Remaining() != 1 {
		t.Fatalf("non-positive budgets allow one attempt")
	}
}
