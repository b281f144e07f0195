package core

import (
	"fmt"
	"sync"
)

// AttemptBudget enforces a maximum number of attempts for a bounded wait
// (confirmation polling, response correlation).
type AttemptBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewAttemptBudget creates a budget allowing max attempts.
// If max <= 0, a single attempt is allowed.
func NewAttemptBudget(max int) *AttemptBudget {
	if max <= 0 {
		max = 1
	}
	return &AttemptBudget{max: max}
}

// Take consumes one attempt and returns an error once the budget is exhausted.
func (b *AttemptBudget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.max {
		return fmt.Errorf("exceeded max attempts: %d", b.max)
	}
	b.count++

	return nil
}

// Used returns the number of attempts consumed.
func (b *AttemptBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}

// Remaining returns how many attempts are left.
func (b *AttemptBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.max - b.count
}

// Last reports whether the most recent attempt was the final one.
func (b *AttemptBudget) Last() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count >= b.max
}
