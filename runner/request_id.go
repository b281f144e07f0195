package runner

import (
	"sync"
	"time"
)

// requestIDs issues strictly increasing query ids based on the wall clock in
// milliseconds, which stay exact when carried as JSON numbers.
type requestIDs struct {
	mu   sync.Mutex
	last int64
}

func (g *requestIDs) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := time.Now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
