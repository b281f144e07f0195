package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/topicmesh/core"
)

// Record is an entry to append. The store assigns the sequence number and
// consensus timestamp.
type Record struct {
	Operation  core.OperationKind
	OperatorID string
	Payload    string
	Memo       string
}

// Store persists append-only topics.
type Store interface {
	// CreateTopic allocates a new, empty topic and returns its id.
	CreateTopic(ctx context.Context, memo string) (string, error)
	// Append adds rec to topicID and returns the stored entry. Unknown topics
	// yield core.ErrTopicNotFound.
	Append(ctx context.Context, topicID string, rec Record) (core.LogEntry, error)
	// Entries returns every entry of topicID in sequence order.
	Entries(ctx context.Context, topicID string) ([]core.LogEntry, error)
	// Close releases the store's resources.
	Close() error
}

// TopicID formats the n-th allocated topic id.
func TopicID(n uint64) string { return fmt.Sprintf("0.0.%d", n) }

// NextTimestamp returns now in UTC, or the instant right after last when the
// clock has not moved past it.
func NextTimestamp(last, now time.Time) time.Time {
	now = now.UTC()
	if !now.After(last) {
		return last.Add(time.Nanosecond)
	}
	return now
}

// Entry builds the stored form of rec.
func Entry(rec Record, seq int64, ts time.Time) core.LogEntry {
	return core.LogEntry{
		SequenceNumber:     seq,
		ConsensusTimestamp: ts,
		OperatorID:         rec.OperatorID,
		Operation:          rec.Operation,
		Payload:            rec.Payload,
		Memo:               rec.Memo,
	}
}
