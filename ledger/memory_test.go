package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/topicmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_AppendAssignsSequenceAndTime(t *testing.T) {
	s := NewInMemoryStore()
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return frozen }
	ctx := context.Background()

	topic, err := s.CreateTopic(ctx, "memo")
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", topic)

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, topic, Record{Operation: core.OpMessage, Payload: "x"})
		require.NoError(t, err)
	}

	entries, err := s.Entries(ctx, topic)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.SequenceNumber)
		if i > 0 {
			assert.True(t, e.ConsensusTimestamp.After(entries[i-1].ConsensusTimestamp), "timestamps strictly increase")
		}
	}

	memo, ok := s.Memo(topic)
	assert.True(t, ok)
	assert.Equal(t, "memo", memo)
}

func TestInMemoryStore_UnknownTopic(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Append(context.Background(), "0.0.9", Record{})
	assert.ErrorIs(t, err, core.ErrTopicNotFound)
	_, err = s.Entries(context.Background(), "0.0.9")
	assert.ErrorIs(t, err, core.ErrTopicNotFound)
}

func TestInMemoryStore_EntriesAreCopies(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	topic, _ := s.CreateTopic(ctx, "")
	_, _ = s.Append(ctx, topic, Record{Payload: "original"})

	entries, _ := s.Entries(ctx, topic)
	entries[0].Payload = "mutated"

	again, _ := s.Entries(ctx, topic)
	assert.Equal(t, "original", again[0].Payload)
}

func TestNextTimestamp(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, last.Add(time.Nanosecond), NextTimestamp(last, last))
	assert.Equal(t, last.Add(time.Nanosecond), NextTimestamp(last, last.Add(-time.Hour)))
	later := last.Add(time.Second)
	assert.Equal(t, later, NextTimestamp(last, later))
}
