package pebblestore

import (
	"context"
	"testing"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresDataDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestAppendAndEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	topic, err := s.CreateTopic(ctx, "inbound")
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", topic)

	for _, p := range []string{"a", "b", "c"} {
		_, err := s.Append(ctx, topic, ledger.Record{Operation: core.OpMessage, OperatorID: "0.0.1@0.0.9", Payload: p, Memo: "m"})
		require.NoError(t, err)
	}

	entries, err := s.Entries(ctx, topic)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.SequenceNumber)
		assert.Equal(t, "0.0.9", e.AccountID())
		if i > 0 {
			assert.True(t, e.ConsensusTimestamp.After(entries[i-1].ConsensusTimestamp))
		}
	}
	assert.Equal(t, "c", entries[2].Payload)

	memo, err := s.Memo(topic)
	require.NoError(t, err)
	assert.Equal(t, "inbound", memo)
}

func TestTopicsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var topics []string
	for i := 0; i < 11; i++ {
		id, err := s.CreateTopic(ctx, "")
		require.NoError(t, err)
		topics = append(topics, id)
	}
	// 0.0.1 is a string prefix of 0.0.10 and 0.0.11.
	_, err := s.Append(ctx, "0.0.10", ledger.Record{Payload: "ten"})
	require.NoError(t, err)

	entries, err := s.Entries(ctx, "0.0.1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "0.0.11", topics[10])
}

func TestUnknownTopic(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Append(context.Background(), "0.0.5", ledger.Record{})
	assert.ErrorIs(t, err, core.ErrTopicNotFound)
	_, err = s.Entries(context.Background(), "0.0.5")
	assert.ErrorIs(t, err, core.ErrTopicNotFound)
}

func TestDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Options{DataDir: dir, Sync: true})
	require.NoError(t, err)
	topic, err := s.CreateTopic(ctx, "")
	require.NoError(t, err)
	first, err := s.Append(ctx, topic, ledger.Record{Payload: "x"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(Options{DataDir: dir})
	require.NoError(t, err)
	defer s.Close()

	second, err := s.Append(ctx, topic, ledger.Record{Payload: "y"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.SequenceNumber)
	assert.True(t, second.ConsensusTimestamp.After(first.ConsensusTimestamp))

	next, err := s.CreateTopic(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "0.0.2", next)
}

func TestClientOverPebble(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := ledger.NewClient(s, "0.0.7", func(o *ledger.ClientOptions) { o.LargeContentThreshold = 8 })
	_, err := c.CreateInboundTopic(ctx)
	require.NoError(t, err)

	_, err = c.Send(ctx, c.InboundTopicID(), "a payload longer than eight bytes", "")
	require.NoError(t, err)

	entries, err := c.FetchMessages(ctx, c.InboundTopicID())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := c.ResolveLargeContent(ctx, entries[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "a payload longer than eight bytes", content)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	ctx := context.Background()

	topic, err := s.CreateTopic(ctx, "")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Entries(ctx, topic)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Append(ctx, topic, ledger.Record{Payload: "x"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.CreateTopic(ctx, "")
	assert.ErrorIs(t, err, ErrClosed)
}
