package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topic = "0.0.50"

type sink struct {
	mu   sync.Mutex
	msgs []core.Message
	errs []error
}

func (s *sink) OnMessage(msg core.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *sink) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *sink) ids() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.msgs))
	for _, m := range s.msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func newMonitor(client Client, optFns ...func(o *Options)) (*Monitor, *sink) {
	m := New(client, topic, optFns...)
	s := &sink{}
	m.AddObserver(s)
	return m, s
}

func TestMonitor_EmitsInConsensusOrder(t *testing.T) {
	client := testutil.NewFakeClient().Script(topic, []core.LogEntry{
		testutil.NewEntryBuilder().Seq(3).Message("third").Build(),
		testutil.NewEntryBuilder().Seq(1).Message("first").Build(),
		testutil.NewEntryBuilder().Seq(2).Message("second").Build(),
	})
	m, s := newMonitor(client)

	m.PollOnce(context.Background())

	assert.Equal(t, []int64{1, 2, 3}, s.ids())
	assert.Equal(t, testutil.At(3), m.Watermark())
	text, ok := s.msgs[0].Text()
	assert.True(t, ok)
	assert.Equal(t, "first", text)
	assert.Equal(t, "0.0.1@0.0.100", s.msgs[0].Sender)
}

func TestMonitor_NoDuplicatesAcrossPolls(t *testing.T) {
	first := []core.LogEntry{
		testutil.NewEntryBuilder().Seq(1).Message("a").Build(),
		testutil.NewEntryBuilder().Seq(2).Message("b").Build(),
	}
	second := append(append([]core.LogEntry{}, first...), testutil.NewEntryBuilder().Seq(3).Message("c").Build())
	client := testutil.NewFakeClient().Script(topic, first, second, second)
	m, s := newMonitor(client)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.PollOnce(ctx)
	}

	assert.Equal(t, []int64{1, 2, 3}, s.ids())
}

func TestMonitor_DuplicateCopiesInBatch(t *testing.T) {
	e := testutil.NewEntryBuilder().Seq(1).Message("once").Build()
	client := testutil.NewFakeClient().Script(topic, []core.LogEntry{e, e})
	m, s := newMonitor(client)

	m.PollOnce(context.Background())
	assert.Equal(t, []int64{1}, s.ids())
}

func TestMonitor_NonMessageEntriesAdvanceWatermark(t *testing.T) {
	client := testutil.NewFakeClient().Script(topic, []core.LogEntry{
		testutil.NewEntryBuilder().Seq(1).Message("hello").Build(),
		testutil.NewEntryBuilder().Seq(2).Op(core.OpCloseConnection).Build(),
	})
	m, s := newMonitor(client)

	m.PollOnce(context.Background())
	assert.Equal(t, []int64{1}, s.ids())
	assert.Equal(t, testutil.At(2), m.Watermark())
}

func TestMonitor_StartAfterSkipsOlderEntries(t *testing.T) {
	client := testutil.NewFakeClient().Script(topic, []core.LogEntry{
		testutil.NewEntryBuilder().Seq(1).Message("old").Build(),
		testutil.NewEntryBuilder().Seq(2).Message("boundary").Build(),
		testutil.NewEntryBuilder().Seq(3).Message("new").Build(),
	})
	m, s := newMonitor(client, func(o *Options) { o.StartAfter = testutil.At(2) })

	m.PollOnce(context.Background())
	assert.Equal(t, []int64{3}, s.ids())
}

func TestMonitor_DecodesStructuredPayloads(t *testing.T) {
	client := testutil.NewFakeClient().Script(topic, []core.LogEntry{
		testutil.NewEntryBuilder().Seq(1).JSON(map[string]any{"type": "query", "requestId": 4}).Build(),
		testutil.NewEntryBuilder().Seq(2).Message("[1,2]").Build(),
		testutil.NewEntryBuilder().Seq(3).Message("{not json").Build(),
		testutil.NewEntryBuilder().Seq(4).Message(`  {"padded":true}`).Build(),
	})
	m, s := newMonitor(client)

	m.PollOnce(context.Background())
	require.Len(t, s.msgs, 4)

	env, err := s.msgs[0].Envelope()
	require.NoError(t, err)
	assert.True(t, env.Matches(core.PayloadQuery, 4))

	assert.Equal(t, []any{float64(1), float64(2)}, s.msgs[1].Data)
	assert.Equal(t, "{not json", s.msgs[2].Data)
	assert.Equal(t, `  {"padded":true}`, s.msgs[3].Data)
}

func TestMonitor_ResolvesLargeContentBeforeDecoding(t *testing.T) {
	ref := core.LargeContentPrefix + "0.0.99"
	client := testutil.NewFakeClient().Script(topic, []core.LogEntry{
		testutil.NewEntryBuilder().Seq(1).Message(ref).Memo("big").Build(),
	})
	client.Resolved[ref] = `{"type":"response","requestId":1,"answer":"long"}`
	m, s := newMonitor(client)

	m.PollOnce(context.Background())
	require.Len(t, s.msgs, 1)
	assert.True(t, s.msgs[0].IsStructured())
	assert.True(t, s.msgs[0].Meta.IsLargeContent)
	assert.Equal(t, "big", s.msgs[0].Meta.Memo)
	assert.Equal(t, ref, s.msgs[0].Meta.Raw.Payload)
}

func TestMonitor_ResolutionFailureDropsOnlyThatEntry(t *testing.T) {
	client := testutil.NewFakeClient().Script(topic, []core.LogEntry{
		testutil.NewEntryBuilder().Seq(1).Message(core.LargeContentPrefix + "0.0.404").Build(),
		testutil.NewEntryBuilder().Seq(2).Message("after").Build(),
	})
	m, s := newMonitor(client)

	ctx := context.Background()
	m.PollOnce(ctx)
	m.PollOnce(ctx)

	assert.Equal(t, []int64{2}, s.ids())
	assert.Empty(t, s.errs)
	assert.Equal(t, 1, client.Resolves(), "a dropped entry is not retried")
}

func TestMonitor_FetchErrorKeepsPolling(t *testing.T) {
	client := testutil.NewFakeClient().
		Script(topic, []core.LogEntry{testutil.NewEntryBuilder().Seq(1).Message("x").Build()}).
		FailFetch(topic, 0, errors.New("timeout"))
	m, s := newMonitor(client, func(o *Options) { o.PollInterval = time.Millisecond })

	m.Start(context.Background())
	defer m.Stop()

	assert.Eventually(t, func() bool { return len(s.ids()) == 1 }, time.Second, time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.errs, 1)
	assert.Contains(t, s.errs[0].Error(), "timeout")
}

func TestMonitor_StopAndContextCancel(t *testing.T) {
	client := testutil.NewFakeClient()
	m, _ := newMonitor(client, func(o *Options) { o.PollInterval = time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx).Start(ctx)
	assert.True(t, m.Running())
	cancel()
	<-m.Done()
	assert.False(t, m.Running())

	m.Start(context.Background())
	assert.True(t, m.Running())
	m.SetPollInterval(time.Hour)
	m.Stop()
	m.Stop()
	<-m.Done()
	assert.False(t, m.Running())
}
