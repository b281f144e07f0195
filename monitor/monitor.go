package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/internal/metrics"
	"github.com/hupe1980/topicmesh/internal/poller"
	"github.com/hupe1980/topicmesh/logging"
)

// Client is the part of the log client a Monitor needs.
type Client interface {
	core.Fetcher
	core.Resolver
}

// Options configures a Monitor.
type Options struct {
	// PollInterval is the delay between polls.
	PollInterval time.Duration
	// StartAfter sets the initial watermark; entries at or before it are
	// never emitted. The zero value replays the whole topic.
	StartAfter time.Time
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
	// Metrics defaults to a noop recorder.
	Metrics *metrics.Recorder
}

// Monitor polls one topic and emits its messages in consensus order.
type Monitor struct {
	client    Client
	topicID   string
	logger    logging.Logger
	metrics   *metrics.Recorder
	poller    *poller.Poller
	watermark *core.Watermark[time.Time]
	observers core.Observers[core.MessageObserver]
}

// New creates a stopped Monitor for topicID.
func New(client Client, topicID string, optFns ...func(o *Options)) *Monitor {
	opts := Options{
		PollInterval: 3 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Monitor{
		client:    client,
		topicID:   topicID,
		logger:    logging.Scoped(opts.Logger, "monitor", topicID),
		metrics:   metrics.OrNoop(opts.Metrics),
		watermark: core.NewTimestampWatermark(opts.StartAfter),
	}
	m.poller = poller.New(opts.PollInterval, m.poll)

	return m
}

// TopicID returns the monitored topic.
func (m *Monitor) TopicID() string { return m.topicID }

// AddObserver registers an observer for messages and poll errors.
func (m *Monitor) AddObserver(obs core.MessageObserver) { m.observers.Add(obs) }

// Start begins polling. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) *Monitor {
	if m.poller.Start(ctx) {
		m.logger.Info("Starting message monitor for topic %s", m.topicID)
	}
	return m
}

// Stop prevents the next poll. A poll already in flight finishes.
func (m *Monitor) Stop() {
	if !m.poller.Running() {
		return
	}
	m.poller.Stop()
	m.logger.Info("Stopped message monitor for topic %s", m.topicID)
}

// Running reports whether the poll loop is scheduled.
func (m *Monitor) Running() bool { return m.poller.Running() }

// Done is closed once the poll loop has exited.
func (m *Monitor) Done() <-chan struct{} { return m.poller.Done() }

// SetPollInterval changes the delay used for the next reschedule.
func (m *Monitor) SetPollInterval(d time.Duration) *Monitor {
	m.poller.SetInterval(d)
	return m
}

// PollOnce runs a single poll cycle unless one is in flight and reports
// whether it ran.
func (m *Monitor) PollOnce(ctx context.Context) bool { return m.poller.TryRun(ctx) }

// Watermark returns the consensus timestamp of the last consumed entry.
func (m *Monitor) Watermark() time.Time { return m.watermark.Value() }

func (m *Monitor) poll(ctx context.Context) {
	start := time.Now()

	entries, err := m.client.FetchMessages(ctx, m.topicID)
	m.metrics.Poll(ctx, "monitor", m.topicID, err)
	if err != nil {
		logging.Poll(m.logger, m.topicID, 0, 0, time.Since(start), err)
		m.emitError(fmt.Errorf("poll topic %s: %w", m.topicID, err))
		return
	}

	fresh := make([]core.LogEntry, 0, len(entries))
	for _, e := range entries {
		if m.watermark.Beyond(e.ConsensusTimestamp) {
			fresh = append(fresh, e)
		}
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].ConsensusTimestamp.Before(fresh[j].ConsensusTimestamp)
	})

	emitted := 0
	for _, e := range fresh {
		if ctx.Err() != nil {
			return
		}
		if !m.watermark.Beyond(e.ConsensusTimestamp) {
			continue
		}
		if e.Operation == core.OpMessage && m.process(ctx, e) {
			emitted++
		}
		m.watermark.Advance(e.ConsensusTimestamp)
	}

	logging.Poll(m.logger, m.topicID, len(entries), emitted, time.Since(start), nil)
}

func (m *Monitor) process(ctx context.Context, e core.LogEntry) bool {
	if core.IsLargeContentRef(e.Payload) {
		m.logger.Debug("Resolving large content reference: %s", e.Payload)
	}

	msg, err := Normalize(ctx, m.client, e)
	if err != nil {
		m.logger.Error("Failed to resolve content reference: %v", err)
		m.metrics.Dropped(ctx, m.topicID, "resolution")
		return false
	}

	m.metrics.Emitted(ctx, m.topicID)
	m.observers.Each(func(o core.MessageObserver) { o.OnMessage(msg) })

	return true
}

func (m *Monitor) emitError(err error) {
	m.observers.Each(func(o core.MessageObserver) { o.OnError(err) })
}
