package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/hupe1980/topicmesh/connection"
	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/correlate"
	"github.com/hupe1980/topicmesh/internal/metrics"
	"github.com/hupe1980/topicmesh/logging"
	"github.com/hupe1980/topicmesh/monitor"
)

// QueryMemo is attached to outbound queries.
const QueryMemo = "query"

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Answerer answers inbound queries. Without one, plain queries are echoed
	// and capability queries are answered with "no".
	Answerer Answerer
	// AccountID identifies entries written by this agent so its own messages
	// are not handled. Defaults to the client's AccountID() when available.
	AccountID string
	// PoolSize bounds concurrently answered queries.
	PoolSize int
	// ConnectionPollInterval is the inbound topic poll interval.
	ConnectionPollInterval time.Duration
	// ConfirmAttempts and ConfirmInterval bound outbound handshakes.
	ConfirmAttempts int
	ConfirmInterval time.Duration
	// MonitorPollInterval is the connection topic poll interval.
	MonitorPollInterval time.Duration
	// MaxAttempts and Delay configure response correlation for Ask.
	MaxAttempts int
	Delay       time.Duration
	// Connections restores previously established connections.
	Connections []core.Connection
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
	// Metrics defaults to a noop recorder.
	Metrics *metrics.Recorder
}

// Runner hosts one agent. Public methods are safe for concurrent use.
type Runner struct {
	client    core.LogClient
	accountID string
	answerer  Answerer
	opts      Options
	logger    logging.Logger
	metrics   *metrics.Recorder

	manager   *connection.Manager
	pool      *ants.Pool
	observers core.Observers[core.MessageObserver]
	requests  requestIDs

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	monitors map[string]*monitor.Monitor
}

type accountIdentifier interface {
	AccountID() string
}

// New constructs a Runner for the agent owning inboundTopicID.
func New(client core.LogClient, inboundTopicID string, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{
		PoolSize:               8,
		ConnectionPollInterval: 3 * time.Second,
		ConfirmAttempts:        60,
		ConfirmInterval:        2 * time.Second,
		MonitorPollInterval:    3 * time.Second,
		MaxAttempts:            15,
		Delay:                  2 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.AccountID == "" {
		if ai, ok := client.(accountIdentifier); ok {
			opts.AccountID = ai.AccountID()
		}
	}

	pool, err := ants.NewPool(opts.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query worker pool: %w", err)
	}

	r := &Runner{
		client:    client,
		accountID: opts.AccountID,
		answerer:  opts.Answerer,
		opts:      opts,
		logger:    logging.Scoped(opts.Logger, "runner", inboundTopicID),
		metrics:   metrics.OrNoop(opts.Metrics),
		pool:      pool,
		monitors:  make(map[string]*monitor.Monitor),
	}

	r.manager = connection.New(client, inboundTopicID, func(o *connection.Options) {
		o.PollInterval = opts.ConnectionPollInterval
		o.ConfirmAttempts = opts.ConfirmAttempts
		o.ConfirmInterval = opts.ConfirmInterval
		o.Connections = opts.Connections
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	r.manager.AddObserver(lifecycle{r})

	return r, nil
}

// Manager exposes the underlying connection manager.
func (r *Runner) Manager() *connection.Manager { return r.manager }

// AddMessageObserver registers an observer that receives every message seen
// on any connection, including the agent's own.
func (r *Runner) AddMessageObserver(obs core.MessageObserver) { r.observers.Add(obs) }

// Start begins accepting connections and monitors every active connection.
// Cancelling ctx stops all polling.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.ctx != nil {
		r.mu.Unlock()
		return nil
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.manager.StartMonitoring(r.ctx)
	for _, c := range r.manager.AllConnections() {
		if c.IsActive {
			r.watch(c.ID, c.ConnectionTopicID, c.LastActivity)
		}
	}

	r.logger.Info("Runner started for inbound topic %s", r.manager.InboundTopicID())

	return nil
}

// Stop stops the connection manager, every monitor and the worker pool. A
// stopped Runner cannot be started again.
func (r *Runner) Stop() {
	r.manager.StopMonitoring()

	r.mu.Lock()
	monitors := r.monitors
	r.monitors = make(map[string]*monitor.Monitor)
	cancel := r.cancel
	r.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}

	r.pool.Release()

	if cancel != nil {
		cancel()
	}

	r.logger.Info("Runner stopped")
}

// Connect initiates a connection to the agent behind targetInboundTopicID and
// starts monitoring it.
func (r *Runner) Connect(ctx context.Context, targetInboundTopicID, memo string) (core.ConnectionEstablished, error) {
	return r.manager.InitiateConnection(ctx, targetInboundTopicID, memo)
}

// Ask sends a query on connectionTopicID and waits for the correlated
// response. The boolean is false when no response arrived in time.
func (r *Runner) Ask(ctx context.Context, connectionTopicID, question string, params core.QueryParameters) (core.Response, bool, error) {
	requestID := r.requests.Next()

	payload, err := core.EncodePayload(core.NewQuery(requestID, question, params))
	if err != nil {
		return core.Response{}, false, err
	}

	if _, err := r.client.Send(ctx, connectionTopicID, payload, QueryMemo); err != nil {
		return core.Response{}, false, fmt.Errorf("send query %d: %w", requestID, err)
	}

	r.logger.Info("Sent query %d on %s", requestID, connectionTopicID)

	return correlate.WaitForResponse(ctx, r.client, connectionTopicID, requestID, func(o *correlate.Options) {
		o.MaxAttempts = r.opts.MaxAttempts
		o.Delay = r.opts.Delay
		o.Logger = r.opts.Logger
		o.Metrics = r.opts.Metrics
	})
}

// Send writes a raw payload to a connection topic.
func (r *Runner) Send(ctx context.Context, connectionTopicID, payload, memo string) (core.Receipt, error) {
	return r.client.Send(ctx, connectionTopicID, payload, memo)
}

// Close notifies the peer, marks the connection closed and stops its monitor.
func (r *Runner) Close(ctx context.Context, connectionID, reason string) (bool, error) {
	conn, found := r.manager.Connection(connectionID)

	ok, err := r.manager.CloseConnection(ctx, connectionID, reason)
	if ok && found {
		r.unwatch(conn.ConnectionTopicID)
	}

	return ok, err
}

// Monitoring reports whether a monitor runs for connectionTopicID.
func (r *Runner) Monitoring(connectionTopicID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[connectionTopicID]
	return ok && m.Running()
}

// watch monitors topicID. Entries at or before startAfter are not handled,
// which keeps a restarted agent from answering queries it already saw.
func (r *Runner) watch(connectionID, topicID string, startAfter time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil || r.ctx.Err() != nil {
		return
	}
	if _, ok := r.monitors[topicID]; ok {
		return
	}

	m := monitor.New(r.client, topicID, func(o *monitor.Options) {
		o.PollInterval = r.opts.MonitorPollInterval
		o.StartAfter = startAfter
		o.Logger = r.opts.Logger
		o.Metrics = r.opts.Metrics
	})
	m.AddObserver(&conversation{r: r, connectionID: connectionID, topicID: topicID})
	r.monitors[topicID] = m.Start(r.ctx)
}

func (r *Runner) unwatch(topicID string) {
	r.mu.Lock()
	m, ok := r.monitors[topicID]
	delete(r.monitors, topicID)
	r.mu.Unlock()

	if ok {
		m.Stop()
	}
}

func (r *Runner) context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// lifecycle reacts to connection manager events.
type lifecycle struct{ r *Runner }

func (l lifecycle) OnConnectionEstablished(ev core.ConnectionEstablished) {
	l.r.logger.Info("New connection established: %s to %s", ev.ID, ev.TargetAccountID)
	l.r.watch(ev.ID, ev.TopicID, time.Time{})
}

func (l lifecycle) OnConnectionClosed(ev core.ConnectionClosed) {
	l.r.logger.Info("Connection closed: %s - Reason: %s", ev.ID, ev.Reason)
}

func (l lifecycle) OnError(err error) {
	l.r.logger.Error("Connection manager error: %v", err)
}
