package connection

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/internal/metrics"
	"github.com/hupe1980/topicmesh/internal/poller"
	"github.com/hupe1980/topicmesh/logging"
)

const (
	// DefaultRequestMemo is used when InitiateConnection is called without a memo.
	DefaultRequestMemo = "Connection request"
	// DefaultCloseReason is used when CloseConnection is called without a reason.
	DefaultCloseReason = "Connection closed"
	// CloseMemo is attached to close notifications.
	CloseMemo = "Connection close"
)

// Options configures a Manager.
type Options struct {
	// PollInterval is the delay between inbound topic polls.
	PollInterval time.Duration
	// ConfirmAttempts bounds the outbound confirmation wait.
	ConfirmAttempts int
	// ConfirmInterval is the delay between confirmation polls.
	ConfirmInterval time.Duration
	// Connections restores previously established connections. Inbound ones
	// seed the duplicate request set.
	Connections []core.Connection
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
	// Metrics defaults to a noop recorder.
	Metrics *metrics.Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager owns the connections produced from one inbound topic. Public
// methods are safe for concurrent use; lookups return copies.
type Manager struct {
	client          core.LogClient
	inboundTopicID  string
	confirmAttempts int
	confirmInterval time.Duration
	logger          logging.Logger
	metrics         *metrics.Recorder
	now             func() time.Time

	poller    *poller.Poller
	watermark *core.Watermark[int64]
	seen      *core.SeenSet
	observers core.Observers[core.ConnectionObserver]

	mu          sync.RWMutex
	connections map[string]*core.Connection
	order       []string
}

// New creates a Manager for inboundTopicID. Monitoring does not start until
// StartMonitoring is called.
func New(client core.LogClient, inboundTopicID string, optFns ...func(o *Options)) *Manager {
	opts := Options{
		PollInterval:    3 * time.Second,
		ConfirmAttempts: 60,
		ConfirmInterval: 2 * time.Second,
		Now:             time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Manager{
		client:          client,
		inboundTopicID:  inboundTopicID,
		confirmAttempts: opts.ConfirmAttempts,
		confirmInterval: opts.ConfirmInterval,
		logger:          logging.Scoped(opts.Logger, "connection", inboundTopicID),
		metrics:         metrics.OrNoop(opts.Metrics),
		now:             opts.Now,
		watermark:       core.NewSequenceWatermark(0),
		seen:            core.NewSeenSet(),
		connections:     make(map[string]*core.Connection),
	}
	m.poller = poller.New(opts.PollInterval, m.poll)

	for _, c := range opts.Connections {
		m.connections[c.ID] = &c
		m.order = append(m.order, c.ID)
		if !c.Metadata.Initiator {
			m.seen.Add(c.Metadata.RequestID)
		}
	}

	return m
}

// InboundTopicID returns the topic this manager accepts requests on.
func (m *Manager) InboundTopicID() string { return m.inboundTopicID }

// AddObserver registers an observer for connection lifecycle events.
func (m *Manager) AddObserver(obs core.ConnectionObserver) { m.observers.Add(obs) }

// StartMonitoring begins polling the inbound topic. Calling it while already
// monitoring is a no-op; the same manager is returned either way.
func (m *Manager) StartMonitoring(ctx context.Context) *Manager {
	if m.poller.Start(ctx) {
		m.logger.Info("Starting connection monitoring for %s", m.inboundTopicID)
	}
	return m
}

// StopMonitoring prevents the next poll. A poll already in flight finishes.
func (m *Manager) StopMonitoring() {
	if !m.poller.Running() {
		return
	}
	m.poller.Stop()
	m.logger.Info("Connection monitoring stopped")
}

// Monitoring reports whether the poll loop is scheduled.
func (m *Manager) Monitoring() bool { return m.poller.Running() }

// Done is closed once the poll loop has exited.
func (m *Manager) Done() <-chan struct{} { return m.poller.Done() }

// PollOnce runs a single poll cycle unless one is already in flight and
// reports whether it ran.
func (m *Manager) PollOnce(ctx context.Context) bool { return m.poller.TryRun(ctx) }

// Watermark returns the highest processed connection request sequence number.
func (m *Manager) Watermark() int64 { return m.watermark.Value() }

// InitiateConnection asks the agent behind targetInboundTopicID to connect and
// blocks until it confirms or the confirmation budget is exhausted. Failures
// are returned unchanged in meaning and no connection is recorded.
func (m *Manager) InitiateConnection(ctx context.Context, targetInboundTopicID, memo string) (core.ConnectionEstablished, error) {
	if memo == "" {
		memo = DefaultRequestMemo
	}

	m.logger.Info("Initiating connection to %s", targetInboundTopicID)

	requestID, err := m.client.RequestConnection(ctx, targetInboundTopicID, memo)
	if err != nil {
		logging.Handshake(m.logger, "", "", targetInboundTopicID, true, err)
		return core.ConnectionEstablished{}, fmt.Errorf("request connection to %s: %w", targetInboundTopicID, err)
	}

	m.logger.Info("Connection request sent with ID: %d", requestID)

	confirmation, err := m.client.AwaitConfirmation(ctx, targetInboundTopicID, requestID, m.confirmAttempts, m.confirmInterval)
	if err != nil {
		logging.Handshake(m.logger, "", "", targetInboundTopicID, true, err)
		return core.ConnectionEstablished{}, fmt.Errorf("await confirmation of request %d on %s: %w", requestID, targetInboundTopicID, err)
	}

	conn := m.record(confirmation.ConnectionTopicID, confirmation.TargetAccountID, true, requestID)
	logging.Handshake(m.logger, conn.ID, conn.ConnectionTopicID, conn.TargetAccountID, true, nil)
	m.metrics.Established(ctx, m.inboundTopicID, true)
	m.emitEstablished(conn.Established())

	return conn.Established(), nil
}

// CloseConnection notifies the peer and marks the connection inactive. An
// unknown or already closed id yields (false, nil) without a notification. A
// failed notification yields (false, err) and leaves the connection active.
func (m *Manager) CloseConnection(ctx context.Context, connectionID, reason string) (bool, error) {
	if reason == "" {
		reason = DefaultCloseReason
	}

	conn, ok := m.Connection(connectionID)
	if !ok {
		m.logger.Warn("Connection not found: %s", connectionID)
		return false, nil
	}
	if !conn.IsActive {
		m.logger.Warn("Connection already closed: %s", connectionID)
		return false, nil
	}

	payload, err := core.EncodePayload(core.NewCloseConnection(reason, m.now()))
	if err != nil {
		return false, err
	}

	if _, err := m.client.Send(ctx, conn.ConnectionTopicID, payload, CloseMemo); err != nil {
		m.logger.Error("Failed to close connection: %s: %v", connectionID, err)
		return false, fmt.Errorf("send close notification for %s: %w", connectionID, err)
	}

	if !m.setInactive(connectionID) {
		// Closed concurrently, by the peer or another caller.
		return false, nil
	}
	m.logger.Info("Connection closed: %s", connectionID)
	m.emitClosed(core.ConnectionClosed{ID: connectionID, Reason: reason})

	return true, nil
}

// MarkClosed flips an active connection inactive without notifying the peer,
// typically because the peer sent the close notification. It reports whether
// the connection changed state.
func (m *Manager) MarkClosed(connectionID, reason string) bool {
	if !m.setInactive(connectionID) {
		return false
	}
	m.logger.Info("Connection closed by peer: %s", connectionID)
	m.emitClosed(core.ConnectionClosed{ID: connectionID, Reason: reason})
	return true
}

// Touch records activity on a connection.
func (m *Manager) Touch(connectionID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.connections[connectionID]; ok && at.After(c.LastActivity) {
		c.LastActivity = at
	}
}

// Connections returns the active connections in creation order.
func (m *Manager) Connections() []core.ConnectionEstablished {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]core.ConnectionEstablished, 0, len(m.order))
	for _, id := range m.order {
		if c := m.connections[id]; c.IsActive {
			result = append(result, c.Established())
		}
	}
	return result
}

// AllConnections returns every connection ever recorded, closed ones included.
func (m *Manager) AllConnections() []core.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]core.Connection, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.connections[id])
	}
	return result
}

// Connection returns a copy of the connection with the given id.
func (m *Manager) Connection(connectionID string) (core.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[connectionID]
	if !ok {
		return core.Connection{}, false
	}
	return *c, true
}

// ConnectionByTopicID returns a copy of the connection using topicID.
func (m *Manager) ConnectionByTopicID(topicID string) (core.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if c := m.connections[id]; c.ConnectionTopicID == topicID {
			return *c, true
		}
	}
	return core.Connection{}, false
}

// poll runs one inbound handshake cycle. It is only ever invoked through the
// poller, which guarantees a single cycle in flight.
func (m *Manager) poll(ctx context.Context) {
	start := m.now()

	entries, err := m.client.FetchMessages(ctx, m.inboundTopicID)
	m.metrics.Poll(ctx, "connection", m.inboundTopicID, err)
	if err != nil {
		logging.Poll(m.logger, m.inboundTopicID, 0, 0, m.now().Sub(start), err)
		m.emitError(fmt.Errorf("monitor inbound topic %s: %w", m.inboundTopicID, err))
		return
	}

	requests := make([]core.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Operation == core.OpConnectionRequest && m.watermark.Beyond(e.SequenceNumber) {
			requests = append(requests, e)
		}
	}
	sort.SliceStable(requests, func(i, j int) bool { return requests[i].SequenceNumber < requests[j].SequenceNumber })

	accepted := 0
	for _, req := range requests {
		if ctx.Err() != nil {
			return
		}
		// A repeated copy within the batch was already consumed.
		if !m.watermark.Beyond(req.SequenceNumber) {
			continue
		}
		if m.seen.Contains(req.SequenceNumber) {
			m.logger.Debug("Skipping duplicate connection request %d", req.SequenceNumber)
			continue
		}
		if m.accept(ctx, req) {
			accepted++
		}
		m.watermark.Advance(req.SequenceNumber)
	}

	logging.Poll(m.logger, m.inboundTopicID, len(entries), accepted, m.now().Sub(start), nil)
}

// accept turns one connection request into a connection. Failures are logged
// and surfaced as error events.
func (m *Manager) accept(ctx context.Context, req core.LogEntry) bool {
	peer := req.AccountID()
	m.logger.Info("New connection request from: %s", peer)

	if peer == "" {
		err := fmt.Errorf("%w: connection request %d has no operator account", core.ErrMalformedEntry, req.SequenceNumber)
		logging.Handshake(m.logger, "", "", peer, false, err)
		m.emitError(err)
		return false
	}

	acceptance, err := m.client.AcceptConnectionRequest(ctx, m.inboundTopicID, peer, req.SequenceNumber)
	if err != nil {
		err = fmt.Errorf("handle connection request %d from %s: %w", req.SequenceNumber, peer, err)
		logging.Handshake(m.logger, "", "", peer, false, err)
		m.emitError(err)
		return false
	}

	m.seen.Add(req.SequenceNumber)
	conn := m.record(acceptance.ConnectionTopicID, peer, false, req.SequenceNumber)
	logging.Handshake(m.logger, conn.ID, conn.ConnectionTopicID, peer, false, nil)
	m.metrics.Established(ctx, m.inboundTopicID, false)
	m.emitEstablished(conn.Established())

	return true
}

func (m *Manager) record(topicID, peer string, initiator bool, requestID int64) core.Connection {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newConnectionIDLocked(now)
	conn := &core.Connection{
		ID:                id,
		ConnectionTopicID: topicID,
		TargetAccountID:   peer,
		IsActive:          true,
		LastActivity:      now,
		Metadata: core.ConnectionMetadata{
			Initiator: initiator,
			CreatedAt: now.UTC(),
			RequestID: requestID,
		},
	}
	m.connections[id] = conn
	m.order = append(m.order, id)

	return *conn
}

// newConnectionIDLocked generates conn-<unixMillis>-<rand> unique within the
// manager; caller must hold the write lock.
func (m *Manager) newConnectionIDLocked(now time.Time) string {
	for {
		id := fmt.Sprintf("conn-%d-%d", now.UnixMilli(), rand.IntN(1000))
		if _, exists := m.connections[id]; !exists {
			return id
		}
	}
}

func (m *Manager) setInactive(connectionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connections[connectionID]
	if !ok || !c.IsActive {
		return false
	}
	c.IsActive = false
	return true
}

func (m *Manager) emitEstablished(ev core.ConnectionEstablished) {
	m.observers.Each(func(o core.ConnectionObserver) { o.OnConnectionEstablished(ev) })
}

func (m *Manager) emitClosed(ev core.ConnectionClosed) {
	m.observers.Each(func(o core.ConnectionObserver) { o.OnConnectionClosed(ev) })
}

func (m *Manager) emitError(err error) {
	m.observers.Each(func(o core.ConnectionObserver) { o.OnError(err) })
}
