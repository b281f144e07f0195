// Package topicmesh is a small façade for hosting several agents on one
// topic ledger. Most applications:
//  1. Open a ledger.Store (in memory or Pebble) and create a Mesh with New()
//  2. Host one agent per account with Host, optionally with an Answerer
//  3. Connect agents to each other and Ask over the returned connections
//
// Each hosted agent is a runner.Runner bound to its own ledger.Client; the
// Mesh only owns their lifecycle.
package topicmesh

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/internal/metrics"
	"github.com/hupe1980/topicmesh/ledger"
	"github.com/hupe1980/topicmesh/logging"
	"github.com/hupe1980/topicmesh/runner"
)

// Options configures the Mesh.
type Options struct {
	// LargeContentThreshold is passed to every agent's ledger client.
	LargeContentThreshold int
	// Runner is applied to every hosted agent before per-agent overrides.
	Runner func(o *runner.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Metrics defaults to a noop recorder.
	Metrics *metrics.Recorder
}

// AgentConfig describes one hosted agent.
type AgentConfig struct {
	Name      string
	AccountID string
	// InboundTopicID reuses an existing inbound topic. Empty creates one.
	InboundTopicID string
	// Answerer may be nil, in which case queries are echoed.
	Answerer runner.Answerer
	// Connections restores previously established connections. When empty
	// and InboundTopicID is set, the accepted connections are rebuilt from
	// the inbound topic.
	Connections []core.Connection
}

// Agent is a hosted agent.
type Agent struct {
	*runner.Runner

	Name   string
	Client *ledger.Client
}

// InboundTopicID returns the topic the agent accepts connections on.
func (a *Agent) InboundTopicID() string { return a.Client.InboundTopicID() }

// Mesh hosts agents that share one ledger.
type Mesh struct {
	store ledger.Store
	opts  Options

	mu     sync.Mutex
	agents []*Agent
}

// New creates a Mesh on store. The store stays owned by the caller.
func New(store ledger.Store, optFns ...func(o *Options)) *Mesh {
	opts := Options{
		LargeContentThreshold: ledger.DefaultLargeContentThreshold,
		Logger:                logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Mesh{store: store, opts: opts}
}

// Host creates the agent's client, binds or creates its inbound topic and
// starts its runner. optFns override the mesh-wide runner options.
func (m *Mesh) Host(ctx context.Context, cfg AgentConfig, optFns ...func(o *runner.Options)) (*Agent, error) {
	logger := logging.Scoped(m.opts.Logger, cfg.Name, "")

	client := ledger.NewClient(m.store, cfg.AccountID, func(o *ledger.ClientOptions) {
		o.InboundTopicID = cfg.InboundTopicID
		o.LargeContentThreshold = m.opts.LargeContentThreshold
		o.Logger = logger
	})

	connections := cfg.Connections
	if client.InboundTopicID() == "" {
		if _, err := client.CreateInboundTopic(ctx); err != nil {
			return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
		}
	} else if len(connections) == 0 {
		restored, err := client.RestoreConnections(ctx, client.InboundTopicID())
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
		}
		connections = restored
	}

	r, err := runner.New(client, client.InboundTopicID(), func(o *runner.Options) {
		if m.opts.Runner != nil {
			m.opts.Runner(o)
		}
		o.Answerer = cfg.Answerer
		o.Connections = connections
		o.Logger = logger
		o.Metrics = m.opts.Metrics
		for _, fn := range optFns {
			fn(o)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
	}

	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
	}

	a := &Agent{Runner: r, Name: cfg.Name, Client: client}

	m.mu.Lock()
	m.agents = append(m.agents, a)
	m.mu.Unlock()

	return a, nil
}

// Agents returns the hosted agents in hosting order.
func (m *Mesh) Agents() []*Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Agent, len(m.agents))
	copy(out, m.agents)
	return out
}

// Agent returns the hosted agent with the given name.
func (m *Mesh) Agent(name string) (*Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Stop stops every hosted agent.
func (m *Mesh) Stop() {
	m.mu.Lock()
	agents := m.agents
	m.agents = nil
	m.mu.Unlock()

	for _, a := range agents {
		a.Stop()
	}
}
