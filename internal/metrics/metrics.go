// Package metrics wraps OpenTelemetry counters used by the pollers. The
// default Recorder is backed by a noop meter so instrumentation costs
// nothing unless a real MeterProvider is installed.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// InstrumentName is the instrumentation scope for all topicmesh meters.
const InstrumentName = "github.com/hupe1980/topicmesh"

// Recorder records poll, delivery, handshake and correlation counters.
type Recorder struct {
	polls       metric.Int64Counter
	pollErrors  metric.Int64Counter
	emitted     metric.Int64Counter
	dropped     metric.Int64Counter
	established metric.Int64Counter
	attempts    metric.Int64Counter
}

// Noop returns a Recorder that discards all measurements.
func Noop() *Recorder {
	r, _ := New(noop.Meter{})
	return r
}

// New creates a Recorder on the given meter.
func New(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error
	if r.polls, err = meter.Int64Counter("topicmesh.polls", metric.WithDescription("Poll cycles executed")); err != nil {
		return nil, err
	}
	if r.pollErrors, err = meter.Int64Counter("topicmesh.poll.errors", metric.WithDescription("Poll cycles that failed to fetch")); err != nil {
		return nil, err
	}
	if r.emitted, err = meter.Int64Counter("topicmesh.messages.emitted", metric.WithDescription("Messages delivered to observers")); err != nil {
		return nil, err
	}
	if r.dropped, err = meter.Int64Counter("topicmesh.messages.dropped", metric.WithDescription("Entries dropped during processing")); err != nil {
		return nil, err
	}
	if r.established, err = meter.Int64Counter("topicmesh.connections.established", metric.WithDescription("Connections established")); err != nil {
		return nil, err
	}
	if r.attempts, err = meter.Int64Counter("topicmesh.correlate.attempts", metric.WithDescription("Response correlation fetch attempts")); err != nil {
		return nil, err
	}
	return r, nil
}

// OrNoop returns r, or a noop Recorder when r is nil.
func OrNoop(r *Recorder) *Recorder {
	if r == nil {
		return Noop()
	}
	return r
}

func topic(topicID string) metric.AddOption {
	return metric.WithAttributes(attribute.String("topic_id", topicID))
}

// Poll records one poll cycle, counting an error when err is non-nil.
func (r *Recorder) Poll(ctx context.Context, component, topicID string, err error) {
	opt := metric.WithAttributes(attribute.String("component", component), attribute.String("topic_id", topicID))
	r.polls.Add(ctx, 1, opt)
	if err != nil {
		r.pollErrors.Add(ctx, 1, opt)
	}
}

// Emitted records a delivered message.
func (r *Recorder) Emitted(ctx context.Context, topicID string) { r.emitted.Add(ctx, 1, topic(topicID)) }

// Dropped records an entry dropped for reason.
func (r *Recorder) Dropped(ctx context.Context, topicID, reason string) {
	r.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("topic_id", topicID), attribute.String("reason", reason)))
}

// Established records a new connection.
func (r *Recorder) Established(ctx context.Context, topicID string, initiator bool) {
	r.established.Add(ctx, 1, metric.WithAttributes(attribute.String("topic_id", topicID), attribute.Bool("initiator", initiator)))
}

// Attempt records a correlation fetch attempt.
func (r *Recorder) Attempt(ctx context.Context, topicID string) { r.attempts.Add(ctx, 1, topic(topicID)) }
