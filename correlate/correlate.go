// Package correlate waits for the reply to a query on a polled topic.
//
// WaitForResponse scans the whole visible log on every attempt instead of
// reading incrementally, so replies interleaved with unrelated traffic or
// appended out of order are still found. Running out of attempts is not an
// error: it is reported through the boolean result and callers decide how to
// substitute an answer, typically with OrFallback.
package correlate

import (
	"context"
	"time"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/internal/metrics"
	"github.com/hupe1980/topicmesh/logging"
	"github.com/hupe1980/topicmesh/monitor"
)

// Client is the part of the log client the correlator needs.
type Client interface {
	core.Fetcher
	core.Resolver
}

// Options configures WaitForResponse.
type Options struct {
	// MaxAttempts is the number of fetches before giving up.
	MaxAttempts int
	// Delay separates consecutive attempts.
	Delay time.Duration
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
	// Metrics defaults to a noop recorder.
	Metrics *metrics.Recorder
}

// WaitForResponse polls topicID until a response entry carrying requestID
// appears. It returns (resp, true, nil) on a match and (zero, false, nil) once
// every attempt came up empty. An error is only returned when ctx ends.
func WaitForResponse(ctx context.Context, client Client, topicID string, requestID int64, optFns ...func(o *Options)) (core.Response, bool, error) {
	opts := Options{
		MaxAttempts: 15,
		Delay:       2 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.Scoped(opts.Logger, "correlate", topicID)
	rec := metrics.OrNoop(opts.Metrics)
	budget := core.NewAttemptBudget(opts.MaxAttempts)

	var lastSeen time.Time

	for budget.Take() == nil {
		if err := ctx.Err(); err != nil {
			return core.Response{}, false, err
		}

		rec.Attempt(ctx, topicID)

		resp, found := scan(ctx, client, topicID, requestID, &lastSeen, logger)
		if found {
			logger.Info("Received response for request %d after %d attempt(s)", requestID, budget.Used())
			return resp, true, nil
		}

		if budget.Last() {
			break
		}

		logger.Debug("No response for request %d yet (attempt %d/%d, last seen %s)",
			requestID, budget.Used(), opts.MaxAttempts, lastSeen.Format(time.RFC3339Nano))

		if err := sleep(ctx, opts.Delay); err != nil {
			return core.Response{}, false, err
		}
	}

	// The last fetch may have failed because ctx ended.
	if err := ctx.Err(); err != nil {
		return core.Response{}, false, err
	}

	logger.Warn("No response for request %d on %s after %d attempts", requestID, topicID, budget.Used())

	return core.Response{}, false, nil
}

// scan looks for the first matching response in one fetch of the topic.
func scan(ctx context.Context, client Client, topicID string, requestID int64, lastSeen *time.Time, logger logging.Logger) (core.Response, bool) {
	entries, err := client.FetchMessages(ctx, topicID)
	if err != nil {
		logger.Error("Error fetching messages from %s: %v", topicID, err)
		return core.Response{}, false
	}

	for _, e := range entries {
		if e.Operation != core.OpMessage {
			continue
		}

		payload, _, err := monitor.Resolve(ctx, client, e)
		if err != nil {
			logger.Error("Skipping entry %d: %v", e.SequenceNumber, err)
			continue
		}

		env, err := core.ParseEnvelope(payload)
		if err != nil {
			continue
		}

		if env.Matches(core.PayloadResponse, requestID) {
			resp, err := env.Response()
			if err != nil {
				logger.Error("Skipping entry %d: %v", e.SequenceNumber, err)
				continue
			}
			return resp, true
		}

		if e.ConsensusTimestamp.After(*lastSeen) {
			*lastSeen = e.ConsensusTimestamp
		}
	}

	return core.Response{}, false
}

// OrFallback returns resp when ok, otherwise fallback.
func OrFallback(resp core.Response, ok bool, fallback core.Response) core.Response {
	if ok {
		return resp
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
