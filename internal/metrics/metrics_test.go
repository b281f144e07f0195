package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNoopRecorder(t *testing.T) {
	r := Noop()
	require.NotNil(t, r)
	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.Poll(ctx, "monitor", "0.0.1", nil)
		r.Poll(ctx, "monitor", "0.0.1", errors.New("x"))
		r.Emitted(ctx, "0.0.1")
		r.Dropped(ctx, "0.0.1", "resolve")
		r.Established(ctx, "0.0.2", true)
		r.Attempt(ctx, "0.0.2")
	})
}

func TestNewAndOrNoop(t *testing.T) {
	r, err := New(noop.NewMeterProvider().Meter(InstrumentName))
	require.NoError(t, err)
	assert.Same(t, r, OrNoop(r))
	assert.NotNil(t, OrNoop(nil))
}
