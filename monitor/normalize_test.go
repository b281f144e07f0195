package monitor

import (
	"context"
	"testing"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	assert.Equal(t, "plain", Decode("plain"))
	assert.Equal(t, map[string]any{"a": float64(1)}, Decode(`{"a":1}`))
	assert.Equal(t, "[broken", Decode("[broken"))
}

func TestResolve(t *testing.T) {
	client := testutil.NewFakeClient()
	client.Resolved["hcs://1/0.0.7"] = "content"

	payload, large, err := Resolve(context.Background(), client, core.LogEntry{Payload: "hcs://1/0.0.7"})
	require.NoError(t, err)
	assert.True(t, large)
	assert.Equal(t, "content", payload)

	payload, large, err = Resolve(context.Background(), client, core.LogEntry{Payload: "inline"})
	require.NoError(t, err)
	assert.False(t, large)
	assert.Equal(t, "inline", payload)

	_, _, err = Resolve(context.Background(), client, core.LogEntry{Payload: "hcs://1/0.0.8"})
	assert.ErrorIs(t, err, core.ErrContentResolution)
	assert.Equal(t, 2, client.Resolves())
}
