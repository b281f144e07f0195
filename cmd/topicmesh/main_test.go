package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/topicmesh/config"
	"github.com/hupe1980/topicmesh/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTopicCreateSendAsk(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOPICMESH_CORRELATOR_MAX_ATTEMPTS", "2")
	t.Setenv("TOPICMESH_CORRELATOR_DELAY", "1ms")
	dir := t.TempDir()

	out, err := execute(t, "topic", "create", "demo", "--data-dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", strings.TrimSpace(out))

	out, err = execute(t, "send", "0.0.1", "hello", "--data-dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "sent #1 to 0.0.1\n", out)

	out, err = execute(t, "ask", "0.0.1", "anyone there?", "--fallback", "nobody", "--data-dir", dir, "--log-level", "error")
	require.NoError(t, err)

	var resp core.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, core.PayloadResponse, resp.Type)
	assert.Equal(t, "nobody", resp.Answer)
	assert.Equal(t, "anyone there?", resp.ReplyTo)
}

func TestSendToUnknownTopic(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "send", "0.0.404", "hello", "--data-dir", t.TempDir(), "--log-level", "error")
	assert.ErrorIs(t, err, core.ErrTopicNotFound)
}

func TestInvalidLogLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "topic", "create", "--data-dir", t.TempDir(), "--log-level", "loud")
	assert.Error(t, err)
}

func TestNewAnswerer(t *testing.T) {
	a, err := newAnswerer(config.AgentConfig{Name: "echo"})
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = newAnswerer(config.AgentConfig{Name: "m", AccountID: "0.0.5", Instructions: "You are {{.name}}", Model: config.ModelConfig{Provider: "mock"}})
	require.NoError(t, err)
	require.NotNil(t, a)

	_, err = newAnswerer(config.AgentConfig{Name: "m", Instructions: "{{.nope}}", Model: config.ModelConfig{Provider: "mock"}})
	assert.Error(t, err)

	_, err = newAnswerer(config.AgentConfig{Name: "x", Model: config.ModelConfig{Provider: "llama"}})
	assert.Error(t, err)
}
