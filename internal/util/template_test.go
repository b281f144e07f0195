package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	vars := map[string]any{"name": "alice", "account_id": "0.0.100", "empty": ""}

	out, err := RenderTemplate("You are {{.name | upper}} ({{.account_id}}), {{default \"friendly\" .empty}}.", vars)
	require.NoError(t, err)
	assert.Equal(t, "You are ALICE (0.0.100), friendly.", out)

	out, err = RenderTemplate("no markers & <tags>", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers & <tags>", out)

	_, err = RenderTemplate("{{.missing}}", vars)
	assert.Error(t, err)

	_, err = RenderTemplate("{{.name", vars)
	assert.Error(t, err)
}
