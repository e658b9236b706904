package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", false)
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "warn", false) })

	WithComponent("compositor").Info().Int("width", 240).Msg("Rendered")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "compositor", entry["component"])
	assert.Equal(t, "Rendered", entry["message"])
	assert.Equal(t, float64(240), entry["width"])
	assert.Equal(t, "info", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "error", false)
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "warn", false) })

	WithComponent("x").Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	WithComponent("x").Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("DEBUG"))
	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("verbose"))
}
