package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONOutputWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, &buf)

	logger := Component("timer")
	logger.Info().Msg("tick")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "timer", entry["component"])
	assert.Equal(t, "tick", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer

	Setup(false, &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Setup(true, &buf)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	Setup(false, &buf)
}
