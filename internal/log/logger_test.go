package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel("production", "WARN"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("production", ""))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("development", ""))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("development", "loud"))
}

func TestProductionWritesJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "info")
	logger.Info().Str("user_id", "u1").Msg("user registered")
	logger.Debug().Msg("dropped")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "vidnest-accounts", line["service"])
	assert.Equal(t, "production", line["env"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "user registered", line["message"])
}
