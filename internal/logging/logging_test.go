package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{JSON: true, Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := WithComponent("detector")
	logger.Info().Int("segments", 2).Msg("done")
	logger.Debug().Msg("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "detector", entry["component"])
	assert.Equal(t, "done", entry["message"])
	assert.EqualValues(t, 2, entry["segments"])
	assert.Contains(t, entry, "time")
}

func TestInitVerboseConsole(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Verbose: true, Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	logger := WithComponent("flow")
	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "flow")
}
