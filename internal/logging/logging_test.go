package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "focusproof.log")

	logger, closer, err := New("info", file)
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "tracker").Msg("task started")
	closer()

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "tracker", entry["component"])
	assert.Equal(t, "task started", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewAppends(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")

	for range 2 {
		logger, closer, err := New("info", file)
		require.NoError(t, err)
		logger.Info().Msg("run")
		closer()
	}

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, closer, err := New("loud", "")
	assert.Error(t, err)
	assert.NotNil(t, closer)
}
