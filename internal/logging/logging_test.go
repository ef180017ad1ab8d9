package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/voicebot/internal/logging"
)

func TestJSONOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := logging.New(logging.Options{Level: "warn", JSON: true, Out: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Msg("hidden")
	log.Warn().Str("guild_id", "G").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "G", entry["guild_id"])
	assert.Equal(t, "warn", entry["level"])
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := logging.New(logging.Options{Out: &buf})
	require.NoError(t, err)

	log.Info().Msg("Bot is running")
	assert.Contains(t, buf.String(), "[INFO ]")
	assert.Contains(t, buf.String(), "Bot is running")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	log, closer, err := logging.New(logging.Options{JSON: true, File: path, Out: &bytes.Buffer{}})
	require.NoError(t, err)

	log.Error().Msg("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInvalidLevel(t *testing.T) {
	_, _, err := logging.New(logging.Options{Level: "loud"})
	assert.Error(t, err)
}
