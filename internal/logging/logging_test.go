package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesServiceFields(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := setup(&buf, " vault-engine ", "staging", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("feed started", "topic", "auction:a1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "exactly one JSON line expected: %s", buf.String())
	require.Equal(t, "vault-engine", line["service"])
	require.Equal(t, "staging", line["env"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "feed started", line["message"])
	require.Equal(t, "auction:a1", line["topic"])
	require.Contains(t, line, "timestamp")
}
