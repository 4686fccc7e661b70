package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerInitialized(t *testing.T) {
	logger := GetLogger()
	require.NotNil(t, logger, "Logger should be initialized")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		expectedLevel slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"warning level", "warning", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"default for unknown", "invalid", slog.LevelInfo},
		{"uppercase", "DEBUG", slog.LevelDebug},
		{"mixed case", "InFo", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedLevel, ParseLevel(tt.level))
		})
	}
}

func TestInitLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "warn", "text")
	t.Cleanup(func() { InitLogger("info", "text") })

	slog.Info("hidden message")
	slog.Warn("visible message", "session_id", "abc")

	require.NotContains(t, buf.String(), "hidden message")
	require.Contains(t, buf.String(), "visible message")
	require.Contains(t, buf.String(), "session_id=abc")
}

func TestInitLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "info", "json")
	t.Cleanup(func() { InitLogger("info", "text") })

	slog.Info("generated mrz", "document_type", "P")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "generated mrz", entry["msg"])
	require.Equal(t, "P", entry["document_type"])
}

func TestGetLogger(t *testing.T) {
	InitLogger("info", "text")
	logger1 := GetLogger()
	logger2 := GetLogger()

	require.NotNil(t, logger1)
	require.NotNil(t, logger2)
	require.Equal(t, logger1, logger2, "GetLogger should return the same instance")
}
