package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("JSON形式", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

		l.Debug("hidden")
		l.Info("batch started", "tasks", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "batch started", entry["msg"])
		assert.Equal(t, float64(3), entry["tasks"])
		assert.Same(t, l, slog.Default())
	})

	t.Run("テキスト形式", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: slog.LevelDebug, Format: "text", Output: &buf})

		l.Debug("checkpoint saved")
		assert.Contains(t, buf.String(), "msg=\"checkpoint saved\"")
	})
}
