package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/site-planner/config"
	"github.com/warp/site-planner/logger"
)

func TestNewWithWriter_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "planner")

	log.Info().Str("assignment_id", "a-1").Msg("assignment created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "planner", entry["component"])
	assert.Equal(t, "a-1", entry["assignment_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestSetup_Level(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger.Setup(config.LoggingConfig{Level: tt.level, Format: "json"})
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
	logger.Setup(config.LoggingConfig{Level: "warn", Format: "json"})

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "test")
	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
