package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xaphub/internal/logger"
)

func TestSetVerbosity(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		verbosity int
		expected  zerolog.Level
	}{
		{-1, zerolog.ErrorLevel},
		{0, zerolog.ErrorLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{9, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		logger.SetVerbosity(tt.verbosity)
		assert.Equal(t, tt.expected, zerolog.GlobalLevel(), "verbosity %d", tt.verbosity)
	}
}

func TestGetLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetSilentMode(true)

	l := logger.GetLogger("hub.registry")
	l.Info().Int("port", 3640).Msg("New client")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "xaphub", line["app"])
	assert.Equal(t, "hub.registry", line["component"])
	assert.Equal(t, "New client", line["message"])
	assert.EqualValues(t, 3640, line["port"])
}

func TestSilentMode(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetSilentMode(true)

	logger.Info("dropped")
	l := logger.New()
	l.Error().Msg("also dropped")
	assert.Zero(t, buf.Len())
}
