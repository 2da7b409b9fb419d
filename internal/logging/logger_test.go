package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("seating", &buf, WARN)

	logger.Debug("скрыто %d", 1)
	logger.Warn("physics detach failed for %s", "avatar")

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "[WARN] [seating] physics detach failed for avatar")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerManager_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	lm := GetLoggerManager()
	lm.RegisterLogger(ComponentSeating, NewWriterLogger(ComponentSeating, &buf, TRACE))
	defer lm.SetConsoleLevel(INFO)

	GetSeatingLogger().Trace("hello")
	assert.Contains(t, buf.String(), "[TRACE] [seating] hello")

	lm.SetConsoleLevel(ERROR)
	buf.Reset()
	GetSeatingLogger().Warn("hidden")
	GetSeatingLogger().Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	require.NoError(t, lm.CloseAll())
}
