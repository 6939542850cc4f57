package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	level, ok := ParseLevel(" debug ")
	assert.True(t, ok)
	assert.Equal(t, LogLevelDebug, level)

	level, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, LogLevelInfo, level)
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(LogLevelWarn, &buf)

	logger.Info("[ModelStore] loaded %s", "crop-softmax")
	logger.Debug("noise")
	assert.Empty(t, buf.String())

	logger.Warn("[ModelStore] retrying %d", 2)
	logger.Error("[ModelStore] failed")
	out := buf.String()
	assert.Contains(t, out, "[WARN] [ModelStore] retrying 2")
	assert.Contains(t, out, "[ERROR] [ModelStore] failed")
	assert.Equal(t, LogLevelWarn, logger.GetLevel())
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "TRACE", LogLevelTrace.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
