package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" debug "))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLoggerWithKeepsLevel(t *testing.T) {
	logger := NewLogger(LogLevelDebug).With("run_id", "abc")
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	nop := NewNopLogger()
	assert.NotPanics(t, func() {
		nop.Info("feature %s done", "x")
		nop.Trace("ignored")
	})
}
