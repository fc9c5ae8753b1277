package logging

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New()
	l.SetLevel(level)
	l.SetOutput(log.New(&buf, "", 0))
	return l, &buf
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  Level
		logLevel  Level
		shouldLog bool
	}{
		{"debug allowed at debug", LevelDebug, LevelDebug, true},
		{"info allowed at debug", LevelDebug, LevelInfo, true},
		{"debug blocked at info", LevelInfo, LevelDebug, false},
		{"info blocked at warn", LevelWarn, LevelInfo, false},
		{"warn allowed at warn", LevelWarn, LevelWarn, true},
		{"error allowed at warn", LevelWarn, LevelError, true},
		{"warn blocked at error", LevelError, LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger(tt.minLevel)

			switch tt.logLevel {
			case LevelDebug:
				logger.Debug("test message")
			case LevelInfo:
				logger.Info("test message")
			case LevelWarn:
				logger.Warn("test message")
			case LevelError:
				logger.Error("test message")
			}

			if tt.shouldLog {
				assert.Contains(t, buf.String(), "test message")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestLoggerFieldsKeepOrder(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.Named("orchestrator").With("item", "features/001-first").
		Info("phase finished", "phase", "research", "success", true)

	assert.Equal(t,
		"INFO: phase finished | component=orchestrator item=features/001-first phase=research success=true\n",
		buf.String())
}

func TestLoggerChildSharesLevel(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn)
	child := logger.With("k", "v")

	child.Info("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(LevelDebug)
	child.Info("shown")
	assert.Contains(t, buf.String(), "INFO: shown | k=v")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "plain", formatValue("plain"))
	assert.Equal(t, `"has space"`, formatValue("has space"))
	assert.Equal(t, `""`, formatValue(""))
	assert.Equal(t, `"boom"`, formatValue(errors.New("boom")))
	assert.Equal(t, "42", formatValue(42))
	assert.Equal(t, `"a,b"`, formatValue([]string{"a", "b"}))
}

func TestLoggerOddKeyVals(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)
	logger.Warn("odd", "dangling")
	assert.Contains(t, buf.String(), "!BADKEY=dangling")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(LevelError))
	l.Error("nothing happens")
}
