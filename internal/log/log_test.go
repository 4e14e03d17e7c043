package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("visible warn", "venue", "Slowdown")
	Error("visible error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] visible warn venue=Slowdown")
	assert.Contains(t, out, "[ERROR] visible error err=boom")
}

func TestKVQuoting(t *testing.T) {
	buf := capture(t, LevelDebug)

	Info("feed refreshed", "venue", "The Slowdown", "count", 3, "dangling")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `venue="The Slowdown"`)
	assert.Contains(t, line, "count=3")
	assert.NotContains(t, line, "dangling")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
