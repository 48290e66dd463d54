package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelNames(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "test")

	l.Info("loaded %d bars", 10)
	l.Warning("gap of %d days", 6)
	l.Trade("BUY %d contracts", 2)
	l.Status("run started")
	l.LogError("save run", errors.New("disk full"))

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=TRADE")
	assert.Contains(t, out, "level=STATUS")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "loaded 10 bars")
	assert.Contains(t, out, "save run: disk full")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "test").With("run_id", "abc")

	l.LogRunSummary("abc", 0.1234, 0.05, 3, 7, 1500*time.Millisecond)

	assert.Contains(t, buf.String(), "run_id=abc")
	assert.Contains(t, buf.String(), "return 12.34%")
}

func TestNewLogger_WritesFile(t *testing.T) {
	cfg := DefaultConfig("unit")
	cfg.Dir = t.TempDir()
	cfg.Console = false

	l, err := NewLogger(cfg)
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(cfg.Dir, "unit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "SESSION STARTED")
	assert.Equal(t, filepath.Join(cfg.Dir, "unit.log"), l.GetLogPath())
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() { l.Info("ignored") })
	assert.NoError(t, l.Close())
}
