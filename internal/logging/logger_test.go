package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl, "пустая строка означает INFO")

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger("mesher", Options{ConsoleLevel: WARN, FileLevel: ERROR, ConsoleOverride: &buf})
	require.NoError(t, err)

	l.Info("не должно попасть в консоль")
	l.Warn("предупреждение %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [mesher] предупреждение 42")

	assert.False(t, l.Enabled(DEBUG))
	assert.True(t, l.Enabled(ERROR))
}

func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := NewLogger("storage", Options{
		Dir:             dir,
		ConsoleLevel:    ERROR,
		FileLevel:       DEBUG,
		MaxSizeMB:       1,
		ConsoleOverride: &console,
	})
	require.NoError(t, err)

	l.Debug("запись в файл")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "storage.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [storage] запись в файл")
	assert.Empty(t, console.String(), "DEBUG не должен попасть в консоль")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ничего")
		_ = l.Close()
	})
	assert.False(t, l.Enabled(ERROR))
}

func TestLoggerManagerReusesLoggers(t *testing.T) {
	lm := NewLoggerManager(Options{ConsoleLevel: ERROR, FileLevel: ERROR})

	a, err := lm.GetLogger("api")
	require.NoError(t, err)
	b, err := lm.GetLogger("api")
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, lm.SetLogLevel("api", DEBUG, DEBUG))
	assert.True(t, a.Enabled(DEBUG))
	assert.Error(t, lm.SetLogLevel("missing", DEBUG, DEBUG))

	require.NoError(t, lm.CloseAll())
}
