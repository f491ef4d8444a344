package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/annel0/voxel-remesher/internal/config"
	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVec3(t *testing.T) {
	v, err := parseVec3("1, -2,3")
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{X: 1, Y: -2, Z: 3}, v)

	_, err = parseVec3("1,2")
	assert.Error(t, err)
	_, err = parseVec3("a,b,c")
	assert.Error(t, err)
}

func TestLoggingOptions(t *testing.T) {
	opts, err := loggingOptions(config.LoggingConfig{ConsoleLevel: "warn", FileLevel: "error", MaxBackups: 2})
	require.NoError(t, err)
	assert.Equal(t, logging.WARN, opts.ConsoleLevel)
	assert.Equal(t, logging.ERROR, opts.FileLevel)
	assert.Equal(t, 2, opts.MaxBackups)
	assert.Equal(t, 50, opts.MaxSizeMB)

	_, err = loggingOptions(config.LoggingConfig{ConsoleLevel: "loud"})
	assert.Error(t, err)
}

func TestExportShape(t *testing.T) {
	out := filepath.Join(t.TempDir(), "box.obj")
	err := exportChunk(config.Default(), exportOptions{Out: out, Shape: "box", Size: 4}, io.Discard)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)

	// Сплошной куб сливается в шесть граней
	assert.Equal(t, 6, strings.Count(text, "\nf "))
	assert.Equal(t, 8, strings.Count(text, "\nv "))
}

func TestExportTerrain(t *testing.T) {
	cfg := config.Default()
	cfg.Chunk = config.ChunkConfig{SizeX: 8, SizeY: 32, SizeZ: 8}

	out := filepath.Join(t.TempDir(), "terrain.obj")
	require.NoError(t, exportChunk(cfg, exportOptions{Out: out}, io.Discard))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "terrain chunk")
	assert.Contains(t, string(data), "\nf ")
}

func TestExportUnknownShape(t *testing.T) {
	err := exportChunk(config.Default(), exportOptions{Shape: "torus", Size: 4}, io.Discard)
	assert.Error(t, err)
}

func TestExportToStdoutKeepsLogsOnStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := runExport(config.Default(), exportOptions{Shape: "box", Size: 2}, &stdout, &stderr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		kind, _, _ := strings.Cut(line, " ")
		assert.Contains(t, []string{"#", "v", "vn", "f"}, kind, "строка OBJ: %q", line)
	}
	assert.Equal(t, 6, strings.Count(stdout.String(), "\nf "))
	assert.Contains(t, stderr.String(), "6 квадов")
}

func TestExportReportsWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full недоступен")
	}
	err := exportChunk(config.Default(), exportOptions{Out: "/dev/full", Shape: "box", Size: 2}, io.Discard)
	assert.Error(t, err)
}
