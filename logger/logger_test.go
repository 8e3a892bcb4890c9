package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"sensor_data_migrator/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN)

	l.Debugf("debug %d\n", 1)
	l.Printf("info %d\n", 2)
	l.Warnf("warn %d\n", 3)
	l.Errorf("error %d\n", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "WARN: warn 3")
	assert.Contains(t, out, "ERROR: error 4")
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "chatty")

	l.Debugf("hidden\n")
	l.Printf("shown\n")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogResult(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO)

	l.LogResult("archive sensors", true, "3 archived")
	l.LogResult("archive user plants", false, "")

	assert.Contains(t, buf.String(), "archive sensors: SUCCESS - 3 archived")
	assert.Contains(t, buf.String(), "archive user plants: FAILED")
}

func TestOpenWritesSessionMarkersToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Logging: config.LoggingConfig{
		LogFile:  filepath.Join(dir, "run.log"),
		LogLevel: INFO,
	}}

	l, err := Open(cfg)
	require.NoError(t, err)
	l.Printf("archiving\n")
	assert.Equal(t, filepath.Join(dir, "run.log"), l.FileName())
	require.NoError(t, l.Close())
	assert.NoError(t, l.Close(), "second close is a no-op")

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== Session started at")
	assert.Contains(t, string(data), "archiving")
	assert.Contains(t, string(data), "=== Session ended at")
}

func TestSetDefault(t *testing.T) {
	previous := Default()
	t.Cleanup(func() { SetDefault(previous) })

	var buf bytes.Buffer
	SetDefault(New(&buf, DEBUG))
	Debugf("via package %s\n", "function")

	assert.Contains(t, buf.String(), "DEBUG: via package function")
}
