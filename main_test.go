package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun_ValidatesDirectory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var out bytes.Buffer

	// --- Act ---
	err := run([]string{"-dir", "assets/pipelines"}, &out, nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "ok   forward (assets/pipelines/forward.pipeline.toml): 2 attachments, 1 subpasses, 2 pipelines")
}

func TestRun_ReportsFailures(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	doc := "name = \"bad\"\n[[subpasses]]\nname = \"main\"\ncolor = [{ attachment = \"missing\" }]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.pipeline.toml"), []byte(doc), 0o644))
	var out bytes.Buffer

	// --- Act ---
	err := run([]string{"-dir", dir}, &out, nil)

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, out.String(), "fail ")
	require.Contains(t, out.String(), "bad.pipeline.toml")
}

func TestRun_MissingDirectory(t *testing.T) {
	t.Parallel()

	err := run([]string{"-dir", filepath.Join(t.TempDir(), "nope")}, &bytes.Buffer{}, nil)

	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_WatchStopsOnSignal(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	stop := make(chan os.Signal, 1)
	done := make(chan error, 1)
	var out bytes.Buffer

	// --- Act ---
	go func() {
		done <- run([]string{"-dir", t.TempDir(), "-watch"}, &out, stop)
	}()
	stop <- os.Interrupt

	// --- Assert ---
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the stop signal")
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "vkbuild.toml")
	content := "log_level = \"warn\"\npipelines_dir = \"from/file\"\nwatch = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// --- Act ---
	cfg, err := loadConfig([]string{"-config", path, "-dir", "from/flag"}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "from/flag", cfg.PipelinesDir)
	require.Equal(t, "warn", cfg.LogLevel)
	require.True(t, cfg.Watch)
}

func TestLoadConfig_UnknownFlag(t *testing.T) {
	t.Parallel()

	_, err := loadConfig([]string{"-verbose"}, &bytes.Buffer{})

	require.Error(t, err)
}
