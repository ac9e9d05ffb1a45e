package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/engine/loader"
	"github.com/Carmen-Shannon/oxy-atlas/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	fv := &flagValues{}
	cmd := newCommand(fv)
	require.NoError(t, cmd.ParseFlags(args))
	cmd.SetErr(&bytes.Buffer{})
	cfg, _, err := setup(cmd, fv)
	return cfg, err
}

func TestFlagsDefaultToConfigDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestFlagsOverlayConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset: mnist\natlas:\n  tile_edge: 32\nrender:\n  msaa: 1\n"), 0o644))

	cfg, err := parse(t, "--config", path, "--dataset", "cifar", "--load-timeout", "20s", "--fov", "45")
	require.NoError(t, err)

	assert.Equal(t, "cifar", cfg.Dataset, "flag wins over file")
	assert.Equal(t, 32, cfg.Atlas.TileEdge, "file wins over default")
	assert.Equal(t, 1, cfg.Render.MSAA)
	assert.Equal(t, 20*time.Second, cfg.LoadTimeout)
	assert.Equal(t, float32(45), cfg.Camera.FovDegrees)
}

func TestFlagsAreValidated(t *testing.T) {
	_, err := parse(t, "--msaa", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render.msaa")
}

func TestNewLoaderPicksBackend(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mnist", "cifar"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, loader.CoordinatesFile), []byte(`{"points":[]}`), 0o644))
	}
	cfg := config.Default()
	cfg.Server.BaseURL = dir

	names, err := newLoader(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))).FetchDatasetNames(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"cifar", "mnist"}, names)
}

func TestDatasetsCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fashion"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fashion", loader.CoordinatesFile), []byte(`{"points":[]}`), 0o644))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"datasets", "--server", dir})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "fashion\n", out.String())
}
