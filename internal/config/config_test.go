package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxy-atlas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64, cfg.Atlas.TileEdge)
	assert.Equal(t, 8192, cfg.Atlas.MaxTextureDimension)
	assert.Equal(t, float32(90), cfg.Camera.FovDegrees)
	assert.Equal(t, float32(500), cfg.Camera.Distance)
	assert.Zero(t, cfg.LoadTimeout)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: https://atlas.example.com
  timeout: 5s
dataset: mnist
load_timeout: 1m30s
atlas:
  tile_edge: 32
render:
  present_mode: uncapped
  msaa: 1
  frame_limit: 120
camera:
  fov_degrees: 60
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://atlas.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "mnist", cfg.Dataset)
	assert.Equal(t, 90*time.Second, cfg.LoadTimeout)
	assert.Equal(t, 32, cfg.Atlas.TileEdge)
	assert.Equal(t, 8192, cfg.Atlas.MaxTextureDimension, "untouched keys keep defaults")
	assert.Equal(t, "uncapped", cfg.Render.PresentMode)
	assert.Equal(t, 1, cfg.Render.MSAA)
	assert.Equal(t, 120, cfg.Render.FrameLimit)
	assert.Equal(t, float32(60), cfg.Camera.FovDegrees)
	assert.Equal(t, float32(0.1), cfg.Camera.Near)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "atlas:\n  tile_size: 32\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tile_size")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadValidates(t *testing.T) {
	_, err := Load(writeConfig(t, "atlas:\n  tile_edge: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atlas.tile_edge")
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = ""
	cfg.Render.MSAA = 8
	cfg.Render.PresentMode = "mailbox"
	cfg.Camera.Near = 10
	cfg.Camera.Far = 1
	cfg.Log.Level = "verbose"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.base_url", "render.msaa", "render.present_mode", "clip planes", "log.level", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRemoteSource(t *testing.T) {
	assert.True(t, ServerConfig{BaseURL: "http://localhost:8080"}.RemoteSource())
	assert.True(t, ServerConfig{BaseURL: "HTTPS://atlas.example.com"}.RemoteSource())
	assert.False(t, ServerConfig{BaseURL: "./datasets"}.RemoteSource())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "dataset", "mnist")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"dataset":"mnist"`)

	_, err = LogConfig{Level: "loud", Format: "text"}.NewLogger(&buf)
	assert.Error(t, err)
}
