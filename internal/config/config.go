// Package config holds the viewer settings read from a YAML file and overlaid by command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete viewer configuration.
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	Dataset     string        `yaml:"dataset"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
	Atlas       AtlasConfig   `yaml:"atlas"`
	Window      WindowConfig  `yaml:"window"`
	Render      RenderConfig  `yaml:"render"`
	Camera      CameraConfig  `yaml:"camera"`
	Log         LogConfig     `yaml:"log"`
}

// ServerConfig locates the dataset server. A base URL without an http or https scheme is read
// as a local directory laid out like the server.
type ServerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AtlasConfig describes the sprite sheets.
type AtlasConfig struct {
	TileEdge            int `yaml:"tile_edge"`
	MaxTextureDimension int `yaml:"max_texture_dimension"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RenderConfig tunes the render loop. A zero frame limit leaves pacing to the present mode.
type RenderConfig struct {
	FrameLimit  int    `yaml:"frame_limit"`
	PresentMode string `yaml:"present_mode"`
	MSAA        int    `yaml:"msaa"`
	Profiling   bool   `yaml:"profiling"`
}

// CameraConfig sets the projection and the trackball controls.
type CameraConfig struct {
	FovDegrees  float32 `yaml:"fov_degrees"`
	Near        float32 `yaml:"near"`
	Far         float32 `yaml:"far"`
	Distance    float32 `yaml:"distance"`
	RotateSpeed float32 `yaml:"rotate_speed"`
	ZoomSpeed   float32 `yaml:"zoom_speed"`
	PanSpeed    float32 `yaml:"pan_speed"`
	Damping     float32 `yaml:"damping"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when no file or flag overrides them.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Atlas: AtlasConfig{
			TileEdge:            64,
			MaxTextureDimension: 8192,
		},
		Window: WindowConfig{
			Title:  "oxy-atlas",
			Width:  800,
			Height: 800,
		},
		Render: RenderConfig{
			PresentMode: "vsync",
			MSAA:        4,
		},
		Camera: CameraConfig{
			FovDegrees:  90,
			Near:        0.1,
			Far:         10000,
			Distance:    500,
			RotateSpeed: 1.0,
			ZoomSpeed:   1.2,
			PanSpeed:    0.3,
			Damping:     0.2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults. Unknown keys
// are rejected so typos do not go unnoticed.
//
// Parameters:
//   - path: the YAML file, or ""
//
// Returns:
//   - Config: the merged configuration
//   - error: read, parse or validation failure
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every setting that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.Server.BaseURL == "" {
		errs = append(errs, errors.New("server.base_url is empty"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout is negative"))
	}
	if c.LoadTimeout < 0 {
		errs = append(errs, errors.New("load_timeout is negative"))
	}
	if c.Atlas.TileEdge <= 0 {
		errs = append(errs, fmt.Errorf("atlas.tile_edge must be positive, got %d", c.Atlas.TileEdge))
	}
	if c.Atlas.MaxTextureDimension <= 0 {
		errs = append(errs, fmt.Errorf("atlas.max_texture_dimension must be positive, got %d", c.Atlas.MaxTextureDimension))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	switch c.Render.PresentMode {
	case "vsync", "uncapped", "immediate":
	default:
		errs = append(errs, fmt.Errorf("render.present_mode %q is not vsync or uncapped", c.Render.PresentMode))
	}
	if c.Render.MSAA != 1 && c.Render.MSAA != 4 {
		errs = append(errs, fmt.Errorf("render.msaa must be 1 or 4, got %d", c.Render.MSAA))
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov_degrees must be in (0, 180), got %g", c.Camera.FovDegrees))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera clip planes must satisfy 0 < near < far, got %g and %g", c.Camera.Near, c.Camera.Far))
	}
	if c.Camera.Distance <= 0 {
		errs = append(errs, errors.New("camera.distance must be positive"))
	}
	if c.Camera.Damping <= 0 || c.Camera.Damping > 1 {
		errs = append(errs, fmt.Errorf("camera.damping must be in (0, 1], got %g", c.Camera.Damping))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// RemoteSource reports whether the base URL names an HTTP server rather than a directory.
func (s ServerConfig) RemoteSource() bool {
	u := strings.ToLower(s.BaseURL)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger.
//
// Parameters:
//   - w: where records are written
//
// Returns:
//   - *slog.Logger: a text or JSON logger at the configured level
//   - error: an unknown level
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
