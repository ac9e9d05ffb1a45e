package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine"
	"github.com/Carmen-Shannon/oxy-atlas/engine/camera"
	"github.com/Carmen-Shannon/oxy-atlas/engine/loader"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer"
	"github.com/Carmen-Shannon/oxy-atlas/engine/scene"
	"github.com/Carmen-Shannon/oxy-atlas/engine/visualizer"
	"github.com/Carmen-Shannon/oxy-atlas/engine/window"
	"github.com/Carmen-Shannon/oxy-atlas/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagValues receives the command line flags. Only flags the user set are copied over the
// loaded configuration.
type flagValues struct {
	configPath  string
	baseURL     string
	timeout     time.Duration
	dataset     string
	loadTimeout time.Duration
	tileEdge    int
	maxTexture  int
	title       string
	width       int
	height      int
	frameLimit  int
	presentMode string
	msaa        int
	profiling   bool
	fov         float32
	distance    float32
	logLevel    string
	logFormat   string
}

func newRootCommand() *cobra.Command {
	return newCommand(&flagValues{})
}

func newCommand(fv *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "oxy-atlas",
		Short:         "View an image dataset as a point cloud of sprite-sheet thumbnails",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, fv)
			if err != nil {
				return err
			}
			return runViewer(cmd.Context(), cfg, logger)
		},
	}
	addFlags(cmd.PersistentFlags(), fv)
	cmd.AddCommand(newDatasetsCommand(fv))
	return cmd
}

func newDatasetsCommand(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets the server offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, fv)
			if err != nil {
				return err
			}
			names, err := newLoader(cfg, logger).FetchDatasetNames(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func addFlags(fs *pflag.FlagSet, fv *flagValues) {
	def := config.Default()
	fs.StringVarP(&fv.configPath, "config", "c", "", "YAML configuration file")
	fs.StringVar(&fv.baseURL, "server", def.Server.BaseURL, "dataset server URL or local dataset directory")
	fs.DurationVar(&fv.timeout, "timeout", def.Server.Timeout, "per-request timeout")
	fs.StringVarP(&fv.dataset, "dataset", "d", def.Dataset, "dataset shown at startup")
	fs.DurationVar(&fv.loadTimeout, "load-timeout", def.LoadTimeout, "limit on a whole dataset load, 0 for none")
	fs.IntVar(&fv.tileEdge, "tile-edge", def.Atlas.TileEdge, "pixel edge of a sprite sheet tile")
	fs.IntVar(&fv.maxTexture, "max-texture", def.Atlas.MaxTextureDimension, "largest atlas edge uploaded to the GPU")
	fs.StringVar(&fv.title, "title", def.Window.Title, "window title")
	fs.IntVar(&fv.width, "width", def.Window.Width, "window width")
	fs.IntVar(&fv.height, "height", def.Window.Height, "window height")
	fs.IntVar(&fv.frameLimit, "frame-limit", def.Render.FrameLimit, "maximum frames per second, 0 for no cap")
	fs.StringVar(&fv.presentMode, "present-mode", def.Render.PresentMode, "vsync or uncapped")
	fs.IntVar(&fv.msaa, "msaa", def.Render.MSAA, "samples per pixel, 1 or 4")
	fs.BoolVar(&fv.profiling, "profile", def.Render.Profiling, "log frame timings")
	fs.Float32Var(&fv.fov, "fov", def.Camera.FovDegrees, "vertical field of view in degrees")
	fs.Float32Var(&fv.distance, "distance", def.Camera.Distance, "starting camera distance")
	fs.StringVar(&fv.logLevel, "log-level", def.Log.Level, "debug, info, warn or error")
	fs.StringVar(&fv.logFormat, "log-format", def.Log.Format, "text or json")
}

// overlay copies every flag the user set onto cfg.
func overlay(cfg *config.Config, fs *pflag.FlagSet, fv *flagValues) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "server":
			cfg.Server.BaseURL = fv.baseURL
		case "timeout":
			cfg.Server.Timeout = fv.timeout
		case "dataset":
			cfg.Dataset = fv.dataset
		case "load-timeout":
			cfg.LoadTimeout = fv.loadTimeout
		case "tile-edge":
			cfg.Atlas.TileEdge = fv.tileEdge
		case "max-texture":
			cfg.Atlas.MaxTextureDimension = fv.maxTexture
		case "title":
			cfg.Window.Title = fv.title
		case "width":
			cfg.Window.Width = fv.width
		case "height":
			cfg.Window.Height = fv.height
		case "frame-limit":
			cfg.Render.FrameLimit = fv.frameLimit
		case "present-mode":
			cfg.Render.PresentMode = fv.presentMode
		case "msaa":
			cfg.Render.MSAA = fv.msaa
		case "profile":
			cfg.Render.Profiling = fv.profiling
		case "fov":
			cfg.Camera.FovDegrees = fv.fov
		case "distance":
			cfg.Camera.Distance = fv.distance
		case "log-level":
			cfg.Log.Level = fv.logLevel
		case "log-format":
			cfg.Log.Format = fv.logFormat
		}
	})
}

// setup resolves the configuration for cmd and builds the logger.
func setup(cmd *cobra.Command, fv *flagValues) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(fv.configPath)
	if err != nil {
		return cfg, nil, err
	}
	overlay(&cfg, cmd.Flags(), fv)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return cfg, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLoader(cfg config.Config, logger *slog.Logger) loader.Loader {
	backend := loader.BackendTypeHTTP
	if !cfg.Server.RemoteSource() {
		backend = loader.BackendTypeFile
	}
	return loader.NewLoader(backend, cfg.Server.BaseURL,
		loader.WithTimeout(cfg.Server.Timeout),
		loader.WithMaxTextureDimension(cfg.Atlas.MaxTextureDimension),
		loader.WithLogger(logger),
	)
}

// engineOptions translates the configuration into engine, runtime and visualizer options.
func engineOptions(cfg config.Config, logger *slog.Logger) []engine.EngineBuilderOption {
	cam := cfg.Camera
	return []engine.EngineBuilderOption{
		engine.WithLogger(logger),
		engine.WithInitialDataset(cfg.Dataset),
		engine.WithRuntimeOptions(
			scene.WithFrameLimit(cfg.Render.FrameLimit),
			scene.WithProfiling(cfg.Render.Profiling),
			scene.WithRendererOptions(
				renderer.WithPresentMode(renderer.ParsePresentMode(cfg.Render.PresentMode)),
				renderer.WithMSAA(renderer.MSAASampleCount(cfg.Render.MSAA)),
			),
			scene.WithCameraOptions(
				camera.WithFov(common.DegToRad(cam.FovDegrees)),
				camera.WithClipPlanes(cam.Near, cam.Far),
			),
			scene.WithControllerOptions(
				camera.WithDistance(cam.Distance),
				camera.WithDistanceLimits(cam.Near, cam.Far/2),
				camera.WithRotateSpeed(cam.RotateSpeed),
				camera.WithZoomSpeed(cam.ZoomSpeed),
				camera.WithPanSpeed(cam.PanSpeed),
				camera.WithDampingFactor(cam.Damping),
			),
		),
		engine.WithVisualizerOptions(
			visualizer.WithTileEdge(cfg.Atlas.TileEdge),
			visualizer.WithLoadTimeout(cfg.LoadTimeout),
			visualizer.WithStateCallback(func(t visualizer.Transition) {
				logger.Debug("visualizer", "from", t.From, "to", t.To, "dataset", t.Dataset, "generation", t.Generation)
			}),
		),
	}
}

func runViewer(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ld := newLoader(cfg, logger)

	names, err := ld.FetchDatasetNames(ctx)
	if err != nil {
		if cfg.Dataset == "" {
			return fmt.Errorf("no dataset configured and listing failed: %w", err)
		}
		logger.Warn("list datasets", "error", err)
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}

	opts := append(engineOptions(cfg, logger),
		engine.WithWindow(win),
		engine.WithDataSource(ld),
		engine.WithDatasets(names...),
	)
	eng := engine.NewEngine(opts...)
	logger.Info("viewer starting", "source", cfg.Server.BaseURL, "datasets", len(names), "dataset", cfg.Dataset)
	return eng.Run()
}
