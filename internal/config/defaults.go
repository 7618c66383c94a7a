package config

import (
	"time"

	"panelviz/internal/catalog"
)

const (
	defaultJPEGQuality      = 90
	defaultShadowOffset     = 10 // px
	defaultShadowOpacity    = 0.35
	defaultAssumedWallWidth = 400 // cm
	defaultInitialPanels    = 3
	defaultBodyLimitMB      = 25
	defaultMaxScenes        = 64
	defaultSegmentInput     = 512 // px
)

// DefaultConfig returns the default configuration values for panelviz.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			TextureDir:    "textures",
			TexturePrefix: catalog.DefaultTexturePrefix,
			TextureExt:    catalog.DefaultTextureExt,
		},
		Render: RenderConfig{
			PositionMode: "normalized",
			Fit:          "cover",
			JPEGQuality:  defaultJPEGQuality,
			Shadow: ShadowConfig{
				OffsetX: defaultShadowOffset,
				OffsetY: defaultShadowOffset,
				Opacity: defaultShadowOpacity,
				Color:   "#000000",
				Blend:   "normal",
			},
		},
		Scale: ScaleConfig{
			Strategy:           "manual",
			DefaultPxPerCm:     1.0,
			AssumedWallWidthCm: defaultAssumedWallWidth,
		},
		Segmentation: SegmentationConfig{
			InputWidth:  defaultSegmentInput,
			InputHeight: defaultSegmentInput,
			ScaleFactor: 1.0 / 255,
			Mean:        []float64{0, 0, 0},
			SwapRB:      true,
			WallClass:   0,
			Timeout:     5 * time.Second,
		},
		Scene: SceneConfig{
			InitialPanels:  defaultInitialPanels,
			DefaultSurface: "wall",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			BodyLimitMB:  defaultBodyLimitMB,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxScenes:    defaultMaxScenes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// setDefaults registers every key with viper so env overrides apply even
// without a config file.
func (m *Manager) setDefaults() {
	d := DefaultConfig()
	v := m.viper

	v.SetDefault("catalog.file", d.Catalog.File)
	v.SetDefault("catalog.texture_dir", d.Catalog.TextureDir)
	v.SetDefault("catalog.texture_prefix", d.Catalog.TexturePrefix)
	v.SetDefault("catalog.texture_ext", d.Catalog.TextureExt)
	v.SetDefault("catalog.watch", d.Catalog.Watch)

	v.SetDefault("render.position_mode", d.Render.PositionMode)
	v.SetDefault("render.clamp_absolute", d.Render.ClampAbsolute)
	v.SetDefault("render.fit", d.Render.Fit)
	v.SetDefault("render.jpeg_quality", d.Render.JPEGQuality)
	v.SetDefault("render.shadow.offset_x", d.Render.Shadow.OffsetX)
	v.SetDefault("render.shadow.offset_y", d.Render.Shadow.OffsetY)
	v.SetDefault("render.shadow.opacity", d.Render.Shadow.Opacity)
	v.SetDefault("render.shadow.color", d.Render.Shadow.Color)
	v.SetDefault("render.shadow.blend", d.Render.Shadow.Blend)

	v.SetDefault("scale.strategy", d.Scale.Strategy)
	v.SetDefault("scale.default_px_per_cm", d.Scale.DefaultPxPerCm)
	v.SetDefault("scale.assumed_wall_width_cm", d.Scale.AssumedWallWidthCm)

	v.SetDefault("segmentation.enabled", d.Segmentation.Enabled)
	v.SetDefault("segmentation.model_path", d.Segmentation.ModelPath)
	v.SetDefault("segmentation.config_path", d.Segmentation.ConfigPath)
	v.SetDefault("segmentation.input_width", d.Segmentation.InputWidth)
	v.SetDefault("segmentation.input_height", d.Segmentation.InputHeight)
	v.SetDefault("segmentation.scale_factor", d.Segmentation.ScaleFactor)
	v.SetDefault("segmentation.mean", d.Segmentation.Mean)
	v.SetDefault("segmentation.swap_rb", d.Segmentation.SwapRB)
	v.SetDefault("segmentation.wall_class", d.Segmentation.WallClass)
	v.SetDefault("segmentation.timeout", d.Segmentation.Timeout)

	v.SetDefault("scene.initial_panels", d.Scene.InitialPanels)
	v.SetDefault("scene.default_surface", d.Scene.DefaultSurface)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.body_limit_mb", d.Server.BodyLimitMB)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_scenes", d.Server.MaxScenes)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}
