package config

import (
	"strings"

	"panelviz/internal/catalog"
	"panelviz/internal/compositor"
	pvimage "panelviz/internal/image"
	"panelviz/internal/logging"
	"panelviz/internal/scale"
	"panelviz/internal/scene"
	"panelviz/internal/segment"
	"panelviz/internal/server"
	"panelviz/pkg/colorutil"
)

const segmentClassLargest = segment.ClassLargest

// RenderOptions converts the render section. Scale is left at zero for the
// caller to fill in. The config has been validated, so parse errors are
// not expected here.
func (c *Config) RenderOptions() (compositor.Options, error) {
	mode, err := compositor.ParsePositionMode(c.Render.PositionMode)
	if err != nil {
		return compositor.Options{}, err
	}
	fit, err := pvimage.ParseFitMode(c.Render.Fit)
	if err != nil {
		return compositor.Options{}, err
	}
	col, err := colorutil.ParseHex(c.Render.Shadow.Color)
	if err != nil {
		return compositor.Options{}, err
	}
	blend, err := pvimage.ParseBlendMode(c.Render.Shadow.Blend)
	if err != nil {
		return compositor.Options{}, err
	}

	return compositor.Options{
		Mode:          mode,
		ClampAbsolute: c.Render.ClampAbsolute,
		Fit:           fit,
		Shadow: compositor.Shadow{
			OffsetX: c.Render.Shadow.OffsetX,
			OffsetY: c.Render.Shadow.OffsetY,
			Color:   col,
			Opacity: c.Render.Shadow.Opacity,
			Blend:   blend,
		},
	}, nil
}

// ResolverConfig converts the scale section, taking the detection timeout
// from the segmentation section.
func (c *Config) ResolverConfig() (scale.Config, error) {
	kind, err := scale.ParseKind(c.Scale.Strategy)
	if err != nil {
		return scale.Config{}, err
	}
	return scale.Config{
		Strategy:       kind,
		DefaultPxPerCm: c.Scale.DefaultPxPerCm,
		AssumedWidthCm: c.Scale.AssumedWallWidthCm,
		Timeout:        c.Segmentation.Timeout,
	}, nil
}

// SegmentConfig converts the segmentation section.
func (c *Config) SegmentConfig() segment.Config {
	s := c.Segmentation
	cfg := segment.Config{
		Enabled:     s.Enabled,
		ModelPath:   s.ModelPath,
		ConfigPath:  s.ConfigPath,
		InputWidth:  s.InputWidth,
		InputHeight: s.InputHeight,
		ScaleFactor: s.ScaleFactor,
		SwapRB:      s.SwapRB,
		WallClass:   s.WallClass,
		Timeout:     s.Timeout,
	}
	copy(cfg.Mean[:], s.Mean)
	return cfg
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.Logging.Format
	return cfg
}

// DefaultSurface parses scene.default_surface.
func (c *Config) DefaultSurface() scene.Surface {
	s, _ := scene.ParseSurface(c.Scene.DefaultSurface)
	return s
}

// LoadCatalog builds the catalog described by the catalog section.
func (c *Config) LoadCatalog() (*catalog.Catalog, error) {
	if c.Catalog.File != "" {
		return catalog.Load(c.Catalog.File)
	}
	return catalog.Build(catalog.File{
		TextureDir:    c.Catalog.TextureDir,
		TexturePrefix: c.Catalog.TexturePrefix,
		TextureExt:    c.Catalog.TextureExt,
	}, "")
}

// ServerOptions converts the server section.
func (c *Config) ServerOptions() server.Config {
	var origins []string
	for _, o := range strings.Split(c.Server.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return server.Config{
		Addr:         c.Server.Addr,
		BodyLimitMB:  c.Server.BodyLimitMB,
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
		MaxScenes:    c.Server.MaxScenes,
		CORSOrigins:  origins,
	}
}
