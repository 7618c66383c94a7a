package config

import (
	"fmt"
	"strings"

	"panelviz/internal/compositor"
	pvimage "panelviz/internal/image"
	"panelviz/internal/logging"
	"panelviz/internal/scale"
	"panelviz/internal/scene"
	"panelviz/pkg/colorutil"
)

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string
	add := func(format string, args ...any) {
		validationErrors = append(validationErrors, fmt.Sprintf(format, args...))
	}

	if _, err := compositor.ParsePositionMode(config.Render.PositionMode); err != nil {
		add("render.position_mode: %v", err)
	}
	if _, err := pvimage.ParseFitMode(config.Render.Fit); err != nil {
		add("render.fit: %v", err)
	}
	if q := config.Render.JPEGQuality; q < 1 || q > 100 {
		add("render.jpeg_quality must be between 1 and 100 (got: %d)", q)
	}
	if o := config.Render.Shadow.Opacity; o < 0 || o > 1 {
		add("render.shadow.opacity must be between 0 and 1 (got: %g)", o)
	}
	if _, err := colorutil.ParseHex(config.Render.Shadow.Color); err != nil {
		add("render.shadow.color: %v", err)
	}
	if _, err := pvimage.ParseBlendMode(config.Render.Shadow.Blend); err != nil {
		add("render.shadow.blend: %v", err)
	}

	if _, err := scale.ParseKind(config.Scale.Strategy); err != nil {
		add("scale.strategy: %v", err)
	}
	if config.Scale.DefaultPxPerCm <= 0 {
		add("scale.default_px_per_cm must be positive")
	}
	if config.Scale.AssumedWallWidthCm <= 0 {
		add("scale.assumed_wall_width_cm must be positive")
	}

	seg := config.Segmentation
	if seg.Enabled && seg.ModelPath == "" {
		add("segmentation.model_path is required when segmentation is enabled")
	}
	if seg.InputWidth <= 0 || seg.InputHeight <= 0 {
		add("segmentation.input_width and input_height must be positive")
	}
	if len(seg.Mean) != 0 && len(seg.Mean) != 3 {
		add("segmentation.mean must have 3 values (got: %d)", len(seg.Mean))
	}
	if seg.WallClass < segmentClassLargest {
		add("segmentation.wall_class must be %d or a class index", segmentClassLargest)
	}
	if seg.Timeout <= 0 {
		add("segmentation.timeout must be positive")
	}

	if config.Scene.InitialPanels < 0 {
		add("scene.initial_panels must be non-negative")
	}
	if _, err := scene.ParseSurface(config.Scene.DefaultSurface); err != nil {
		add("scene.default_surface: %v", err)
	}

	if config.Server.BodyLimitMB <= 0 {
		add("server.body_limit_mb must be positive")
	}
	if config.Server.MaxScenes <= 0 {
		add("server.max_scenes must be positive")
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		add("logging.level: %v", err)
	}
	switch config.Logging.Format {
	case "json", "console":
	default:
		add("logging.format must be one of: json, console (got: %s)", config.Logging.Format)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}
	return nil
}
