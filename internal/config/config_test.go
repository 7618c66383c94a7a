package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"panelviz/internal/compositor"
	pvimage "panelviz/internal/image"
	"panelviz/internal/scale"
	"panelviz/internal/scene"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, file string) (*Config, error) {
	t.Helper()
	m, err := NewManager(file)
	require.NoError(t, err)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m.Get(), nil
}

func TestDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg, err := loadFrom(t, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 3, cfg.Scene.InitialPanels)
	assert.Equal(t, 90, cfg.Render.JPEGQuality)
	assert.Equal(t, 5*time.Second, cfg.Segmentation.Timeout)
	assert.Equal(t, "manual", cfg.Scale.Strategy)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panelviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
render:
  position_mode: absolute
  clamp_absolute: true
  fit: stretch
  shadow:
    opacity: 0.5
    color: "#202020"
    blend: multiply
scale:
  strategy: detected
  assumed_wall_width_cm: 500
segmentation:
  timeout: 2s
  wall_class: -1
scene:
  initial_panels: 0
  default_surface: ceiling
`), 0644))

	cfg, err := loadFrom(t, path)
	require.NoError(t, err)

	opts, err := cfg.RenderOptions()
	require.NoError(t, err)
	assert.Equal(t, compositor.PositionAbsolute, opts.Mode)
	assert.True(t, opts.ClampAbsolute)
	assert.Equal(t, pvimage.FitStretch, opts.Fit)
	assert.Equal(t, pvimage.BlendMultiply, opts.Shadow.Blend)
	assert.Equal(t, 0.5, opts.Shadow.Opacity)
	assert.Equal(t, uint8(0x20), opts.Shadow.Color.R)
	assert.Equal(t, 10, opts.Shadow.OffsetX)

	rc, err := cfg.ResolverConfig()
	require.NoError(t, err)
	assert.Equal(t, scale.KindDetected, rc.Strategy)
	assert.Equal(t, 500.0, rc.AssumedWidthCm)
	assert.Equal(t, 2*time.Second, rc.Timeout)

	sc := cfg.SegmentConfig()
	assert.Equal(t, -1, sc.WallClass)
	assert.Equal(t, 512, sc.InputWidth)

	assert.Equal(t, 0, cfg.Scene.InitialPanels)
	assert.Equal(t, scene.SurfaceCeiling, cfg.DefaultSurface())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	chdir(t, t.TempDir())
	t.Setenv("PANELVIZ_SCALE_STRATEGY", "fixed")
	t.Setenv("PANELVIZ_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("PANELVIZ_LOGGING_LEVEL", "debug")

	cfg, err := loadFrom(t, "")
	require.NoError(t, err)
	assert.Equal(t, "fixed", cfg.Scale.Strategy)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, zerolog.DebugLevel, cfg.LoggerConfig().Level)
}

func TestValidationCollectsProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
render:
  position_mode: sideways
  jpeg_quality: 0
scale:
  strategy: guess
segmentation:
  enabled: true
logging:
  format: xml
`), 0644))

	_, err := loadFrom(t, path)
	require.Error(t, err)
	for _, want := range []string{
		"render.position_mode",
		"render.jpeg_quality",
		"scale.strategy",
		"segmentation.model_path",
		"logging.format",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestExplicitFileMustExist(t *testing.T) {
	_, err := loadFrom(t, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadCatalogFromTextureDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Blazer Lite-Sand.jpg", "Blazer Lite-Grey.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	cfg := DefaultConfig()
	cfg.Catalog.TextureDir = dir

	cat, err := cfg.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"Grey", "Sand"}, cat.TextureNames())
	assert.Len(t, cat.PanelTypes, 5)
}

func TestGetReturnsCopy(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	chdir(t, t.TempDir())
	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Load())

	a := m.Get()
	a.Segmentation.Mean[0] = 99
	a.Server.Addr = "changed"

	b := m.Get()
	assert.Equal(t, 0.0, b.Segmentation.Mean[0])
	assert.Equal(t, ":8080", b.Server.Addr)
}

func TestServerOptionsSplitsOrigins(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.ServerOptions().CORSOrigins)

	cfg.Server.CORSOrigins = "http://localhost:3000, https://example.com,"
	opts := cfg.ServerOptions()
	assert.Equal(t, []string{"http://localhost:3000", "https://example.com"}, opts.CORSOrigins)
	assert.Equal(t, ":8080", opts.Addr)
	assert.Equal(t, 64, opts.MaxScenes)
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
