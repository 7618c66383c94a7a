// Package config provides configuration management for panelviz with Viper integration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	appName    = "panelviz"
	envPrefix  = "PANELVIZ"
	configName = "panelviz"
)

// Config represents the complete configuration for panelviz.
type Config struct {
	Catalog      CatalogConfig      `mapstructure:"catalog" yaml:"catalog"`
	Render       RenderConfig       `mapstructure:"render" yaml:"render"`
	Scale        ScaleConfig        `mapstructure:"scale" yaml:"scale"`
	Segmentation SegmentationConfig `mapstructure:"segmentation" yaml:"segmentation"`
	Scene        SceneConfig        `mapstructure:"scene" yaml:"scene"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// CatalogConfig points at the panel and texture catalog.
type CatalogConfig struct {
	// File is an optional catalog file; without it the built-in panel types
	// are used with textures discovered in TextureDir.
	File          string `mapstructure:"file" yaml:"file"`
	TextureDir    string `mapstructure:"texture_dir" yaml:"texture_dir"`
	TexturePrefix string `mapstructure:"texture_prefix" yaml:"texture_prefix"`
	TextureExt    string `mapstructure:"texture_ext" yaml:"texture_ext"`
	Watch         bool   `mapstructure:"watch" yaml:"watch"`
}

// RenderConfig controls the compositor.
type RenderConfig struct {
	PositionMode  string       `mapstructure:"position_mode" yaml:"position_mode"`
	ClampAbsolute bool         `mapstructure:"clamp_absolute" yaml:"clamp_absolute"`
	Fit           string       `mapstructure:"fit" yaml:"fit"`
	JPEGQuality   int          `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	Shadow        ShadowConfig `mapstructure:"shadow" yaml:"shadow"`
}

// ShadowConfig describes the drop shadow under each panel.
type ShadowConfig struct {
	OffsetX int     `mapstructure:"offset_x" yaml:"offset_x"`
	OffsetY int     `mapstructure:"offset_y" yaml:"offset_y"`
	Opacity float64 `mapstructure:"opacity" yaml:"opacity"`
	Color   string  `mapstructure:"color" yaml:"color"`
	Blend   string  `mapstructure:"blend" yaml:"blend"`
}

// ScaleConfig selects how pixels per centimeter are found.
type ScaleConfig struct {
	Strategy           string  `mapstructure:"strategy" yaml:"strategy"`
	DefaultPxPerCm     float64 `mapstructure:"default_px_per_cm" yaml:"default_px_per_cm"`
	AssumedWallWidthCm float64 `mapstructure:"assumed_wall_width_cm" yaml:"assumed_wall_width_cm"`
}

// SegmentationConfig describes the wall segmentation network.
type SegmentationConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	ModelPath   string        `mapstructure:"model_path" yaml:"model_path"`
	ConfigPath  string        `mapstructure:"config_path" yaml:"config_path"`
	InputWidth  int           `mapstructure:"input_width" yaml:"input_width"`
	InputHeight int           `mapstructure:"input_height" yaml:"input_height"`
	ScaleFactor float64       `mapstructure:"scale_factor" yaml:"scale_factor"`
	Mean        []float64     `mapstructure:"mean" yaml:"mean"`
	SwapRB      bool          `mapstructure:"swap_rb" yaml:"swap_rb"`
	WallClass   int           `mapstructure:"wall_class" yaml:"wall_class"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SceneConfig controls new scenes.
type SceneConfig struct {
	InitialPanels  int    `mapstructure:"initial_panels" yaml:"initial_panels"`
	DefaultSurface string `mapstructure:"default_surface" yaml:"default_surface"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	BodyLimitMB  int           `mapstructure:"body_limit_mb" yaml:"body_limit_mb"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxScenes    int           `mapstructure:"max_scenes" yaml:"max_scenes"`
	// CORSOrigins is a comma-separated allow list. Empty disables CORS.
	CORSOrigins  string        `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	explicit  bool
	mu        sync.RWMutex
	callbacks []func(*Config)
	watching  bool
}

// NewManager creates a new configuration manager. With an empty file the
// config is searched as panelviz.{yaml,toml,json} in the user config
// directory and the working directory; a missing file is not an error.
func NewManager(file string) (*Manager, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		configDir, err := GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Manager{
		viper:     v,
		explicit:  file != "",
		callbacks: make([]func(*Config), 0),
	}, nil
}

// Load loads the configuration from file and environment variables.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.explicit || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := m.unmarshal()
	if err != nil {
		return err
	}
	m.config = config
	return nil
}

func (m *Manager) unmarshal() (*Config, error) {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	configCopy.Segmentation.Mean = append([]float64(nil), m.config.Segmentation.Mean...)
	return &configCopy
}

// ConfigFile returns the file the configuration was read from, if any.
func (m *Manager) ConfigFile() string {
	return m.viper.ConfigFileUsed()
}

// Watch starts watching the config file for changes and reloads automatically.
func (m *Manager) Watch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		return nil
	}
	if m.viper.ConfigFileUsed() == "" {
		return errors.New("no config file to watch")
	}

	m.viper.OnConfigChange(func(_ fsnotify.Event) {
		config, err := m.reload()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to reload config: %v\n", err)
			return
		}

		m.mu.RLock()
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.RUnlock()

		for _, callback := range callbacks {
			callback(config)
		}
	})
	m.viper.WatchConfig()

	m.watching = true
	return nil
}

// OnConfigChange registers a callback function to be called when config changes.
func (m *Manager) OnConfigChange(callback func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks = append(m.callbacks, callback)
}

// reload re-reads an already loaded file. Viper has re-read it by the time
// the change callback runs.
func (m *Manager) reload() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.unmarshal()
	if err != nil {
		return nil, err
	}
	m.config = config
	return config, nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/panelviz, falling back to the
// platform's user config directory.
func GetConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}
