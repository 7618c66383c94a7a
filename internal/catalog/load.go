package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default texture discovery settings, matching the fabric swatch naming
// "Blazer Lite-<colour>.jpg".
const (
	DefaultTexturePrefix = "Blazer Lite-"
	DefaultTextureExt    = ".jpg"
)

// File is the on-disk catalog layout. Any key not listed here is rejected.
type File struct {
	PanelTypes    []PanelType `mapstructure:"panel_types"`
	Textures      []Texture   `mapstructure:"textures"`
	TextureDir    string      `mapstructure:"texture_dir"`
	TexturePrefix string      `mapstructure:"texture_prefix"`
	TextureExt    string      `mapstructure:"texture_ext"`
}

// Load reads a catalog file (yaml, toml or json, chosen by extension).
// Relative paths inside the file are resolved against the file's directory.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var f File
	if err := v.UnmarshalExact(&f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return Build(f, filepath.Dir(path))
}

// Build turns a parsed catalog file into a validated Catalog. Panel types
// fall back to the built-in presets when the file defines none.
func Build(f File, baseDir string) (*Catalog, error) {
	c := &Catalog{
		PanelTypes: f.PanelTypes,
	}
	if len(c.PanelTypes) == 0 {
		c.PanelTypes = DefaultPanelTypes()
	}

	for _, t := range f.Textures {
		t.AssetPath = resolve(baseDir, t.AssetPath)
		c.Textures = append(c.Textures, t)
	}

	if f.TextureDir != "" {
		discovered, err := DiscoverTextures(resolve(baseDir, f.TextureDir), f.TexturePrefix, f.TextureExt)
		if err != nil {
			return nil, err
		}
		c.Textures = mergeTextures(c.Textures, discovered)
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default builds the built-in catalog with textures discovered in dir.
func Default(textureDir string) (*Catalog, error) {
	return Build(File{
		TextureDir:    textureDir,
		TexturePrefix: DefaultTexturePrefix,
		TextureExt:    DefaultTextureExt,
	}, "")
}

// DiscoverTextures lists image files in dir with the given extension and
// derives display names by stripping prefix and extension. Results are
// sorted by name.
func DiscoverTextures(dir, prefix, ext string) ([]Texture, error) {
	if ext == "" {
		ext = DefaultTextureExt
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list textures in %s: %w", dir, err)
	}

	var textures []Texture
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fileName := e.Name()
		if !strings.EqualFold(filepath.Ext(fileName), ext) {
			continue
		}
		name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		name = strings.TrimPrefix(name, prefix)
		if name == "" {
			continue
		}
		textures = append(textures, Texture{
			Name:      name,
			AssetPath: filepath.Join(dir, fileName),
		})
	}
	sortTextures(textures)
	return textures, nil
}

// mergeTextures appends discovered textures whose names are not already
// declared explicitly.
func mergeTextures(explicit, discovered []Texture) []Texture {
	have := make(map[string]bool, len(explicit))
	for _, t := range explicit {
		have[t.Name] = true
	}
	for _, t := range discovered {
		if !have[t.Name] {
			explicit = append(explicit, t)
		}
	}
	return explicit
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
