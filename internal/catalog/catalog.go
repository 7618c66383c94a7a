// Package catalog defines the panel size presets and fabric textures a user
// can pick from, and loads them from configuration.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownPanelType = errors.New("unknown panel type")
	ErrUnknownTexture   = errors.New("unknown texture")
)

// Shape is the visible outline of a panel. Geometry always uses the
// bounding rectangle; the shape only affects masking during rendering.
type Shape string

const (
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
)

// PanelType is a named physical size preset.
type PanelType struct {
	Name     string  `mapstructure:"name" json:"name"`
	WidthCm  float64 `mapstructure:"width_cm" json:"width_cm"`
	HeightCm float64 `mapstructure:"height_cm" json:"height_cm"`
	Shape    Shape   `mapstructure:"shape" json:"shape,omitempty"`
}

// IsCircle reports whether the panel renders as a disc.
func (t PanelType) IsCircle() bool {
	return t.Shape == ShapeCircle
}

func (t PanelType) String() string {
	return fmt.Sprintf("%s (%g x %g cm)", t.Name, t.WidthCm, t.HeightCm)
}

// Texture is a named fabric swatch image.
type Texture struct {
	Name      string `mapstructure:"name" json:"name"`
	AssetPath string `mapstructure:"asset_path" json:"asset_path"`
}

// Catalog holds the available panel types and textures in display order.
type Catalog struct {
	PanelTypes []PanelType `json:"panel_types"`
	Textures   []Texture   `json:"textures"`
}

// DefaultPanelTypes returns the built-in size presets.
func DefaultPanelTypes() []PanelType {
	return []PanelType{
		{Name: "M", WidthCm: 60, HeightCm: 60, Shape: ShapeRect},
		{Name: "L", WidthCm: 60, HeightCm: 120, Shape: ShapeRect},
		{Name: "XL", WidthCm: 60, HeightCm: 180, Shape: ShapeRect},
		{Name: "Extra-Large", WidthCm: 95, HeightCm: 190, Shape: ShapeRect},
		{Name: "Moon", WidthCm: 95, HeightCm: 95, Shape: ShapeCircle},
	}
}

// PanelType looks up a panel type by name.
func (c *Catalog) PanelType(name string) (PanelType, error) {
	for _, t := range c.PanelTypes {
		if t.Name == name {
			return t, nil
		}
	}
	return PanelType{}, fmt.Errorf("%w: %q", ErrUnknownPanelType, name)
}

// Texture looks up a texture by name.
func (c *Catalog) Texture(name string) (Texture, error) {
	for _, t := range c.Textures {
		if t.Name == name {
			return t, nil
		}
	}
	return Texture{}, fmt.Errorf("%w: %q", ErrUnknownTexture, name)
}

// PanelTypeNames returns the panel type names in catalog order.
func (c *Catalog) PanelTypeNames() []string {
	names := make([]string, len(c.PanelTypes))
	for i, t := range c.PanelTypes {
		names[i] = t.Name
	}
	return names
}

// TextureNames returns the texture names in catalog order.
func (c *Catalog) TextureNames() []string {
	names := make([]string, len(c.Textures))
	for i, t := range c.Textures {
		names[i] = t.Name
	}
	return names
}

// Validate checks names, dimensions and asset paths. All problems are
// reported together.
func (c *Catalog) Validate() error {
	var problems []string

	if len(c.PanelTypes) == 0 {
		problems = append(problems, "no panel types defined")
	}
	seen := make(map[string]bool)
	for i, t := range c.PanelTypes {
		switch {
		case strings.TrimSpace(t.Name) == "":
			problems = append(problems, fmt.Sprintf("panel_types[%d]: name is empty", i))
		case seen[t.Name]:
			problems = append(problems, fmt.Sprintf("panel_types[%d]: duplicate name %q", i, t.Name))
		}
		seen[t.Name] = true
		if t.WidthCm <= 0 || t.HeightCm <= 0 {
			problems = append(problems, fmt.Sprintf("panel_types[%d] %q: width_cm and height_cm must be positive", i, t.Name))
		}
		switch t.Shape {
		case ShapeRect, ShapeCircle:
		default:
			problems = append(problems, fmt.Sprintf("panel_types[%d] %q: unknown shape %q", i, t.Name, t.Shape))
		}
	}

	seen = make(map[string]bool)
	for i, t := range c.Textures {
		switch {
		case strings.TrimSpace(t.Name) == "":
			problems = append(problems, fmt.Sprintf("textures[%d]: name is empty", i))
		case seen[t.Name]:
			problems = append(problems, fmt.Sprintf("textures[%d]: duplicate name %q", i, t.Name))
		}
		seen[t.Name] = true
		if strings.TrimSpace(t.AssetPath) == "" {
			problems = append(problems, fmt.Sprintf("textures[%d] %q: asset_path is empty", i, t.Name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid catalog: %s", strings.Join(problems, "; "))
	}
	return nil
}

// normalize fills in the default shape and sorts discovered textures.
func (c *Catalog) normalize() {
	for i := range c.PanelTypes {
		if c.PanelTypes[i].Shape == "" {
			c.PanelTypes[i].Shape = ShapeRect
		}
	}
}

func sortTextures(textures []Texture) {
	sort.SliceStable(textures, func(i, j int) bool {
		return textures[i].Name < textures[j].Name
	})
}
