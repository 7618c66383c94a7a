// Package compositor turns a scene into a flat image. Everything here is a
// pure function of its inputs.
package compositor

import (
	"fmt"
	"strings"

	"panelviz/internal/catalog"
	"panelviz/internal/scene"
	"panelviz/pkg/geometry"
)

// PositionMode selects how scene.Position is interpreted. A deployment
// picks one mode; they are never mixed within a scene.
type PositionMode int

const (
	// PositionNormalized treats X and Y as percentages (0-100) of the free
	// range, so 0 is flush left/top and 100 flush right/bottom.
	PositionNormalized PositionMode = iota
	// PositionAbsolute treats X and Y as the top-left corner in pixels.
	PositionAbsolute
)

func (m PositionMode) String() string {
	switch m {
	case PositionAbsolute:
		return "absolute"
	default:
		return "normalized"
	}
}

// ParsePositionMode maps "normalized" / "absolute" to a PositionMode.
func ParsePositionMode(s string) (PositionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normalized":
		return PositionNormalized, nil
	case "absolute":
		return PositionAbsolute, nil
	default:
		return PositionNormalized, fmt.Errorf("unknown position mode %q", s)
	}
}

// OrientedSize returns the panel type's size in centimeters, with width and
// height swapped when rotated.
func OrientedSize(t catalog.PanelType, rotated bool) geometry.Size {
	size := geometry.NewSize(t.WidthCm, t.HeightCm)
	if rotated {
		return size.Swap()
	}
	return size
}

// ToPixels converts centimeters to pixels, rounding half up. Negative
// results clamp to zero.
func ToPixels(cm, scale float64) int {
	px := geometry.RoundHalfUp(cm * scale)
	if px < 0 {
		return 0
	}
	return px
}

// PixelSize returns the panel's on-image bounding box. Each axis is rounded
// before the swap so rotating never changes the pixel dimensions.
func PixelSize(t catalog.PanelType, rotated bool, scale float64) geometry.SizeInt {
	size := geometry.SizeInt{
		Width:  ToPixels(t.WidthCm, scale),
		Height: ToPixels(t.HeightCm, scale),
	}
	if rotated {
		return size.Swap()
	}
	return size
}

// PlacePanel returns the top-left pixel of a panel of panelSize placed at
// pos inside a scene of sceneSize.
//
// In normalized mode pos is clamped to 0-100 and scaled over the free range
// max(0, scene - panel). In absolute mode pos is used as-is, and clamped to
// keep the panel inside the scene when clamp is set.
func PlacePanel(sceneSize, panelSize geometry.SizeInt, pos scene.Position, mode PositionMode, clamp bool) geometry.PointInt {
	freeX := max(0, sceneSize.Width-panelSize.Width)
	freeY := max(0, sceneSize.Height-panelSize.Height)

	if mode == PositionAbsolute {
		p := geometry.NewPoint2D(pos.X, pos.Y).Round()
		if clamp {
			p.X = geometry.ClampInt(p.X, 0, freeX)
			p.Y = geometry.ClampInt(p.Y, 0, freeY)
		}
		return p
	}

	px := geometry.ClampFloat(pos.X, 0, 100)
	py := geometry.ClampFloat(pos.Y, 0, 100)
	return geometry.PointInt{
		X: geometry.RoundHalfUp(px / 100 * float64(freeX)),
		Y: geometry.RoundHalfUp(py / 100 * float64(freeY)),
	}
}

// NormalizePosition is the inverse of PlacePanel: it converts a desired
// top-left pixel into a Position for the given mode.
func NormalizePosition(sceneSize, panelSize geometry.SizeInt, origin geometry.PointInt, mode PositionMode) scene.Position {
	if mode == PositionAbsolute {
		return scene.Position{X: float64(origin.X), Y: float64(origin.Y)}
	}
	return scene.Position{
		X: percentOf(origin.X, sceneSize.Width-panelSize.Width),
		Y: percentOf(origin.Y, sceneSize.Height-panelSize.Height),
	}
}

func percentOf(v, free int) float64 {
	if free <= 0 {
		return 0
	}
	return geometry.ClampFloat(float64(v)/float64(free)*100, 0, 100)
}

// PanelBounds returns the rectangle a panel occupies in the rendered image,
// excluding its shadow.
func PanelBounds(sceneSize geometry.SizeInt, p scene.Panel, opts Options) geometry.RectInt {
	size := PixelSize(p.Type, p.Rotated, opts.Scale)
	origin := PlacePanel(sceneSize, size, p.Position, opts.Mode, opts.ClampAbsolute)
	return geometry.RectInt{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
}

// HitTest returns the topmost panel whose bounding box contains pt.
func HitTest(s *scene.Scene, pt geometry.PointInt, opts Options) (scene.Panel, bool) {
	panels := s.Panels()
	size := s.Size()
	for i := len(panels) - 1; i >= 0; i-- {
		if PanelBounds(size, panels[i], opts).Contains(pt) {
			return panels[i], true
		}
	}
	return scene.Panel{}, false
}
