package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"panelviz/internal/catalog"
	pvimage "panelviz/internal/image"
	"panelviz/internal/scene"
	"panelviz/pkg/colorutil"
	"panelviz/pkg/geometry"
)

// ErrInvalidScale is returned when rendering with a non-positive scale.
var ErrInvalidScale = errors.New("scale must be positive")

// TextureSource resolves a texture reference to pixels.
type TextureSource interface {
	Texture(t catalog.Texture) (image.Image, error)
}

// Shadow describes the flat drop shadow painted under every panel.
type Shadow struct {
	OffsetX int
	OffsetY int
	Color   color.NRGBA
	Opacity float64
	Blend   pvimage.BlendMode
}

// DefaultShadow is a 35% black shadow 10px down and right.
func DefaultShadow() Shadow {
	return Shadow{
		OffsetX: 10,
		OffsetY: 10,
		Color:   colorutil.Black,
		Opacity: 0.35,
		Blend:   pvimage.BlendNormal,
	}
}

// Options controls geometry and appearance of a render.
type Options struct {
	Scale         float64 // pixels per centimeter
	Mode          PositionMode
	ClampAbsolute bool
	Fit           pvimage.FitMode
	Shadow        Shadow
}

// DefaultOptions returns normalized positioning, cover fit and the default
// shadow at the given scale.
func DefaultOptions(scale float64) Options {
	return Options{
		Scale:  scale,
		Mode:   PositionNormalized,
		Fit:    pvimage.FitCover,
		Shadow: DefaultShadow(),
	}
}

type fitKey struct {
	path    string
	size    geometry.SizeInt
	rotated bool
}

// RenderScene draws every panel of s over a copy of its base image, back to
// front in list order. Each panel gets its shadow first, then the texture.
//
// All textures are resolved before anything is drawn: if one fails the
// whole render is aborted with that error (a *texture.LoadError from the
// default store) and no output is produced.
func RenderScene(s *scene.Scene, opts Options, textures TextureSource) (*image.RGBA, error) {
	if opts.Scale <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidScale, opts.Scale)
	}

	sceneSize := s.Size()
	comp := pvimage.NewComposite(s.Base())
	shadowColor := opts.Shadow.Color
	shadowColor.A = 255
	shadowSrc := image.NewUniform(shadowColor)

	fitted := make(map[fitKey]*image.RGBA)

	for _, p := range s.Panels() {
		size := PixelSize(p.Type, false, opts.Scale)
		if size.Empty() {
			continue
		}

		key := fitKey{path: p.Texture.AssetPath, size: size, rotated: p.Rotated}
		tex, ok := fitted[key]
		if !ok {
			src, err := textures.Texture(p.Texture)
			if err != nil {
				return nil, fmt.Errorf("panel %s: %w", p.ID, err)
			}
			tex = pvimage.Fit(src, size, opts.Fit)
			if p.Rotated {
				tex = pvimage.Rotate90(tex)
			}
			fitted[key] = tex
		}

		effective := geometry.SizeOf(tex.Bounds())
		origin := PlacePanel(sceneSize, effective, p.Position, opts.Mode, opts.ClampAbsolute)
		at := geometry.RectInt{X: origin.X, Y: origin.Y, Width: effective.Width, Height: effective.Height}.ToImage()

		var mask image.Image
		if p.Type.IsCircle() {
			mask = pvimage.EllipseMask(effective)
		}

		shadowAt := at.Add(image.Pt(opts.Shadow.OffsetX, opts.Shadow.OffsetY))
		comp.AddLayer(shadowSrc, mask, opts.Shadow.Blend, opts.Shadow.Opacity, shadowAt)
		comp.AddLayer(tex, mask, pvimage.BlendNormal, 1, at)
	}

	return comp.Render(), nil
}
