package image

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"panelviz/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// FitMode selects how a texture is mapped onto a panel rectangle.
type FitMode int

const (
	// FitCover scales uniformly until the panel is covered and crops the
	// overflow around the centre.
	FitCover FitMode = iota
	// FitStretch scales each axis independently to the panel size.
	FitStretch
	// FitTile repeats the texture at its native resolution.
	FitTile
)

func (m FitMode) String() string {
	switch m {
	case FitCover:
		return "cover"
	case FitStretch:
		return "stretch"
	case FitTile:
		return "tile"
	default:
		return "unknown"
	}
}

// ParseFitMode maps a case-insensitive name to a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	for m := FitCover; m <= FitTile; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return FitCover, fmt.Errorf("unknown texture fit %q", s)
}

// Fit returns a new image of exactly size filled from src. src is not
// modified.
func Fit(src image.Image, size geometry.SizeInt, mode FitMode) *image.RGBA {
	dst := image.NewRGBA(size.Rect())
	if size.Empty() {
		return dst
	}
	sb := src.Bounds()
	if sb.Empty() {
		return dst
	}

	switch mode {
	case FitTile:
		for y := 0; y < size.Height; y += sb.Dy() {
			for x := 0; x < size.Width; x += sb.Dx() {
				r := image.Rect(x, y, x+sb.Dx(), y+sb.Dy())
				xdraw.Draw(dst, r, src, sb.Min, xdraw.Src)
			}
		}
	case FitStretch:
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	default:
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, coverCrop(sb, size), xdraw.Src, nil)
	}
	return dst
}

// coverCrop returns the centred region of src with the aspect ratio of size.
func coverCrop(sb image.Rectangle, size geometry.SizeInt) image.Rectangle {
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	scale := float64(size.Width) / sw
	if s := float64(size.Height) / sh; s > scale {
		scale = s
	}

	cw := geometry.ClampInt(geometry.RoundHalfUp(float64(size.Width)/scale), 1, sb.Dx())
	ch := geometry.ClampInt(geometry.RoundHalfUp(float64(size.Height)/scale), 1, sb.Dy())
	x0 := sb.Min.X + (sb.Dx()-cw)/2
	y0 := sb.Min.Y + (sb.Dy()-ch)/2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

// Rotate90 returns src rotated 90 degrees clockwise. The result's width is
// src's height and vice versa.
func Rotate90(src image.Image) *image.RGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(sb.Min.X+x, sb.Min.Y+y))
		}
	}
	return dst
}

// EllipseMask returns an alpha mask of size with the inscribed ellipse
// opaque and the corners transparent. For a square size this is a disc.
func EllipseMask(size geometry.SizeInt) *image.Alpha {
	mask := image.NewAlpha(size.Rect())
	if size.Empty() {
		return mask
	}
	rx := float64(size.Width) / 2
	ry := float64(size.Height) / 2

	for y := 0; y < size.Height; y++ {
		dy := (float64(y) + 0.5 - ry) / ry
		for x := 0; x < size.Width; x++ {
			dx := (float64(x) + 0.5 - rx) / rx
			if dx*dx+dy*dy <= 1 {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return mask
}
