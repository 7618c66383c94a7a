package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
)

// BlendMode specifies how layers are composited.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDifference
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	case BlendOverlay:
		return "Overlay"
	case BlendDifference:
		return "Difference"
	default:
		return "Unknown"
	}
}

// ParseBlendMode maps a case-insensitive name to a BlendMode.
func ParseBlendMode(s string) (BlendMode, error) {
	for m := BlendNormal; m <= BlendDifference; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return BlendNormal, fmt.Errorf("unknown blend mode %q", s)
}

// Composite stacks layers on top of a base image.
type Composite struct {
	Base   image.Image
	Layers []*CompositeLayer
}

// CompositeLayer is one image placed at Bounds in base coordinates.
// Mask, when set, is an alpha mask in the layer's own coordinates.
type CompositeLayer struct {
	Image     image.Image
	Mask      image.Image
	BlendMode BlendMode
	Opacity   float64
	Bounds    image.Rectangle
}

// NewComposite creates a Composite over base. base is never modified.
func NewComposite(base image.Image) *Composite {
	return &Composite{Base: base}
}

// AddLayer adds a layer to the composite. Layers paint in insertion order.
func (c *Composite) AddLayer(img, mask image.Image, mode BlendMode, opacity float64, at image.Rectangle) {
	c.Layers = append(c.Layers, &CompositeLayer{
		Image:     img,
		Mask:      mask,
		BlendMode: mode,
		Opacity:   opacity,
		Bounds:    at,
	})
}

// Render produces the final composited image, origin at (0,0).
func (c *Composite) Render() *image.RGBA {
	bounds := c.Base.Bounds()
	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), c.Base, bounds.Min, draw.Src)

	for _, cl := range c.Layers {
		if cl.Image == nil || cl.Opacity <= 0 || cl.Bounds.Empty() {
			continue
		}
		c.compositeLayer(result, cl)
	}

	return result
}

// compositeLayer blends a single layer onto the result.
func (c *Composite) compositeLayer(dst *image.RGBA, cl *CompositeLayer) {
	if cl.BlendMode == BlendNormal {
		mask, maskPt := layerMask(cl)
		draw.DrawMask(dst, cl.Bounds, cl.Image, origin(cl.Image), mask, maskPt, draw.Over)
		return
	}

	area := cl.Bounds.Intersect(dst.Bounds())
	src := cl.Image
	srcMin := origin(src)

	for y := area.Min.Y; y < area.Max.Y; y++ {
		ly := y - cl.Bounds.Min.Y
		for x := area.Min.X; x < area.Max.X; x++ {
			lx := x - cl.Bounds.Min.X

			coverage := 1.0
			if cl.Mask != nil {
				mb := cl.Mask.Bounds()
				_, _, _, ma := cl.Mask.At(mb.Min.X+lx, mb.Min.Y+ly).RGBA()
				if ma == 0 {
					continue
				}
				coverage = float64(ma) / 65535.0
			}

			srcColor := src.At(srcMin.X+lx, srcMin.Y+ly)
			dstColor := dst.RGBAAt(x, y)
			dst.SetRGBA(x, y, blend(dstColor, srcColor, cl.BlendMode, cl.Opacity*coverage))
		}
	}
}

// layerMask folds the layer opacity into its mask for draw.DrawMask.
func layerMask(cl *CompositeLayer) (image.Image, image.Point) {
	opacity := math.Min(cl.Opacity, 1)
	if cl.Mask == nil {
		if opacity >= 1 {
			return nil, image.Point{}
		}
		return image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)}), image.Point{}
	}
	if opacity >= 1 {
		return cl.Mask, cl.Mask.Bounds().Min
	}

	mb := cl.Mask.Bounds()
	scaled := image.NewAlpha(image.Rect(0, 0, mb.Dx(), mb.Dy()))
	for y := 0; y < mb.Dy(); y++ {
		for x := 0; x < mb.Dx(); x++ {
			_, _, _, a := cl.Mask.At(mb.Min.X+x, mb.Min.Y+y).RGBA()
			scaled.SetAlpha(x, y, color.Alpha{A: uint8(float64(a>>8)*opacity + 0.5)})
		}
	}
	return scaled, image.Point{}
}

// origin returns the point of img that maps onto the layer's top-left.
func origin(img image.Image) image.Point {
	if _, ok := img.(*image.Uniform); ok {
		return image.Point{}
	}
	return img.Bounds().Min
}

// blend performs the blend operation between two colors.
func blend(dst color.RGBA, src color.Color, mode BlendMode, opacity float64) color.RGBA {
	sr, sg, sb, sa := src.RGBA()

	// Convert to 0-1 range, un-premultiplying the source
	sf := [4]float64{0, 0, 0, float64(sa) / 65535.0}
	if sa > 0 {
		sf[0] = float64(sr) / float64(sa)
		sf[1] = float64(sg) / float64(sa)
		sf[2] = float64(sb) / float64(sa)
	}
	df := [4]float64{float64(dst.R) / 255.0, float64(dst.G) / 255.0, float64(dst.B) / 255.0, float64(dst.A) / 255.0}

	var rf [3]float64

	switch mode {
	case BlendNormal:
		rf[0] = sf[0]
		rf[1] = sf[1]
		rf[2] = sf[2]

	case BlendMultiply:
		rf[0] = sf[0] * df[0]
		rf[1] = sf[1] * df[1]
		rf[2] = sf[2] * df[2]

	case BlendScreen:
		rf[0] = 1 - (1-sf[0])*(1-df[0])
		rf[1] = 1 - (1-sf[1])*(1-df[1])
		rf[2] = 1 - (1-sf[2])*(1-df[2])

	case BlendOverlay:
		for i := 0; i < 3; i++ {
			if df[i] < 0.5 {
				rf[i] = 2 * sf[i] * df[i]
			} else {
				rf[i] = 1 - 2*(1-sf[i])*(1-df[i])
			}
		}

	case BlendDifference:
		rf[0] = math.Abs(sf[0] - df[0])
		rf[1] = math.Abs(sf[1] - df[1])
		rf[2] = math.Abs(sf[2] - df[2])
	}

	// Apply opacity and alpha blending
	alpha := sf[3] * opacity
	finalR := rf[0]*alpha + df[0]*(1-alpha)
	finalG := rf[1]*alpha + df[1]*(1-alpha)
	finalB := rf[2]*alpha + df[2]*(1-alpha)
	finalA := alpha + df[3]*(1-alpha)

	return color.RGBA{
		R: uint8(clamp(finalR, 0, 1)*255 + 0.5),
		G: uint8(clamp(finalG, 0, 1)*255 + 0.5),
		B: uint8(clamp(finalB, 0, 1)*255 + 0.5),
		A: uint8(clamp(finalA, 0, 1)*255 + 0.5),
	}
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
