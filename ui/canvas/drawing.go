package canvas

import (
	"image"
	"image/color"

	"panelviz/pkg/colorutil"
	"panelviz/pkg/geometry"
)

const (
	selectionThickness = 2
	handleSize         = 7
)

var selectionColor = color.RGBA(colorutil.Selection)

// drawRectOutline draws a dashed rectangle outline. Dashes alternate
// colour and black so the outline shows on light and dark fabrics.
func drawRectOutline(output *image.RGBA, r geometry.RectInt, col color.RGBA, thickness int) {
	x1, y1 := r.X, r.Y
	x2, y2 := r.X+r.Width-1, r.Y+r.Height-1

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setDashed(output, x, y1+t, col)
			setDashed(output, x, y2-t, col)
		}
		for y := y1; y <= y2; y++ {
			setDashed(output, x1+t, y, col)
			setDashed(output, x2-t, y, col)
		}
	}
}

// drawEllipseOutline draws the ring of the ellipse inscribed in r.
func drawEllipseOutline(output *image.RGBA, r geometry.RectInt, col color.RGBA, thickness int) {
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	bounds := output.Bounds()

	cx := float64(r.X) + float64(r.Width)/2
	cy := float64(r.Y) + float64(r.Height)/2
	rx := float64(r.Width) / 2
	ry := float64(r.Height) / 2
	irx := rx - float64(thickness)
	iry := ry - float64(thickness)

	for y := r.Y; y < r.Y+r.Height; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := r.X; x < r.X+r.Width; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			outer := (dx*dx)/(rx*rx) + (dy*dy)/(ry*ry)
			if outer > 1 {
				continue
			}
			if irx > 0 && iry > 0 && (dx*dx)/(irx*irx)+(dy*dy)/(iry*iry) < 1 {
				continue
			}
			setDashed(output, x, y, col)
		}
	}
}

// drawHandles marks the corners of r with filled squares.
func drawHandles(output *image.RGBA, r geometry.RectInt, col color.RGBA) {
	half := handleSize / 2
	corners := []geometry.PointInt{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width - 1, Y: r.Y},
		{X: r.X, Y: r.Y + r.Height - 1},
		{X: r.X + r.Width - 1, Y: r.Y + r.Height - 1},
	}
	for _, c := range corners {
		for y := c.Y - half; y <= c.Y+half; y++ {
			for x := c.X - half; x <= c.X+half; x++ {
				setPixel(output, x, y, col)
			}
		}
	}
}

func setDashed(output *image.RGBA, x, y int, col color.RGBA) {
	if (x+y)%8 < 4 {
		setPixel(output, x, y, col)
	} else {
		setPixel(output, x, y, color.RGBA{A: 255})
	}
}

func setPixel(output *image.RGBA, x, y int, col color.RGBA) {
	if (image.Point{X: x, Y: y}).In(output.Bounds()) {
		output.SetRGBA(x, y, col)
	}
}
