package canvas

import (
	"image"
	"image/color"
	"testing"

	"panelviz/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func TestFitZoom(t *testing.T) {
	assert.InDelta(t, 0.95, fitZoom(geometry.SizeInt{Width: 1000, Height: 500}, 1000, 800), 1e-9)
	assert.InDelta(t, 0.475, fitZoom(geometry.SizeInt{Width: 1000, Height: 1000}, 1000, 500), 1e-9)
}

func TestDrawRectOutline(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	drawRectOutline(img, geometry.RectInt{X: 2, Y: 2, Width: 10, Height: 10}, selectionColor, 1)

	// Dashes run four pixels of colour then four of black along x+y.
	assert.Equal(t, selectionColor, img.RGBAAt(6, 2))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(2, 2))
	// Interior untouched.
	assert.Equal(t, color.RGBA{}, img.RGBAAt(6, 6))
}

func TestDrawEllipseOutlineLeavesCornersAndCentre(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	drawEllipseOutline(img, geometry.RectInt{X: 0, Y: 0, Width: 40, Height: 40}, selectionColor, 2)

	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(20, 20))
	assert.NotEqual(t, color.RGBA{}, img.RGBAAt(20, 0))
}

func TestHandlesClipToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.NotPanics(t, func() {
		drawHandles(img, geometry.RectInt{X: -5, Y: -5, Width: 30, Height: 30}, selectionColor)
	})
}
