package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 0, RoundHalfUp(0))
	assert.Equal(t, 1, RoundHalfUp(0.5))
	assert.Equal(t, 0, RoundHalfUp(0.49))
	assert.Equal(t, 135, RoundHalfUp(134.5))
	assert.Equal(t, -1, RoundHalfUp(-1.5))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 5, ClampInt(5, 0, 10))
	assert.Equal(t, 0, ClampInt(-3, 0, 10))
	assert.Equal(t, 10, ClampInt(30, 0, 10))
	// An inverted range collapses onto the lower bound.
	assert.Equal(t, 0, ClampInt(7, 0, -20))
}

func TestSizeSwap(t *testing.T) {
	s := SizeInt{Width: 135, Height: 270}
	assert.Equal(t, SizeInt{Width: 270, Height: 135}, s.Swap())
	assert.Equal(t, s, s.Swap().Swap())
	assert.Equal(t, Size{Width: 2, Height: 1}, NewSize(1, 2).Swap())
}

func TestRectIntRoundTrip(t *testing.T) {
	r := image.Rect(10, 20, 110, 70)
	ri := RectFromImage(r)
	assert.Equal(t, RectInt{X: 10, Y: 20, Width: 100, Height: 50}, ri)
	assert.Equal(t, r, ri.ToImage())
	assert.True(t, ri.Contains(PointInt{X: 10, Y: 20}))
	assert.False(t, ri.Contains(PointInt{X: 110, Y: 20}))
}

func TestRectIntScale(t *testing.T) {
	r := RectInt{X: 10, Y: 10, Width: 20, Height: 40}
	assert.Equal(t, RectInt{X: 20, Y: 5, Width: 40, Height: 20}, r.Scale(2, 0.5))
}
