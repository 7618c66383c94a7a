// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Round converts to PointInt using round-half-up on both axes.
func (p Point2D) Round() PointInt {
	return PointInt{X: RoundHalfUp(p.X), Y: RoundHalfUp(p.Y)}
}

// PointInt represents a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToFloat converts to Point2D.
func (p PointInt) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// ToImage converts to an image.Point.
func (p PointInt) ToImage() image.Point {
	return image.Pt(p.X, p.Y)
}

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectFromImage converts an image.Rectangle to RectInt.
func RectFromImage(r image.Rectangle) RectInt {
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ToImage converts to an image.Rectangle.
func (r RectInt) ToImage() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Contains returns true if the point is inside the rectangle.
// The right and bottom edges are exclusive.
func (r RectInt) Contains(p PointInt) bool {
	return p.X >= r.X && p.X < r.X+r.Width &&
		p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Scale returns the rectangle with every coordinate multiplied by sx/sy,
// rounded half-up.
func (r RectInt) Scale(sx, sy float64) RectInt {
	x0 := RoundHalfUp(float64(r.X) * sx)
	y0 := RoundHalfUp(float64(r.Y) * sy)
	x1 := RoundHalfUp(float64(r.X+r.Width) * sx)
	y1 := RoundHalfUp(float64(r.Y+r.Height) * sy)
	return RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Size represents a 2D size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// Swap returns the size with width and height exchanged.
func (s Size) Swap() Size {
	return Size{Width: s.Height, Height: s.Width}
}

// SizeInt is a size in whole pixels.
type SizeInt struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SizeOf returns the pixel size of a rectangle.
func SizeOf(r image.Rectangle) SizeInt {
	return SizeInt{Width: r.Dx(), Height: r.Dy()}
}

// Swap returns the size with width and height exchanged.
func (s SizeInt) Swap() SizeInt {
	return SizeInt{Width: s.Height, Height: s.Width}
}

// Empty reports whether either dimension is zero or negative.
func (s SizeInt) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect returns a rectangle of this size anchored at the origin.
func (s SizeInt) Rect() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// RoundHalfUp rounds to the nearest integer, with .5 going towards +Inf.
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ClampInt limits v to [lo, hi]. If hi < lo, lo wins.
func ClampInt(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// ClampFloat limits v to [lo, hi].
func ClampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
