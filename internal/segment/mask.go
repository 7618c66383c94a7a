package segment

import (
	"fmt"
	"image"

	"panelviz/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// ScorePlanes converts a flat [C,H,W] float32 tensor into one matrix per
// class.
func ScorePlanes(data []float32, classes, rows, cols int) ([]*mat.Dense, error) {
	if classes <= 0 || rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid tensor shape [%d,%d,%d]", classes, rows, cols)
	}
	plane := rows * cols
	if len(data) < classes*plane {
		return nil, fmt.Errorf("tensor has %d values, want %d", len(data), classes*plane)
	}

	planes := make([]*mat.Dense, classes)
	for c := 0; c < classes; c++ {
		vals := make([]float64, plane)
		for i, v := range data[c*plane : (c+1)*plane] {
			vals[i] = float64(v)
		}
		planes[c] = mat.NewDense(rows, cols, vals)
	}
	return planes, nil
}

// LabelMap returns the per-pixel argmax class over the score planes.
func LabelMap(planes []*mat.Dense) (*mat.Dense, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("no score planes")
	}
	rows, cols := planes[0].Dims()
	for i, p := range planes[1:] {
		if r, c := p.Dims(); r != rows || c != cols {
			return nil, fmt.Errorf("plane %d is %dx%d, want %dx%d", i+1, r, c, rows, cols)
		}
	}

	labels := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			best, bestScore := 0, planes[0].At(y, x)
			for c := 1; c < len(planes); c++ {
				if s := planes[c].At(y, x); s > bestScore {
					best, bestScore = c, s
				}
			}
			labels.Set(y, x, float64(best))
		}
	}
	return labels, nil
}

// ClassMask returns a 0/1 mask of the pixels labelled class.
func ClassMask(labels *mat.Dense, class int) *mat.Dense {
	rows, cols := labels.Dims()
	mask := mat.NewDense(rows, cols, nil)
	mask.Apply(func(i, j int, v float64) float64 {
		if int(labels.At(i, j)) == class {
			return 1
		}
		return 0
	}, mask)
	return mask
}

// MaskArea counts the set pixels of a 0/1 mask.
func MaskArea(mask *mat.Dense) int {
	return int(mat.Sum(mask))
}

// MaskBounds returns the smallest rectangle containing every set pixel, in
// mask coordinates. It is empty when the mask is.
func MaskBounds(mask *mat.Dense) image.Rectangle {
	rows, cols := mask.Dims()
	minX, minY := cols, rows
	maxX, maxY := -1, -1
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if mask.At(y, x) == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// LargestClass returns the class label covering the most pixels.
func LargestClass(labels *mat.Dense, classes int) int {
	counts := make([]int, classes)
	rows, cols := labels.Dims()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if c := int(labels.At(y, x)); c >= 0 && c < classes {
				counts[c]++
			}
		}
	}
	best := 0
	for c, n := range counts {
		if n > counts[best] {
			best = c
		}
	}
	return best
}

// ScaleRect maps r from a from-sized grid onto a to-sized one.
func ScaleRect(r image.Rectangle, from, to geometry.SizeInt) image.Rectangle {
	if from.Empty() {
		return image.Rectangle{}
	}
	sx := float64(to.Width) / float64(from.Width)
	sy := float64(to.Height) / float64(from.Height)
	return geometry.RectFromImage(r).Scale(sx, sy).ToImage().Intersect(to.Rect())
}

// WallBox picks the wall mask from score planes and returns its bounding
// box scaled to a photo of imgSize. wallClass may be ClassLargest.
func WallBox(planes []*mat.Dense, wallClass int, imgSize geometry.SizeInt) (image.Rectangle, error) {
	labels, err := LabelMap(planes)
	if err != nil {
		return image.Rectangle{}, err
	}
	if wallClass == ClassLargest {
		wallClass = LargestClass(labels, len(planes))
	}
	if wallClass < 0 || wallClass >= len(planes) {
		return image.Rectangle{}, fmt.Errorf("wall class %d out of range [0,%d)", wallClass, len(planes))
	}

	mask := ClassMask(labels, wallClass)
	if MaskArea(mask) == 0 {
		return image.Rectangle{}, ErrNoWall
	}
	rows, cols := mask.Dims()
	box := ScaleRect(MaskBounds(mask), geometry.SizeInt{Width: cols, Height: rows}, imgSize)
	if box.Empty() {
		return image.Rectangle{}, ErrNoWall
	}
	return box, nil
}
