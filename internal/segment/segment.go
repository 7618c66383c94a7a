// Package segment finds the wall in a photo with a semantic segmentation
// network. The network itself needs OpenCV and is only compiled with
// -tags gocv; the mask handling is plain Go and always available.
package segment

import (
	"errors"
	"image"
	"time"
)

var (
	// ErrUnavailable means this build or configuration cannot segment.
	ErrUnavailable = errors.New("wall segmentation unavailable")
	// ErrNoWall means the network ran but no pixel was labelled as wall.
	ErrNoWall = errors.New("no wall found")
)

// ClassLargest makes the detector use the class covering the most pixels.
const ClassLargest = -1

// Config describes the network and how to feed it.
type Config struct {
	Enabled     bool
	ModelPath   string
	ConfigPath  string // optional, for frameworks that split weights and graph
	InputWidth  int
	InputHeight int
	ScaleFactor float64
	Mean        [3]float64
	SwapRB      bool
	WallClass   int
	Timeout     time.Duration
}

// DefaultConfig matches ADE20K-trained models, where class 0 is wall.
func DefaultConfig() Config {
	return Config{
		InputWidth:  512,
		InputHeight: 512,
		ScaleFactor: 1.0 / 255,
		SwapRB:      true,
		WallClass:   0,
		Timeout:     5 * time.Second,
	}
}

func (c Config) inputSize() image.Point {
	w, h := c.InputWidth, c.InputHeight
	if w <= 0 {
		w = 512
	}
	if h <= 0 {
		h = 512
	}
	return image.Pt(w, h)
}
