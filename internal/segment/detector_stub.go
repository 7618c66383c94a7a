//go:build !gocv

package segment

import (
	"context"
	"image"

	"github.com/rs/zerolog"
)

// Available reports whether this build can run the network.
const Available = false

// Detector is a placeholder in builds without OpenCV.
type Detector struct{}

// NewDetector always fails with ErrUnavailable; rebuild with -tags gocv.
func NewDetector(cfg Config, log zerolog.Logger) (*Detector, error) {
	if cfg.Enabled {
		log.Warn().Str("component", "segment").Msg("Segmentation enabled but this build has no OpenCV support")
	}
	return nil, ErrUnavailable
}

func (d *Detector) DetectWall(context.Context, image.Image) (image.Rectangle, error) {
	return image.Rectangle{}, ErrUnavailable
}

func (d *Detector) Close() error {
	return nil
}
