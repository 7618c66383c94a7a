//go:build gocv

package segment

import (
	"context"
	"fmt"
	"image"
	"sync"

	"panelviz/pkg/geometry"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Available reports whether this build can run the network.
const Available = true

// Detector runs a segmentation network over photos. gocv.Net is not safe
// for concurrent use, so calls are serialised.
type Detector struct {
	mu  sync.Mutex
	net gocv.Net
	cfg Config
	log zerolog.Logger
}

// NewDetector loads the network described by cfg.
func NewDetector(cfg Config, log zerolog.Logger) (*Detector, error) {
	if !cfg.Enabled || cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: no model configured", ErrUnavailable)
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: could not read %s", ErrUnavailable, cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	log = log.With().Str("component", "segment").Logger()
	log.Info().Str("model", cfg.ModelPath).Int("wall_class", cfg.WallClass).Msg("Segmentation network loaded")

	return &Detector{net: net, cfg: cfg, log: log}, nil
}

// DetectWall returns the wall's bounding box in img coordinates.
func (d *Detector) DetectWall(ctx context.Context, img image.Image) (image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return image.Rectangle{}, err
	}

	src, err := imageToMat(img)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()

	mean := gocv.NewScalar(d.cfg.Mean[0], d.cfg.Mean[1], d.cfg.Mean[2], 0)
	blob := gocv.BlobFromImage(src, d.cfg.ScaleFactor, d.cfg.inputSize(), mean, d.cfg.SwapRB, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	dims := out.Size()
	if len(dims) != 4 {
		return image.Rectangle{}, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("read output: %w", err)
	}

	planes, err := ScorePlanes(data, dims[1], dims[2], dims[3])
	if err != nil {
		return image.Rectangle{}, err
	}
	box, err := WallBox(planes, d.cfg.WallClass, geometry.SizeOf(img.Bounds()))
	if err != nil {
		return image.Rectangle{}, err
	}

	d.log.Debug().
		Int("classes", dims[1]).
		Str("box", box.String()).
		Msg("Wall detected")
	return box, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// imageToMat converts a Go image to a BGR Mat.
func imageToMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				rgba.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
			}
		}
	}

	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}
