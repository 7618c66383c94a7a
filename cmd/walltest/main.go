// Command walltest runs wall segmentation on a photo and prints the
// detected box and the resulting scale.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"time"

	pvimage "panelviz/internal/image"
	"panelviz/internal/logging"
	"panelviz/internal/scale"
	"panelviz/internal/segment"
)

func main() {
	imagePath := flag.String("image", "", "Path to photo (JPEG, PNG or TIFF)")
	model := flag.String("model", "", "Segmentation model (ONNX, Caffe or TensorFlow)")
	netConfig := flag.String("netconfig", "", "Network config file, if the model format needs one")
	class := flag.Int("class", 0, "Wall class index, or -1 for the largest class")
	width := flag.Float64("width", 0, "Declared surface width in cm (0 = unknown)")
	assumed := flag.Float64("assumed", 400, "Width in cm assumed for the detected wall")
	timeout := flag.Duration("timeout", 5*time.Second, "Detection timeout")
	out := flag.String("out", "", "Write the photo with the detected box drawn to this PNG/JPEG")
	flag.Parse()

	if *imagePath == "" || *model == "" {
		fmt.Println("Usage: walltest -image <path> -model <model> [-class 0] [-width 0] [-out box.png]")
		os.Exit(1)
	}
	if !segment.Available {
		fmt.Fprintln(os.Stderr, "This build has no OpenCV support; rebuild with -tags gocv")
		os.Exit(1)
	}

	log := logging.NewFromEnv()

	img, err := pvimage.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load photo: %v\n", err)
		os.Exit(1)
	}
	bounds := img.Bounds()
	fmt.Printf("Loaded photo: %dx%d pixels\n", bounds.Dx(), bounds.Dy())

	cfg := segment.DefaultConfig()
	cfg.Enabled = true
	cfg.ModelPath = *model
	cfg.ConfigPath = *netConfig
	cfg.WallClass = *class
	cfg.Timeout = *timeout

	det, err := segment.NewDetector(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load model: %v\n", err)
		os.Exit(1)
	}
	defer det.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	box, err := det.DetectWall(ctx, img)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("\nDetection failed after %s: %v\n", elapsed.Round(time.Millisecond), err)
	} else {
		fmt.Printf("\nWall box: (%d,%d)-(%d,%d), %dx%d px, %.1f%% of photo width (%s)\n",
			box.Min.X, box.Min.Y, box.Max.X, box.Max.Y, box.Dx(), box.Dy(),
			100*float64(box.Dx())/float64(bounds.Dx()), elapsed.Round(time.Millisecond))
	}

	resolver := scale.NewResolver(scale.Config{
		Strategy:       scale.KindDetected,
		AssumedWidthCm: *assumed,
		Timeout:        *timeout,
	}, det, log)
	res := resolver.Resolve(context.Background(), scale.Input{Image: img, DeclaredWidthCm: *width})

	fmt.Printf("\nScale chain: %v\n", resolver.Strategies())
	fmt.Printf("Resolved: %.3f px/cm via %s\n", res.PxPerCm, res.Strategy)
	for i, fe := range res.Fallbacks {
		fmt.Printf("  fallback %d: %v\n", i+1, fe)
	}

	if *out != "" && err == nil {
		if err := writeBox(*out, img, box); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote %s\n", *out)
	}
}

// writeBox saves img with a 3 px red outline around box.
func writeBox(path string, img image.Image, box image.Rectangle) error {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	red := &image.Uniform{C: color.RGBA{R: 255, A: 255}}
	const t = 3
	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+t),
		image.Rect(box.Min.X, box.Max.Y-t, box.Max.X, box.Max.Y),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+t, box.Max.Y),
		image.Rect(box.Max.X-t, box.Min.Y, box.Max.X, box.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), red, image.Point{}, draw.Src)
	}
	return pvimage.SaveJPEG(path, dst, pvimage.DefaultJPEGQuality)
}
