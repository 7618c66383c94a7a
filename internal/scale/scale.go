// Package scale estimates how many image pixels correspond to one
// centimeter of the photographed surface.
package scale

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"
)

// InvalidScaleError reports a scale that cannot be used: missing or
// non-positive inputs, or a non-finite result.
type InvalidScaleError struct {
	Strategy string
	Reason   string
}

func (e *InvalidScaleError) Error() string {
	return fmt.Sprintf("%s scale: %s", e.Strategy, e.Reason)
}

// SegmentationUnavailableError reports that wall detection could not
// produce a bounding box.
type SegmentationUnavailableError struct {
	Err error
}

func (e *SegmentationUnavailableError) Error() string {
	if e.Err == nil {
		return "segmentation unavailable"
	}
	return "segmentation unavailable: " + e.Err.Error()
}

func (e *SegmentationUnavailableError) Unwrap() error {
	return e.Err
}

// Input is what a strategy may look at.
type Input struct {
	Image           image.Image
	DeclaredWidthCm float64 // 0 when the user gave none
}

// Strategy turns an input into pixels per centimeter.
type Strategy interface {
	Name() string
	Estimate(ctx context.Context, in Input) (float64, error)
}

// WallDetector finds the wall in a photo and returns its bounding box in
// the photo's coordinates.
type WallDetector interface {
	DetectWall(ctx context.Context, img image.Image) (image.Rectangle, error)
}

// ManualScale divides the image width by the width the user declared.
type ManualScale struct{}

func (ManualScale) Name() string { return "manual" }

func (m ManualScale) Estimate(_ context.Context, in Input) (float64, error) {
	if in.Image == nil || in.Image.Bounds().Dx() <= 0 {
		return 0, &InvalidScaleError{Strategy: m.Name(), Reason: "no image"}
	}
	if in.DeclaredWidthCm <= 0 {
		return 0, &InvalidScaleError{Strategy: m.Name(), Reason: fmt.Sprintf("declared width %g cm is not positive", in.DeclaredWidthCm)}
	}
	return check(m.Name(), float64(in.Image.Bounds().Dx())/in.DeclaredWidthCm)
}

// FixedDefaultScale always returns the same value.
type FixedDefaultScale struct {
	PxPerCm float64
}

func (FixedDefaultScale) Name() string { return "fixed" }

func (f FixedDefaultScale) Estimate(context.Context, Input) (float64, error) {
	return check(f.Name(), f.PxPerCm)
}

// DetectedBoundingBoxScale divides the detected wall width by a reference
// width: the declared width if present, else AssumedWidthCm.
type DetectedBoundingBoxScale struct {
	Detector       WallDetector
	Timeout        time.Duration
	AssumedWidthCm float64
}

func (DetectedBoundingBoxScale) Name() string { return "detected" }

func (d DetectedBoundingBoxScale) Estimate(ctx context.Context, in Input) (float64, error) {
	if d.Detector == nil {
		return 0, &SegmentationUnavailableError{Err: errors.New("no detector configured")}
	}
	if in.Image == nil {
		return 0, &InvalidScaleError{Strategy: d.Name(), Reason: "no image"}
	}

	ref := in.DeclaredWidthCm
	if ref <= 0 {
		ref = d.AssumedWidthCm
	}
	if ref <= 0 {
		return 0, &InvalidScaleError{Strategy: d.Name(), Reason: "no reference width"}
	}

	box, err := d.detect(ctx, in.Image)
	if err != nil {
		return 0, &SegmentationUnavailableError{Err: err}
	}
	if box.Dx() <= 0 {
		return 0, &SegmentationUnavailableError{Err: errors.New("empty wall mask")}
	}
	return check(d.Name(), float64(box.Dx())/ref)
}

// detect runs the detector under the configured timeout. The detector may
// ignore ctx (cgo calls do), so its result is abandoned rather than awaited
// once the deadline passes.
func (d DetectedBoundingBoxScale) detect(ctx context.Context, img image.Image) (image.Rectangle, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	type result struct {
		box image.Rectangle
		err error
	}
	done := make(chan result, 1)
	go func() {
		box, err := d.Detector.DetectWall(ctx, img)
		done <- result{box, err}
	}()

	select {
	case r := <-done:
		return r.box, r.err
	case <-ctx.Done():
		return image.Rectangle{}, ctx.Err()
	}
}

func check(strategy string, v float64) (float64, error) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvalidScaleError{Strategy: strategy, Reason: fmt.Sprintf("%g px/cm is not usable", v)}
	}
	return v, nil
}

// Kind names a configured strategy chain.
type Kind string

const (
	KindManual   Kind = "manual"
	KindDetected Kind = "detected"
	KindFixed    Kind = "fixed"
)

// ParseKind validates a configured strategy name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindManual, KindDetected, KindFixed:
		return k, nil
	case "":
		return KindManual, nil
	default:
		return "", fmt.Errorf("unknown scale strategy %q", s)
	}
}
