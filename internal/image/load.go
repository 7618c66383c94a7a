// Package image provides image loading, texture preparation, and compositing.
package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// DecodeError reports a photo or asset that could not be read or decoded.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Load opens and decodes the image at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	defer file.Close()

	return Decode(file, path)
}

// Decode decodes a JPEG, PNG or TIFF stream. source names the stream in
// errors.
func Decode(r io.Reader, source string) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("empty image")}
	}
	return img, nil
}

// DecodeBytes decodes an in-memory upload.
func DecodeBytes(data []byte, source string) (image.Image, error) {
	return Decode(bytes.NewReader(data), source)
}

// EncodeJPEG writes img as JPEG. A quality outside 1..100 uses the default.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}

// SaveJPEG encodes img to a file at path.
func SaveJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeJPEG(f, img, quality); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
