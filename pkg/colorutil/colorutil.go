// Package colorutil provides shared color utilities for the panel visualizer.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	Black     = color.NRGBA{A: 255}                             // default panel shadow
	Selection = color.NRGBA{R: 0xFF, G: 0xC4, B: 0x00, A: 255} // outline around the selected panel
)

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa" (leading '#' optional).
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
