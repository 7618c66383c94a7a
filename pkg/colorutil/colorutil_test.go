package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#000", color.NRGBA{A: 255}},
		{"#ff8000", color.NRGBA{R: 255, G: 128, A: 255}},
		{"10203040", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}},
		{" #FFF ", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHexRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "#12", "#zzzzzz", "#1234567"} {
		_, err := ParseHex(in)
		assert.Error(t, err, in)
	}
}
