package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// feltPalette holds the colors PanelTheme overrides for one variant.
type feltPalette struct {
	primary    color.Color
	selection  color.Color
	background color.Color
	input      color.Color
}

var (
	lightFelt = feltPalette{
		primary:    color.NRGBA{R: 0x8D, G: 0x6E, B: 0x63, A: 0xFF},
		selection:  color.NRGBA{R: 0xFF, G: 0xB3, B: 0x00, A: 0x80},
		background: color.NRGBA{R: 0xF4, G: 0xF1, B: 0xEC, A: 0xFF},
		input:      color.NRGBA{R: 0xFF, G: 0xFD, B: 0xF9, A: 0xFF},
	}
	darkFelt = feltPalette{
		primary:    color.NRGBA{R: 0xBC, G: 0xAA, B: 0xA4, A: 0xFF},
		selection:  color.NRGBA{R: 0xFF, G: 0xC4, B: 0x00, A: 0x66},
		background: color.NRGBA{R: 0x26, G: 0x23, B: 0x21, A: 0xFF},
		input:      color.NRGBA{R: 0x33, G: 0x2F, B: 0x2C, A: 0xFF},
	}
)

// PanelTheme is the desktop look: warm felt tones over the default theme.
type PanelTheme struct{}

var _ fyne.Theme = (*PanelTheme)(nil)

func (t *PanelTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	p := lightFelt
	if variant == theme.VariantDark {
		p = darkFelt
	}
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return p.primary
	case theme.ColorNameSelection:
		return p.selection
	case theme.ColorNameBackground:
		return p.background
	case theme.ColorNameInputBackground:
		return p.input
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t *PanelTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *PanelTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size widens the side panel's inner padding; the canvas scrollbars stay
// at the default width.
func (t *PanelTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameInnerPadding {
		return 10
	}
	return theme.DefaultTheme().Size(name)
}
