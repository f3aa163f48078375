package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"mask-reviewer/pkg/colorutil"
)

// ReviewerTheme tints the default theme with the overlay colour so focus and
// selection match the mask highlight.
type ReviewerTheme struct {
	Accent color.NRGBA
}

var _ fyne.Theme = (*ReviewerTheme)(nil)

// NewReviewerTheme creates a theme with accent as the primary colour. The
// accent's alpha is ignored.
func NewReviewerTheme(accent color.NRGBA) *ReviewerTheme {
	if accent == (color.NRGBA{}) {
		accent = colorutil.WarmOrange
	}
	accent.A = 0xFF
	return &ReviewerTheme{Accent: accent}
}

func (t *ReviewerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return t.Accent
	case theme.ColorNameSelection:
		sel := t.Accent
		sel.A = 0x60
		return sel
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *ReviewerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *ReviewerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *ReviewerTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
