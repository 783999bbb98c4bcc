package render

import "github.com/i474232898/weather-lookup/internal/preferences"

// Palette is the colour set for one resolved scheme.
type Palette struct {
	Scheme           preferences.Scheme `json:"scheme"`
	Background       string             `json:"background"`
	Text             string             `json:"text"`
	CardBackground   string             `json:"cardBackground"`
	FooterBackground string             `json:"footerBackground"`
	IconBackground   string             `json:"iconBackground"`
	Border           string             `json:"border"`
	LineColor        string             `json:"lineColor"`
	LineEndColor     string             `json:"lineEndColor"`
	Primary          string             `json:"primary"`
	Secondary        string             `json:"secondary"`
	Shadow           string             `json:"shadow"`
	Muted            string             `json:"muted"`
}

var (
	lightPalette = Palette{
		Scheme:           preferences.SchemeLight,
		Background:       "#FFFFFF",
		Text:             "#000000",
		CardBackground:   "#F2F2F2",
		FooterBackground: "#F9F9F9",
		IconBackground:   "#E0E0E0",
		Border:           "#CCCCCC",
		LineColor:        "#121212",
		LineEndColor:     "#CCCCCC",
		Primary:          "#007AFF",
		Secondary:        "#E5E5EA",
		Shadow:           "#00000022",
		Muted:            "#888888",
	}
	darkPalette = Palette{
		Scheme:           preferences.SchemeDark,
		Background:       "#121212",
		Text:             "#FFFFFF",
		CardBackground:   "#1E1E1E",
		FooterBackground: "#181818",
		IconBackground:   "#333333",
		Border:           "#303033",
		LineColor:        "#636363",
		LineEndColor:     "#303033",
		Primary:          "#0A84FF",
		Secondary:        "#2C2C2E",
		Shadow:           "#00000088",
		Muted:            "#AAAAAA",
	}
)

// PaletteFor returns the palette for a resolved scheme; unknown schemes get light.
func PaletteFor(s preferences.Scheme) Palette {
	if s == preferences.SchemeDark {
		return darkPalette
	}
	return lightPalette
}
