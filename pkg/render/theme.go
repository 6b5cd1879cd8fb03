package render

import (
	"strings"

	"github.com/matzehuels/fractal/pkg/errors"
)

// Theme is a color scheme for the circle.
type Theme struct {
	Name       string
	Background string
	Stroke     string
	Text       string
	Core       string
	Quarters   [4]string
	Badge      string
	BadgeText  string
	Highlight  string
}

var (
	// Light is the default theme.
	Light = Theme{
		Name:       "light",
		Background: "#ffffff",
		Stroke:     "#ffffff",
		Text:       "#1f2933",
		Core:       "#f5f5f4",
		Quarters:   [4]string{"#bfdbfe", "#bbf7d0", "#fde68a", "#fecaca"},
		Badge:      "#1f2933",
		BadgeText:  "#ffffff",
		Highlight:  "#2563eb",
	}

	// Dark suits dark terminals and dashboards.
	Dark = Theme{
		Name:       "dark",
		Background: "#111827",
		Stroke:     "#111827",
		Text:       "#e5e7eb",
		Core:       "#1f2937",
		Quarters:   [4]string{"#1e3a8a", "#14532d", "#713f12", "#7f1d1d"},
		Badge:      "#f9fafb",
		BadgeText:  "#111827",
		Highlight:  "#60a5fa",
	}
)

// Themes returns the built-in themes.
func Themes() []Theme { return []Theme{Light, Dark} }

// ParseTheme looks a theme up by name. An empty name selects Light.
func ParseTheme(name string) (Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Light, nil
	}
	for _, t := range Themes() {
		if t.Name == name {
			return t, nil
		}
	}
	return Theme{}, errors.New(errors.ErrCodeInvalidArgument, "unknown theme %q (want light or dark)", name)
}

// QuarterFill returns the fill for quarter group q.
func (t Theme) QuarterFill(q int) string {
	return t.Quarters[((q%4)+4)%4]
}
