package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/DaanHessen/lifeswipe/internal/engine"
)

const defaultTheme = "dusk"

type palette struct {
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Accent   lipgloss.Color
	Border   lipgloss.Color
	Warning  lipgloss.Color
	BarEmpty lipgloss.Color
	// glamour standard style used for card text
	Glamour string
	Stats   map[engine.Stat]lipgloss.Color
}

var palettes = map[string]palette{
	"dusk": {
		Text:     lipgloss.Color("#e0def4"),
		Muted:    lipgloss.Color("#908caa"),
		Accent:   lipgloss.Color("#ebbcba"),
		Border:   lipgloss.Color("#524f67"),
		Warning:  lipgloss.Color("#eb6f92"),
		BarEmpty: lipgloss.Color("#26233a"),
		Glamour:  "dark",
		Stats: map[engine.Stat]lipgloss.Color{
			engine.StatHeart:       lipgloss.Color("#eb6f92"),
			engine.StatCareer:      lipgloss.Color("#f6c177"),
			engine.StatHappiness:   lipgloss.Color("#9ccfd8"),
			engine.StatSociability: lipgloss.Color("#c4a7e7"),
		},
	},
	"dawn": {
		Text:     lipgloss.Color("#575279"),
		Muted:    lipgloss.Color("#9893a5"),
		Accent:   lipgloss.Color("#d7827e"),
		Border:   lipgloss.Color("#cecacd"),
		Warning:  lipgloss.Color("#b4637a"),
		BarEmpty: lipgloss.Color("#f2e9e1"),
		Glamour:  "light",
		Stats: map[engine.Stat]lipgloss.Color{
			engine.StatHeart:       lipgloss.Color("#b4637a"),
			engine.StatCareer:      lipgloss.Color("#ea9d34"),
			engine.StatHappiness:   lipgloss.Color("#56949f"),
			engine.StatSociability: lipgloss.Color("#907aa9"),
		},
	},
	"forest": {
		Text:     lipgloss.Color("#ebdbb2"),
		Muted:    lipgloss.Color("#a89984"),
		Accent:   lipgloss.Color("#b8bb26"),
		Border:   lipgloss.Color("#665c54"),
		Warning:  lipgloss.Color("#fb4934"),
		BarEmpty: lipgloss.Color("#3c3836"),
		Glamour:  "dark",
		Stats: map[engine.Stat]lipgloss.Color{
			engine.StatHeart:       lipgloss.Color("#fb4934"),
			engine.StatCareer:      lipgloss.Color("#fabd2f"),
			engine.StatHappiness:   lipgloss.Color("#8ec07c"),
			engine.StatSociability: lipgloss.Color("#d3869b"),
		},
	},
	"mono": {
		Text:     lipgloss.Color("252"),
		Muted:    lipgloss.Color("244"),
		Accent:   lipgloss.Color("255"),
		Border:   lipgloss.Color("240"),
		Warning:  lipgloss.Color("255"),
		BarEmpty: lipgloss.Color("236"),
		Glamour:  "notty",
		Stats: map[engine.Stat]lipgloss.Color{
			engine.StatHeart:       lipgloss.Color("250"),
			engine.StatCareer:      lipgloss.Color("250"),
			engine.StatHappiness:   lipgloss.Color("250"),
			engine.StatSociability: lipgloss.Color("250"),
		},
	},
}

func paletteFor(name string) palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[defaultTheme]
}

func themeNames() []string {
	names := make([]string, 0, len(palettes))
	for k := range palettes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func nextThemeName(current string, step int) string {
	names := themeNames()
	if len(names) == 0 {
		return current
	}
	idx := 0
	for i, name := range names {
		if name == current {
			idx = i
			break
		}
	}
	idx = (idx + step) % len(names)
	if idx < 0 {
		idx += len(names)
	}
	return names[idx]
}
