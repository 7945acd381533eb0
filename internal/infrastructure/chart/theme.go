package chart

import (
	"fmt"
	"image/color"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
)

// Theme is a chart color scheme.
type Theme struct {
	Name       string
	Background color.Color
	Foreground color.Color
	Grid       color.Color
	Palette    []color.Color
}

var themes = map[string]Theme{
	"professional": {
		Name:       "professional",
		Background: color.White,
		Foreground: color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff},
		Grid:       color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff},
		Palette: []color.Color{
			color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
			color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
			color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
			color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
		},
	},
	"dark": {
		Name:       "dark",
		Background: color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff},
		Foreground: color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff},
		Grid:       color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff},
		Palette: []color.Color{
			color.RGBA{R: 0x4f, G: 0xc3, B: 0xf7, A: 0xff},
			color.RGBA{R: 0xff, G: 0xb7, B: 0x4d, A: 0xff},
			color.RGBA{R: 0x81, G: 0xc7, B: 0x84, A: 0xff},
			color.RGBA{R: 0xe5, G: 0x73, B: 0x73, A: 0xff},
		},
	},
	"light": {
		Name:       "light",
		Background: color.RGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff},
		Foreground: color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff},
		Grid:       color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff},
		Palette: []color.Color{
			color.RGBA{R: 0x66, G: 0xbb, B: 0x6a, A: 0xff},
			color.RGBA{R: 0x42, G: 0xa5, B: 0xf5, A: 0xff},
			color.RGBA{R: 0xff, G: 0xa7, B: 0x26, A: 0xff},
			color.RGBA{R: 0xab, G: 0x47, B: 0xbc, A: 0xff},
		},
	},
}

// ThemeByName looks a theme up case-insensitively; "" is professional.
func ThemeByName(name string) (Theme, error) {
	if name == "" {
		name = "professional"
	}
	t, ok := themes[strings.ToLower(name)]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q", name)
	}
	return t, nil
}

// Accent returns the i-th palette color, cycling.
func (t Theme) Accent(i int) color.Color {
	return t.Palette[i%len(t.Palette)]
}

func (t Theme) apply(p *plot.Plot) {
	p.BackgroundColor = t.Background
	p.Title.TextStyle.Color = t.Foreground
	p.Legend.TextStyle.Color = t.Foreground
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.LineStyle.Color = t.Foreground
		ax.Label.TextStyle.Color = t.Foreground
		ax.Tick.Label.Color = t.Foreground
		ax.Tick.LineStyle.Color = t.Foreground
	}
}

func (t Theme) grid() *plotter.Grid {
	g := plotter.NewGrid()
	g.Vertical.Color = t.Grid
	g.Horizontal.Color = t.Grid
	return g
}
