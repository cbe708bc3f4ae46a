package qsrplot

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/banshee-data/qsrtrace/internal/trace"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Paths returns each entity's XY positions in time order.
func Paths(tr *trace.Trace) map[string]plotter.XYs {
	paths := make(map[string]plotter.XYs)
	for _, ts := range tr.SortedTimestamps() {
		snap, err := tr.SnapshotAt(ts)
		if err != nil {
			continue
		}
		for _, name := range snap.Names() {
			o, _ := snap.Object(name)
			paths[name] = append(paths[name], plotter.XY{X: o.Position.X, Y: o.Position.Y})
		}
	}
	return paths
}

// SaveTrajectories writes a plot of every entity's path to file. The
// format follows the file extension (png, svg, pdf).
func SaveTrajectories(tr *trace.Trace, file string) error {
	p := plot.New()
	p.Title.Text = "Entity Trajectories"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	paths := Paths(tr)
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	colors := generateColors(len(names))
	for i, name := range names {
		line, points, err := plotter.NewLinePoints(paths[name])
		if err != nil {
			return fmt.Errorf("entity %s: %w", name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		points.GlyphStyle.Color = colors[i]
		points.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(name, line, points)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}

// generateColors creates a palette of n distinct colours.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
