// Package plot renders ordination results as categorical scatter plots.
package plot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/DreamCats/protindex/internal/metadata"
)

// ErrNoPoints is returned when there is nothing to draw
var ErrNoPoints = errors.New("no points to plot")

// Options controls figure layout
type Options struct {
	Title        string
	XLabel       string
	YLabel       string
	WidthInches  float64
	HeightInches float64
}

var supportedFormats = map[string]bool{
	".png": true, ".svg": true, ".pdf": true, ".eps": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
}

// Scatter draws the first two coordinates of each point, one color and glyph
// per category, and saves the figure to path. The format follows the extension.
func Scatter(points []metadata.Point, path string, opts Options) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return fmt.Errorf("unsupported plot format %q", ext)
	}

	groups := make(map[string]plotter.XYs)
	for _, pt := range points {
		var x, y float64
		if len(pt.Coords) > 0 {
			x = pt.Coords[0]
		}
		if len(pt.Coords) > 1 {
			y = pt.Coords[1]
		}
		cat := pt.Category
		if cat == "" {
			cat = "(none)"
		}
		groups[cat] = append(groups[cat], plotter.XY{X: x, Y: y})
	}

	categories := make([]string, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	p := gplot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = labelOr(opts.XLabel, "PC1")
	p.Y.Label.Text = labelOr(opts.YLabel, "PC2")
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, cat := range categories {
		s, err := plotter.NewScatter(groups[cat])
		if err != nil {
			return fmt.Errorf("scatter %q: %w", cat, err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = plotutil.Shape(i)
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(cat, s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}

	w, h := opts.WidthInches, opts.HeightInches
	if w <= 0 {
		w = 6
	}
	if h <= 0 {
		h = 5
	}
	if err := p.Save(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func labelOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// AxisLabel formats "PCk (xx.x%)" for a principal coordinate
func AxisLabel(k int, proportion float64) string {
	if proportion <= 0 {
		return fmt.Sprintf("PC%d", k+1)
	}
	return fmt.Sprintf("PC%d (%.1f%%)", k+1, proportion*100)
}
