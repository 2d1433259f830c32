package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// FitPreview renders a pixel's reconstructed relaxation signals together with
// their fitted model curves.
type FitPreview struct {
	// time is the read-branch time axis shared by every cycle, in seconds
	time []float64

	// signals holds one reconstructed read signal per cycle
	signals [][]float64

	// fitted holds the fitted model curve per cycle, sampled on time
	fitted [][]float64
}

// NewFitPreview creates a preview over congruent per-cycle signal and curve
// slices
func NewFitPreview(time []float64, signals, fitted [][]float64) (*FitPreview, error) {
	if len(time) == 0 {
		return nil, fmt.Errorf("time axis must be non-empty")
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("preview needs at least one cycle")
	}
	if len(fitted) != len(signals) {
		return nil, fmt.Errorf("got %d fitted curves for %d signals", len(fitted), len(signals))
	}
	for c := range signals {
		if len(signals[c]) != len(time) {
			return nil, fmt.Errorf("cycle %d signal has %d samples, time axis has %d", c, len(signals[c]), len(time))
		}
		if len(fitted[c]) != len(time) {
			return nil, fmt.Errorf("cycle %d curve has %d samples, time axis has %d", c, len(fitted[c]), len(time))
		}
	}

	return &FitPreview{
		time:    time,
		signals: signals,
		fitted:  fitted,
	}, nil
}

// Cycles returns the number of renderable cycles
func (fp *FitPreview) Cycles() int {
	return len(fp.signals)
}

// RenderCycle draws one cycle's measured signal as points with its fitted
// curve as a line, and saves the plot to filename. The image format follows
// the file extension (png, svg, pdf).
func (fp *FitPreview) RenderCycle(cycle int, title, filename string) error {
	if cycle < 0 || cycle >= len(fp.signals) {
		return fmt.Errorf("cycle %d out of range [0, %d)", cycle, len(fp.signals))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Displacement (pm)"

	measured := make(plotter.XYs, len(fp.time))
	for i, t := range fp.time {
		measured[i].X = t
		measured[i].Y = fp.signals[cycle][i]
	}

	points, err := plotter.NewScatter(measured)
	if err != nil {
		return fmt.Errorf("building measured points: %w", err)
	}
	points.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	points.GlyphStyle.Radius = vg.Points(3)
	points.GlyphStyle.Shape = draw.CircleGlyph{}

	curve := make(plotter.XYs, len(fp.time))
	for i, t := range fp.time {
		curve[i].X = t
		curve[i].Y = fp.fitted[cycle][i]
	}

	line, err := plotter.NewLine(curve)
	if err != nil {
		return fmt.Errorf("building fitted curve: %w", err)
	}
	line.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	line.LineStyle.Width = vg.Points(2)

	p.Add(points, line)
	p.Legend.Add("measured", points)
	p.Legend.Add("fitted", line)
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 6*vg.Inch, filename)
}

// RenderSequence renders every cycle into outputDir as <prefix>_cycle_NNN.png
func (fp *FitPreview) RenderSequence(outputDir, prefix string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for cycle := range fp.signals {
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_cycle_%03d.png", prefix, cycle))
		title := fmt.Sprintf("%s cycle %d", prefix, cycle)
		if err := fp.RenderCycle(cycle, title, filename); err != nil {
			return err
		}
	}

	return nil
}
