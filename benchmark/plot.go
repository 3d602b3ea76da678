package benchmark

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotResults renders SET/GET throughput-vs-keycount PNGs under dir.
func PlotResults(results []BenchmarkResult, dir string) error {
	if err := plotRPS(results, "SET", filepath.Join(dir, "set_rps.png")); err != nil {
		return fmt.Errorf("plotting SET RPS: %w", err)
	}
	if err := plotRPS(results, "GET", filepath.Join(dir, "get_rps.png")); err != nil {
		return fmt.Errorf("plotting GET RPS: %w", err)
	}
	return nil
}

func plotRPS(results []BenchmarkResult, mode string, filename string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s RPS vs Keys", mode)
	p.X.Label.Text = "Keys"
	p.Y.Label.Text = "Requests Per Second"

	var pts plotter.XYs
	for _, r := range results {
		val := r.GetRPS
		if mode == "SET" {
			val = r.SetRPS
		}
		pts = append(pts, plotter.XY{X: float64(r.KeyCount), Y: val})
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	points.Shape = plotutil.Shape(0)
	points.Color = line.Color
	p.Add(line, points)
	p.Legend.Add("pmap", line)

	p.BackgroundColor = color.White
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, filename)
}
