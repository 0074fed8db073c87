// Package plot renders analysis results as PNG charts.
package plot

import (
	"fmt"
	"io"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/analysis"
)

// Options controls chart appearance
type Options struct {
	Title  string
	Width  int
	Height int
}

// DefaultOptions returns the standard chart configuration
func DefaultOptions() Options {
	return Options{
		Title:  "Heart Rate Signal Peak Detection",
		Width:  1280,
		Height: 480,
	}
}

// Render draws the analyzed signal with accepted and rejected peaks and
// writes the chart as PNG
func Render(w io.Writer, res *analysis.Result, opts Options) error {
	if len(res.Signal) < 2 {
		return fmt.Errorf("plot: signal too short to render")
	}

	xs := make([]float64, len(res.Signal))
	for i := range xs {
		xs[i] = float64(i)
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "heart rate signal",
			XValues: xs,
			YValues: res.Signal,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue.WithAlpha(128),
				StrokeWidth: 1,
			},
		},
	}

	if s, ok := peakSeries(fmt.Sprintf("BPM: %.2f", res.Measures.BPM), res.AcceptedPeaks, res.Signal, chart.ColorGreen); ok {
		series = append(series, s)
	}
	if s, ok := peakSeries("rejected peaks", res.RejectedPeaks, res.Signal, chart.ColorRed); ok {
		series = append(series, s)
	}

	if len(res.RejectedSegments) > 0 {
		top := res.Signal[0]
		for _, v := range res.Signal {
			if v > top {
				top = v
			}
		}
		for i, seg := range res.RejectedSegments {
			name := ""
			if i == 0 {
				name = "rejected segments"
			}
			series = append(series, segmentBand(name, seg, top))
		}
	}

	ch := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 16, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  chart.XAxis{Name: "sample"},
		YAxis:  chart.YAxis{Name: "voltage"},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderFile renders the chart into a PNG file
func RenderFile(path string, res *analysis.Result, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	if err := Render(f, res, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// segmentBand shades a low-quality beat segment as a translucent band
// spanning the plot height. Only the first band carries a legend name.
func segmentBand(name string, seg [2]int, top float64) chart.Series {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: []float64{float64(seg[0]), float64(seg[1])},
		YValues: []float64{top, top},
		Style: chart.Style{
			StrokeWidth: 1,
			StrokeColor: chart.ColorRed.WithAlpha(60),
			FillColor:   chart.ColorRed.WithAlpha(40),
		},
	}
}

// peakSeries builds a dot-only series at the given peak positions.
// go-chart needs at least two points per series, so single peaks are
// duplicated.
func peakSeries(name string, peaks []int, sig []float64, color drawing.Color) (chart.Series, bool) {
	if len(peaks) == 0 {
		return nil, false
	}

	xs := make([]float64, 0, len(peaks)+1)
	ys := make([]float64, 0, len(peaks)+1)
	for _, p := range peaks {
		xs = append(xs, float64(p))
		ys = append(ys, sig[p])
	}
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}

	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    4,
			DotColor:    color,
		},
	}, true
}
