package presentation

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go-forecast-pipeline/internal/model"
)

// ChartOptions controls the rendered forecast chart.
type ChartOptions struct {
	Title      string
	XLabel     string
	YLabel     string
	TimeFormat string
	Width      vg.Length
	Height     vg.Length
}

var (
	historyColor  = color.NRGBA{R: 34, G: 139, B: 34, A: 255}
	forecastColor = color.NRGBA{R: 255, G: 140, B: 0, A: 255}
	bandColor     = color.NRGBA{R: 255, G: 140, B: 0, A: 77}
)

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Width == 0 {
		o.Width = 10 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 5 * vg.Inch
	}
	if o.TimeFormat == "" {
		o.TimeFormat = "2006"
	}
	if o.XLabel == "" {
		o.XLabel = "Year"
	}
	if o.YLabel == "" {
		o.YLabel = "Yield"
	}
	return o
}

// RenderChart writes a PNG with the historical line, the forecast line and,
// when the result carries one, the confidence band.
func RenderChart(w io.Writer, history *model.TimeSeries, result *model.ForecastResult, opts ChartOptions) error {
	if history == nil || history.Len() == 0 {
		return errors.New("chart: empty history")
	}
	if result == nil || len(result.Points) == 0 {
		return errors.New("chart: empty forecast")
	}
	opts = opts.withDefaults()

	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: opts.TimeFormat}
	p.Add(plotter.NewGrid())

	if band := confidenceBand(result); band != nil {
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return fmt.Errorf("chart: confidence band: %w", err)
		}
		poly.Color = bandColor
		poly.LineStyle.Width = vg.Length(0)
		p.Add(poly)
		p.Legend.Add(fmt.Sprintf("%.0f%% interval", result.Confidence*100), poly)
	}

	histPoints := make(plotter.XYs, history.Len())
	for i, ts := range history.Timestamps {
		histPoints[i] = plotter.XY{X: unix(ts), Y: history.Values[i]}
	}
	histLine, err := plotter.NewLine(histPoints)
	if err != nil {
		return fmt.Errorf("chart: history line: %w", err)
	}
	histLine.Color = historyColor
	histLine.Width = vg.Points(2)

	// Start the forecast line at the last observation so the two lines join.
	lastTime, lastValue := history.Last()
	fcPoints := make(plotter.XYs, 0, len(result.Points)+1)
	fcPoints = append(fcPoints, plotter.XY{X: unix(lastTime), Y: lastValue})
	for _, pt := range result.Points {
		fcPoints = append(fcPoints, plotter.XY{X: unix(pt.Time), Y: pt.Value})
	}
	fcLine, err := plotter.NewLine(fcPoints)
	if err != nil {
		return fmt.Errorf("chart: forecast line: %w", err)
	}
	fcLine.Color = forecastColor
	fcLine.Width = vg.Points(2)

	p.Add(histLine, fcLine)
	p.Legend.Add("Historical", histLine)
	p.Legend.Add("Forecast", fcLine)
	p.Legend.Top = true

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// confidenceBand walks the upper bounds forward and the lower bounds back.
func confidenceBand(result *model.ForecastResult) plotter.XYs {
	n := len(result.Points)
	band := make(plotter.XYs, 0, 2*n)
	for _, pt := range result.Points {
		if pt.Upper == nil || pt.Lower == nil {
			return nil
		}
		band = append(band, plotter.XY{X: unix(pt.Time), Y: *pt.Upper})
	}
	for i := n - 1; i >= 0; i-- {
		pt := result.Points[i]
		band = append(band, plotter.XY{X: unix(pt.Time), Y: *pt.Lower})
	}
	return band
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}
