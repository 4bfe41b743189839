package pipeline

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"go-forecast-pipeline/internal/model"
)

// Assemble attaches timestamps to the raw forecast and derives the insights.
// The first point lies one period after the last observation.
func Assemble(series *model.TimeSeries, raw *RawForecast, steps int) (*model.ForecastResult, *model.SummaryInsights, error) {
	if series == nil || series.Len() == 0 {
		return nil, nil, errors.New("assemble: empty series")
	}
	if steps < 1 || len(raw.Mean) < steps {
		return nil, nil, fmt.Errorf("assemble: %d forecasts for %d steps", len(raw.Mean), steps)
	}
	withBounds := raw.Lower != nil && raw.Upper != nil
	if withBounds && (len(raw.Lower) < steps || len(raw.Upper) < steps) {
		return nil, nil, fmt.Errorf("assemble: bounds shorter than %d steps", steps)
	}

	last, _ := series.Last()
	result := &model.ForecastResult{
		Frequency: series.Frequency,
		Points:    make([]model.ForecastPoint, steps),
	}
	if withBounds {
		result.Confidence = raw.Confidence
	}
	for i := 0; i < steps; i++ {
		p := model.ForecastPoint{
			Time:  series.Frequency.Add(last, i+1),
			Value: raw.Mean[i],
		}
		if withBounds {
			lo, hi := raw.Lower[i], raw.Upper[i]
			p.Lower, p.Upper = &lo, &hi
		}
		result.Points[i] = p
	}

	return result, Summarize(series, result), nil
}

// Summarize computes mean, best and worst steps and per-step deltas.
// Ties resolve to the earliest step; the first delta is taken against the last observation.
func Summarize(series *model.TimeSeries, result *model.ForecastResult) *model.SummaryInsights {
	values := result.Values()
	insights := &model.SummaryInsights{
		Mean:   stat.Mean(values, nil),
		Deltas: make([]model.Delta, len(values)),
	}

	best, worst := 0, 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
		if v < values[worst] {
			worst = i
		}
	}
	insights.Best = model.Extreme{Time: result.Points[best].Time, Value: values[best]}
	insights.Worst = model.Extreme{Time: result.Points[worst].Time, Value: values[worst]}

	_, prev := series.Last()
	for i, p := range result.Points {
		change := p.Value - prev
		insights.Deltas[i] = model.Delta{
			Time:      p.Time,
			Value:     p.Value,
			Change:    change,
			Direction: direction(change),
		}
		prev = p.Value
	}
	return insights
}

func direction(change float64) string {
	switch {
	case change > 0:
		return model.DirectionIncrease
	case change < 0:
		return model.DirectionDecrease
	default:
		return model.DirectionUnchanged
	}
}
