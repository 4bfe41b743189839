package pipeline

import (
	"context"
	"fmt"
	"math"

	"go-forecast-pipeline/internal/model"
	"go-forecast-pipeline/internal/sarima"
)

// DefaultAlpha gives a 95% prediction interval.
const DefaultAlpha = 0.05

// RawForecast is the library output before timestamps are attached.
type RawForecast struct {
	Mean       []float64
	Lower      []float64 // nil when no interval is available
	Upper      []float64
	Confidence float64 // 1 - alpha, 0 without interval
	Fit        model.FitSummary
}

// Forecaster fits a model to a series and forecasts past its end.
type Forecaster interface {
	Forecast(ctx context.Context, series *model.TimeSeries, spec model.ModelSpec, steps int, alpha float64) (*RawForecast, error)
}

// SARIMAForecaster is the default Forecaster backed by internal/sarima.
type SARIMAForecaster struct {
	MaxIter int
}

func (f SARIMAForecaster) Forecast(ctx context.Context, series *model.TimeSeries, spec model.ModelSpec, steps int, alpha float64) (*RawForecast, error) {
	m := sarima.New(series.Values,
		sarima.Order{P: spec.P, D: spec.D, Q: spec.Q},
		sarima.SeasonalOrder{P: spec.SP, D: spec.SD, Q: spec.SQ, S: spec.S},
		sarima.WithEnforceStationarity(spec.EnforceStationarity),
		sarima.WithEnforceInvertibility(spec.EnforceInvertibility),
		sarima.WithMaxIter(f.MaxIter),
	)
	res, err := m.Fit()
	if err != nil {
		return nil, err
	}
	pred, err := res.GetForecast(steps)
	if err != nil {
		return nil, err
	}
	lower, upper := pred.ConfInt(alpha)

	return &RawForecast{
		Mean:       pred.PredictedMean,
		Lower:      lower,
		Upper:      upper,
		Confidence: 1 - alpha,
		Fit: model.FitSummary{
			Spec:       spec,
			NObs:       res.NObs,
			AR:         res.AR(),
			MA:         res.MA(),
			SeasonalAR: res.SeasonalAR(),
			SeasonalMA: res.SeasonalMA(),
			Sigma2:     res.Sigma2,
			LogLik:     finiteOrZero(res.LogLik),
			AIC:        finiteOrZero(res.AIC),
			BIC:        finiteOrZero(res.BIC),
			Warnings:   res.Warnings,
		},
	}, nil
}

// FitAndForecast runs the forecaster once. Every failure, a panic included,
// comes back as a *model.FitError carrying the library's message.
func FitAndForecast(ctx context.Context, f Forecaster, series *model.TimeSeries, spec model.ModelSpec, steps int, alpha float64) (raw *RawForecast, err error) {
	if steps < 1 {
		return nil, &model.InvalidRequestError{Field: "steps", Reason: fmt.Sprintf("steps must be at least 1, got %d", steps)}
	}
	if alpha == 0 {
		alpha = DefaultAlpha
	}

	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = &model.FitError{Spec: spec, Message: fmt.Sprintf("forecasting library panicked: %v", r)}
		}
	}()

	raw, err = f.Forecast(ctx, series, spec, steps, alpha)
	if err != nil {
		return nil, &model.FitError{Spec: spec, Message: err.Error(), Err: err}
	}
	if raw == nil {
		return nil, &model.FitError{Spec: spec, Message: "library returned no forecast"}
	}
	if len(raw.Mean) != steps {
		return nil, &model.FitError{Spec: spec, Message: fmt.Sprintf("library returned %d forecasts, want %d", len(raw.Mean), steps)}
	}
	for _, bounds := range [][]float64{raw.Mean, raw.Lower, raw.Upper} {
		for _, v := range bounds {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &model.FitError{Spec: spec, Message: "forecast contains non-finite values"}
			}
		}
	}
	return raw, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
