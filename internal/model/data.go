package model

import (
	"errors"
	"time"
)

// RawTable is an uploaded dataset. Cells are kept as text; callers convert on demand.
type RawTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Index returns the position of column name, or -1.
func (t *RawTable) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumns reports whether every name is in the header.
func (t *RawTable) HasColumns(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Distinct returns the distinct non-empty values of column in first-seen order.
func (t *RawTable) Distinct(column string) []string {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		v := row[idx]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// TimeSeries is an ordered sequence of (timestamp, value) pairs.
type TimeSeries struct {
	Name       string      `json:"name"`
	Frequency  Frequency   `json:"frequency"`
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
}

// NewTimeSeries builds a series after checking the slices line up and are strictly increasing.
func NewTimeSeries(name string, freq Frequency, timestamps []time.Time, values []float64) (*TimeSeries, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, errors.New("timestamps must be strictly increasing")
		}
	}
	return &TimeSeries{Name: name, Frequency: freq, Timestamps: timestamps, Values: values}, nil
}

// Len returns the number of observations.
func (s *TimeSeries) Len() int {
	return len(s.Values)
}

// Last returns the final observation.
func (s *TimeSeries) Last() (time.Time, float64) {
	n := len(s.Values)
	return s.Timestamps[n-1], s.Values[n-1]
}

// ForecastPoint is one future step. Bounds are nil when no interval was requested.
type ForecastPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	Lower *float64  `json:"lower,omitempty"`
	Upper *float64  `json:"upper,omitempty"`
}

// ForecastResult is the assembled forecast, one point per requested step.
type ForecastResult struct {
	Frequency  Frequency       `json:"frequency"`
	Confidence float64         `json:"confidence,omitempty"`
	Points     []ForecastPoint `json:"points"`
}

// Values returns the point estimates in order.
func (r *ForecastResult) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Value
	}
	return out
}

// Direction of a step-to-step change.
const (
	DirectionIncrease  = "increase"
	DirectionDecrease  = "decrease"
	DirectionUnchanged = "unchanged"
)

// Delta is the change from the preceding value (historical or forecast) to this step.
type Delta struct {
	Time      time.Time `json:"time"`
	Value     float64   `json:"value"`
	Change    float64   `json:"change"`
	Direction string    `json:"direction"`
}

// Extreme is a forecast step holding a maximum or minimum.
type Extreme struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// SummaryInsights are read-only statistics derived from a forecast.
type SummaryInsights struct {
	Mean   float64 `json:"mean"`
	Best   Extreme `json:"best"`
	Worst  Extreme `json:"worst"`
	Deltas []Delta `json:"deltas"`
}

// FitSummary describes the fitted model returned alongside a forecast.
type FitSummary struct {
	Spec       ModelSpec `json:"spec"`
	NObs       int       `json:"nobs"`
	AR         []float64 `json:"ar,omitempty"`
	MA         []float64 `json:"ma,omitempty"`
	SeasonalAR []float64 `json:"seasonal_ar,omitempty"`
	SeasonalMA []float64 `json:"seasonal_ma,omitempty"`
	Sigma2     float64   `json:"sigma2"`
	LogLik     float64   `json:"log_likelihood"`
	AIC        float64   `json:"aic"`
	BIC        float64   `json:"bic"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Outcome is what one successful pipeline run hands to the presentation layer.
type Outcome struct {
	RunID    string           `json:"run_id"`
	Request  ForecastRequest  `json:"request"`
	History  *TimeSeries      `json:"history"`
	Forecast *ForecastResult  `json:"forecast"`
	Insights *SummaryInsights `json:"insights"`
	Model    FitSummary       `json:"model"`
	Duration time.Duration    `json:"duration"`
}
