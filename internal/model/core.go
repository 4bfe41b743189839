package model

import (
	"fmt"
	"strings"
)

// Mode selects the series extraction strategy of a forecast request.
type Mode string

const (
	ModeAgriculture Mode = "agriculture" // State/Crop/Crop_Year/Yield tables, yearly resampling
	ModeGeneric     Mode = "generic"     // any date + value column, no resampling
)

// ParseMode normalises a user supplied mode. Empty means agriculture.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAgriculture:
		return ModeAgriculture, nil
	case ModeGeneric:
		return ModeGeneric, nil
	default:
		return "", &InvalidRequestError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// SeriesKey selects one state/crop subset of an agriculture table.
type SeriesKey struct {
	State string `json:"state"`
	Crop  string `json:"crop"`
}

func (k SeriesKey) String() string {
	return k.Crop + "_" + k.State
}

// ModelSpec holds the SARIMA orders (p,d,q)(P,D,Q,s) chosen by the user.
type ModelSpec struct {
	P  int `json:"p" mapstructure:"p"`
	D  int `json:"d" mapstructure:"d"`
	Q  int `json:"q" mapstructure:"q"`
	SP int `json:"seasonal_p" mapstructure:"seasonal_p"`
	SD int `json:"seasonal_d" mapstructure:"seasonal_d"`
	SQ int `json:"seasonal_q" mapstructure:"seasonal_q"`
	S  int `json:"period" mapstructure:"period"`

	EnforceStationarity  bool `json:"enforce_stationarity" mapstructure:"enforce_stationarity"`
	EnforceInvertibility bool `json:"enforce_invertibility" mapstructure:"enforce_invertibility"`
}

// DefaultModelSpec is SARIMA(1,1,1)(1,1,1)[12] with both constraints on.
func DefaultModelSpec() ModelSpec {
	return ModelSpec{
		P: 1, D: 1, Q: 1,
		SP: 1, SD: 1, SQ: 1, S: 12,
		EnforceStationarity:  true,
		EnforceInvertibility: true,
	}
}

// Validate checks that all orders are non-negative and the period is at least 1.
func (s ModelSpec) Validate() error {
	orders := []struct {
		name string
		v    int
	}{
		{"p", s.P}, {"d", s.D}, {"q", s.Q},
		{"seasonal_p", s.SP}, {"seasonal_d", s.SD}, {"seasonal_q", s.SQ},
	}
	for _, o := range orders {
		if o.v < 0 {
			return &InvalidRequestError{Field: o.name, Reason: fmt.Sprintf("order must be non-negative, got %d", o.v)}
		}
	}
	if s.S < 1 {
		return &InvalidRequestError{Field: "period", Reason: fmt.Sprintf("seasonal period must be at least 1, got %d", s.S)}
	}
	return nil
}

func (s ModelSpec) String() string {
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]", s.P, s.D, s.Q, s.SP, s.SD, s.SQ, s.S)
}

// ForecastRequest is everything one "train" action needs besides the table.
type ForecastRequest struct {
	Mode        Mode      `json:"mode"`
	Key         SeriesKey `json:"key"`
	DateColumn  string    `json:"date_column,omitempty"`
	ValueColumn string    `json:"value_column,omitempty"`
	Frequency   Frequency `json:"frequency,omitempty"` // generic mode only; inferred when empty
	Spec        ModelSpec `json:"spec"`
	Steps       int       `json:"steps"`
	Alpha       float64   `json:"alpha,omitempty"` // 0.05 gives a 95% band
}

// Validate checks request fields that do not depend on the table.
func (r ForecastRequest) Validate(maxSteps int) error {
	if r.Steps < 1 {
		return &InvalidRequestError{Field: "steps", Reason: fmt.Sprintf("steps must be at least 1, got %d", r.Steps)}
	}
	if maxSteps > 0 && r.Steps > maxSteps {
		return &InvalidRequestError{Field: "steps", Reason: fmt.Sprintf("steps must be at most %d, got %d", maxSteps, r.Steps)}
	}
	if r.Alpha < 0 || r.Alpha >= 1 {
		return &InvalidRequestError{Field: "alpha", Reason: fmt.Sprintf("alpha must be in (0,1), got %v", r.Alpha)}
	}
	switch r.Mode {
	case ModeAgriculture:
		if r.Key.State == "" || r.Key.Crop == "" {
			return &InvalidRequestError{Field: "key", Reason: "state and crop are required in agriculture mode"}
		}
	case ModeGeneric:
		if r.DateColumn == "" || r.ValueColumn == "" {
			return &InvalidRequestError{Field: "columns", Reason: "date_column and value_column are required in generic mode"}
		}
		if r.Frequency != "" {
			if _, err := ParseFrequency(string(r.Frequency)); err != nil {
				return err
			}
		}
	default:
		return &InvalidRequestError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", r.Mode)}
	}
	return r.Spec.Validate()
}

// Label names the series for logs, file names and run listings.
func (r ForecastRequest) Label() string {
	if r.Mode == ModeAgriculture {
		return r.Key.String()
	}
	return r.ValueColumn
}
