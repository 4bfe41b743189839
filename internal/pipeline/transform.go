package pipeline

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go-forecast-pipeline/internal/model"
)

// timestampLayouts are tried in order when parsing a generic date column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"Jan 2006",
	"January 2006",
	"2006",
}

// ParseTimestamp parses a date cell with the first matching layout. Results are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// yearStart returns Jan 1 of year in UTC.
func yearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// resampleYearly spreads year-start observations onto every year between the
// first and last one, filling the years in between by linear interpolation.
// Input must be sorted and free of duplicates.
func resampleYearly(times []time.Time, values []float64) ([]time.Time, []float64) {
	if len(times) == 0 {
		return nil, nil
	}
	first, last := times[0].Year(), times[len(times)-1].Year()
	outTimes := make([]time.Time, 0, last-first+1)
	outValues := make([]float64, 0, last-first+1)

	next := 0
	for year := first; year <= last; year++ {
		outTimes = append(outTimes, yearStart(year))
		if next < len(times) && times[next].Year() == year {
			outValues = append(outValues, values[next])
			next++
			continue
		}
		outValues = append(outValues, math.NaN())
	}
	interpolateLinear(outValues)
	return outTimes, outValues
}

// interpolateLinear fills NaN runs between two known values in place.
// Leading and trailing NaNs are left untouched.
func interpolateLinear(values []float64) {
	prev := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
}

// seriesFrequency picks the request's frequency or infers one from timestamps.
func seriesFrequency(requested model.Frequency, times []time.Time) (model.Frequency, error) {
	if requested != "" {
		return model.ParseFrequency(string(requested))
	}
	if len(times) < 2 {
		return "", &model.InvalidRequestError{
			Field:  "frequency",
			Reason: "frequency is required when the series has a single observation",
		}
	}
	freq, err := model.InferFrequency(times)
	if err != nil {
		return "", &model.FormatError{Reason: err.Error(), Err: err}
	}
	return freq, nil
}
