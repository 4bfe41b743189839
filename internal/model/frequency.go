package model

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the calendar step between consecutive observations.
type Frequency string

const (
	FreqYearStart    Frequency = "YS"
	FreqQuarterStart Frequency = "QS"
	FreqQuarterEnd   Frequency = "QE"
	FreqMonthStart   Frequency = "MS"
	FreqMonthEnd     Frequency = "ME"
	FreqWeekly       Frequency = "W"
	FreqDaily        Frequency = "D"
	FreqHourly       Frequency = "H"
	FreqMinutely     Frequency = "min"
)

// inferenceOrder lists frequencies from coarsest to finest. Month-end
// timestamps are matched against monthEndOrder instead.
var (
	inferenceOrder = []Frequency{
		FreqYearStart, FreqQuarterStart, FreqMonthStart,
		FreqWeekly, FreqDaily, FreqHourly, FreqMinutely,
	}
	monthEndOrder = []Frequency{
		FreqYearStart, FreqQuarterEnd, FreqMonthEnd,
		FreqWeekly, FreqDaily, FreqHourly, FreqMinutely,
	}
)

// ParseFrequency accepts the aliases used by pandas-style offset strings.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.TrimSpace(s) {
	case "YS", "AS", "Y", "A":
		return FreqYearStart, nil
	case "QS", "Q":
		return FreqQuarterStart, nil
	case "QE":
		return FreqQuarterEnd, nil
	case "MS", "M":
		return FreqMonthStart, nil
	case "ME":
		return FreqMonthEnd, nil
	case "W":
		return FreqWeekly, nil
	case "D":
		return FreqDaily, nil
	case "H", "h":
		return FreqHourly, nil
	case "min", "T":
		return FreqMinutely, nil
	}
	return "", &InvalidRequestError{Field: "frequency", Reason: fmt.Sprintf("unsupported frequency %q", s)}
}

// Add moves t forward by n steps of f.
func (f Frequency) Add(t time.Time, n int) time.Time {
	switch f {
	case FreqYearStart:
		return t.AddDate(n, 0, 0)
	case FreqQuarterStart:
		return t.AddDate(0, 3*n, 0)
	case FreqQuarterEnd:
		return monthEnd(t, 3*n)
	case FreqMonthStart:
		return t.AddDate(0, n, 0)
	case FreqMonthEnd:
		return monthEnd(t, n)
	case FreqWeekly:
		return t.AddDate(0, 0, 7*n)
	case FreqDaily:
		return t.AddDate(0, 0, n)
	case FreqHourly:
		return t.Add(time.Duration(n) * time.Hour)
	case FreqMinutely:
		return t.Add(time.Duration(n) * time.Minute)
	}
	return t
}

// monthEnd returns the last day of the month n months after t, keeping the clock time.
func monthEnd(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n)+1, 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return first.AddDate(0, 0, -1)
}

// stepsBetween returns how many whole steps of f separate a and b, or -1.
func (f Frequency) stepsBetween(a, b time.Time) int {
	var n int
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	switch f {
	case FreqYearStart:
		n = b.Year() - a.Year()
	case FreqQuarterStart, FreqQuarterEnd:
		// AddDate overflows into the next month past day 28
		if months%3 != 0 || (f == FreqQuarterStart && a.Day() > 28) {
			return -1
		}
		n = months / 3
	case FreqMonthStart:
		if a.Day() > 28 {
			return -1
		}
		n = months
	case FreqMonthEnd:
		n = months
	case FreqWeekly:
		n = int(b.Sub(a) / (7 * 24 * time.Hour))
	case FreqDaily:
		n = int(b.Sub(a) / (24 * time.Hour))
	case FreqHourly:
		n = int(b.Sub(a) / time.Hour)
	case FreqMinutely:
		n = int(b.Sub(a) / time.Minute)
	default:
		return -1
	}
	if n < 1 || !f.Add(a, n).Equal(b) {
		return -1
	}
	return n
}

// InferFrequency picks the coarsest frequency of which every gap between
// consecutive timestamps is a whole multiple. Timestamps must be increasing.
func InferFrequency(ts []time.Time) (Frequency, error) {
	if len(ts) < 2 {
		return "", fmt.Errorf("need at least 2 timestamps to infer a frequency, got %d", len(ts))
	}
	order := inferenceOrder
	if allMonthEnds(ts) {
		order = monthEndOrder
	}
	for _, f := range order {
		fits := true
		for i := 1; i < len(ts) && fits; i++ {
			fits = f.stepsBetween(ts[i-1], ts[i]) > 0
		}
		if fits {
			return f, nil
		}
	}
	return "", fmt.Errorf("timestamps %s and %s do not follow a regular calendar step",
		ts[0].Format(time.RFC3339), ts[1].Format(time.RFC3339))
}

func allMonthEnds(ts []time.Time) bool {
	for _, t := range ts {
		if t.AddDate(0, 0, 1).Day() != 1 {
			return false
		}
	}
	return true
}
