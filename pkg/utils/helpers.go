package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseDuration safely parses duration string like "5m", falling back to def.
func ParseDuration(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return def
	}
	return duration
}

// missing tokens written by spreadsheets and pandas exports
var missingTokens = map[string]bool{
	"":     true,
	"-":    true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// IsMissing reports whether a cell holds no value.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// thousandsGrouped matches numbers whose integer part is split by commas
// into groups of three, such as 1,234.5.
var thousandsGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// ParseNumber reads a numeric cell. Commas are accepted only as thousands
// separators, so a decimal comma like "10,5" is rejected.
// Missing, non-numeric and non-finite cells report false.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return 0, false
	}
	if strings.Contains(s, ",") {
		if !thousandsGrouped.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseYear reads a calendar year written as "2018" or "2018.0".
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 1 || f > 9999 {
		return 0, strconv.ErrRange
	}
	return int(f), nil
}
