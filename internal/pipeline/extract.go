package pipeline

import (
	"fmt"
	"strings"
	"time"

	"go-forecast-pipeline/internal/model"
	"go-forecast-pipeline/pkg/utils"
)

// ExtractSeries turns the table into the series the request asks for.
//
// Agriculture mode filters on state and crop, averages duplicate years and
// returns a gap-free yearly series between the first and last observed year.
// Generic mode parses the date column, averages duplicate timestamps and
// keeps gaps as they are.
func ExtractSeries(table *model.RawTable, req model.ForecastRequest) (*model.TimeSeries, error) {
	switch req.Mode {
	case model.ModeAgriculture:
		return extractAgriculture(table, req.Key)
	case model.ModeGeneric:
		return extractGeneric(table, req)
	default:
		return nil, &model.InvalidRequestError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", req.Mode)}
	}
}

func extractAgriculture(table *model.RawTable, key model.SeriesKey) (*model.TimeSeries, error) {
	if err := RequireColumns(table, AgricultureColumns...); err != nil {
		return nil, err
	}
	var (
		stateIdx = table.Index("State")
		cropIdx  = table.Index("Crop")
		yearIdx  = table.Index("Crop_Year")
		yieldIdx = table.Index("Yield")
		state    = strings.TrimSpace(key.State)
		crop     = strings.TrimSpace(key.Crop)
		times    []time.Time
		values   []float64
		matched  int
	)
	for i, row := range table.Rows {
		if row[stateIdx] != state || row[cropIdx] != crop {
			continue
		}
		matched++
		yield, ok := utils.ParseNumber(row[yieldIdx])
		if !ok {
			continue
		}
		year, err := utils.ParseYear(row[yearIdx])
		if err != nil {
			return nil, &model.FormatError{
				Reason: fmt.Sprintf("data row %d: Crop_Year %q is not a year", i+1, row[yearIdx]),
				Err:    err,
			}
		}
		times = append(times, yearStart(year))
		values = append(values, yield)
	}

	selection := fmt.Sprintf("state %q and crop %q", state, crop)
	if matched == 0 {
		return nil, &model.EmptySeriesError{Selection: selection}
	}
	if len(values) == 0 {
		return nil, &model.EmptySeriesError{Selection: selection + " (no numeric Yield values)"}
	}

	times, values = groupMean(times, values)
	times, values = resampleYearly(times, values)
	return model.NewTimeSeries(key.String(), model.FreqYearStart, times, values)
}

func extractGeneric(table *model.RawTable, req model.ForecastRequest) (*model.TimeSeries, error) {
	if err := RequireColumns(table, req.DateColumn, req.ValueColumn); err != nil {
		return nil, err
	}
	dateIdx, valueIdx := table.Index(req.DateColumn), table.Index(req.ValueColumn)

	var (
		times  []time.Time
		values []float64
	)
	for i, row := range table.Rows {
		if utils.IsMissing(row[dateIdx]) {
			continue
		}
		v, ok := utils.ParseNumber(row[valueIdx])
		if !ok {
			continue
		}
		ts, err := ParseTimestamp(row[dateIdx])
		if err != nil {
			return nil, &model.FormatError{
				Reason: fmt.Sprintf("data row %d: column %q: %v", i+1, req.DateColumn, err),
				Err:    err,
			}
		}
		times = append(times, ts)
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, &model.EmptySeriesError{
			Selection: fmt.Sprintf("date column %q and value column %q", req.DateColumn, req.ValueColumn),
		}
	}

	times, values = groupMean(times, values)
	freq, err := seriesFrequency(req.Frequency, times)
	if err != nil {
		return nil, err
	}
	return model.NewTimeSeries(req.ValueColumn, freq, times, values)
}
