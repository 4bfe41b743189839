package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"go-forecast-pipeline/internal/model"
)

// TablePrecision is the number of decimals shown in the rendered table.
const TablePrecision = 2

// ExportLayout fixes the column names and time format of an export.
type ExportLayout struct {
	TimeColumn  string
	ValueColumn string
	TimeFormat  string
	Unit        string // appended to values in narrative text
}

var (
	AgricultureLayout = ExportLayout{TimeColumn: "Year", ValueColumn: "Predicted Yield (tons/ha)", TimeFormat: "2006", Unit: "tons/ha"}
	GenericLayout     = ExportLayout{TimeColumn: "Date", ValueColumn: "Forecast", TimeFormat: "2006-01-02"}
)

// LayoutFor returns the export layout of a mode. Sub-daily generic series keep the time of day.
func LayoutFor(mode model.Mode, freq model.Frequency) ExportLayout {
	if mode == model.ModeAgriculture {
		return AgricultureLayout
	}
	layout := GenericLayout
	if freq == model.FreqHourly || freq == model.FreqMinutely {
		layout.TimeFormat = "2006-01-02 15:04:05"
	}
	return layout
}

func (l ExportLayout) header(withBounds bool) []string {
	h := []string{l.TimeColumn, l.ValueColumn}
	if withBounds {
		h = append(h, "Lower", "Upper")
	}
	return h
}

// WriteCSV writes one row per forecast step. Values are plain decimals, never
// exponent notation. Lower and Upper columns are added when withBounds is set
// and the result carries an interval.
func WriteCSV(w io.Writer, result *model.ForecastResult, layout ExportLayout, withBounds bool) error {
	withBounds = withBounds && hasBounds(result)

	writer := csv.NewWriter(w)
	if err := writer.Write(layout.header(withBounds)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range result.Points {
		row := []string{p.Time.Format(layout.TimeFormat), plainDecimal(p.Value)}
		if withBounds {
			row = append(row, plainDecimal(*p.Lower), plainDecimal(*p.Upper))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses an export written by WriteCSV with the same layout.
func ReadCSV(r io.Reader, layout ExportLayout) (*model.ForecastResult, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, csvFormatError(err)
	}
	withBounds := len(header) == 4
	want := layout.header(withBounds)
	if len(header) != len(want) {
		return nil, &model.FormatError{Line: 1, Reason: fmt.Sprintf("expected %d columns, got %d", len(want), len(header))}
	}
	for i := range want {
		if header[i] != want[i] {
			return nil, &model.FormatError{Line: 1, Reason: fmt.Sprintf("expected column %q, got %q", want[i], header[i])}
		}
	}

	result := &model.ForecastResult{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvFormatError(err)
		}
		t, err := time.Parse(layout.TimeFormat, record[0])
		if err != nil {
			return nil, &model.FormatError{Line: line, Reason: err.Error(), Err: err}
		}
		nums := make([]float64, len(record)-1)
		for i, cell := range record[1:] {
			d, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, &model.FormatError{Line: line, Reason: err.Error(), Err: err}
			}
			nums[i] = d.InexactFloat64()
		}
		p := model.ForecastPoint{Time: t.UTC(), Value: nums[0]}
		if withBounds {
			p.Lower, p.Upper = &nums[1], &nums[2]
		}
		result.Points = append(result.Points, p)
	}
	return result, nil
}

// WriteJSON writes the forecast points as a JSON array.
func WriteJSON(w io.Writer, result *model.ForecastResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Points)
}

// FormatTable renders the forecast for display, values rounded to TablePrecision.
// The first row is the header.
func FormatTable(result *model.ForecastResult, layout ExportLayout) [][]string {
	withBounds := hasBounds(result)
	rows := [][]string{layout.header(withBounds)}
	for _, p := range result.Points {
		row := []string{
			p.Time.Format(layout.TimeFormat),
			decimal.NewFromFloat(p.Value).StringFixed(TablePrecision),
		}
		if withBounds {
			row = append(row,
				decimal.NewFromFloat(*p.Lower).StringFixed(TablePrecision),
				decimal.NewFromFloat(*p.Upper).StringFixed(TablePrecision))
		}
		rows = append(rows, row)
	}
	return rows
}

func hasBounds(result *model.ForecastResult) bool {
	if len(result.Points) == 0 {
		return false
	}
	for _, p := range result.Points {
		if p.Lower == nil || p.Upper == nil {
			return false
		}
	}
	return true
}

func plainDecimal(v float64) string {
	return decimal.NewFromFloat(v).String()
}
