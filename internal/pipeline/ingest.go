package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-forecast-pipeline/internal/model"
)

// AgricultureColumns must all be present in an agriculture upload.
var AgricultureColumns = []string{"State", "Crop", "Crop_Year", "Yield"}

var utf8BOM = []byte("\ufeff")

// ParseTable reads a comma-separated upload with a header row and checks
// that every required column is present. Cells are trimmed; blank lines are skipped.
func ParseTable(raw []byte, required ...string) (*model.RawTable, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &model.FormatError{Reason: "upload is empty"}
	}

	csvReader := csv.NewReader(bytes.NewReader(raw))
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, csvFormatError(err)
	}
	columns, err := cleanHeader(header)
	if err != nil {
		return nil, err
	}

	table := &model.RawTable{Columns: columns}
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvFormatError(err)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		table.Rows = append(table.Rows, record)
	}

	if err := RequireColumns(table, required...); err != nil {
		return nil, err
	}
	return table, nil
}

func cleanHeader(header []string) ([]string, error) {
	if len(header) < 2 {
		return nil, &model.FormatError{
			Line:   1,
			Reason: "header has a single column; the file does not look comma-separated",
		}
	}
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		// Clean header names: trim whitespace and remove stray quotes
		name := strings.TrimSpace(strings.ReplaceAll(h, `"`, ""))
		if name == "" {
			return nil, &model.FormatError{Line: 1, Reason: fmt.Sprintf("column %d has an empty name", i+1)}
		}
		if seen[name] {
			return nil, &model.FormatError{Line: 1, Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = true
		columns[i] = name
	}
	return columns, nil
}

func csvFormatError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &model.FormatError{Line: parseErr.Line, Reason: parseErr.Err.Error(), Err: err}
	}
	return &model.FormatError{Reason: err.Error(), Err: err}
}
