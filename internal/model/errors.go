package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported to clients and stored with failed runs.
const (
	KindFormat         = "format_error"
	KindSchema         = "schema_error"
	KindEmptySeries    = "empty_series"
	KindFit            = "fit_error"
	KindInvalidRequest = "invalid_request"
	KindInternal       = "internal_error"
)

// FormatError means the upload could not be read as comma-separated text.
type FormatError struct {
	Line   int // 1-based line in the upload, 0 when not tied to a line
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed table at line %d: %s", e.Line, e.Reason)
	}
	return "malformed table: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaError lists the required columns absent from the header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// EmptySeriesError means the selection matched no usable rows.
type EmptySeriesError struct {
	Selection string
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("no usable rows for %s", e.Selection)
}

// FitError carries the forecasting library's diagnostic when a fit fails.
type FitError struct {
	Spec    ModelSpec
	Message string
	Err     error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s fit failed: %s", e.Spec, e.Message)
}

func (e *FitError) Unwrap() error { return e.Err }

// InvalidRequestError is a bad request parameter, reported before any work starts.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// KindOf maps an error to one of the Kind constants.
func KindOf(err error) string {
	var (
		formatErr  *FormatError
		schemaErr  *SchemaError
		emptyErr   *EmptySeriesError
		fitErr     *FitError
		requestErr *InvalidRequestError
	)
	switch {
	case errors.As(err, &formatErr):
		return KindFormat
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &emptyErr):
		return KindEmptySeries
	case errors.As(err, &fitErr):
		return KindFit
	case errors.As(err, &requestErr):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
