package pipeline

import (
	"go-forecast-pipeline/internal/model"
)

// RequiredColumns returns the columns a request needs from the table.
func RequiredColumns(req model.ForecastRequest) []string {
	if req.Mode == model.ModeGeneric {
		return []string{req.DateColumn, req.ValueColumn}
	}
	return AgricultureColumns
}

// RequireColumns fails with a *model.SchemaError naming exactly the required
// columns absent from the header, in the order they were asked for.
func RequireColumns(table *model.RawTable, required ...string) error {
	var missing []string
	seen := make(map[string]bool, len(required))
	for _, name := range required {
		if seen[name] {
			continue
		}
		seen[name] = true
		if table.Index(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &model.SchemaError{Missing: missing}
	}
	return nil
}
