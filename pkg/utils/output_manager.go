package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ExportFileName builds the download name for a forecast export, e.g.
// "Wheat_Punjab_forecast.csv". An empty label gives "forecast.csv".
func ExportFileName(label, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	label = CleanFileName(label)
	if label == "" {
		return "forecast." + ext
	}
	return fmt.Sprintf("%s_forecast.%s", label, ext)
}

// CleanFileName strips path separators and characters that break
// Content-Disposition headers.
func CleanFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', ';', '\r', '\n':
			return -1
		case ' ':
			return '_'
		}
		return r
	}, name)
}

// GetContentType determines the response content type based on extension
func GetContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
