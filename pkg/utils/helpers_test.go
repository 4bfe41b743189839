package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{" 3 ", 3, true},
		{"1,234.5", 1234.5, true},
		{"-12,345,678", -12345678, true},
		{"10,5", 0, false},
		{"1,23,456", 0, false},
		{",123", 0, false},
		{"1234,567", 0, false},
		{"-0.25", -0.25, true},
		{"", 0, false},
		{"NA", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseYear(t *testing.T) {
	y, err := ParseYear("2018")
	require.NoError(t, err)
	assert.Equal(t, 2018, y)

	y, err = ParseYear("2019.0")
	require.NoError(t, err)
	assert.Equal(t, 2019, y)

	_, err = ParseYear("2019.5")
	assert.Error(t, err)
	_, err = ParseYear("next year")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, ParseDuration("2s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "Wheat_Punjab_forecast.csv", ExportFileName("Wheat_Punjab", "csv"))
	assert.Equal(t, "Rice_West_Bengal_forecast.png", ExportFileName("Rice_West Bengal", ".png"))
	assert.Equal(t, "forecast.csv", ExportFileName("", "csv"))
	assert.Equal(t, "passwd_forecast.csv", ExportFileName("../../etc/passwd", "csv"))
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", GetContentType("a.csv"))
	assert.Equal(t, "image/png", GetContentType("chart.PNG"))
	assert.Equal(t, "application/octet-stream", GetContentType("blob"))
}
