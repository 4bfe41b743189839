package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forecast-pipeline/internal/model"
)

const yieldCSV = `State,Crop,Crop_Year,Yield
X,Wheat,2018,10
X,Wheat,2019,12
X,Wheat,2020,11
X,Wheat,2021,13
X,Wheat,2022,14
Y,Rice,2020,3.5
`

func TestParseTableAgriculture(t *testing.T) {
	table, err := ParseTable([]byte(yieldCSV), AgricultureColumns...)
	require.NoError(t, err)

	assert.Equal(t, AgricultureColumns, table.Columns)
	assert.Len(t, table.Rows, 6)
	assert.Equal(t, []string{"X", "Y"}, table.Distinct("State"))
	assert.True(t, table.HasColumns(AgricultureColumns...))
}

func TestParseTableKeepsExtraColumns(t *testing.T) {
	raw := "Season,State,Crop,Crop_Year,Yield,Area\nKharif,X,Wheat,2018,10,5\n"
	table, err := ParseTable([]byte(raw), AgricultureColumns...)
	require.NoError(t, err)
	assert.Subset(t, table.Columns, AgricultureColumns)
	assert.Len(t, table.Columns, 6)
}

func TestParseTableMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		missing []string
	}{
		{"no yield", "State,Crop,Crop_Year\nX,Wheat,2018\n", []string{"Yield"}},
		{"two missing", "State,Yield,Other\nX,10,a\n", []string{"Crop", "Crop_Year"}},
		{"header only", "Region,Value\n", AgricultureColumns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.raw), AgricultureColumns...)
			var schemaErr *model.SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.missing, schemaErr.Missing)
			assert.Equal(t, model.KindSchema, model.KindOf(err))
		})
	}
}

func TestParseTableFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n \n"},
		{"semicolon delimited", "State;Crop;Crop_Year;Yield\nX;Wheat;2018;10\n"},
		{"ragged row", "State,Crop,Crop_Year,Yield\nX,Wheat,2018\n"},
		{"bad quoting", "State,Crop,Crop_Year,Yield\nX,\"Wh\"eat,2018,10\n"},
		{"duplicate header", "State,State,Crop_Year,Yield\nX,Y,2018,10\n"},
		{"blank header", "State,,Crop_Year,Yield\nX,Y,2018,10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.raw), AgricultureColumns...)
			var formatErr *model.FormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestParseTableRaggedRowReportsLine(t *testing.T) {
	_, err := ParseTable([]byte("a,b\n1,2\n3\n"))
	var formatErr *model.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 3, formatErr.Line)
}

func TestParseTableStripsBOMAndSpaces(t *testing.T) {
	raw := "\ufeffDate, Sales\n2024-01-01, 5\n"
	table, err := ParseTable([]byte(raw), "Date", "Sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Sales"}, table.Columns)
	assert.Equal(t, []string{"2024-01-01", "5"}, table.Rows[0])
}

func TestRequireColumnsDeduplicates(t *testing.T) {
	table := &model.RawTable{Columns: []string{"a"}}
	err := RequireColumns(table, "b", "a", "b")
	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"b"}, schemaErr.Missing)
	assert.EqualError(t, err, "missing required columns: b")
}

func TestRequiredColumns(t *testing.T) {
	assert.Equal(t, AgricultureColumns, RequiredColumns(model.ForecastRequest{Mode: model.ModeAgriculture}))
	assert.Equal(t, []string{"d", "v"}, RequiredColumns(model.ForecastRequest{Mode: model.ModeGeneric, DateColumn: "d", ValueColumn: "v"}))
}
