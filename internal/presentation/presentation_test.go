package presentation

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forecast-pipeline/internal/model"
	"go-forecast-pipeline/internal/pipeline"
)

func year(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func sampleHistory(t *testing.T) *model.TimeSeries {
	t.Helper()
	ts, err := model.NewTimeSeries("Rice_Punjab", model.FreqYearStart,
		[]time.Time{year(2018), year(2019), year(2020)},
		[]float64{2.0, 2.5, 3.0})
	require.NoError(t, err)
	return ts
}

func sampleForecast() *model.ForecastResult {
	return &model.ForecastResult{
		Frequency:  model.FreqYearStart,
		Confidence: 0.95,
		Points: []model.ForecastPoint{
			{Time: year(2021), Value: 3.5, Lower: ptr(3.0), Upper: ptr(4.0)},
			{Time: year(2022), Value: 3.25, Lower: ptr(2.5), Upper: ptr(4.0)},
		},
	}
}

func TestYearWiseLines(t *testing.T) {
	lines := YearWiseLines(sampleForecast(), pipeline.AgricultureLayout)
	assert.Equal(t, []string{
		"2021 → 3.50 tons/ha",
		"2022 → 3.25 tons/ha",
	}, lines)

	generic := YearWiseLines(sampleForecast(), pipeline.GenericLayout)
	assert.Equal(t, "2021-01-01 → 3.50", generic[0])
}

func TestNarrative(t *testing.T) {
	insights := pipeline.Summarize(sampleHistory(t), sampleForecast())
	lines := Narrative(insights, pipeline.AgricultureLayout)

	require.Len(t, lines, 5)
	assert.Equal(t, "Average forecast over 2 periods: 3.38 tons/ha.", lines[0])
	assert.Equal(t, "Highest value expected in 2021 at 3.50 tons/ha.", lines[1])
	assert.Equal(t, "Lowest value expected in 2022 at 3.25 tons/ha.", lines[2])
	assert.Equal(t, "2021: up 0.50 tons/ha from the previous period.", lines[3])
	assert.Equal(t, "2022: down 0.25 tons/ha from the previous period.", lines[4])

	assert.Nil(t, Narrative(nil, pipeline.AgricultureLayout))
}

func TestRenderChartWritesPNG(t *testing.T) {
	var buf bytes.Buffer
	err := RenderChart(&buf, sampleHistory(t), sampleForecast(), ChartOptions{Title: "Rice in Punjab"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderChartWithoutBounds(t *testing.T) {
	result := sampleForecast()
	for i := range result.Points {
		result.Points[i].Lower, result.Points[i].Upper = nil, nil
	}
	assert.Nil(t, confidenceBand(result))

	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, sampleHistory(t), result, ChartOptions{}))
	assert.NotZero(t, buf.Len())
}

func TestRenderChartRejectsEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderChart(&buf, nil, sampleForecast(), ChartOptions{}))
	assert.Error(t, RenderChart(&buf, sampleHistory(t), &model.ForecastResult{}, ChartOptions{}))
}

func TestConfidenceBandOutline(t *testing.T) {
	band := confidenceBand(sampleForecast())
	require.Len(t, band, 4)
	assert.Equal(t, 4.0, band[0].Y)
	assert.Equal(t, 4.0, band[1].Y)
	assert.Equal(t, 2.5, band[2].Y)
	assert.Equal(t, 3.0, band[3].Y)
}

func TestVoice(t *testing.T) {
	ctx := context.Background()

	_, err := NoopVoice{}.CaptureText(ctx)
	assert.ErrorIs(t, err, ErrVoiceUnavailable)
	assert.NoError(t, NoopVoice{}.Speak(ctx, "hello"))

	logger, hook := test.NewNullLogger()
	v := NewVoice(true, logger)
	require.IsType(t, LogVoice{}, v)
	require.NoError(t, v.Speak(ctx, "Forecast ready"))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "Forecast ready", hook.LastEntry().Message)

	_, err = v.CaptureText(ctx)
	assert.ErrorIs(t, err, ErrVoiceUnavailable)

	assert.IsType(t, NoopVoice{}, NewVoice(false, logger))
}
