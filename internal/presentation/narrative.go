package presentation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"go-forecast-pipeline/internal/model"
	"go-forecast-pipeline/internal/pipeline"
)

// YearWiseLines renders one "PERIOD → VALUE unit" line per forecast step,
// values rounded to two decimals.
func YearWiseLines(result *model.ForecastResult, layout pipeline.ExportLayout) []string {
	lines := make([]string, len(result.Points))
	for i, p := range result.Points {
		lines[i] = fmt.Sprintf("%s → %s", p.Time.Format(layout.TimeFormat), withUnit(p.Value, layout))
	}
	return lines
}

// Narrative turns the insights into short summary sentences.
func Narrative(insights *model.SummaryInsights, layout pipeline.ExportLayout) []string {
	if insights == nil || len(insights.Deltas) == 0 {
		return nil
	}
	out := []string{
		fmt.Sprintf("Average forecast over %d periods: %s.", len(insights.Deltas), withUnit(insights.Mean, layout)),
		fmt.Sprintf("Highest value expected in %s at %s.", insights.Best.Time.Format(layout.TimeFormat), withUnit(insights.Best.Value, layout)),
		fmt.Sprintf("Lowest value expected in %s at %s.", insights.Worst.Time.Format(layout.TimeFormat), withUnit(insights.Worst.Value, layout)),
	}
	for _, d := range insights.Deltas {
		period := d.Time.Format(layout.TimeFormat)
		switch d.Direction {
		case model.DirectionIncrease:
			out = append(out, fmt.Sprintf("%s: up %s from the previous period.", period, withUnit(d.Change, layout)))
		case model.DirectionDecrease:
			out = append(out, fmt.Sprintf("%s: down %s from the previous period.", period, withUnit(-d.Change, layout)))
		default:
			out = append(out, fmt.Sprintf("%s: unchanged from the previous period.", period))
		}
	}
	return out
}

func withUnit(v float64, layout pipeline.ExportLayout) string {
	s := decimal.NewFromFloat(v).StringFixed(pipeline.TablePrecision)
	if layout.Unit == "" {
		return s
	}
	return strings.Join([]string{s, layout.Unit}, " ")
}
