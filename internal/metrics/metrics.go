package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-forecast-pipeline/internal/model"
)

// Metrics holds the Prometheus collectors of the forecast service
type Metrics struct {
	Uploads       *prometheus.CounterVec
	Forecasts     *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_uploads_total",
				Help: "Uploaded tables by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		Forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_runs_total",
				Help: "Forecast runs by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_failures_total",
				Help: "Failed uploads and runs by error kind",
			},
			[]string{"kind"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"stage", "status"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_http_requests_total",
				Help: "HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),
		gatherer: reg,
	}
}

// ObserveStage records one pipeline stage duration.
func (m *Metrics) ObserveStage(s model.StageMetrics) {
	m.StageDuration.WithLabelValues(s.Stage, s.Status).Observe(s.Duration.Seconds())
}

// RecordUpload counts an upload; err is nil on success.
func (m *Metrics) RecordUpload(mode model.Mode, err error) {
	m.Uploads.WithLabelValues(string(mode), status(err)).Inc()
	if err != nil {
		m.Failures.WithLabelValues(model.KindOf(err)).Inc()
	}
}

// RecordForecast counts a forecast run; err is nil on success.
func (m *Metrics) RecordForecast(mode model.Mode, err error) {
	m.Forecasts.WithLabelValues(string(mode), status(err)).Inc()
	if err != nil {
		m.Failures.WithLabelValues(model.KindOf(err)).Inc()
	}
}

// ObserveRequest counts a finished HTTP request. It matches router.ObserverFunc.
func (m *Metrics) ObserveRequest(method string, code int, _ time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
