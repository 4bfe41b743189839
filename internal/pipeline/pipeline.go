package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go-forecast-pipeline/internal/model"
)

const tracerName = "go-forecast-pipeline/internal/pipeline"

// RunRecorder persists the lifecycle of forecast runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *model.RunRecord) error
	CompleteRun(ctx context.Context, outcome *model.Outcome) error
	FailRun(ctx context.Context, runID, kind, message string) error
}

// Runner sequences extraction, fit and assembly for one request.
type Runner struct {
	forecaster Forecaster
	recorder   RunRecorder
	observers  []StageObserver
	maxSteps   int
	log        *logrus.Entry
	tracer     trace.Tracer
	now        func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRecorder persists every run through rec.
func WithRecorder(rec RunRecorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithObservers registers stage observers, e.g. a metrics histogram.
func WithObservers(obs ...StageObserver) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, obs...) }
}

// WithMaxSteps caps the forecast horizon. Zero means no cap.
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) { r.maxSteps = n }
}

// WithLogger sets the logger entries are derived from.
func WithLogger(l logrus.FieldLogger) RunnerOption {
	return func(r *Runner) { r.log = l.WithField("component", "pipeline") }
}

// NewRunner creates a runner around f.
func NewRunner(f Forecaster, opts ...RunnerOption) *Runner {
	r := &Runner{
		forecaster: f,
		log:        logrus.StandardLogger().WithField("component", "pipeline"),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one forecast request against table. The first failing stage
// aborts the run; no partial outcome is returned.
func (r *Runner) Run(ctx context.Context, sessionID string, table *model.RawTable, req model.ForecastRequest) (*model.Outcome, error) {
	start := r.now()
	if req.Alpha == 0 {
		req.Alpha = DefaultAlpha
	}
	if err := req.Validate(r.maxSteps); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := r.log.WithFields(logrus.Fields{
		"run_id":  runID,
		"session": sessionID,
		"mode":    req.Mode,
		"series":  req.Label(),
		"spec":    req.Spec.String(),
	})

	ctx, span := r.tracer.Start(ctx, "forecast.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("forecast.mode", string(req.Mode)),
		attribute.String("forecast.series", req.Label()),
		attribute.Int("forecast.steps", req.Steps),
	))
	defer span.End()

	if r.recorder != nil {
		rec := &model.RunRecord{
			ID:        runID,
			SessionID: sessionID,
			Mode:      req.Mode,
			Label:     req.Label(),
			Request:   req,
			Status:    model.RunStatusRunning,
			CreatedAt: start,
			UpdatedAt: start,
		}
		if err := r.recorder.SaveRun(ctx, rec); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}

	log.Info("Starting forecast run")
	outcome, err := r.run(ctx, NewTracker(runID, r.observers...), table, req)
	if err != nil {
		kind := model.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).WithField("kind", kind).Warn("Forecast run failed")
		if r.recorder != nil {
			if recErr := r.recorder.FailRun(ctx, runID, kind, err.Error()); recErr != nil {
				log.WithError(recErr).Error("Failed to record run failure")
			}
		}
		return nil, err
	}

	for _, w := range outcome.Model.Warnings {
		log.Warn(w)
	}
	outcome.RunID = runID
	outcome.Duration = r.now().Sub(start)
	if r.recorder != nil {
		if err := r.recorder.CompleteRun(ctx, outcome); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to record run result: %w", err)
		}
	}
	log.WithFields(logrus.Fields{
		"observations": outcome.History.Len(),
		"duration_ms":  outcome.Duration.Milliseconds(),
	}).Info("Forecast run completed")
	return outcome, nil
}

func (r *Runner) run(ctx context.Context, tracker *Tracker, table *model.RawTable, req model.ForecastRequest) (*model.Outcome, error) {
	var (
		series   *model.TimeSeries
		raw      *RawForecast
		result   *model.ForecastResult
		insights *model.SummaryInsights
	)

	err := r.stage(ctx, tracker, StageExtract, func(context.Context) (err error) {
		series, err = ExtractSeries(table, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, tracker, StageFit, func(ctx context.Context) (err error) {
		raw, err = FitAndForecast(ctx, r.forecaster, series, req.Spec, req.Steps, req.Alpha)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, tracker, StageAssemble, func(context.Context) (err error) {
		result, insights, err = Assemble(series, raw, req.Steps)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &model.Outcome{
		Request:  req,
		History:  series,
		Forecast: result,
		Insights: insights,
		Model:    raw.Fit,
	}, nil
}

func (r *Runner) stage(ctx context.Context, tracker *Tracker, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "forecast."+name)
	defer span.End()

	err := tracker.Track(name, func() error { return fn(ctx) })
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
