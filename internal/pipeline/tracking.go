package pipeline

import (
	"sync"
	"time"

	"go-forecast-pipeline/internal/model"
)

// Stage names reported to observers and used as span names.
const (
	StageExtract  = "extract"
	StageFit      = "fit"
	StageAssemble = "assemble"
)

// StageObserver receives the metrics of every finished stage.
type StageObserver interface {
	ObserveStage(m model.StageMetrics)
}

// StageObserverFunc adapts a function to StageObserver.
type StageObserverFunc func(m model.StageMetrics)

func (f StageObserverFunc) ObserveStage(m model.StageMetrics) { f(m) }

// Tracker times the stages of one run and fans the results out to observers.
type Tracker struct {
	RunID string

	mu        sync.Mutex
	stages    []model.StageMetrics
	observers []StageObserver
}

// NewTracker creates a tracker for runID.
func NewTracker(runID string, observers ...StageObserver) *Tracker {
	return &Tracker{RunID: runID, observers: observers}
}

// Track runs fn as stage and records its duration and status.
func (t *Tracker) Track(stage string, fn func() error) error {
	start := time.Now()
	err := fn()

	m := model.StageMetrics{
		Stage:    stage,
		Start:    start,
		Duration: time.Since(start),
		Status:   model.RunStatusCompleted,
	}
	if err != nil {
		m.Status = model.RunStatusFailed
		m.Error = err.Error()
	}

	t.mu.Lock()
	t.stages = append(t.stages, m)
	t.mu.Unlock()

	for _, o := range t.observers {
		o.ObserveStage(m)
	}
	return err
}

// Stages returns a copy of the recorded stage metrics in execution order.
func (t *Tracker) Stages() []model.StageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.StageMetrics(nil), t.stages...)
}
