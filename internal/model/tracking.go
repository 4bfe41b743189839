package model

import "time"

// Run statuses persisted in the run history.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StageMetrics records one pipeline stage of one run.
type StageMetrics struct {
	Stage    string        `json:"stage"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Status   string        `json:"status"` // "completed" or "failed"
	Error    string        `json:"error,omitempty"`
}

// RunRecord is a forecast run as stored in the history.
type RunRecord struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	Mode         Mode            `json:"mode"`
	Label        string          `json:"label"`
	Request      ForecastRequest `json:"request"`
	Status       string          `json:"status"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Point kinds stored alongside a run.
const (
	PointHistory  = "history"
	PointForecast = "forecast"
)
