package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-forecast-pipeline/internal/metrics"
	"go-forecast-pipeline/internal/model"
	"go-forecast-pipeline/internal/pipeline"
	"go-forecast-pipeline/internal/presentation"
	"go-forecast-pipeline/internal/session"
	"go-forecast-pipeline/internal/store"
	"go-forecast-pipeline/pkg/router"
	"go-forecast-pipeline/pkg/utils"
)

// DefaultSteps is the horizon used when a request names none.
const DefaultSteps = 5

const previewRows = 5

// Handler serves the forecast API.
type Handler struct {
	sessions    session.Store
	runs        *store.DB
	runner      *pipeline.Runner
	metrics     *metrics.Metrics
	voice       presentation.Voice
	log         *logrus.Entry
	defaultSpec model.ModelSpec
	alpha       float64
	maxUpload   int64
	now         func() time.Time
}

// Deps are the collaborators of a Handler. Metrics and Voice are optional.
type Deps struct {
	Sessions    session.Store
	Runs        *store.DB
	Runner      *pipeline.Runner
	Metrics     *metrics.Metrics
	Voice       presentation.Voice
	Logger      logrus.FieldLogger
	DefaultSpec model.ModelSpec
	Alpha       float64
	MaxUpload   int64 // bytes, 0 means unlimited
}

func New(d Deps) *Handler {
	h := &Handler{
		sessions:    d.Sessions,
		runs:        d.Runs,
		runner:      d.Runner,
		metrics:     d.Metrics,
		voice:       d.Voice,
		defaultSpec: d.DefaultSpec,
		alpha:       d.Alpha,
		maxUpload:   d.MaxUpload,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if h.voice == nil {
		h.voice = presentation.NoopVoice{}
	}
	if h.alpha == 0 {
		h.alpha = pipeline.DefaultAlpha
	}
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h.log = logger.WithField("component", "api")
	return h
}

// CreateSession starts a new client session
// @Summary Create a session
// @Description Create an empty session that holds one uploaded table
// @Tags sessions
// @Produce json
// @Success 201 {object} map[string]interface{} "Session created"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	sess := &session.Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := h.sessions.Put(r.Context(), sess); err != nil {
		h.log.WithError(err).Error("Failed to create session")
		writeError(w, http.StatusInternalServerError, model.KindInternal, "failed to create session", nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt,
	})
}

// UploadTable ingests a CSV table into a session
// @Summary Upload a dataset
// @Description Upload a CSV table as multipart field "file" or as the raw body. Agriculture mode requires State, Crop, Crop_Year and Yield. A new upload replaces the previous table.
// @Tags sessions
// @Accept text/csv,multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param mode query string false "agriculture (default) or generic"
// @Param file formData file false "CSV file"
// @Success 200 {object} map[string]interface{} "Table summary"
// @Failure 400 {object} map[string]interface{} "Malformed table or bad mode"
// @Failure 404 {object} map[string]interface{} "Session not found"
// @Failure 413 {object} map[string]interface{} "Upload too large"
// @Failure 422 {object} map[string]interface{} "Missing required columns"
// @Router /sessions/{id}/upload [post]
func (h *Handler) UploadTable(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	mode, err := model.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.fail(w, err)
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	raw, fileName, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, model.KindInvalidRequest,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), nil)
			return
		}
		h.fail(w, &model.InvalidRequestError{Field: "file", Reason: err.Error()})
		return
	}

	var required []string
	if mode == model.ModeAgriculture {
		required = pipeline.AgricultureColumns
	}
	table, err := pipeline.ParseTable(raw, required...)
	h.recordUpload(mode, err)
	if err != nil {
		h.log.WithError(err).WithField("session", sess.ID).Warn("Upload rejected")
		h.fail(w, err)
		return
	}

	sess.Mode = mode
	sess.FileName = fileName
	sess.Table = table
	sess.UpdatedAt = h.now()
	if err := h.sessions.Put(r.Context(), sess); err != nil {
		h.log.WithError(err).Error("Failed to store session")
		writeError(w, http.StatusInternalServerError, model.KindInternal, "failed to store upload", nil)
		return
	}

	h.log.WithFields(logrus.Fields{
		"session": sess.ID,
		"mode":    mode,
		"rows":    len(table.Rows),
		"columns": len(table.Columns),
	}).Info("Table uploaded")

	preview := table.Rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"mode":       mode,
		"file_name":  fileName,
		"columns":    table.Columns,
		"row_count":  len(table.Rows),
		"preview":    preview,
	})
}

// GetOptions lists the selectable values of the uploaded table
// @Summary Get selection options
// @Description Columns of the uploaded table and, in agriculture mode, the distinct states and crops
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{} "Options"
// @Failure 404 {object} map[string]interface{} "Session or table not found"
// @Router /sessions/{id}/options [get]
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadTable(w, r)
	if !ok {
		return
	}

	resp := map[string]interface{}{
		"session_id": sess.ID,
		"mode":       sess.Mode,
		"columns":    sess.Table.Columns,
	}
	if sess.Mode == model.ModeAgriculture {
		resp["states"] = nonNil(sess.Table.Distinct("State"))
		resp["crops"] = nonNil(sess.Table.Distinct("Crop"))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Forecast runs the pipeline on the session's table
// @Summary Run a forecast
// @Description Extract the selected series, fit the SARIMA model and forecast. Omitted fields fall back to the configured defaults.
// @Tags forecasts
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body model.ForecastRequest true "Forecast request"
// @Success 200 {object} map[string]interface{} "Forecast outcome"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 404 {object} map[string]interface{} "Session not found or empty series"
// @Failure 422 {object} map[string]interface{} "Model fit failed"
// @Router /sessions/{id}/forecast [post]
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadTable(w, r)
	if !ok {
		return
	}

	req := model.ForecastRequest{
		Mode:  sess.Mode,
		Spec:  h.defaultSpec,
		Steps: DefaultSteps,
		Alpha: h.alpha,
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.fail(w, &model.InvalidRequestError{Field: "body", Reason: "invalid JSON payload: " + err.Error()})
			return
		}
	}
	mode, err := model.ParseMode(string(req.Mode))
	if err != nil {
		h.fail(w, err)
		return
	}
	req.Mode = mode

	outcome, err := h.runner.Run(r.Context(), sess.ID, sess.Table, req)
	h.recordForecast(req.Mode, err)
	if err != nil {
		h.fail(w, err)
		return
	}

	layout := pipeline.LayoutFor(req.Mode, outcome.Forecast.Frequency)
	narrative := presentation.Narrative(outcome.Insights, layout)
	if len(narrative) > 0 {
		if err := h.voice.Speak(r.Context(), narrative[0]); err != nil {
			h.log.WithError(err).Debug("Voice output failed")
		}
	}
	writeJSON(w, http.StatusOK, outcomeResponse(outcome, layout, narrative))
}

// ListRuns lists forecast runs
// @Summary List forecast runs
// @Description Forecast runs newest first, optionally filtered by session
// @Tags forecasts
// @Produce json
// @Param session query string false "Session ID"
// @Param limit query int false "Maximum number of runs (default 50)"
// @Success 200 {object} map[string]interface{} "Runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /forecasts [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	runs, err := h.runs.ListRuns(r.Context(), r.URL.Query().Get("session"), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list runs")
		writeError(w, http.StatusInternalServerError, model.KindInternal, "failed to list runs", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one forecast run
// @Summary Get forecast run
// @Description A run with its history and forecast points when it completed, or its error when it failed
// @Tags forecasts
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /forecasts/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := router.Param(r, 0)
	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if run.Status != model.RunStatusCompleted {
		writeJSON(w, http.StatusOK, map[string]interface{}{"run": run})
		return
	}

	outcome, err := h.runs.LoadOutcome(r.Context(), runID)
	if err != nil {
		h.fail(w, err)
		return
	}
	layout := pipeline.LayoutFor(run.Mode, outcome.Forecast.Frequency)
	resp := outcomeResponse(outcome, layout, presentation.Narrative(outcome.Insights, layout))
	resp["run"] = run
	writeJSON(w, http.StatusOK, resp)
}

// ExportRun downloads the forecast table
// @Summary Export forecast
// @Description Download the forecast as CSV (default) or JSON. Agriculture runs are named {crop}_{state}_forecast.csv.
// @Tags forecasts
// @Produce text/csv,application/json
// @Param id path string true "Run ID"
// @Param format query string false "csv or json"
// @Param bounds query bool false "Include Lower and Upper columns"
// @Success 200 {file} file "Forecast export"
// @Failure 400 {object} map[string]interface{} "Unknown format"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 409 {object} map[string]interface{} "Run did not complete"
// @Router /forecasts/{id}/export [get]
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		h.fail(w, &model.InvalidRequestError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)})
		return
	}
	withBounds, _ := strconv.ParseBool(r.URL.Query().Get("bounds"))

	outcome, err := h.runs.LoadOutcome(r.Context(), router.Param(r, 0))
	if err != nil {
		h.fail(w, err)
		return
	}

	fileName := utils.ExportFileName(exportLabel(outcome.Request), format)
	w.Header().Set("Content-Type", utils.GetContentType(fileName))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))

	if format == "json" {
		err = pipeline.WriteJSON(w, outcome.Forecast)
	} else {
		layout := pipeline.LayoutFor(outcome.Request.Mode, outcome.Forecast.Frequency)
		err = pipeline.WriteCSV(w, outcome.Forecast, layout, withBounds)
	}
	if err != nil {
		h.log.WithError(err).WithField("run_id", outcome.RunID).Error("Failed to write export")
	}
}

// GetChart renders the forecast chart
// @Summary Forecast chart
// @Description PNG chart of the history, the forecast and its confidence band
// @Tags forecasts
// @Produce png
// @Param id path string true "Run ID"
// @Success 200 {file} file "PNG image"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 409 {object} map[string]interface{} "Run did not complete"
// @Router /forecasts/{id}/chart [get]
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.runs.LoadOutcome(r.Context(), router.Param(r, 0))
	if err != nil {
		h.fail(w, err)
		return
	}

	layout := pipeline.LayoutFor(outcome.Request.Mode, outcome.Forecast.Frequency)
	opts := presentation.ChartOptions{
		Title:      outcome.Request.Label() + " forecast",
		TimeFormat: layout.TimeFormat,
		XLabel:     layout.TimeColumn,
	}
	if outcome.Request.Mode == model.ModeGeneric {
		opts.YLabel = outcome.Request.ValueColumn
	}

	// Render before writing so a failure can still change the status code.
	var buf bytes.Buffer
	if err := presentation.RenderChart(&buf, outcome.History, outcome.Forecast, opts); err != nil {
		h.log.WithError(err).WithField("run_id", outcome.RunID).Error("Failed to render chart")
		writeError(w, http.StatusInternalServerError, model.KindInternal, "failed to render chart", nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness of the service and its backends
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "A backend is down"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	check := func(name string, p Pinger) {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}
	check("store", h.runs)
	if p, ok := h.sessions.(Pinger); ok {
		check("sessions", p)
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   h.now(),
	})
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(r.Context(), router.Param(r, 0))
	if err != nil {
		h.fail(w, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) loadTable(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return nil, false
	}
	if !sess.HasTable() {
		writeError(w, http.StatusNotFound, "no_table", "no table uploaded in this session", nil)
		return nil, false
	}
	return sess, true
}

func (h *Handler) recordUpload(mode model.Mode, err error) {
	if h.metrics != nil {
		h.metrics.RecordUpload(mode, err)
	}
}

func (h *Handler) recordForecast(mode model.Mode, err error) {
	if h.metrics != nil {
		h.metrics.RecordForecast(mode, err)
	}
}

// fail maps err to a status code and writes the error body.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		schemaErr *model.SchemaError
		fitErr    *model.FitError
	)
	kind := model.KindOf(err)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error(), nil)
	case errors.Is(err, store.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run_not_found", err.Error(), nil)
	case errors.Is(err, store.ErrRunNotCompleted):
		writeError(w, http.StatusConflict, "run_not_completed", err.Error(), nil)
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusUnprocessableEntity, kind, err.Error(),
			map[string]interface{}{"missing_columns": schemaErr.Missing})
	case errors.As(err, &fitErr):
		writeError(w, http.StatusUnprocessableEntity, kind, err.Error(),
			map[string]interface{}{"detail": fitErr.Message})
	case kind == model.KindFormat, kind == model.KindInvalidRequest:
		writeError(w, http.StatusBadRequest, kind, err.Error(), nil)
	case kind == model.KindEmptySeries:
		writeError(w, http.StatusNotFound, kind, err.Error(), nil)
	default:
		h.log.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, model.KindInternal, "internal server error", nil)
	}
}

func readUpload(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		raw, err := io.ReadAll(r.Body)
		return raw, utils.CleanFileName(r.URL.Query().Get("filename")), err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	return raw, utils.CleanFileName(header.Filename), err
}

// exportLabel names agriculture exports after crop and state; generic exports stay "forecast".
func exportLabel(req model.ForecastRequest) string {
	if req.Mode == model.ModeAgriculture {
		return req.Label()
	}
	return ""
}

func outcomeResponse(o *model.Outcome, layout pipeline.ExportLayout, narrative []string) map[string]interface{} {
	return map[string]interface{}{
		"run_id":      o.RunID,
		"mode":        o.Request.Mode,
		"label":       o.Request.Label(),
		"request":     o.Request,
		"history":     o.History,
		"forecast":    o.Forecast,
		"table":       pipeline.FormatTable(o.Forecast, layout),
		"lines":       presentation.YearWiseLines(o.Forecast, layout),
		"narrative":   nonNil(narrative),
		"insights":    o.Insights,
		"model":       o.Model,
		"duration_ms": o.Duration.Milliseconds(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string, extra map[string]interface{}) {
	body := map[string]interface{}{
		"error": message,
		"kind":  kind,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}
