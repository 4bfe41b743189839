package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forecast-pipeline/internal/api/handler"
	"go-forecast-pipeline/internal/metrics"
	"go-forecast-pipeline/internal/model"
	"go-forecast-pipeline/internal/pipeline"
	"go-forecast-pipeline/internal/session"
	"go-forecast-pipeline/internal/store"
	"go-forecast-pipeline/pkg/router"
)

const cropCSV = `State,Crop,Crop_Year,Yield
X,Wheat,2018,10
X,Wheat,2019,12
X,Wheat,2020,11
X,Wheat,2021,13
X,Wheat,2022,14
Z,Maize,2019,2
Z,Maize,2020,3
Z,Maize,2021,4
`

// shortSpec needs only three observations.
const shortSpec = `{"p":1,"d":1,"q":0,"seasonal_p":0,"seasonal_d":0,"seasonal_q":0,"period":1,
	"enforce_stationarity":true,"enforce_invertibility":true}`

type testServer struct {
	router *router.Router
	db     *store.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions, err := session.NewMemoryStore(16, time.Hour)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	runner := pipeline.NewRunner(pipeline.SARIMAForecaster{},
		pipeline.WithRecorder(db),
		pipeline.WithObservers(m),
		pipeline.WithMaxSteps(60),
		pipeline.WithLogger(logger),
	)
	h := handler.New(handler.Deps{
		Sessions:    sessions,
		Runs:        db,
		Runner:      runner,
		Metrics:     m,
		Logger:      logger,
		DefaultSpec: model.DefaultModelSpec(),
		MaxUpload:   1 << 20,
	})

	r := router.New(logger)
	r.Observe(m.ObserveRequest)
	RegisterRoutes(r, h, m.Handler())
	return &testServer{router: r, db: db}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body []byte) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && bytes.HasPrefix(rec.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func (s *testServer) newSession(t *testing.T) string {
	t.Helper()
	rec, body := s.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (s *testServer) upload(t *testing.T, sessionID, mode, csv string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	path := "/api/v1/sessions/" + sessionID + "/upload"
	if mode != "" {
		path += "?mode=" + mode
	}
	return s.do(t, http.MethodPost, path, "text/csv", []byte(csv))
}

func (s *testServer) forecast(t *testing.T, sessionID, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/forecast", "application/json", []byte(body))
}

func TestAgricultureForecastFlow(t *testing.T) {
	srv := newTestServer(t)
	sid := srv.newSession(t)

	rec, body := srv.upload(t, sid, "", cropCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "agriculture", body["mode"])
	assert.EqualValues(t, 8, body["row_count"])

	rec, body = srv.do(t, http.MethodGet, "/api/v1/sessions/"+sid+"/options", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"X", "Z"}, body["states"])
	assert.Equal(t, []interface{}{"Wheat", "Maize"}, body["crops"])

	rec, body = srv.forecast(t, sid, `{"key":{"state":"X","crop":"Wheat"},"steps":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	runID, _ := body["run_id"].(string)
	require.NotEmpty(t, runID)
	assert.Equal(t, "Wheat_X", body["label"])

	lines, _ := body["lines"].([]interface{})
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0].(string), "2023 → "))
	assert.True(t, strings.HasSuffix(lines[1].(string), " tons/ha"))

	table, _ := body["table"].([]interface{})
	require.Len(t, table, 3)
	assert.Equal(t, []interface{}{"Year", "Predicted Yield (tons/ha)", "Lower", "Upper"}, table[0])
	assert.NotEmpty(t, body["narrative"])

	// export
	rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+runID+"/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=Wheat_X_forecast.csv", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	exported, err := pipeline.ReadCSV(rec.Body, pipeline.AgricultureLayout)
	require.NoError(t, err)
	require.Len(t, exported.Points, 2)
	assert.Equal(t, 2023, exported.Points[0].Time.Year())
	assert.Equal(t, 2024, exported.Points[1].Time.Year())

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+runID+"/export?bounds=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Year,Predicted Yield (tons/ha),Lower,Upper\n"))

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+runID+"/export?format=json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=Wheat_X_forecast.json", rec.Header().Get("Content-Disposition"))

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+runID+"/export?format=xlsx", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// chart
	rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+runID+"/chart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	// run detail
	rec, body = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+runID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run, _ := body["run"].(map[string]interface{})
	assert.Equal(t, model.RunStatusCompleted, run["status"])
	assert.NotNil(t, body["forecast"])
}

func TestUploadErrors(t *testing.T) {
	srv := newTestServer(t)
	sid := srv.newSession(t)

	rec, body := srv.upload(t, sid, "", "State,Crop,Year\nX,Wheat,2018\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, model.KindSchema, body["kind"])
	assert.Equal(t, []interface{}{"Crop_Year", "Yield"}, body["missing_columns"])

	rec, body = srv.upload(t, sid, "", "State,Crop,Crop_Year,Yield\n\"X,Wheat,2018,10\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.KindFormat, body["kind"])

	rec, body = srv.upload(t, sid, "weather", cropCSV)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.KindInvalidRequest, body["kind"])

	rec, _ = srv.upload(t, "no-such-session", "", cropCSV)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = srv.upload(t, sid, "", strings.Repeat("x", 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// a failed upload leaves the session without a table
	rec, _ = srv.do(t, http.MethodGet, "/api/v1/sessions/"+sid+"/options", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMultipartGenericUpload(t *testing.T) {
	srv := newTestServer(t)
	sid := srv.newSession(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	part.Write([]byte("date,units\n2024-01-01,5\n2024-02-01,6\n2024-03-01,7\n2024-04-01,8\n"))
	require.NoError(t, mw.Close())

	rec, body := srv.do(t, http.MethodPost, "/api/v1/sessions/"+sid+"/upload?mode=generic", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "generic", body["mode"])
	assert.Equal(t, "sales.csv", body["file_name"])

	rec, body = srv.forecast(t, sid, `{"date_column":"date","value_column":"units","steps":2,"spec":`+shortSpec+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	runID := body["run_id"].(string)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+runID+"/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=forecast.csv", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Date,Forecast\n2024-05-01,"))
}

func TestForecastErrors(t *testing.T) {
	srv := newTestServer(t)
	sid := srv.newSession(t)
	rec, _ := srv.upload(t, sid, "", cropCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	// three points cannot support the default seasonal model
	rec, body := srv.forecast(t, sid, `{"key":{"state":"Z","crop":"Maize"},"steps":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, model.KindFit, body["kind"])
	assert.NotEmpty(t, body["detail"])

	rec, body = srv.forecast(t, sid, `{"key":{"state":"Nowhere","crop":"Wheat"},"steps":3}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, model.KindEmptySeries, body["kind"])

	rec, body = srv.forecast(t, sid, `{"key":{"state":"X","crop":"Wheat"},"steps":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.KindInvalidRequest, body["kind"])

	rec, _ = srv.forecast(t, sid, `{"key":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// failed runs are listed but cannot be exported
	rec, body = srv.do(t, http.MethodGet, "/api/v1/forecasts?session="+sid, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])

	runs, err := srv.db.ListRuns(t.Context(), sid, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, model.RunStatusFailed, run.Status)
		rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/"+run.ID+"/export", "", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	}

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/forecasts/unknown-run", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec, body := srv.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `forecast_http_requests_total{code="200",method="GET"} 1`)

	rec, _ = srv.do(t, http.MethodDelete, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
