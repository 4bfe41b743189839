package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-forecast-pipeline/docs"
	"go-forecast-pipeline/internal/api/handler"
	"go-forecast-pipeline/pkg/router"
)

// RegisterRoutes wires the forecast API onto r. metrics may be nil.
func RegisterRoutes(r *router.Router, h *handler.Handler, metrics http.Handler) {
	r.POST("/api/v1/sessions", h.CreateSession)
	r.POST("/api/v1/sessions/*/upload", h.UploadTable)
	r.GET("/api/v1/sessions/*/options", h.GetOptions)
	r.POST("/api/v1/sessions/*/forecast", h.Forecast)

	r.GET("/api/v1/forecasts", h.ListRuns)
	// More specific routes first
	r.GET("/api/v1/forecasts/*/export", h.ExportRun)
	r.GET("/api/v1/forecasts/*/chart", h.GetChart)
	r.GET("/api/v1/forecasts/*", h.GetRun)

	r.GET("/health", h.Health)
	r.GET("/api/v1/health", h.Health)
	if metrics != nil {
		r.GET("/metrics", metrics.ServeHTTP)
	}
	r.Handle("/swagger/", httpSwagger.WrapHandler)
}
