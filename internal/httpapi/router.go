// Package httpapi is the HTTP Dispatcher (C8, §4.8): a thin, stateless
// translation layer from the route table of §6.2 onto the engine's core
// calls (internal/store, internal/lifecycle). It constructs no state of
// its own beyond the gin engine.
package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/httpapi/handler"
	"github.com/rapo-engine/rapo/internal/httpapi/middleware"
	"github.com/rapo-engine/rapo/internal/lifecycle"
	"github.com/rapo-engine/rapo/internal/store"
)

// NewRouter builds the /api/* surface. token is the bearer credential
// from API.token (§6.1); every route below is authenticated with it.
func NewRouter(st *store.Store, gw *gateway.Gateway, lc *lifecycle.Control, logger *slog.Logger, token string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	runH := handler.NewRunHandler(st, gw, lc, logger)
	controlH := handler.NewControlHandler(st, logger)
	dsH := handler.NewDatasourceHandler(st, logger)

	api := r.Group("/api", middleware.Auth(token))

	api.POST("/run-control", runH.Run)
	api.POST("/cancel-control", runH.Cancel)
	api.DELETE("/revoke-control-run", runH.Revoke)
	api.DELETE("/delete-control-output-tables", runH.DeleteOutputTables)
	api.DELETE("/delete-control-temporary-tables", runH.DeleteTemporaryTables)
	api.GET("/get-running-controls", runH.GetRunning)
	api.GET("/get-all-controls", controlH.GetAll)
	api.GET("/get-control-versions", controlH.GetVersions)
	api.GET("/get-control-runs", runH.GetRuns)
	api.GET("/read-control-logs", runH.ReadLogs)
	api.GET("/get-datasources", dsH.List)
	api.GET("/get-datasource-columns", dsH.Columns)
	api.POST("/save-control", controlH.Save)
	api.DELETE("/delete-control", controlH.Delete)
	api.GET("/get-control-run", runH.GetRun)

	return r
}
