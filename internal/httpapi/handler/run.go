package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/lifecycle"
	"github.com/rapo-engine/rapo/internal/processid"
	"github.com/rapo-engine/rapo/internal/store"
)

// RunHandler drives a control's lifecycle from the HTTP surface: launch,
// cancel, revoke, and the read-side routes over rapo_log (§6.2).
type RunHandler struct {
	store     *store.Store
	gw        *gateway.Gateway
	lifecycle *lifecycle.Control
	logger    *slog.Logger
}

func NewRunHandler(st *store.Store, gw *gateway.Gateway, lc *lifecycle.Control, logger *slog.Logger) *RunHandler {
	return &RunHandler{store: st, gw: gw, lifecycle: lc, logger: logger.With("component", "run_handler")}
}

// Run implements run-control?name=&date=&date_from=&date_to=&debug_mode=.
// debug_mode=true runs the control to completion before responding, so
// the caller sees the final run row; otherwise the run is launched
// detached and the handler answers as soon as it is accepted.
func (h *RunHandler) Run(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}

	cfg, err := h.store.GetConfig(c.Request.Context(), name)
	if err != nil {
		writeError(c, h.logger, "run-control", err)
		return
	}

	trigger := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be RFC3339"})
			return
		}
		trigger = parsed
	}

	var window *lifecycle.Window
	rawFrom, rawTo := c.Query("date_from"), c.Query("date_to")
	if rawFrom != "" || rawTo != "" {
		from, errFrom := time.Parse(time.RFC3339, rawFrom)
		to, errTo := time.Parse(time.RFC3339, rawTo)
		if errFrom != nil || errTo != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_from/date_to must both be RFC3339"})
			return
		}
		window = &lifecycle.Window{From: from, To: to}
	}

	processID := processid.Next()
	colsA, colsB := h.sourceColumns(c.Request.Context(), cfg)

	if err := h.store.SaveCheckpoint(c.Request.Context(), cfg.ControlID, processID); err != nil {
		h.logger.Warn("run-control: save checkpoint failed", "control_name", cfg.ControlName, "error", err)
	}

	debug := c.Query("debug_mode") == "true"
	if debug {
		h.runAndClearCheckpoint(c.Request.Context(), cfg, processID, trigger, colsA, colsB, window)
		run, err := h.store.GetRun(c.Request.Context(), processID)
		if err != nil {
			writeError(c, h.logger, "run-control", err)
			return
		}
		c.JSON(http.StatusOK, run)
		return
	}

	go h.runAndClearCheckpoint(context.Background(), cfg, processID, trigger, colsA, colsB, window)
	c.JSON(http.StatusAccepted, gin.H{"process_id": processID})
}

func (h *RunHandler) runAndClearCheckpoint(ctx context.Context, cfg *domain.ControlConfig, processID int64, trigger time.Time, colsA, colsB []string, window *lifecycle.Window) {
	if err := h.lifecycle.Run(ctx, cfg, processID, trigger, colsA, colsB, window); err != nil {
		h.logger.Error("run-control: control run failed", "control_name", cfg.ControlName, "process_id", processID, "error", err)
	}
	if err := h.store.ClearCheckpoint(ctx, cfg.ControlID, processID); err != nil {
		h.logger.Warn("run-control: clear checkpoint failed", "control_name", cfg.ControlName, "error", err)
	}
}

func (h *RunHandler) sourceColumns(ctx context.Context, cfg *domain.ControlConfig) (colsA, colsB []string) {
	if cfg.SourceName != nil {
		colsA = h.columnNames(ctx, *cfg.SourceName)
	} else if cfg.SourceNameA != nil {
		colsA = h.columnNames(ctx, *cfg.SourceNameA)
	}
	if cfg.SourceNameB != nil {
		colsB = h.columnNames(ctx, *cfg.SourceNameB)
	}
	return colsA, colsB
}

func (h *RunHandler) columnNames(ctx context.Context, table string) []string {
	cols, err := h.gw.Columns(ctx, table)
	if err != nil {
		h.logger.Warn("run-control: reflect source columns failed", "table", table, "error", err)
		return nil
	}
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}

// Cancel implements cancel-control?id=<process_id>: clear the run's
// status so the supervisor observes it on its next tick and forces the
// cancel transition (§5 "external cancel: API writes status = null").
func (h *RunHandler) Cancel(c *gin.Context) {
	processID, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), processID)
	if err != nil {
		writeError(c, h.logger, "cancel-control", err)
		return
	}
	if run.Status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "run already reached a terminal status"})
		return
	}
	run.Status = domain.StatusDeinitiated
	run.Updated = time.Now()
	if err := h.store.UpdateRun(c.Request.Context(), run); err != nil {
		writeError(c, h.logger, "cancel-control", err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Revoke implements revoke-control-run?id=<process_id>: mark the run
// revoked and delete its output rows.
func (h *RunHandler) Revoke(c *gin.Context) {
	processID, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), processID)
	if err != nil {
		writeError(c, h.logger, "revoke-control-run", err)
		return
	}
	cfg, err := h.store.GetConfigByID(c.Request.Context(), run.ControlID)
	if err != nil {
		writeError(c, h.logger, "revoke-control-run", err)
		return
	}
	if err := h.lifecycle.Revoke(c.Request.Context(), cfg, run); err != nil {
		writeError(c, h.logger, "revoke-control-run", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteOutputTables implements delete-control-output-tables?name=.
func (h *RunHandler) DeleteOutputTables(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	cfg, err := h.store.GetConfig(c.Request.Context(), name)
	if err != nil {
		writeError(c, h.logger, "delete-control-output-tables", err)
		return
	}
	tables := []string{cfg.OutputTableName()}
	if cfg.ControlType == domain.ControlReconciliation {
		tables = []string{cfg.OutputTableNameA(), cfg.OutputTableNameB()}
	}
	for _, t := range tables {
		exists, err := h.gw.Exists(c.Request.Context(), t)
		if err != nil || !exists {
			continue
		}
		if err := h.gw.Drop(c.Request.Context(), t); err != nil {
			writeError(c, h.logger, "delete-control-output-tables", err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// DeleteTemporaryTables implements delete-control-temporary-tables?id=
// (id is a process_id): drops the scratch tables that process created,
// regardless of whether it ever reached a terminal status.
func (h *RunHandler) DeleteTemporaryTables(c *gin.Context) {
	processID, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), processID)
	if err != nil {
		writeError(c, h.logger, "delete-control-temporary-tables", err)
		return
	}
	cfg, err := h.store.GetConfigByID(c.Request.Context(), run.ControlID)
	if err != nil {
		writeError(c, h.logger, "delete-control-temporary-tables", err)
		return
	}
	twoSided := cfg.ControlType == domain.ControlReconciliation || cfg.ControlType == domain.ControlComparison
	for _, t := range parser.TempTablesFor(processID, twoSided) {
		if err := h.gw.Purge(c.Request.Context(), t); err != nil {
			writeError(c, h.logger, "delete-control-temporary-tables", err)
			return
		}
	}
	if err := h.store.ClearCheckpoint(c.Request.Context(), run.ControlID, processID); err != nil {
		h.logger.Warn("delete-control-temporary-tables: clear checkpoint failed", "process_id", processID, "error", err)
	}
	c.Status(http.StatusNoContent)
}

// GetRunning implements get-running-controls: every run not yet in a
// terminal status.
func (h *RunHandler) GetRunning(c *gin.Context) {
	runs, err := h.store.ListRunningRuns(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "get-running-controls", err)
		return
	}
	c.JSON(http.StatusOK, h.withLabels(c.Request.Context(), runs))
}

// GetRuns implements get-control-runs: recent 100-200 runs, optionally
// scoped to one control by control_id, with derived status labels.
func (h *RunHandler) GetRuns(c *gin.Context) {
	limit := 200
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var (
		runs []domain.ControlRun
		err  error
	)
	if raw := c.Query("control_id"); raw != "" {
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
			return
		}
		runs, err = h.store.ListRuns(c.Request.Context(), id, limit)
	} else {
		runs, err = h.store.ListRecentRuns(c.Request.Context(), limit)
	}
	if err != nil {
		writeError(c, h.logger, "get-control-runs", err)
		return
	}
	c.JSON(http.StatusOK, h.withLabels(c.Request.Context(), runs))
}

// ReadLogs implements read-control-logs?control_name=&days=.
func (h *RunHandler) ReadLogs(c *gin.Context) {
	name := c.Query("control_name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	days := 7
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}

	cfg, err := h.store.GetConfig(c.Request.Context(), name)
	if err != nil {
		writeError(c, h.logger, "read-control-logs", err)
		return
	}
	since := time.Now().AddDate(0, 0, -days)
	runs, err := h.store.ListRunsSince(c.Request.Context(), cfg.ControlID, since)
	if err != nil {
		writeError(c, h.logger, "read-control-logs", err)
		return
	}
	c.JSON(http.StatusOK, h.withLabels(c.Request.Context(), runs))
}

// GetRun implements get-control-run?process_id=.
func (h *RunHandler) GetRun(c *gin.Context) {
	processID, err := strconv.ParseInt(c.Query("process_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), processID)
	if err != nil {
		writeError(c, h.logger, "get-control-run", err)
		return
	}
	c.JSON(http.StatusOK, h.withLabel(c.Request.Context(), *run))
}

// runWithLabel adds the human status label (§6.2 get-control-runs
// "derived status labels") alongside the raw rapo_log row.
type runWithLabel struct {
	domain.ControlRun
	StatusLabel string `json:"status_label"`
}

func (h *RunHandler) withLabel(ctx context.Context, run domain.ControlRun) runWithLabel {
	timeout := time.Duration(0)
	if cfg, err := h.store.GetConfigByID(ctx, run.ControlID); err == nil {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	return runWithLabel{ControlRun: run, StatusLabel: run.RunStatusLabel(time.Now(), timeout)}
}

func (h *RunHandler) withLabels(ctx context.Context, runs []domain.ControlRun) []runWithLabel {
	timeouts := make(map[int64]time.Duration)
	out := make([]runWithLabel, len(runs))
	now := time.Now()
	for i, run := range runs {
		timeout, ok := timeouts[run.ControlID]
		if !ok {
			if cfg, err := h.store.GetConfigByID(ctx, run.ControlID); err == nil {
				timeout = time.Duration(cfg.TimeoutSec) * time.Second
			}
			timeouts[run.ControlID] = timeout
		}
		out[i] = runWithLabel{ControlRun: run, StatusLabel: run.RunStatusLabel(now, timeout)}
	}
	return out
}
