package handler

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/store"
)

// ControlHandler serves the rapo_config CRUD surface of §6.2: get-all-
// controls, get-control-versions, save-control, delete-control.
type ControlHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewControlHandler(st *store.Store, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{store: st, logger: logger.With("component", "control_handler")}
}

// GetAll implements get-all-controls: every control, most recently
// updated first.
func (h *ControlHandler) GetAll(c *gin.Context) {
	configs, err := h.store.ListConfigs(c.Request.Context(), c.Query("group"))
	if err != nil {
		writeError(c, h.logger, "get-all-controls", err)
		return
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].UpdatedDate.After(configs[j].UpdatedDate)
	})
	c.JSON(http.StatusOK, configs)
}

// GetVersions implements get-control-versions?control_id=.
func (h *ControlHandler) GetVersions(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("control_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	versions, err := h.store.ConfigVersions(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "get-control-versions", err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// Save implements save-control: upsert, keyed by the presence of
// control_id in the request body (§6.2).
func (h *ControlHandler) Save(c *gin.Context) {
	var cfg domain.ControlConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SaveConfig(c.Request.Context(), &cfg); err != nil {
		writeError(c, h.logger, "save-control", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Delete implements delete-control?control_id=.
func (h *ControlHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("control_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	cfg, err := h.store.GetConfigByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "delete-control", err)
		return
	}
	if err := h.store.DeleteConfig(c.Request.Context(), cfg.ControlName); err != nil {
		writeError(c, h.logger, "delete-control", err)
		return
	}
	c.Status(http.StatusNoContent)
}
