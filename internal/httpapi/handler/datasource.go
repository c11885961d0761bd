package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rapo-engine/rapo/internal/store"
)

// DatasourceHandler implements the introspection routes a control editor
// uses to populate source/column pickers (§6.2 get-datasources,
// get-datasource-columns).
type DatasourceHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewDatasourceHandler(st *store.Store, logger *slog.Logger) *DatasourceHandler {
	return &DatasourceHandler{store: st, logger: logger.With("component", "datasource_handler")}
}

func (h *DatasourceHandler) List(c *gin.Context) {
	names, err := h.store.ListDatasources(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "get-datasources", err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *DatasourceHandler) Columns(c *gin.Context) {
	name := c.Query("datasource_name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	cols, err := h.store.DatasourceColumns(c.Request.Context(), name)
	if err != nil {
		writeError(c, h.logger, "get-datasource-columns", err)
		return
	}
	c.JSON(http.StatusOK, cols)
}
