package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rapo-engine/rapo/internal/domain"
)

const (
	errInternalServer = "internal server error"
	errBadRequest     = "invalid request"
)

// writeError maps a domain/store error to the right HTTP status, logging
// anything that isn't an ordinary not-found.
func writeError(c *gin.Context, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrControlNotFound),
		errors.Is(err, domain.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
