package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

// respondError maps service errors to HTTP. Unclassified errors are logged
// and answered with a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, services.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrAccessDenied):
		status, msg = http.StatusForbidden, "access denied"
	case errors.Is(err, services.ErrDuplicateMessage):
		status, msg = http.StatusTooManyRequests, "duplicate message detected"
	case errors.Is(err, services.ErrOwnerRemovalForbidden):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, services.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrEmailTaken):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		status, msg = http.StatusUnauthorized, "unauthenticated"
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// parsePage reads ?offset=&limit=. Missing values take defaults; a
// malformed or negative value is a 400.
func parsePage(c *gin.Context) (models.Page, bool) {
	offset, ok := queryInt(c, "offset")
	if !ok {
		return models.Page{}, false
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return models.Page{}, false
	}
	return models.NewPage(offset, limit), true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
