package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type HealthHandler struct {
	log *logger.Logger
}

func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{log: log.With("handler", "HealthHandler")}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
