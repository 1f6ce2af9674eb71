package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type RequestLogger struct {
	log *logger.Logger
}

func NewRequestLogger(baseLog *logger.Logger) *RequestLogger {
	return &RequestLogger{log: baseLog.With("middleware", "RequestLogger")}
}

func (m *RequestLogger) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		m.log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
