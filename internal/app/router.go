package app

import (
	"github.com/gin-gonic/gin"

	httpx "github.com/splitlab/splitlab-backend/internal/http"
	"github.com/splitlab/splitlab-backend/internal/http/middleware"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers) *gin.Engine {
	return httpx.NewRouter(httpx.RouterConfig{
		AllowedOrigins: httpx.SplitOrigins(cfg.CORSOrigins),
		RequestLogger:  middleware.NewRequestLogger(log),

		HealthHandler:  handlers.Health,
		UploadHandler:  handlers.Upload,
		SplitHandler:   handlers.Split,
		VersionHandler: handlers.Version,
		StorageHandler: handlers.Storage,
	})
}
