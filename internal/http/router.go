package http

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpH "github.com/splitlab/splitlab-backend/internal/http/handlers"
	httpMW "github.com/splitlab/splitlab-backend/internal/http/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string

	RequestLogger *httpMW.RequestLogger

	HealthHandler  *httpH.HealthHandler
	UploadHandler  *httpH.UploadHandler
	SplitHandler   *httpH.SplitHandler
	VersionHandler *httpH.VersionHandler
	StorageHandler *httpH.StorageHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.RequestLogger != nil {
		r.Use(cfg.RequestLogger.Handle())
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Uploads
		if cfg.UploadHandler != nil {
			api.POST("/uploads", cfg.UploadHandler.CreateUpload)
			api.GET("/uploads/:id", cfg.UploadHandler.GetUpload)
			api.DELETE("/uploads/:id", cfg.UploadHandler.DeleteUpload)
		}

		// Splits
		if cfg.SplitHandler != nil {
			api.POST("/uploads/:id/splits", cfg.SplitHandler.CreateSplit)
			api.GET("/splits/recent", cfg.SplitHandler.ListRecentSplits)
			api.GET("/splits/:id", cfg.SplitHandler.GetSplit)
			api.PATCH("/splits/:id/status", cfg.SplitHandler.UpdateSplitStatus)
			api.PATCH("/splits/:id/metrics", cfg.SplitHandler.MergeSplitMetrics)
			api.GET("/splits/:id/assets", cfg.SplitHandler.ListAssets)
			api.POST("/splits/:id/crops", cfg.SplitHandler.GenerateCrops)
		}

		// Module versions
		if cfg.VersionHandler != nil {
			api.POST("/modules/:moduleId/versions", cfg.VersionHandler.CreateVersion)
			api.GET("/modules/:moduleId/versions", cfg.VersionHandler.ListVersions)
			api.GET("/modules/:moduleId/versions/compare", cfg.VersionHandler.CompareVersions)
			api.POST("/modules/:moduleId/versions/rollback", cfg.VersionHandler.RollbackToVersion)
			api.POST("/modules/:moduleId/versions/archive", cfg.VersionHandler.ArchiveOldVersions)
			api.DELETE("/modules/:moduleId/versions/archived", cfg.VersionHandler.DeleteArchivedVersions)
			api.GET("/versions/:id", cfg.VersionHandler.GetVersion)
			api.PATCH("/versions/:id/status", cfg.VersionHandler.UpdateVersionStatus)
			api.GET("/versions/:id/archive", cfg.VersionHandler.DownloadArchive)
		}

		// Storage access
		if cfg.StorageHandler != nil {
			api.GET("/storage/sign", cfg.StorageHandler.SignKey)
			api.GET("/storage/download", cfg.StorageHandler.Download)
		}
	}

	return r
}

// SplitOrigins turns a comma separated origin list into the slice the CORS
// layer wants.
func SplitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
