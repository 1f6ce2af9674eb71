package app

import (
	"github.com/splitlab/splitlab-backend/internal/http/handlers"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Upload  *handlers.UploadHandler
	Split   *handlers.SplitHandler
	Version *handlers.VersionHandler
	Storage *handlers.StorageHandler
}

func wireHandlers(log *logger.Logger, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  handlers.NewHealthHandler(log),
		Upload:  handlers.NewUploadHandler(log, services.Ingest, services.Artifact),
		Split:   handlers.NewSplitHandler(log, services.Artifact, services.Crop),
		Version: handlers.NewVersionHandler(log, services.VersionStore),
		Storage: handlers.NewStorageHandler(log, services.SignedURL, clients.Bucket),
	}
}
