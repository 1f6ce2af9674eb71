package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/platform/logger"
	"github.com/splitlab/splitlab-backend/internal/platform/packager"
	"github.com/splitlab/splitlab-backend/internal/services"
)

type Services struct {
	Ingest       services.IngestService
	Artifact     services.ArtifactService
	Crop         services.CropService
	SignedURL    services.SignedURLService
	VersionStore services.VersionStoreService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	ingestService := services.NewIngestService(db, log, clients.Bucket, repos.Upload)

	artifactService := services.NewArtifactService(
		db, log,
		repos.Upload,
		repos.Split,
		repos.Asset,
		repos.TestRun,
		repos.ReviewFeedback,
		repos.ValidationRecord,
	)

	cropService := services.NewCropService(db, log, clients.Bucket, repos.Split, repos.Asset)

	signedURLService, err := services.NewSignedURLService(log, cfg.SignedURLSecret, cfg.SignedURLBypass, cfg.Production())
	if err != nil {
		return Services{}, fmt.Errorf("init signed url service: %w", err)
	}

	versionStoreService := services.NewVersionStoreService(
		db, log,
		repos.ModuleVersion,
		packager.NewZipPackager(),
		clients.Cache,
	)

	return Services{
		Ingest:       ingestService,
		Artifact:     artifactService,
		Crop:         cropService,
		SignedURL:    signedURLService,
		VersionStore: versionStoreService,
	}, nil
}
