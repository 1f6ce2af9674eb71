package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/clients/gcp"
	"github.com/splitlab/splitlab-backend/internal/data/repos"
	types "github.com/splitlab/splitlab-backend/internal/domain"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type CreateUploadInput struct {
	OwnerID  *uuid.UUID
	Filename string
	MimeType string
	Content  []byte
	Metadata map[string]interface{}
}

type IngestService interface {
	CreateUpload(dbc dbctx.Context, in CreateUploadInput) (*types.Upload, error)
}

type ingestService struct {
	db         *gorm.DB
	log        *logger.Logger
	bucket     gcp.BucketService
	uploadRepo repos.UploadRepo
}

func NewIngestService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	uploadRepo repos.UploadRepo,
) IngestService {
	serviceLog := baseLog.With("service", "IngestService")
	return &ingestService{
		db:         db,
		log:        serviceLog,
		bucket:     bucket,
		uploadRepo: uploadRepo,
	}
}

// CreateUpload records an ingested image. Persisting the original bytes to
// blob storage is best-effort: on failure the pipeline continues with
// degraded metadata (no storage key, no checksum), and the failure is logged
// with enough context to diagnose.
func (s *ingestService) CreateUpload(dbc dbctx.Context, in CreateUploadInput) (*types.Upload, error) {
	if in.Filename == "" || in.MimeType == "" || len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: filename, mime type and content are required", pkgerrors.ErrInvalidArgument)
	}

	upload := &types.Upload{
		ID:        uuid.New(),
		OwnerID:   in.OwnerID,
		Filename:  in.Filename,
		MimeType:  in.MimeType,
		SizeBytes: int64(len(in.Content)),
		Metadata:  in.Metadata,
	}

	key := NewStorageKey(in.Filename, in.MimeType)
	if err := s.bucket.UploadFile(dbc.Ctx, gcp.BucketCategoryDesign, key, bytes.NewReader(in.Content), in.MimeType); err != nil {
		s.log.Warn("best-effort blob persist failed, continuing with degraded metadata",
			"upload_id", upload.ID,
			"storage_key", key,
			"filename", in.Filename,
			"size_bytes", upload.SizeBytes,
			"error", err,
		)
	} else {
		sum := sha256.Sum256(in.Content)
		checksum := hex.EncodeToString(sum[:])
		upload.StorageKey = &key
		upload.Checksum = &checksum
	}

	if _, err := s.uploadRepo.Create(dbc, upload); err != nil {
		return nil, mapDBErr(err)
	}
	return upload, nil
}
