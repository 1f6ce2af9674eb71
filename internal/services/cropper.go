package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/clients/gcp"
	"github.com/splitlab/splitlab-backend/internal/data/repos"
	types "github.com/splitlab/splitlab-backend/internal/domain"
	"github.com/splitlab/splitlab-backend/internal/geometry"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type CropService interface {
	// GenerateCrops extracts one PNG crop per section, persists each as an
	// image-crop asset of the split, and returns the assets in section order.
	GenerateCrops(dbc dbctx.Context, splitID uuid.UUID, source []byte, sections []geometry.Section, force bool) ([]*types.Asset, error)
}

type cropService struct {
	db        *gorm.DB
	log       *logger.Logger
	bucket    gcp.BucketService
	splitRepo repos.SplitRepo
	assetRepo repos.AssetRepo
}

func NewCropService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	splitRepo repos.SplitRepo,
	assetRepo repos.AssetRepo,
) CropService {
	serviceLog := baseLog.With("service", "CropService")
	return &cropService{
		db:        db,
		log:       serviceLog,
		bucket:    bucket,
		splitRepo: splitRepo,
		assetRepo: assetRepo,
	}
}

func (s *cropService) GenerateCrops(dbc dbctx.Context, splitID uuid.UUID, source []byte, sections []geometry.Section, force bool) ([]*types.Asset, error) {
	if _, err := s.splitRepo.GetByID(dbc, splitID); err != nil {
		return nil, mapDBErr(err)
	}

	existing, err := s.assetRepo.ListBySplitIDAndKind(dbc, splitID, types.AssetKindImageCrop)
	if err != nil {
		return nil, mapDBErr(err)
	}
	if len(existing) > 0 {
		if !force {
			s.log.Debug("crops already exist, returning unchanged",
				"split_id", splitID,
				"count", len(existing),
			)
			return existing, nil
		}
		// force: the regenerated set supersedes the old one.
		ids := make([]uuid.UUID, 0, len(existing))
		for _, a := range existing {
			ids = append(ids, a.ID)
		}
		if err := s.assetRepo.SoftDeleteByIDs(dbc, ids); err != nil {
			return nil, mapDBErr(err)
		}
		s.log.Info("superseded existing crops", "split_id", splitID, "count", len(ids))
	}

	// Decode failure is fatal to the whole batch; nothing has been written yet.
	img, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrImageDecode, err)
	}
	srcBounds := img.Bounds()
	imgW := srcBounds.Dx()
	imgH := srcBounds.Dy()

	// Sections are processed strictly in submission order, and each asset's
	// order index mirrors its section's index. A storage failure mid-batch
	// is fatal to that crop; crops already written stay in place.
	assets := make([]*types.Asset, 0, len(sections))
	for _, section := range sections {
		rect := geometry.Resolve(section, imgW, imgH)

		crop := image.NewRGBA(image.Rect(0, 0, rect.Width, rect.Height))
		draw.Draw(crop, crop.Bounds(), img, image.Point{
			X: srcBounds.Min.X + rect.Left,
			Y: srcBounds.Min.Y + rect.Top,
		}, draw.Src)

		var buf bytes.Buffer
		if err := png.Encode(&buf, crop); err != nil {
			return assets, fmt.Errorf("encode crop %d: %w", section.Index, err)
		}

		filename := fmt.Sprintf("section-%d.png", section.Index)
		key := NewStorageKey(filename, "image/png")
		if err := s.bucket.UploadFile(dbc.Ctx, gcp.BucketCategoryDesign, key, bytes.NewReader(buf.Bytes()), "image/png"); err != nil {
			return assets, fmt.Errorf("%w: upload crop %d: %v", pkgerrors.ErrStorageUnavailable, section.Index, err)
		}

		order := section.Index
		asset := &types.Asset{
			ID:         uuid.New(),
			SplitID:    splitID,
			Kind:       types.AssetKindImageCrop,
			StorageKey: &key,
			OrderIndex: &order,
			Metadata: map[string]interface{}{
				"storage_key": key,
				"filename":    filename,
				"mime_type":   "image/png",
				"width":       rect.Width,
				"height":      rect.Height,
				"bounds": map[string]interface{}{
					"left":   rect.Left,
					"top":    rect.Top,
					"width":  rect.Width,
					"height": rect.Height,
				},
				"original": map[string]interface{}{
					"width":  imgW,
					"height": imgH,
				},
				"section_id": section.ID,
			},
		}
		created, err := s.assetRepo.Create(dbc, []*types.Asset{asset})
		if err != nil {
			return assets, mapDBErr(err)
		}
		assets = append(assets, created[0])
	}

	s.log.Info("crop batch complete", "split_id", splitID, "count", len(assets))
	return assets, nil
}
