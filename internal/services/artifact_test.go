package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/data/repos"
	"github.com/splitlab/splitlab-backend/internal/data/repos/testutil"
	types "github.com/splitlab/splitlab-backend/internal/domain"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
)

func newArtifactFixture(t *testing.T) (ArtifactService, dbctx.Context, *gorm.DB) {
	t.Helper()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)
	svc := NewArtifactService(
		tx, log,
		repos.NewUploadRepo(tx, log),
		repos.NewSplitRepo(tx, log),
		repos.NewAssetRepo(tx, log),
		repos.NewTestRunRepo(tx, log),
		repos.NewReviewFeedbackRepo(tx, log),
		repos.NewValidationRecordRepo(tx, log),
	)
	return svc, dbctx.Context{Ctx: context.Background(), Tx: tx}, tx
}

func TestCreateSplitValidation(t *testing.T) {
	svc, dbc, tx := newArtifactFixture(t)
	upload := testutil.SeedUpload(t, dbc.Ctx, tx, "design.png")

	if _, err := svc.CreateSplit(dbc, upload.ID, "bogus", nil, nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument for unknown status", err)
	}
	if _, err := svc.CreateSplit(dbc, uuid.New(), "", nil, nil); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for missing upload", err)
	}

	split, err := svc.CreateSplit(dbc, upload.ID, "", map[string]interface{}{"sections": 3}, nil)
	if err != nil {
		t.Fatalf("CreateSplit: %v", err)
	}
	if split.Status != types.SplitStatusProcessing {
		t.Fatalf("default status = %q, want processing", split.Status)
	}
}

func TestUpdateSplitStatus(t *testing.T) {
	svc, dbc, tx := newArtifactFixture(t)
	upload := testutil.SeedUpload(t, dbc.Ctx, tx, "design.png")
	split := testutil.SeedSplit(t, dbc.Ctx, tx, upload.ID)

	if err := svc.UpdateSplitStatus(dbc, split.ID, "bogus"); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if err := svc.UpdateSplitStatus(dbc, uuid.New(), types.SplitStatusCompleted); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := svc.UpdateSplitStatus(dbc, split.ID, types.SplitStatusCompleted); err != nil {
		t.Fatalf("UpdateSplitStatus: %v", err)
	}
	// Terminal statuses stay overwritable; the runner re-drives splits.
	if err := svc.UpdateSplitStatus(dbc, split.ID, types.SplitStatusProcessing); err != nil {
		t.Fatalf("re-drive from terminal status: %v", err)
	}
	got, err := svc.GetSplit(dbc, split.ID)
	if err != nil {
		t.Fatalf("GetSplit: %v", err)
	}
	if got.Status != types.SplitStatusProcessing {
		t.Fatalf("status = %q, want processing", got.Status)
	}
}

func TestMergeSplitMetrics(t *testing.T) {
	svc, dbc, tx := newArtifactFixture(t)
	upload := testutil.SeedUpload(t, dbc.Ctx, tx, "design.png")
	split, err := svc.CreateSplit(dbc, upload.ID, "", map[string]interface{}{"sections": 3, "duration_ms": 120}, nil)
	if err != nil {
		t.Fatalf("CreateSplit: %v", err)
	}

	merged, err := svc.MergeSplitMetrics(dbc, split.ID, map[string]interface{}{"duration_ms": 250, "retries": 1})
	if err != nil {
		t.Fatalf("MergeSplitMetrics: %v", err)
	}
	// Overwritten, added, and untouched keys respectively.
	if v, ok := merged.Metrics["duration_ms"]; !ok || v == nil {
		t.Fatal("duration_ms missing after merge")
	} else if n, isFloat := v.(float64); isFloat && n != 250 {
		t.Fatalf("duration_ms = %v, want 250", v)
	} else if n, isInt := v.(int); isInt && n != 250 {
		t.Fatalf("duration_ms = %v, want 250", v)
	}
	if _, ok := merged.Metrics["retries"]; !ok {
		t.Fatal("retries missing after merge")
	}
	if _, ok := merged.Metrics["sections"]; !ok {
		t.Fatal("sections must survive a partial merge")
	}

	if _, err := svc.MergeSplitMetrics(dbc, uuid.New(), map[string]interface{}{"x": 1}); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateAndListAssets(t *testing.T) {
	svc, dbc, tx := newArtifactFixture(t)
	upload := testutil.SeedUpload(t, dbc.Ctx, tx, "design.png")
	split := testutil.SeedSplit(t, dbc.Ctx, tx, upload.ID)

	if _, err := svc.CreateAsset(dbc, uuid.New(), types.AssetKindJSON, nil, nil, nil); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for missing split", err)
	}

	// Unordered asset first; ordered assets must still list before it.
	if _, err := svc.CreateAsset(dbc, split.ID, types.AssetKindJSON, nil, nil, nil); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	if _, err := svc.CreateAsset(dbc, split.ID, types.AssetKindImageCrop, nil, nil, testutil.PtrInt(1)); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	if _, err := svc.CreateAsset(dbc, split.ID, types.AssetKindImageCrop, nil, nil, testutil.PtrInt(0)); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	assets, err := svc.ListAssets(dbc, split.ID)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("assets = %d, want 3", len(assets))
	}
	if assets[0].OrderIndex == nil || *assets[0].OrderIndex != 0 {
		t.Fatalf("assets[0] order = %v, want 0", assets[0].OrderIndex)
	}
	if assets[1].OrderIndex == nil || *assets[1].OrderIndex != 1 {
		t.Fatalf("assets[1] order = %v, want 1", assets[1].OrderIndex)
	}
	if assets[2].OrderIndex != nil {
		t.Fatal("unordered asset must sort last")
	}
}

func TestDeleteUploadCascadePreservesAudit(t *testing.T) {
	svc, dbc, tx := newArtifactFixture(t)
	log := testutil.Logger(t)
	upload := testutil.SeedUpload(t, dbc.Ctx, tx, "design.png")
	split := testutil.SeedSplit(t, dbc.Ctx, tx, upload.ID)
	testutil.SeedAsset(t, dbc.Ctx, tx, split.ID, types.AssetKindImageCrop, testutil.PtrInt(0))

	testRunRepo := repos.NewTestRunRepo(tx, log)
	run, err := testRunRepo.Create(dbc, &types.TestRun{
		ID:      uuid.New(),
		SplitID: testutil.PtrUUID(split.ID),
		Status:  "passed",
	})
	if err != nil {
		t.Fatalf("seed test run: %v", err)
	}

	feedbackRepo := repos.NewReviewFeedbackRepo(tx, log)
	fb, err := feedbackRepo.Create(dbc, &types.ReviewFeedback{
		ID:      uuid.New(),
		SplitID: testutil.PtrUUID(split.ID),
		Comment: "header crop slightly off",
	})
	if err != nil {
		t.Fatalf("seed review feedback: %v", err)
	}

	validationRepo := repos.NewValidationRecordRepo(tx, log)
	rec, err := validationRepo.Create(dbc, &types.ValidationRecord{
		ID:      uuid.New(),
		SplitID: testutil.PtrUUID(split.ID),
		Passed:  true,
	})
	if err != nil {
		t.Fatalf("seed validation record: %v", err)
	}

	if err := svc.DeleteUploadCascade(dbc, upload.ID); err != nil {
		t.Fatalf("DeleteUploadCascade: %v", err)
	}

	if _, err := svc.GetUpload(dbc, upload.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("upload err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetSplit(dbc, split.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("split err = %v, want ErrNotFound", err)
	}

	var assetCount int64
	if err := tx.Model(&types.Asset{}).Unscoped().Where("split_id = ?", split.ID).Count(&assetCount).Error; err != nil {
		t.Fatalf("count assets: %v", err)
	}
	if assetCount != 0 {
		t.Fatalf("assets remaining = %d, cascade must hard-delete them", assetCount)
	}

	// Audit rows survive, detached from the deleted split.
	var gotRun types.TestRun
	if err := tx.Where("id = ?", run.ID).First(&gotRun).Error; err != nil {
		t.Fatalf("test run must survive: %v", err)
	}
	if gotRun.SplitID != nil {
		t.Fatal("test run split reference must be nulled")
	}
	var gotFb types.ReviewFeedback
	if err := tx.Where("id = ?", fb.ID).First(&gotFb).Error; err != nil {
		t.Fatalf("review feedback must survive: %v", err)
	}
	if gotFb.SplitID != nil {
		t.Fatal("review feedback split reference must be nulled")
	}
	var gotRec types.ValidationRecord
	if err := tx.Where("id = ?", rec.ID).First(&gotRec).Error; err != nil {
		t.Fatalf("validation record must survive: %v", err)
	}
	if gotRec.SplitID != nil {
		t.Fatal("validation record split reference must be nulled")
	}

	if err := svc.DeleteUploadCascade(dbc, upload.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}
