package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/splitlab/splitlab-backend/internal/clients/gcp"
	"github.com/splitlab/splitlab-backend/internal/data/repos"
	"github.com/splitlab/splitlab-backend/internal/data/repos/testutil"
	types "github.com/splitlab/splitlab-backend/internal/domain"
	"github.com/splitlab/splitlab-backend/internal/geometry"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
)

// memBucket keeps uploads in memory so crop tests can inspect what was
// written without touching GCS.
type memBucket struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBucket() *memBucket {
	return &memBucket{blobs: map[string][]byte{}}
}

func (b *memBucket) UploadFile(_ context.Context, _ gcp.BucketCategory, key string, file io.Reader, _ string) error {
	raw, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = raw
	return nil
}

func (b *memBucket) DownloadFile(_ context.Context, _ gcp.BucketCategory, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.blobs[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (b *memBucket) DeleteFile(_ context.Context, _ gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *memBucket) ListKeys(_ context.Context, _ gcp.BucketCategory, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.blobs))
	for k := range b.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}

func newCropFixture(t *testing.T) (CropService, *memBucket, dbctx.Context, *types.Split) {
	t.Helper()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)
	ctx := context.Background()

	upload := testutil.SeedUpload(t, ctx, tx, "design.png")
	split := testutil.SeedSplit(t, ctx, tx, upload.ID)

	bucket := newMemBucket()
	svc := NewCropService(tx, log, bucket, repos.NewSplitRepo(tx, log), repos.NewAssetRepo(tx, log))
	return svc, bucket, dbctx.Context{Ctx: ctx, Tx: tx}, split
}

// testPNG renders a w x h image with a distinct color per row band so crops
// are visually distinguishable.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y % 256), G: uint8(x % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateCrops(t *testing.T) {
	svc, bucket, dbc, split := newCropFixture(t)
	source := testPNG(t, 800, 600)

	sections := []geometry.Section{
		{Index: 0, ID: "header", Unit: geometry.UnitPercent, Bounds: geometry.Bounds{X: 0, Y: 0, Width: 100, Height: 20}},
		{Index: 1, ID: "body", Unit: geometry.UnitPercent, Bounds: geometry.Bounds{X: 0, Y: 20, Width: 100, Height: 80}},
	}

	assets, err := svc.GenerateCrops(dbc, split.ID, source, sections, false)
	if err != nil {
		t.Fatalf("GenerateCrops: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(assets))
	}

	wantDims := []struct{ w, h int }{{800, 120}, {800, 480}}
	for i, asset := range assets {
		if asset.Kind != types.AssetKindImageCrop {
			t.Fatalf("asset %d kind = %q", i, asset.Kind)
		}
		if asset.OrderIndex == nil || *asset.OrderIndex != sections[i].Index {
			t.Fatalf("asset %d order index = %v", i, asset.OrderIndex)
		}
		if asset.StorageKey == nil {
			t.Fatalf("asset %d has no storage key", i)
		}
		if asset.Metadata["section_id"] != sections[i].ID {
			t.Fatalf("asset %d section_id = %v", i, asset.Metadata["section_id"])
		}

		raw, ok := bucket.blobs[*asset.StorageKey]
		if !ok {
			t.Fatalf("asset %d blob missing", i)
		}
		img, format, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("asset %d decode: %v", i, err)
		}
		if format != "png" {
			t.Fatalf("asset %d format = %q, crops are always png", i, format)
		}
		if img.Bounds().Dx() != wantDims[i].w || img.Bounds().Dy() != wantDims[i].h {
			t.Fatalf("asset %d dims = %dx%d, want %dx%d",
				i, img.Bounds().Dx(), img.Bounds().Dy(), wantDims[i].w, wantDims[i].h)
		}
	}
}

func TestGenerateCropsIdempotentWithoutForce(t *testing.T) {
	svc, _, dbc, split := newCropFixture(t)
	source := testPNG(t, 100, 100)
	sections := []geometry.Section{
		{Index: 0, Unit: geometry.UnitPx, Bounds: geometry.Bounds{X: 0, Y: 0, Width: 50, Height: 50}},
	}

	first, err := svc.GenerateCrops(dbc, split.ID, source, sections, false)
	if err != nil {
		t.Fatalf("first GenerateCrops: %v", err)
	}

	second, err := svc.GenerateCrops(dbc, split.ID, source, sections, false)
	if err != nil {
		t.Fatalf("second GenerateCrops: %v", err)
	}
	if len(second) != len(first) || second[0].ID != first[0].ID {
		t.Fatal("repeat without force must return the existing assets unchanged")
	}
}

func TestGenerateCropsForceSupersedes(t *testing.T) {
	svc, _, dbc, split := newCropFixture(t)
	tx := dbc.Tx
	log := testutil.Logger(t)
	assetRepo := repos.NewAssetRepo(tx, log)

	source := testPNG(t, 100, 100)
	sections := []geometry.Section{
		{Index: 0, Unit: geometry.UnitPx, Bounds: geometry.Bounds{X: 0, Y: 0, Width: 50, Height: 50}},
	}

	first, err := svc.GenerateCrops(dbc, split.ID, source, sections, false)
	if err != nil {
		t.Fatalf("first GenerateCrops: %v", err)
	}

	regenerated, err := svc.GenerateCrops(dbc, split.ID, source, sections, true)
	if err != nil {
		t.Fatalf("forced GenerateCrops: %v", err)
	}
	if regenerated[0].ID == first[0].ID {
		t.Fatal("force must mint new assets")
	}

	remaining, err := assetRepo.ListBySplitIDAndKind(dbc, split.ID, types.AssetKindImageCrop)
	if err != nil {
		t.Fatalf("ListBySplitIDAndKind: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != regenerated[0].ID {
		t.Fatalf("superseded crops must be soft-deleted, got %d live crops", len(remaining))
	}
}

func TestGenerateCropsDecodeFailure(t *testing.T) {
	svc, bucket, dbc, split := newCropFixture(t)

	sections := []geometry.Section{
		{Index: 0, Unit: geometry.UnitPx, Bounds: geometry.Bounds{X: 0, Y: 0, Width: 10, Height: 10}},
	}
	_, err := svc.GenerateCrops(dbc, split.ID, []byte("not an image"), sections, false)
	if !errors.Is(err, pkgerrors.ErrImageDecode) {
		t.Fatalf("err = %v, want ErrImageDecode", err)
	}
	if len(bucket.blobs) != 0 {
		t.Fatal("decode failure must write nothing")
	}
}

func TestGenerateCropsUnknownSplit(t *testing.T) {
	svc, _, dbc, _ := newCropFixture(t)
	sections := []geometry.Section{
		{Index: 0, Unit: geometry.UnitPx, Bounds: geometry.Bounds{X: 0, Y: 0, Width: 10, Height: 10}},
	}
	if _, err := svc.GenerateCrops(dbc, uuid.New(), testPNG(t, 10, 10), sections, false); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGenerateCropsClampsOverflowingSection(t *testing.T) {
	svc, _, dbc, split := newCropFixture(t)
	source := testPNG(t, 100, 80)

	// Extends past the right and bottom edge; the crop is clamped, not failed.
	sections := []geometry.Section{
		{Index: 0, Unit: geometry.UnitPx, Bounds: geometry.Bounds{X: 60, Y: 50, Width: 100, Height: 100}},
	}
	assets, err := svc.GenerateCrops(dbc, split.ID, source, sections, false)
	if err != nil {
		t.Fatalf("GenerateCrops: %v", err)
	}
	if w := assets[0].Metadata["width"]; w != 40 {
		t.Fatalf("clamped width = %v, want 40", w)
	}
	if h := assets[0].Metadata["height"]; h != 30 {
		t.Fatalf("clamped height = %v, want 30", h)
	}
}
