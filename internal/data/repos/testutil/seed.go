package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/splitlab/splitlab-backend/internal/domain"
)

func SeedUpload(tb testing.TB, ctx context.Context, tx *gorm.DB, filename string) *types.Upload {
	tb.Helper()
	u := &types.Upload{
		ID:        uuid.New(),
		Filename:  filename,
		MimeType:  "image/png",
		SizeBytes: 1024,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed upload: %v", err)
	}
	return u
}

func SeedSplit(tb testing.TB, ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) *types.Split {
	tb.Helper()
	s := &types.Split{
		ID:       uuid.New(),
		UploadID: uploadID,
		Status:   types.SplitStatusProcessing,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed split: %v", err)
	}
	return s
}

func SeedAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, splitID uuid.UUID, kind string, order *int) *types.Asset {
	tb.Helper()
	a := &types.Asset{
		ID:         uuid.New(),
		SplitID:    splitID,
		Kind:       kind,
		OrderIndex: order,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed asset: %v", err)
	}
	return a
}

func PtrInt(v int) *int { return &v }

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
