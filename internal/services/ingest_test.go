package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/splitlab/splitlab-backend/internal/clients/gcp"
	"github.com/splitlab/splitlab-backend/internal/data/repos"
	"github.com/splitlab/splitlab-backend/internal/data/repos/testutil"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
)

// failingBucket rejects every write; downloads behave like an empty store.
type failingBucket struct{ *memBucket }

func (failingBucket) UploadFile(context.Context, gcp.BucketCategory, string, io.Reader, string) error {
	return errors.New("bucket offline")
}

func newIngest(t *testing.T, bucket gcp.BucketService) (IngestService, dbctx.Context) {
	t.Helper()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)
	svc := NewIngestService(tx, log, bucket, repos.NewUploadRepo(tx, log))
	return svc, dbctx.Context{Ctx: context.Background(), Tx: tx}
}

func TestCreateUpload(t *testing.T) {
	bucket := newMemBucket()
	svc, dbc := newIngest(t, bucket)
	content := []byte("fake png bytes")

	upload, err := svc.CreateUpload(dbc, CreateUploadInput{
		Filename: "design.png",
		MimeType: "image/png",
		Content:  content,
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	if upload.SizeBytes != int64(len(content)) {
		t.Fatalf("size = %d", upload.SizeBytes)
	}
	if upload.StorageKey == nil {
		t.Fatal("storage key must be set after a successful persist")
	}
	sum := sha256.Sum256(content)
	if upload.Checksum == nil || *upload.Checksum != hex.EncodeToString(sum[:]) {
		t.Fatal("checksum must cover the original bytes")
	}
	if _, ok := bucket.blobs[*upload.StorageKey]; !ok {
		t.Fatal("blob missing from bucket")
	}
}

func TestCreateUploadValidation(t *testing.T) {
	svc, dbc := newIngest(t, newMemBucket())

	cases := []CreateUploadInput{
		{MimeType: "image/png", Content: []byte("x")},
		{Filename: "a.png", Content: []byte("x")},
		{Filename: "a.png", MimeType: "image/png"},
	}
	for i, in := range cases {
		if _, err := svc.CreateUpload(dbc, in); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Errorf("case %d: err = %v, want ErrInvalidArgument", i, err)
		}
	}
}

func TestCreateUploadDegradesOnBlobFailure(t *testing.T) {
	svc, dbc := newIngest(t, failingBucket{newMemBucket()})

	upload, err := svc.CreateUpload(dbc, CreateUploadInput{
		Filename: "design.png",
		MimeType: "image/png",
		Content:  []byte("payload"),
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	// The record still lands; only the blob-derived fields are absent.
	if upload.StorageKey != nil || upload.Checksum != nil {
		t.Fatal("blob failure must leave storage key and checksum unset")
	}
	if upload.SizeBytes != int64(len("payload")) {
		t.Fatalf("size = %d", upload.SizeBytes)
	}
}
