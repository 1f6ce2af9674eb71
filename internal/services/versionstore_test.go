package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/splitlab/splitlab-backend/internal/clients/redis"
	"github.com/splitlab/splitlab-backend/internal/data/repos"
	"github.com/splitlab/splitlab-backend/internal/data/repos/testutil"
	types "github.com/splitlab/splitlab-backend/internal/domain"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/packager"
)

func newVersionStore(t *testing.T) (VersionStoreService, dbctx.Context) {
	t.Helper()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)
	svc := NewVersionStoreService(tx, log, repos.NewModuleVersionRepo(tx, log), packager.NewZipPackager(), redis.NewLocalByteCache())
	return svc, dbctx.Context{Ctx: context.Background(), Tx: tx}
}

// mustCreateVersion spaces creations apart so created_at ordering is
// unambiguous in sqlite.
func mustCreateVersion(t *testing.T, svc VersionStoreService, dbc dbctx.Context, moduleID uuid.UUID, files map[string]string, meta CreateVersionMeta) *types.ModuleVersion {
	t.Helper()
	time.Sleep(2 * time.Millisecond)
	v, err := svc.CreateVersion(dbc, moduleID, uuid.New(), files, meta)
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	return v
}

func TestManifestChecksum(t *testing.T) {
	a := map[string]string{"index.html": "<html>", "style.css": "body{}"}
	b := map[string]string{"style.css": "body{}", "index.html": "<html>"}
	if ManifestChecksum(a) != ManifestChecksum(b) {
		t.Fatal("checksum must not depend on map iteration order")
	}

	c := map[string]string{"index.html": "<html!>", "style.css": "body{}"}
	if ManifestChecksum(a) == ManifestChecksum(c) {
		t.Fatal("checksum must change when content changes")
	}

	d := map[string]string{"index2.html": "<html>", "style.css": "body{}"}
	if ManifestChecksum(a) == ManifestChecksum(d) {
		t.Fatal("checksum must change when a path changes")
	}
}

func TestNextVersionNumber(t *testing.T) {
	tests := []struct {
		prev string
		want string
	}{
		{"1.0.0", "1.0.1"},
		{"2.3.9", "2.3.10"},
		{"0.1.41", "0.1.42"},
		{"garbage", "1.0.0"},
		{"1.2", "1.0.0"},
		{"1.2.x", "1.0.0"},
	}
	for _, tt := range tests {
		if got := nextVersionNumber(tt.prev); got != tt.want {
			t.Errorf("nextVersionNumber(%q) = %q, want %q", tt.prev, got, tt.want)
		}
	}
}

func TestCreateVersionSequence(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()

	v1 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"index.html": "<html>"}, CreateVersionMeta{ModuleName: "hero"})
	if v1.VersionNumber != "1.0.0" {
		t.Fatalf("first version = %q, want 1.0.0", v1.VersionNumber)
	}
	if v1.Status != types.VersionStatusPackaged {
		t.Fatalf("status = %q, want packaged", v1.Status)
	}
	if v1.PreviousVersionID != nil || v1.CanRollback {
		t.Fatal("first version has no predecessor")
	}
	if v1.FileCount != 1 {
		t.Fatalf("file count = %d", v1.FileCount)
	}

	v2 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"index.html": "<html>", "style.css": "body{}"}, CreateVersionMeta{ModuleName: "hero"})
	if v2.VersionNumber != "1.0.1" {
		t.Fatalf("second version = %q, want 1.0.1", v2.VersionNumber)
	}
	if v2.PreviousVersionID == nil || *v2.PreviousVersionID != v1.ID {
		t.Fatal("second version must link its predecessor")
	}
	if !v2.CanRollback {
		t.Fatal("second version must be rollbackable")
	}
	if v2.TotalBytes != int64(len("<html>")+len("body{}")) {
		t.Fatalf("total bytes = %d", v2.TotalBytes)
	}

	if _, err := svc.CreateVersion(dbc, moduleID, uuid.New(), map[string]string{}, CreateVersionMeta{}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("empty manifest err = %v, want ErrInvalidArgument", err)
	}
}

func TestCompareVersions(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()

	v1 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a.html": "X"}, CreateVersionMeta{ModuleName: "hero"})
	v2 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a.html": "Y", "b.css": "Z"}, CreateVersionMeta{ModuleName: "hero"})

	diff, err := svc.CompareVersions(dbc, v1.ID, v2.ID)
	if err != nil {
		t.Fatalf("CompareVersions: %v", err)
	}
	if !reflect.DeepEqual(diff.FilesAdded, []string{"b.css"}) {
		t.Fatalf("added = %v", diff.FilesAdded)
	}
	if !reflect.DeepEqual(diff.FilesModified, []string{"a.html"}) {
		t.Fatalf("modified = %v", diff.FilesModified)
	}
	if len(diff.FilesRemoved) != 0 {
		t.Fatalf("removed = %v", diff.FilesRemoved)
	}
	// 2 changed entries over a max manifest size of 2.
	if diff.CompatibilityScore != 0 {
		t.Fatalf("score = %d, want 0", diff.CompatibilityScore)
	}
	if diff.MigrationRequired {
		t.Fatal("no removals or metadata changes, migration must not be required")
	}

	// Direction symmetry: B's additions are A's removals.
	rev, err := svc.CompareVersions(dbc, v2.ID, v1.ID)
	if err != nil {
		t.Fatalf("CompareVersions reversed: %v", err)
	}
	if !reflect.DeepEqual(rev.FilesRemoved, diff.FilesAdded) {
		t.Fatalf("reversed removed = %v, want %v", rev.FilesRemoved, diff.FilesAdded)
	}
	if !rev.MigrationRequired {
		t.Fatal("removals must require migration")
	}
}

func TestCompareVersionsIdentical(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()
	files := map[string]string{"a.html": "X", "b.css": "Y"}

	v1 := mustCreateVersion(t, svc, dbc, moduleID, files, CreateVersionMeta{ModuleName: "hero"})
	v2 := mustCreateVersion(t, svc, dbc, moduleID, files, CreateVersionMeta{ModuleName: "hero"})

	diff, err := svc.CompareVersions(dbc, v1.ID, v2.ID)
	if err != nil {
		t.Fatalf("CompareVersions: %v", err)
	}
	if diff.CompatibilityScore != 100 {
		t.Fatalf("score = %d, want 100", diff.CompatibilityScore)
	}
	if len(diff.FilesAdded)+len(diff.FilesRemoved)+len(diff.FilesModified) != 0 {
		t.Fatal("identical manifests must produce an empty diff")
	}
}

func TestCompareVersionsMetadataChange(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()
	files := map[string]string{"a.html": "X"}

	v1 := mustCreateVersion(t, svc, dbc, moduleID, files, CreateVersionMeta{ModuleName: "hero", Description: "one"})
	v2 := mustCreateVersion(t, svc, dbc, moduleID, files, CreateVersionMeta{ModuleName: "hero-v2", Description: "two"})

	diff, err := svc.CompareVersions(dbc, v1.ID, v2.ID)
	if err != nil {
		t.Fatalf("CompareVersions: %v", err)
	}
	if len(diff.MetadataChanges) != 2 {
		t.Fatalf("metadata changes = %v", diff.MetadataChanges)
	}
	if !diff.MigrationRequired {
		t.Fatal("metadata changes must require migration")
	}
	if diff.CompatibilityScore != 100 {
		t.Fatalf("score = %d, want 100 (files unchanged)", diff.CompatibilityScore)
	}
}

func TestUpdateVersionStatusSingleActive(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()

	v1 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a.html": "X"}, CreateVersionMeta{})
	v2 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a.html": "Y"}, CreateVersionMeta{})

	if _, err := svc.UpdateVersionStatus(dbc, v1.ID, types.VersionStatusActive, nil); err != nil {
		t.Fatalf("activate v1: %v", err)
	}
	if _, err := svc.UpdateVersionStatus(dbc, v2.ID, types.VersionStatusActive, map[string]interface{}{"region": "us-east1"}); err != nil {
		t.Fatalf("activate v2: %v", err)
	}

	got1, err := svc.GetVersion(dbc, v1.ID)
	if err != nil {
		t.Fatalf("GetVersion v1: %v", err)
	}
	if got1.Status != types.VersionStatusDeployed {
		t.Fatalf("v1 status = %q, want deployed after demotion", got1.Status)
	}
	got2, err := svc.GetVersion(dbc, v2.ID)
	if err != nil {
		t.Fatalf("GetVersion v2: %v", err)
	}
	if got2.Status != types.VersionStatusActive {
		t.Fatalf("v2 status = %q, want active", got2.Status)
	}
	if len(got2.DeploymentInfo) == 0 {
		t.Fatal("deployment info must be stored")
	}
}

func TestUpdateVersionStatusGuards(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()

	v := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a.html": "X"}, CreateVersionMeta{})

	if _, err := svc.UpdateVersionStatus(dbc, v.ID, "bogus", nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument for unknown status", err)
	}

	if _, err := svc.UpdateVersionStatus(dbc, v.ID, types.VersionStatusArchived, nil); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := svc.UpdateVersionStatus(dbc, v.ID, types.VersionStatusActive, nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, archived must be terminal", err)
	}

	if _, err := svc.UpdateVersionStatus(dbc, uuid.New(), types.VersionStatusActive, nil); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRollbackToVersion(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()

	v1 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a.html": "X"}, CreateVersionMeta{ModuleName: "hero"})
	v2 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a.html": "Y"}, CreateVersionMeta{ModuleName: "hero"})
	if _, err := svc.UpdateVersionStatus(dbc, v2.ID, types.VersionStatusActive, nil); err != nil {
		t.Fatalf("activate v2: %v", err)
	}

	time.Sleep(2 * time.Millisecond)
	v3, err := svc.RollbackToVersion(dbc, v2.ID, v1.ID, "regression in layout", "ops")
	if err != nil {
		t.Fatalf("RollbackToVersion: %v", err)
	}
	if v3.VersionNumber != "1.0.2" {
		t.Fatalf("rollback version = %q, want a new 1.0.2, not a rewrite", v3.VersionNumber)
	}
	if v3.Checksum != v1.Checksum {
		t.Fatal("rollback manifest must equal the target's")
	}

	// The superseded active version steps aside.
	got2, err := svc.GetVersion(dbc, v2.ID)
	if err != nil {
		t.Fatalf("GetVersion v2: %v", err)
	}
	if got2.Status != types.VersionStatusInactive {
		t.Fatalf("v2 status = %q, want inactive", got2.Status)
	}

	// History stays intact.
	if _, err := svc.GetVersion(dbc, v1.ID); err != nil {
		t.Fatalf("v1 must survive rollback: %v", err)
	}

	if _, err := svc.RollbackToVersion(dbc, v3.ID, mustCreateVersion(t, svc, dbc, uuid.New(), map[string]string{"z": "z"}, CreateVersionMeta{}).ID, "", ""); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, cross-module rollback must fail", err)
	}
}

func TestArchiveAndDeleteOldVersions(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()

	v1 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a": "1"}, CreateVersionMeta{})
	v2 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a": "2"}, CreateVersionMeta{})
	v3 := mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a": "3"}, CreateVersionMeta{})

	if _, err := svc.UpdateVersionStatus(dbc, v2.ID, types.VersionStatusActive, nil); err != nil {
		t.Fatalf("activate v2: %v", err)
	}

	archived, err := svc.ArchiveOldVersions(dbc, moduleID, 1)
	if err != nil {
		t.Fatalf("ArchiveOldVersions: %v", err)
	}
	// v3 is kept as the most recent, v2 is active, only v1 archives.
	if archived != 1 {
		t.Fatalf("archived = %d, want 1", archived)
	}
	got1, _ := svc.GetVersion(dbc, v1.ID)
	if got1.Status != types.VersionStatusArchived {
		t.Fatalf("v1 status = %q, want archived", got1.Status)
	}
	got2, _ := svc.GetVersion(dbc, v2.ID)
	if got2.Status != types.VersionStatusActive {
		t.Fatalf("v2 status = %q, active versions never archive", got2.Status)
	}

	deleted, err := svc.DeleteArchivedVersions(dbc, moduleID)
	if err != nil {
		t.Fatalf("DeleteArchivedVersions: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := svc.GetVersion(dbc, v1.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, archived version must be gone", err)
	}
	if _, err := svc.GetVersion(dbc, v3.ID); err != nil {
		t.Fatalf("v3 must survive: %v", err)
	}
}

func TestListVersionsSummaries(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()

	mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a": "1"}, CreateVersionMeta{ModuleName: "hero"})
	mustCreateVersion(t, svc, dbc, moduleID, map[string]string{"a": "2"}, CreateVersionMeta{ModuleName: "hero"})

	summaries, err := svc.ListVersions(dbc, moduleID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	// Most recent first.
	if summaries[0].VersionNumber != "1.0.1" || summaries[1].VersionNumber != "1.0.0" {
		t.Fatalf("order = %q, %q", summaries[0].VersionNumber, summaries[1].VersionNumber)
	}
}

func TestPackageArchive(t *testing.T) {
	svc, dbc := newVersionStore(t)
	moduleID := uuid.New()
	files := map[string]string{"index.html": "<html>", "assets/style.css": "body{}"}

	v := mustCreateVersion(t, svc, dbc, moduleID, files, CreateVersionMeta{})

	raw, filename, err := svc.PackageArchive(dbc, v.ID)
	if err != nil {
		t.Fatalf("PackageArchive: %v", err)
	}
	if filename != "module-1.0.0.zip" {
		t.Fatalf("filename = %q", filename)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("zip open: %v", err)
	}
	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("zip entry %q: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("zip entry %q: %v", f.Name, err)
		}
		got[f.Name] = string(content)
	}
	if !reflect.DeepEqual(got, files) {
		t.Fatalf("archive contents = %v, want %v", got, files)
	}

	// Second call is served from cache and must be byte-identical.
	again, _, err := svc.PackageArchive(dbc, v.ID)
	if err != nil {
		t.Fatalf("PackageArchive cached: %v", err)
	}
	if !bytes.Equal(raw, again) {
		t.Fatal("cached archive differs")
	}
}
