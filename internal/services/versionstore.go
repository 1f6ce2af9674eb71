package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/clients/redis"
	"github.com/splitlab/splitlab-backend/internal/data/repos"
	types "github.com/splitlab/splitlab-backend/internal/domain"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
	"github.com/splitlab/splitlab-backend/internal/platform/packager"
)

const archiveCacheTTL = 5 * time.Minute

type CreateVersionMeta struct {
	ModuleName    string
	Description   string
	ChangeSummary string
	CreatedBy     string
}

type MetadataChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// VersionDiff is the result of comparing two versions' manifests.
type VersionDiff struct {
	FilesAdded         []string         `json:"files_added"`
	FilesRemoved       []string         `json:"files_removed"`
	FilesModified      []string         `json:"files_modified"`
	MetadataChanges    []MetadataChange `json:"metadata_changes"`
	CompatibilityScore int              `json:"compatibility_score"`
	MigrationRequired  bool             `json:"migration_required"`
}

type VersionStoreService interface {
	CreateVersion(dbc dbctx.Context, moduleID, packageID uuid.UUID, files map[string]string, meta CreateVersionMeta) (*types.ModuleVersion, error)
	GetVersion(dbc dbctx.Context, id uuid.UUID) (*types.ModuleVersion, error)
	ListVersions(dbc dbctx.Context, moduleID uuid.UUID) ([]types.VersionSummary, error)
	UpdateVersionStatus(dbc dbctx.Context, id uuid.UUID, status string, deploymentInfo map[string]interface{}) (*types.ModuleVersion, error)
	CompareVersions(dbc dbctx.Context, a, b uuid.UUID) (*VersionDiff, error)
	RollbackToVersion(dbc dbctx.Context, currentID, targetID uuid.UUID, reason, actor string) (*types.ModuleVersion, error)
	ArchiveOldVersions(dbc dbctx.Context, moduleID uuid.UUID, keepCount int) (int, error)
	DeleteArchivedVersions(dbc dbctx.Context, moduleID uuid.UUID) (int64, error)
	PackageArchive(dbc dbctx.Context, versionID uuid.UUID) ([]byte, string, error)
}

type versionStoreService struct {
	db          *gorm.DB
	log         *logger.Logger
	versionRepo repos.ModuleVersionRepo
	pack        packager.Packager
	cache       redis.ByteCache

	// moduleMu serializes activation and rollback per module so the
	// read-demote-write sequence cannot race within this process. The table
	// stays the single source of truth, so a store-level conditional update
	// remains a drop-in upgrade for multi-instance deployments.
	moduleMu sync.Map
}

func NewVersionStoreService(
	db *gorm.DB,
	baseLog *logger.Logger,
	versionRepo repos.ModuleVersionRepo,
	pack packager.Packager,
	cache redis.ByteCache,
) VersionStoreService {
	serviceLog := baseLog.With("service", "VersionStoreService")
	return &versionStoreService{
		db:          db,
		log:         serviceLog,
		versionRepo: versionRepo,
		pack:        pack,
		cache:       cache,
	}
}

func (s *versionStoreService) lockModule(moduleID uuid.UUID) func() {
	v, _ := s.moduleMu.LoadOrStore(moduleID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ManifestChecksum hashes the sorted "path:content" pairs of a manifest. The
// result is independent of map iteration order and changes on any path or
// content byte change.
func ManifestChecksum(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for i, p := range paths {
		if i > 0 {
			h.Write([]byte("\n"))
		}
		h.Write([]byte(p))
		h.Write([]byte(":"))
		h.Write([]byte(files[p]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// nextVersionNumber bumps the patch component only; major and minor never
// auto-increment.
func nextVersionNumber(prev string) string {
	parts := strings.Split(prev, ".")
	if len(parts) != 3 {
		return "1.0.0"
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "1.0.0"
	}
	return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1)
}

func decodeManifest(raw datatypes.JSON) (map[string]string, error) {
	files := map[string]string{}
	if len(raw) == 0 {
		return files, nil
	}
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("decode file manifest: %w", err)
	}
	return files, nil
}

func appendChangeLog(raw datatypes.JSON, entry types.ChangeLogEntry) (datatypes.JSON, error) {
	var entries []types.ChangeLogEntry
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode change log: %w", err)
		}
	}
	entries = append(entries, entry)
	out, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

func (s *versionStoreService) CreateVersion(dbc dbctx.Context, moduleID, packageID uuid.UUID, files map[string]string, meta CreateVersionMeta) (*types.ModuleVersion, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: file manifest is empty", pkgerrors.ErrInvalidArgument)
	}
	return s.createVersion(dbc, moduleID, packageID, files, meta, "packaged", "")
}

func (s *versionStoreService) createVersion(dbc dbctx.Context, moduleID, packageID uuid.UUID, files map[string]string, meta CreateVersionMeta, action, detail string) (*types.ModuleVersion, error) {
	versionNumber := "1.0.0"
	var previousID *uuid.UUID
	canRollback := false

	prev, err := s.versionRepo.GetLatestByModuleID(dbc, moduleID)
	switch {
	case err == nil:
		versionNumber = nextVersionNumber(prev.VersionNumber)
		previousID = &prev.ID
		canRollback = true
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first version of the module
	default:
		return nil, mapDBErr(err)
	}

	rawFiles, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("encode file manifest: %w", err)
	}

	var totalBytes int64
	for _, content := range files {
		totalBytes += int64(len(content))
	}

	changeLog, err := appendChangeLog(nil, types.ChangeLogEntry{
		At:     time.Now().UTC(),
		Actor:  meta.CreatedBy,
		Action: action,
		Detail: detail,
	})
	if err != nil {
		return nil, err
	}

	version := &types.ModuleVersion{
		ID:                uuid.New(),
		ModuleID:          moduleID,
		PackageID:         packageID,
		VersionNumber:     versionNumber,
		Status:            types.VersionStatusPackaged,
		CreatedBy:         meta.CreatedBy,
		ChangeSummary:     meta.ChangeSummary,
		ChangeLog:         changeLog,
		Files:             datatypes.JSON(rawFiles),
		ModuleName:        meta.ModuleName,
		Description:       meta.Description,
		FileCount:         len(files),
		TotalBytes:        totalBytes,
		Checksum:          ManifestChecksum(files),
		PreviousVersionID: previousID,
		CanRollback:       canRollback,
	}
	if _, err := s.versionRepo.Create(dbc, version); err != nil {
		return nil, mapDBErr(err)
	}

	s.log.Info("version created",
		"module_id", moduleID,
		"version_id", version.ID,
		"version", versionNumber,
		"files", version.FileCount,
	)
	return version, nil
}

func (s *versionStoreService) GetVersion(dbc dbctx.Context, id uuid.UUID) (*types.ModuleVersion, error) {
	version, err := s.versionRepo.GetByID(dbc, id)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return version, nil
}

func (s *versionStoreService) ListVersions(dbc dbctx.Context, moduleID uuid.UUID) ([]types.VersionSummary, error) {
	summaries, err := s.versionRepo.ListSummariesByModuleID(dbc, moduleID)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return summaries, nil
}

// UpdateVersionStatus sets a version's status. Promoting to active first
// demotes the module's currently active sibling to deployed; the whole
// sequence runs under the module lock inside one transaction, so at most one
// version of a module is active at any instant.
func (s *versionStoreService) UpdateVersionStatus(dbc dbctx.Context, id uuid.UUID, status string, deploymentInfo map[string]interface{}) (*types.ModuleVersion, error) {
	if !types.ValidVersionStatus(status) {
		return nil, fmt.Errorf("%w: unknown version status %q", pkgerrors.ErrInvalidArgument, status)
	}

	version, err := s.versionRepo.GetByID(dbc, id)
	if err != nil {
		return nil, mapDBErr(err)
	}
	if version.Status == types.VersionStatusArchived && status != types.VersionStatusArchived {
		return nil, fmt.Errorf("%w: archived versions cannot change status", pkgerrors.ErrInvalidArgument)
	}

	unlock := s.lockModule(version.ModuleID)
	defer unlock()

	fields := map[string]interface{}{"status": status}
	if deploymentInfo != nil {
		raw, err := json.Marshal(deploymentInfo)
		if err != nil {
			return nil, fmt.Errorf("encode deployment info: %w", err)
		}
		fields["deployment_info"] = datatypes.JSON(raw)
	}

	outer := dbc.Tx
	if outer == nil {
		outer = s.db
	}
	err = outer.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		if status == types.VersionStatusActive {
			current, err := s.versionRepo.GetActiveByModuleID(txc, version.ModuleID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil && current.ID != id {
				if err := s.versionRepo.UpdateFields(txc, current.ID, map[string]interface{}{
					"status": types.VersionStatusDeployed,
				}); err != nil {
					return err
				}
				s.log.Info("demoted previously active version",
					"module_id", version.ModuleID,
					"version_id", current.ID,
				)
			}
		}
		return s.versionRepo.UpdateFields(txc, id, fields)
	})
	if err != nil {
		return nil, mapDBErr(err)
	}

	updated, err := s.versionRepo.GetByID(dbc, id)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return updated, nil
}

func (s *versionStoreService) CompareVersions(dbc dbctx.Context, a, b uuid.UUID) (*VersionDiff, error) {
	va, err := s.versionRepo.GetByID(dbc, a)
	if err != nil {
		return nil, mapDBErr(err)
	}
	vb, err := s.versionRepo.GetByID(dbc, b)
	if err != nil {
		return nil, mapDBErr(err)
	}

	filesA, err := decodeManifest(va.Files)
	if err != nil {
		return nil, err
	}
	filesB, err := decodeManifest(vb.Files)
	if err != nil {
		return nil, err
	}

	diff := &VersionDiff{
		FilesAdded:    []string{},
		FilesRemoved:  []string{},
		FilesModified: []string{},
	}
	for path, contentB := range filesB {
		contentA, ok := filesA[path]
		if !ok {
			diff.FilesAdded = append(diff.FilesAdded, path)
		} else if contentA != contentB {
			diff.FilesModified = append(diff.FilesModified, path)
		}
	}
	for path := range filesA {
		if _, ok := filesB[path]; !ok {
			diff.FilesRemoved = append(diff.FilesRemoved, path)
		}
	}
	sort.Strings(diff.FilesAdded)
	sort.Strings(diff.FilesRemoved)
	sort.Strings(diff.FilesModified)

	if va.ModuleName != vb.ModuleName {
		diff.MetadataChanges = append(diff.MetadataChanges, MetadataChange{
			Field: "module_name", From: va.ModuleName, To: vb.ModuleName,
		})
	}
	if va.Description != vb.Description {
		diff.MetadataChanges = append(diff.MetadataChanges, MetadataChange{
			Field: "description", From: va.Description, To: vb.Description,
		})
	}

	changed := len(diff.FilesAdded) + len(diff.FilesRemoved) + len(diff.FilesModified)
	maxCount := len(filesA)
	if len(filesB) > maxCount {
		maxCount = len(filesB)
	}
	score := 100.0
	if maxCount > 0 {
		score = 100 - 100*float64(changed)/float64(maxCount)
	}
	if score < 0 {
		score = 0
	}
	diff.CompatibilityScore = int(math.Round(score))
	diff.MigrationRequired = len(diff.FilesRemoved) > 0 || len(diff.MetadataChanges) > 0

	return diff, nil
}

// RollbackToVersion appends a new version whose manifest is a verbatim copy
// of the target's. History is never rewritten. If the current version was
// active it is demoted to inactive.
func (s *versionStoreService) RollbackToVersion(dbc dbctx.Context, currentID, targetID uuid.UUID, reason, actor string) (*types.ModuleVersion, error) {
	current, err := s.versionRepo.GetByID(dbc, currentID)
	if err != nil {
		return nil, mapDBErr(err)
	}
	target, err := s.versionRepo.GetByID(dbc, targetID)
	if err != nil {
		return nil, mapDBErr(err)
	}
	if current.ModuleID != target.ModuleID {
		return nil, fmt.Errorf("%w: versions belong to different modules", pkgerrors.ErrInvalidArgument)
	}

	files, err := decodeManifest(target.Files)
	if err != nil {
		return nil, err
	}

	unlock := s.lockModule(current.ModuleID)
	defer unlock()

	var created *types.ModuleVersion
	outer := dbc.Tx
	if outer == nil {
		outer = s.db
	}
	err = outer.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		detail := fmt.Sprintf("rollback from %s to %s: %s", current.VersionNumber, target.VersionNumber, reason)
		v, err := s.createVersion(txc, current.ModuleID, target.PackageID, files, CreateVersionMeta{
			ModuleName:    target.ModuleName,
			Description:   target.Description,
			ChangeSummary: detail,
			CreatedBy:     actor,
		}, "rollback", detail)
		if err != nil {
			return err
		}
		created = v

		if current.Status == types.VersionStatusActive {
			if err := s.versionRepo.UpdateFields(txc, current.ID, map[string]interface{}{
				"status": types.VersionStatusInactive,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapDBErr(err)
	}

	s.log.Info("rollback complete",
		"module_id", current.ModuleID,
		"from_version", current.VersionNumber,
		"to_version", target.VersionNumber,
		"new_version_id", created.ID,
	)
	return created, nil
}

// ArchiveOldVersions marks versions beyond the keepCount most recent as
// archived, skipping anything active or deployed.
func (s *versionStoreService) ArchiveOldVersions(dbc dbctx.Context, moduleID uuid.UUID, keepCount int) (int, error) {
	if keepCount < 0 {
		keepCount = 0
	}

	versions, err := s.versionRepo.ListByModuleID(dbc, moduleID)
	if err != nil {
		return 0, mapDBErr(err)
	}

	archived := 0
	for i, v := range versions {
		if i < keepCount {
			continue
		}
		if v.Status == types.VersionStatusActive || v.Status == types.VersionStatusDeployed {
			continue
		}
		if v.Status == types.VersionStatusArchived {
			continue
		}
		if err := s.versionRepo.UpdateFields(dbc, v.ID, map[string]interface{}{
			"status": types.VersionStatusArchived,
		}); err != nil {
			return archived, mapDBErr(err)
		}
		archived++
	}

	if archived > 0 {
		s.log.Info("archived old versions", "module_id", moduleID, "count", archived)
	}
	return archived, nil
}

func (s *versionStoreService) DeleteArchivedVersions(dbc dbctx.Context, moduleID uuid.UUID) (int64, error) {
	deleted, err := s.versionRepo.FullDeleteArchivedByModuleID(dbc, moduleID)
	if err != nil {
		return 0, mapDBErr(err)
	}
	if deleted > 0 {
		s.log.Info("deleted archived versions", "module_id", moduleID, "count", deleted)
	}
	return deleted, nil
}

// PackageArchive zips a version's manifest for download. Archives are
// cached per version id; version content is immutable, so the TTL exists
// only to bound memory.
func (s *versionStoreService) PackageArchive(dbc dbctx.Context, versionID uuid.UUID) ([]byte, string, error) {
	version, err := s.versionRepo.GetByID(dbc, versionID)
	if err != nil {
		return nil, "", mapDBErr(err)
	}
	filename := fmt.Sprintf("module-%s.zip", version.VersionNumber)

	cacheKey := versionID.String()
	if s.cache != nil {
		if raw, ok := s.cache.Get(dbc.Ctx, cacheKey); ok {
			return raw, filename, nil
		}
	}

	files, err := decodeManifest(version.Files)
	if err != nil {
		return nil, "", err
	}
	raw, err := s.pack.Package(files)
	if err != nil {
		return nil, "", err
	}
	if s.cache != nil {
		s.cache.Set(dbc.Ctx, cacheKey, raw, archiveCacheTTL)
	}
	return raw, filename, nil
}
