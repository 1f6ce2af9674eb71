package modules

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	VersionStatusDraft    = "draft"
	VersionStatusPackaged = "packaged"
	VersionStatusDeployed = "deployed"
	VersionStatusActive   = "active"
	VersionStatusInactive = "inactive"
	VersionStatusArchived = "archived"
)

// ModuleVersion is an immutable content snapshot of a packaged module. The
// file manifest and checksum never change after creation; only Status,
// DeploymentInfo and the change log move. Rollback appends a new version
// rather than editing history, so the table doubles as the version index:
// "list versions for module" is a projection query, not a second document.
type ModuleVersion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID  uuid.UUID `gorm:"type:uuid;not null;index" json:"module_id"`
	PackageID uuid.UUID `gorm:"type:uuid;not null;index" json:"package_id"`

	VersionNumber string `gorm:"column:version_number;not null" json:"version_number"`
	Status        string `gorm:"column:status;not null;index" json:"status"`
	CreatedBy     string `gorm:"column:created_by" json:"created_by,omitempty"`

	ChangeSummary string         `gorm:"column:change_summary" json:"change_summary,omitempty"`
	ChangeLog     datatypes.JSON `gorm:"column:change_log" json:"change_log,omitempty"`

	// Files is the content manifest: relative file path -> full file text.
	Files datatypes.JSON `gorm:"column:files" json:"files,omitempty"`

	ModuleName  string `gorm:"column:module_name" json:"module_name,omitempty"`
	Description string `gorm:"column:description" json:"description,omitempty"`
	FileCount   int    `gorm:"column:file_count;not null" json:"file_count"`
	TotalBytes  int64  `gorm:"column:total_bytes;not null" json:"total_bytes"`
	Checksum    string `gorm:"column:checksum;not null;index" json:"checksum"`

	DeploymentInfo    datatypes.JSON `gorm:"column:deployment_info" json:"deployment_info,omitempty"`
	PreviousVersionID *uuid.UUID     `gorm:"type:uuid" json:"previous_version_id,omitempty"`
	CanRollback       bool           `gorm:"column:can_rollback;not null" json:"can_rollback"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ModuleVersion) TableName() string { return "module_version" }

// ChangeLogEntry is one ordered entry of a version's change log.
type ChangeLogEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor,omitempty"`
	Action string    `json:"action"`
	Detail string    `json:"detail,omitempty"`
}

// VersionSummary is the list-endpoint projection of a ModuleVersion; it
// carries everything except the file manifest.
type VersionSummary struct {
	ID            uuid.UUID `json:"id"`
	ModuleID      uuid.UUID `json:"module_id"`
	VersionNumber string    `json:"version_number"`
	Status        string    `json:"status"`
	ModuleName    string    `json:"module_name,omitempty"`
	ChangeSummary string    `json:"change_summary,omitempty"`
	FileCount     int       `json:"file_count"`
	TotalBytes    int64     `json:"total_bytes"`
	Checksum      string    `json:"checksum"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (v *ModuleVersion) Summary() VersionSummary {
	return VersionSummary{
		ID:            v.ID,
		ModuleID:      v.ModuleID,
		VersionNumber: v.VersionNumber,
		Status:        v.Status,
		ModuleName:    v.ModuleName,
		ChangeSummary: v.ChangeSummary,
		FileCount:     v.FileCount,
		TotalBytes:    v.TotalBytes,
		Checksum:      v.Checksum,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
	}
}

func ValidVersionStatus(s string) bool {
	switch s {
	case VersionStatusDraft, VersionStatusPackaged, VersionStatusDeployed,
		VersionStatusActive, VersionStatusInactive, VersionStatusArchived:
		return true
	default:
		return false
	}
}
