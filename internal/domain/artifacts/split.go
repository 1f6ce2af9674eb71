package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SplitStatusPending    = "pending"
	SplitStatusProcessing = "processing"
	SplitStatusCompleted  = "completed"
	SplitStatusFailed     = "failed"
)

// Split is one analysis run over an Upload. Status and metrics are mutated by
// the run; metrics updates are shallow merges, never wholesale overwrites.
type Split struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UploadID uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`
	Upload   *Upload   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UploadID;references:ID" json:"upload,omitempty"`

	Status    string            `gorm:"column:status;not null;index" json:"status"`
	Metrics   datatypes.JSONMap `gorm:"column:metrics" json:"metrics,omitempty"`
	ProjectID *uuid.UUID        `gorm:"type:uuid;index" json:"project_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Split) TableName() string { return "split" }

func ValidSplitStatus(s string) bool {
	switch s {
	case SplitStatusPending, SplitStatusProcessing, SplitStatusCompleted, SplitStatusFailed:
		return true
	default:
		return false
	}
}

// TerminalSplitStatus reports whether a status is conceptually terminal.
// Transitions out of a terminal status are still accepted (the upstream
// analysis runner re-drives splits), but they are logged at warn.
func TerminalSplitStatus(s string) bool {
	return s == SplitStatusCompleted || s == SplitStatusFailed
}
