package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Upload is one ingested source image. Rows are written once at ingestion and
// never mutated afterwards; removal goes through the cascade delete only.
type Upload struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID *uuid.UUID `gorm:"type:uuid;index" json:"owner_id,omitempty"`

	Filename  string            `gorm:"column:filename;not null" json:"filename"`
	MimeType  string            `gorm:"column:mime_type;not null" json:"mime_type"`
	SizeBytes int64             `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Checksum  *string           `gorm:"column:checksum" json:"checksum,omitempty"`
	// StorageKey is nil when the best-effort blob persist failed at ingestion.
	StorageKey *string           `gorm:"column:storage_key;index" json:"storage_key,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Upload) TableName() string { return "upload" }
