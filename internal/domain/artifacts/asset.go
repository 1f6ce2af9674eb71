package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AssetKindJSON      = "json"
	AssetKindImageCrop = "image-crop"
	AssetKindHTML      = "html"
	AssetKindCSS       = "css"
	AssetKindOther     = "other"
)

// Asset is one child artifact of a Split: a detected-section descriptor, a
// generated crop, emitted markup, and so on. Immutable once created.
type Asset struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SplitID uuid.UUID `gorm:"type:uuid;not null;index" json:"split_id"`
	Split   *Split    `gorm:"constraint:OnDelete:CASCADE;foreignKey:SplitID;references:ID" json:"split,omitempty"`

	Kind       string            `gorm:"column:kind;not null;index" json:"kind"`
	StorageKey *string           `gorm:"column:storage_key;index" json:"storage_key,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	OrderIndex *int              `gorm:"column:order_index;index" json:"order_index,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Asset) TableName() string { return "asset" }
