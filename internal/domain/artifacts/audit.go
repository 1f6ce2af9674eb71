package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit-relevant rows reference a split but must survive its deletion: the
// cascade delete nulls their SplitID instead of removing them.

type TestRun struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SplitID *uuid.UUID `gorm:"type:uuid;index" json:"split_id,omitempty"`

	Status  string         `gorm:"column:status;not null" json:"status"`
	Results datatypes.JSON `gorm:"column:results" json:"results,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TestRun) TableName() string { return "test_run" }

type ReviewFeedback struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SplitID *uuid.UUID `gorm:"type:uuid;index" json:"split_id,omitempty"`

	Reviewer string `gorm:"column:reviewer" json:"reviewer,omitempty"`
	Comment  string `gorm:"column:comment" json:"comment,omitempty"`
	Rating   *int   `gorm:"column:rating" json:"rating,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReviewFeedback) TableName() string { return "review_feedback" }

type ValidationRecord struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SplitID *uuid.UUID `gorm:"type:uuid;index" json:"split_id,omitempty"`

	Passed  bool           `gorm:"column:passed;not null" json:"passed"`
	Details datatypes.JSON `gorm:"column:details" json:"details,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ValidationRecord) TableName() string { return "validation_record" }
