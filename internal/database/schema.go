package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Prediction stores one classification result per uploaded image. The row id
// doubles as the storage key of the original image, so a prediction and its
// files share a single identifier. Rows are written once and never updated.
type Prediction struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ImagePath   string         `gorm:"size:500;not null"`
	PredLabel   string         `gorm:"size:200;not null;index"`
	PredConf    float64        `gorm:"not null"`
	HeatmapPath sql.NullString `gorm:"size:500"`
	CreatedAt   time.Time      `gorm:"not null;index"`

	Feedback *Feedback `gorm:"foreignKey:PredictionId;constraint:OnDelete:CASCADE"`
}

// Feedback is a user correctness judgment for a prediction. At most one row
// per prediction; resubmission updates the existing row in place and
// refreshes CreatedAt.
type Feedback struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	PredictionId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	Correct      bool           `gorm:"not null"`
	TrueLabel    sql.NullString `gorm:"size:200"`
	CreatedAt    time.Time      `gorm:"not null"`
}
