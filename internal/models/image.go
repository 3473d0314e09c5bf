package models

import (
	"time"

	"gorm.io/gorm"
)

// Image records metadata for an uploaded photo. The bytes themselves live on
// disk under the configured media directory; URL is the public path a pin's
// image list references.
type Image struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Hash      string         `gorm:"uniqueIndex;not null" json:"hash"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Format    string         `gorm:"not null" json:"format"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	SizeBytes int64          `json:"size_bytes"`
	Path      string         `gorm:"not null" json:"-"`
	ThumbPath string         `json:"-"`
	URL       string         `gorm:"not null" json:"url"`
	ThumbURL  string         `json:"thumb_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
