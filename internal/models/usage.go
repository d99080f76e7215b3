package models

import (
	"time"
)

type UsageWindow string

const (
	WindowMinute UsageWindow = "minute"
	WindowDay    UsageWindow = "day"
)

// GenerationUsage counts successful generation calls per credential and
// model within one time window. Rows are bumped with an atomic
// increment-or-create so concurrent workers never lose updates.
type GenerationUsage struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	Credential  string      `json:"credential" gorm:"not null;size:32;uniqueIndex:idx_usage_identity"` // credential label, never the secret
	Model       string      `json:"model" gorm:"not null;size:100;uniqueIndex:idx_usage_identity"`
	Window      UsageWindow `json:"window" gorm:"not null;size:16;uniqueIndex:idx_usage_identity"`
	WindowStart time.Time   `json:"window_start" gorm:"not null;uniqueIndex:idx_usage_identity"`

	RequestCount int64 `json:"request_count" gorm:"not null;default:0"`
	TokenCount   int64 `json:"token_count" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GenerationUsage) TableName() string {
	return "generation_usage"
}

// Truncate returns the start of the window containing t.
func (w UsageWindow) Truncate(t time.Time) time.Time {
	switch w {
	case WindowDay:
		return t.UTC().Truncate(24 * time.Hour)
	default:
		return t.UTC().Truncate(time.Minute)
	}
}
