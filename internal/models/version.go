package models

import "time"

// ProjectVersion is an immutable snapshot of a project's tracks, captured
// before each mutating write so version N is the state the Nth write replaced.
// Rows are append-only: never updated, never deleted.
type ProjectVersion struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ProjectID   uint      `gorm:"not null;uniqueIndex:idx_project_version" json:"project_id"`
	Version     int       `gorm:"not null;uniqueIndex:idx_project_version" json:"version"`
	Description string    `json:"description"`
	Tracks      TrackList `gorm:"type:text" json:"tracks"`
	CreatedBy   uint      `gorm:"not null" json:"created_by"`
	Creator     User      `gorm:"foreignKey:CreatedBy" json:"-"`
}
