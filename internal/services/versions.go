package services

import (
	"errors"
	"fmt"

	"github.com/gridbeat/gridbeat-api/internal/models"
	"gorm.io/gorm"
)

// VersionService is the append-only undo history for project tracks.
type VersionService struct {
	db *gorm.DB
}

func NewVersionService(db *gorm.DB) *VersionService {
	return &VersionService{db: db}
}

// Capture appends a snapshot of the given pre-mutation track state with the
// next version number for the project. It must run inside the same
// transaction (and per-project lock) as the mutating write, which serializes
// the read-max-then-insert sequence: concurrent writers cannot produce gaps
// or duplicates. The unique (project_id, version) index backs that up.
func (v *VersionService) Capture(tx *gorm.DB, projectID uint, prior models.TrackList, actorID uint, label string) (*models.ProjectVersion, error) {
	next := 1
	var last models.ProjectVersion
	err := tx.Where("project_id = ?", projectID).Order("version DESC").First(&last).Error
	if err == nil {
		next = last.Version + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if label == "" {
		label = fmt.Sprintf("Version %d", next)
	}

	version := models.ProjectVersion{
		ProjectID:   projectID,
		Version:     next,
		Description: label,
		Tracks:      prior.Clone(),
		CreatedBy:   actorID,
	}
	if err := tx.Create(&version).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// List returns a project's versions, newest first.
func (v *VersionService) List(projectID uint) ([]models.ProjectVersion, error) {
	var versions []models.ProjectVersion
	err := v.db.Preload("Creator").
		Where("project_id = ?", projectID).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}
