package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gridbeat/gridbeat-api/internal/models"
	"gorm.io/gorm"
)

// ProjectService owns every mutating write to a project's tracks document.
// All read-modify-write sequences for one project run under that project's
// mutex, which is what makes the toggle's remove-if-present-else-insert step
// atomic with respect to other writers and keeps version numbers gapless.
// Writes to different projects proceed in parallel.
type ProjectService struct {
	db       *gorm.DB
	versions *VersionService

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{
		db:       db,
		versions: NewVersionService(db),
		locks:    make(map[uint]*sync.Mutex),
	}
}

// Versions exposes the version store sharing this service's database handle.
func (s *ProjectService) Versions() *VersionService {
	return s.versions
}

// projectLock returns the mutex serializing writes for one project.
func (s *ProjectService) projectLock(projectID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[projectID] = lock
	}
	return lock
}

// Get loads a project with its owner and collaborators.
func (s *ProjectService) Get(projectID uint) (*models.Project, error) {
	var project models.Project
	err := s.db.Preload("Owner").Preload("Collaborators.User").First(&project, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// List returns every project the user owns or collaborates on, most recently
// updated first.
func (s *ProjectService) List(userID uint) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.Preload("Owner").Preload("Collaborators.User").
		Where("owner_id = ? OR id IN (?)", userID,
			s.db.Model(&models.Collaborator{}).Select("project_id").Where("user_id = ?", userID)).
		Order("updated_at DESC").
		Find(&projects).Error
	return projects, err
}

// Create makes a new project owned by the user, seeded with a single piano
// track. The owner is also recorded as an editor collaborator.
func (s *ProjectService) Create(ownerID uint, name, description string) (*models.Project, error) {
	if name == "" {
		name = "Untitled Project"
	}
	project := models.Project{
		Name:          name,
		Description:   description,
		OwnerID:       ownerID,
		BPM:           models.DefaultBPM,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		Tracks: models.TrackList{
			{
				ID:         uuid.New().String(),
				Name:       "Piano",
				Instrument: models.InstrumentPiano,
				Events:     []models.NoteEvent{},
			},
		},
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		collab := models.Collaborator{
			ProjectID: project.ID,
			UserID:    ownerID,
			Role:      models.RoleEditor,
		}
		return tx.Create(&collab).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(project.ID)
}

// Delete removes a project and its collaborator rows. Version history is
// append-only and deliberately survives project deletion.
func (s *ProjectService) Delete(projectID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Collaborator{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, projectID).Error
	})
}

// UpdateInput carries the optional fields of a project update. Nil fields are
// left untouched.
type UpdateInput struct {
	Name          *string
	Description   *string
	BPM           *int
	TimeSignature *models.TimeSignature
	Tracks        *models.TrackList
	IsPublic      *bool
}

// Update applies a partial update. When the payload includes tracks, exactly
// one version of the pre-write track state is captured inside the same
// transaction, any track lacking an id gets one assigned, and an empty track
// list is rejected.
func (s *ProjectService) Update(projectID, actorID uint, in UpdateInput) (*models.Project, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.Name != nil && *in.Name != "" {
			project.Name = *in.Name
		}
		if in.Description != nil {
			project.Description = *in.Description
		}
		if in.BPM != nil {
			project.BPM = clampBPM(*in.BPM)
		}
		if in.TimeSignature != nil {
			project.TimeSignature = *in.TimeSignature
		}
		if in.IsPublic != nil {
			project.IsPublic = *in.IsPublic
		}

		if in.Tracks != nil {
			if len(*in.Tracks) == 0 {
				return ErrLastTrack
			}
			if _, err := s.versions.Capture(tx, projectID, project.Tracks, actorID, ""); err != nil {
				return err
			}
			tracks := make(models.TrackList, len(*in.Tracks))
			for i, track := range *in.Tracks {
				if track.ID == "" {
					track.ID = uuid.New().String()
				}
				if track.Events == nil {
					track.Events = []models.NoteEvent{}
				}
				tracks[i] = track
			}
			project.Tracks = tracks
		}

		return tx.Save(&project).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(projectID)
}

// ToggleResult is the resulting state of a toggled cell: the normalized event
// and whether it is on after the flip.
type ToggleResult struct {
	On    bool
	Event models.NoteEvent
}

// ApplyToggle flips one grid cell against the persisted track state. If an
// event with the same (track, note, time) triple exists it is removed,
// otherwise the event is inserted; removal is tried first so concurrent
// toggles of the same cell from different sessions converge to one flip.
// A trackId that no longer belongs to the project falls back to the first
// track, tolerating stale client state. Toggles do not create versions; only
// full tracks writes do.
func (s *ProjectService) ApplyToggle(projectID uint, ev models.NoteEvent) (*ToggleResult, error) {
	if !ev.Valid() {
		return nil, ErrNotFound
	}

	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(project.Tracks) == 0 {
		return nil, ErrNotFound
	}

	track := project.TrackByID(ev.TrackID)
	if track == nil {
		track = &project.Tracks[0]
	}
	ev.TrackID = track.ID
	ev = ev.Normalize()

	on := track.Toggle(ev)

	if err := s.db.Model(&project).Update("tracks", project.Tracks).Error; err != nil {
		return nil, err
	}

	return &ToggleResult{On: on, Event: ev}, nil
}

// ReplaceTrackEvents overwrites a track's entire event set, capturing one
// pre-write version. Used for AI-suggestion merges and full-track overwrites;
// peers re-fetch rather than receiving per-note broadcasts.
func (s *ProjectService) ReplaceTrackEvents(projectID uint, trackID string, events []models.NoteEvent, actorID uint) (*models.Project, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		track := project.TrackByID(trackID)
		if track == nil {
			return ErrNotFound
		}

		if _, err := s.versions.Capture(tx, projectID, project.Tracks, actorID, ""); err != nil {
			return err
		}

		replaced := make([]models.NoteEvent, 0, len(events))
		for _, ev := range events {
			if !ev.Valid() {
				continue
			}
			ev.TrackID = track.ID
			replaced = append(replaced, ev.Normalize())
		}
		track.Events = replaced

		return tx.Model(&project).Update("tracks", project.Tracks).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(projectID)
}

// RestoreVersion rolls the project's live tracks back to a stored snapshot.
// The current tracks are captured first as a pre-restore checkpoint so the
// restore itself can be undone. Returns the restored version and the tracks
// now live.
func (s *ProjectService) RestoreVersion(projectID, versionID, actorID uint) (*models.ProjectVersion, models.TrackList, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	var restored models.ProjectVersion
	var tracks models.TrackList

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Where("project_id = ? AND id = ?", projectID, versionID).First(&restored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		label := fmt.Sprintf("Before restore to version %d", restored.Version)
		if _, err := s.versions.Capture(tx, projectID, project.Tracks, actorID, label); err != nil {
			return err
		}

		project.Tracks = restored.Tracks.Clone()
		if err := tx.Model(&project).Update("tracks", project.Tracks).Error; err != nil {
			return err
		}

		tracks = project.Tracks
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &restored, tracks, nil
}

func clampBPM(bpm int) int {
	if bpm < models.MinBPM {
		return models.MinBPM
	}
	if bpm > models.MaxBPM {
		return models.MaxBPM
	}
	return bpm
}
