package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gridbeat/gridbeat-api/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection: every goroutine sees the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Collaborator{},
		&models.ProjectVersion{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "hash", Username: email, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestProject(t *testing.T, svc *ProjectService, ownerID uint) *models.Project {
	t.Helper()
	project, err := svc.Create(ownerID, "Test Beat", "")
	require.NoError(t, err)
	return project
}

func TestCreateProjectDefaults(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")

	project, err := svc.Create(owner.ID, "", "first sketch")
	require.NoError(t, err)

	assert.Equal(t, "Untitled Project", project.Name)
	assert.Equal(t, models.DefaultBPM, project.BPM)
	require.Len(t, project.Tracks, 1)
	assert.Equal(t, models.InstrumentPiano, project.Tracks[0].Instrument)
	assert.NotEmpty(t, project.Tracks[0].ID)
	assert.Empty(t, project.Tracks[0].Events)

	// The owner shows up as an editor collaborator.
	require.Len(t, project.Collaborators, 1)
	assert.Equal(t, owner.ID, project.Collaborators[0].UserID)
	assert.Equal(t, models.RoleEditor, project.Collaborators[0].Role)
}

func TestApplyToggleRoundTrip(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)
	trackID := project.Tracks[0].ID

	ev := models.NoteEvent{Type: models.EventTypeNote, Note: 60, Time: 0.5, TrackID: trackID}

	res, err := svc.ApplyToggle(project.ID, ev)
	require.NoError(t, err)
	assert.True(t, res.On)
	assert.Equal(t, models.DefaultVelocity, res.Event.Velocity)
	assert.Equal(t, models.DefaultDuration, res.Event.Duration)

	reloaded, err := svc.Get(project.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Tracks[0].Events, 1)

	// Flipping the same cell again removes the persisted event.
	res, err = svc.ApplyToggle(project.ID, ev)
	require.NoError(t, err)
	assert.False(t, res.On)

	reloaded, err = svc.Get(project.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Tracks[0].Events)
}

func TestApplyToggleUnknownTrackFallsBack(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)

	ev := models.NoteEvent{Type: models.EventTypeNote, Note: 64, Time: 1, TrackID: "gone"}
	res, err := svc.ApplyToggle(project.ID, ev)
	require.NoError(t, err)
	assert.True(t, res.On)
	assert.Equal(t, project.Tracks[0].ID, res.Event.TrackID)

	reloaded, err := svc.Get(project.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Tracks[0].Events, 1)
	assert.Equal(t, project.Tracks[0].ID, reloaded.Tracks[0].Events[0].TrackID)
}

func TestApplyToggleRejectsInvalidEvent(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)

	_, err := svc.ApplyToggle(project.ID, models.NoteEvent{Note: 200, Time: 0})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ApplyToggle(project.ID, models.NoteEvent{Note: 60, Time: -1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyToggleMissingProject(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)

	_, err := svc.ApplyToggle(9999, models.NoteEvent{Note: 60, Time: 0})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyToggleDoesNotVersion(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)

	_, err := svc.ApplyToggle(project.ID, models.NoteEvent{Note: 60, Time: 0, TrackID: project.Tracks[0].ID})
	require.NoError(t, err)

	versions, err := svc.Versions().List(project.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestUpdateTracksCapturesPriorState(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)
	originalTrackID := project.Tracks[0].ID

	tracks := models.TrackList{
		{ID: originalTrackID, Name: "Piano", Instrument: models.InstrumentPiano, Events: []models.NoteEvent{
			{Type: models.EventTypeNote, Note: 60, Time: 0, Duration: 0.25, Velocity: 100, TrackID: originalTrackID},
		}},
		{Name: "Bass", Instrument: models.InstrumentBass},
	}

	updated, err := svc.Update(project.ID, owner.ID, UpdateInput{Tracks: &tracks})
	require.NoError(t, err)
	require.Len(t, updated.Tracks, 2)
	assert.NotEmpty(t, updated.Tracks[1].ID, "new tracks get ids assigned")
	assert.NotNil(t, updated.Tracks[1].Events)

	versions, err := svc.Versions().List(project.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, "Version 1", versions[0].Description)
	// The snapshot holds the pre-write state: the single empty piano track.
	require.Len(t, versions[0].Tracks, 1)
	assert.Empty(t, versions[0].Tracks[0].Events)
}

func TestUpdateRejectsEmptyTracks(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)

	empty := models.TrackList{}
	_, err := svc.Update(project.ID, owner.ID, UpdateInput{Tracks: &empty})
	assert.ErrorIs(t, err, ErrLastTrack)

	// Nothing was captured for the rejected write.
	versions, err := svc.Versions().List(project.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestUpdateClampsBPM(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)

	low := 10
	updated, err := svc.Update(project.ID, owner.ID, UpdateInput{BPM: &low})
	require.NoError(t, err)
	assert.Equal(t, models.MinBPM, updated.BPM)

	high := 1000
	updated, err = svc.Update(project.ID, owner.ID, UpdateInput{BPM: &high})
	require.NoError(t, err)
	assert.Equal(t, models.MaxBPM, updated.BPM)
}

func TestVersionNumbersMonotonicUnderConcurrency(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)
	trackID := project.Tracks[0].ID

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tracks := models.TrackList{
				{ID: trackID, Name: fmt.Sprintf("Take %d", n), Instrument: models.InstrumentPiano},
			}
			_, err := svc.Update(project.ID, owner.ID, UpdateInput{Tracks: &tracks})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	versions, err := svc.Versions().List(project.ID)
	require.NoError(t, err)
	require.Len(t, versions, writers)

	// Newest first: writers, writers-1, ..., 1 with no gaps or duplicates.
	for i, v := range versions {
		assert.Equal(t, writers-i, v.Version)
	}
}

func TestReplaceTrackEvents(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)
	trackID := project.Tracks[0].ID

	events := []models.NoteEvent{
		{Type: models.EventTypeNote, Note: 60, Time: 0},
		{Type: models.EventTypeNote, Note: 200, Time: 1}, // invalid, dropped
		{Type: models.EventTypeNote, Note: 64, Time: 0.5, Velocity: 90, Duration: 0.5},
	}

	updated, err := svc.ReplaceTrackEvents(project.ID, trackID, events, owner.ID)
	require.NoError(t, err)
	require.Len(t, updated.Tracks[0].Events, 2)
	for _, ev := range updated.Tracks[0].Events {
		assert.Equal(t, trackID, ev.TrackID)
		assert.GreaterOrEqual(t, ev.Velocity, models.MinVelocity)
		assert.Greater(t, ev.Duration, 0.0)
	}

	// Exactly one version captured for the bulk write.
	versions, err := svc.Versions().List(project.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	_, err = svc.ReplaceTrackEvents(project.ID, "missing", nil, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreVersionRoundTrip(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)
	trackID := project.Tracks[0].ID

	// Write one: a single note. Captures version 1 (the empty state).
	first := models.TrackList{
		{ID: trackID, Name: "Piano", Instrument: models.InstrumentPiano, Events: []models.NoteEvent{
			{Type: models.EventTypeNote, Note: 60, Time: 0, Duration: 0.25, Velocity: 100, TrackID: trackID},
		}},
	}
	_, err := svc.Update(project.ID, owner.ID, UpdateInput{Tracks: &first})
	require.NoError(t, err)

	// Write two: a different note. Captures version 2 (the one-note state).
	second := models.TrackList{
		{ID: trackID, Name: "Piano", Instrument: models.InstrumentPiano, Events: []models.NoteEvent{
			{Type: models.EventTypeNote, Note: 72, Time: 1, Duration: 0.25, Velocity: 100, TrackID: trackID},
		}},
	}
	_, err = svc.Update(project.ID, owner.ID, UpdateInput{Tracks: &second})
	require.NoError(t, err)

	versions, err := svc.Versions().List(project.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	target := versions[0] // version 2, the one-note snapshot

	restored, tracks, err := svc.RestoreVersion(project.ID, target.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, target.Version, restored.Version)
	require.Len(t, tracks[0].Events, 1)
	assert.Equal(t, 60, tracks[0].Events[0].Note)

	// The restore itself left a checkpoint of the pre-restore state.
	versions, err = svc.Versions().List(project.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, fmt.Sprintf("Before restore to version %d", target.Version), versions[0].Description)
	require.Len(t, versions[0].Tracks[0].Events, 1)
	assert.Equal(t, 72, versions[0].Tracks[0].Events[0].Note)
}

func TestRestoreVersionWrongProject(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	a := newTestProject(t, svc, owner.ID)
	b := newTestProject(t, svc, owner.ID)

	tracks := models.TrackList{{ID: a.Tracks[0].ID, Name: "Piano", Instrument: models.InstrumentPiano}}
	_, err := svc.Update(a.ID, owner.ID, UpdateInput{Tracks: &tracks})
	require.NoError(t, err)

	versions, err := svc.Versions().List(a.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	// A version id from another project must not be restorable.
	_, _, err = svc.RestoreVersion(b.ID, versions[0].ID, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProjectKeepsVersions(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	project := newTestProject(t, svc, owner.ID)

	tracks := models.TrackList{{ID: project.Tracks[0].ID, Name: "Piano", Instrument: models.InstrumentPiano}}
	_, err := svc.Update(project.ID, owner.ID, UpdateInput{Tracks: &tracks})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(project.ID))

	_, err = svc.Get(project.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	versions, err := svc.Versions().List(project.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestListOrdersAndFilters(t *testing.T) {
	db := setupDB(t)
	svc := NewProjectService(db)
	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")

	mine := newTestProject(t, svc, owner.ID)
	theirs := newTestProject(t, svc, other.ID)

	// Not a collaborator yet: only the owned project shows up.
	projects, err := svc.List(owner.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, mine.ID, projects[0].ID)

	collab := models.Collaborator{ProjectID: theirs.ID, UserID: owner.ID, Role: models.RoleViewer}
	require.NoError(t, db.Create(&collab).Error)

	projects, err = svc.List(owner.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}
