package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteEventKey(t *testing.T) {
	a := NoteEvent{Type: EventTypeNote, Note: 60, Time: 0.5, Velocity: 100, TrackID: "t1"}
	b := NoteEvent{Type: EventTypeNote, Note: 60, Time: 0.5, Velocity: 64, Duration: 1.0, TrackID: "t1"}

	// Identity is the (track, note, time) triple; velocity and duration do
	// not participate.
	assert.Equal(t, a.Key(), b.Key())

	c := NoteEvent{Note: 60, Time: 0.5, TrackID: "t2"}
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestNoteEventValid(t *testing.T) {
	tests := []struct {
		name  string
		event NoteEvent
		valid bool
	}{
		{"in range", NoteEvent{Note: 60, Time: 0}, true},
		{"max pitch", NoteEvent{Note: 127, Time: 3.5}, true},
		{"negative pitch", NoteEvent{Note: -1, Time: 0}, false},
		{"pitch too high", NoteEvent{Note: 128, Time: 0}, false},
		{"negative time", NoteEvent{Note: 60, Time: -0.25}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.event.Valid())
		})
	}
}

func TestNoteEventNormalize(t *testing.T) {
	ev := NoteEvent{Note: 60, Time: 1, Velocity: 0, Duration: 0}.Normalize()
	assert.Equal(t, DefaultVelocity, ev.Velocity)
	assert.Equal(t, DefaultDuration, ev.Duration)
	assert.Equal(t, EventTypeNote, ev.Type)

	kept := NoteEvent{Note: 60, Time: 1, Velocity: 80, Duration: 0.5}.Normalize()
	assert.Equal(t, 80, kept.Velocity)
	assert.Equal(t, 0.5, kept.Duration)

	// Out-of-range velocities are clamped, not replaced by the default.
	assert.Equal(t, MaxVelocity, NoteEvent{Note: 60, Time: 1, Velocity: 150}.Normalize().Velocity)
	assert.Equal(t, MinVelocity, NoteEvent{Note: 60, Time: 1, Velocity: -5}.Normalize().Velocity)
}

func TestTrackToggleInvolution(t *testing.T) {
	track := Track{ID: "t1", Name: "Piano", Instrument: InstrumentPiano}
	ev := NoteEvent{Type: EventTypeNote, Note: 60, Time: 0, Duration: 0.25, Velocity: 100, TrackID: "t1"}

	on := track.Toggle(ev)
	assert.True(t, on)
	assert.Len(t, track.Events, 1)
	assert.True(t, track.HasEvent(ev.Key()))

	off := track.Toggle(ev)
	assert.False(t, off)
	assert.Empty(t, track.Events)
	assert.False(t, track.HasEvent(ev.Key()))
}

func TestTrackToggleLeavesOtherCells(t *testing.T) {
	track := Track{ID: "t1"}
	first := NoteEvent{Note: 60, Time: 0, TrackID: "t1"}
	second := NoteEvent{Note: 64, Time: 0, TrackID: "t1"}

	track.Toggle(first)
	track.Toggle(second)
	require.Len(t, track.Events, 2)

	track.Toggle(first)
	require.Len(t, track.Events, 1)
	assert.True(t, track.HasEvent(second.Key()))
}

func TestProjectDuration(t *testing.T) {
	project := Project{Tracks: TrackList{
		{ID: "t1", Events: []NoteEvent{
			{Note: 60, Time: 0, Duration: 0.25},
			{Note: 64, Time: 2, Duration: 1},
		}},
		{ID: "t2", Events: []NoteEvent{
			{Note: 36, Time: 1.5, Duration: 0.5},
		}},
	}}

	assert.Equal(t, 3.0, project.Duration())

	empty := Project{}
	assert.Equal(t, 0.0, empty.Duration())
}

func TestTrackListValueScanRoundTrip(t *testing.T) {
	tracks := TrackList{
		{ID: "t1", Name: "Piano", Instrument: InstrumentPiano, Events: []NoteEvent{
			{Type: EventTypeNote, Note: 60, Time: 0.25, Duration: 0.25, Velocity: 100, TrackID: "t1"},
		}},
	}

	value, err := tracks.Value()
	require.NoError(t, err)

	var decoded TrackList
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, tracks, decoded)
}

func TestTrackListScanNil(t *testing.T) {
	var decoded TrackList
	require.NoError(t, decoded.Scan(nil))
	assert.Empty(t, decoded)
}

func TestTrackListCloneIndependence(t *testing.T) {
	tracks := TrackList{
		{ID: "t1", Events: []NoteEvent{{Note: 60, Time: 0, TrackID: "t1"}}},
	}

	snapshot := tracks.Clone()
	tracks[0].Events[0].Note = 72
	tracks[0].Events = append(tracks[0].Events, NoteEvent{Note: 64, Time: 1, TrackID: "t1"})

	require.Len(t, snapshot[0].Events, 1)
	assert.Equal(t, 60, snapshot[0].Events[0].Note)
}

func TestRoles(t *testing.T) {
	project := &Project{
		OwnerID: 1,
		Collaborators: []Collaborator{
			{UserID: 2, Role: RoleEditor},
			{UserID: 3, Role: RoleViewer},
		},
	}

	assert.True(t, CanEdit(project, 1))
	assert.True(t, CanEdit(project, 2))
	assert.False(t, CanEdit(project, 3))
	assert.False(t, CanEdit(project, 4))

	assert.True(t, CanView(project, 3))
	assert.False(t, CanView(project, 4))

	project.IsPublic = true
	assert.True(t, CanView(project, 4))
	assert.False(t, CanEdit(project, 4))
}
