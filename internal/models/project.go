package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Track instruments supported by the sequencer grid.
const (
	InstrumentSynth = "synth"
	InstrumentPiano = "piano"
	InstrumentBass  = "bass"
	InstrumentLead  = "lead"
)

// Project BPM bounds. Out-of-range writes are clamped by the update handler.
const (
	MinBPM     = 40
	MaxBPM     = 300
	DefaultBPM = 120
)

// Track is one instrument lane of the sequencer. Tracks are owned by their
// project and persist inside the project row as part of the tracks document.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Instrument string      `json:"instrument"`
	Events     []NoteEvent `json:"events"`
}

// HasEvent reports whether an event with the given identity triple exists.
func (t *Track) HasEvent(key EventKey) bool {
	for _, ev := range t.Events {
		if ev.Key() == key {
			return true
		}
	}
	return false
}

// Toggle flips the cell identified by ev's key: if a matching event exists it
// is removed, otherwise ev is inserted. Removal is attempted first so that two
// near-simultaneous toggles of the same cell converge to a single flip.
// Returns true when the cell is on after the call.
func (t *Track) Toggle(ev NoteEvent) bool {
	key := ev.Key()
	for i, existing := range t.Events {
		if existing.Key() == key {
			t.Events = append(t.Events[:i], t.Events[i+1:]...)
			return false
		}
	}
	t.Events = append(t.Events, ev)
	return true
}

// TrackList stores a project's tracks as a single JSON document column, the
// project being the unit of concurrent editing.
type TrackList []Track

// Value implements driver.Valuer.
func (tl TrackList) Value() (driver.Value, error) {
	if tl == nil {
		tl = TrackList{}
	}
	data, err := json.Marshal(tl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (tl *TrackList) Scan(value interface{}) error {
	if value == nil {
		*tl = TrackList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for TrackList: %T", value)
	}
	if len(data) == 0 {
		*tl = TrackList{}
		return nil
	}
	return json.Unmarshal(data, tl)
}

// Clone returns a deep copy, so version snapshots never alias live state.
func (tl TrackList) Clone() TrackList {
	out := make(TrackList, len(tl))
	for i, track := range tl {
		t := track
		t.Events = make([]NoteEvent, len(track.Events))
		copy(t.Events, track.Events)
		out[i] = t
	}
	return out
}

// TimeSignature is stored denormalized on the project row.
type TimeSignature struct {
	Numerator   int `gorm:"default:4" json:"numerator"`
	Denominator int `gorm:"default:4" json:"denominator"`
}

type Project struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Name          string         `gorm:"not null;default:'Untitled Project'" json:"name"`
	Description   string         `json:"description"`
	OwnerID       uint           `gorm:"not null;index" json:"owner_id"`
	Owner         User           `gorm:"foreignKey:OwnerID" json:"owner"`
	BPM           int            `gorm:"default:120" json:"bpm"`
	TimeSignature TimeSignature  `gorm:"embedded;embeddedPrefix:time_sig_" json:"timeSignature"`
	Tracks        TrackList      `gorm:"type:text" json:"tracks"`
	IsPublic      bool           `gorm:"default:false" json:"is_public"`
	Collaborators []Collaborator `gorm:"foreignKey:ProjectID" json:"collaborators"`
}

// Duration returns the project length in seconds: the latest event end time
// across all tracks, 0 for an empty project.
func (p *Project) Duration() float64 {
	var maxEnd float64
	for _, track := range p.Tracks {
		for _, ev := range track.Events {
			if end := ev.Time + ev.Duration; end > maxEnd {
				maxEnd = end
			}
		}
	}
	return maxEnd
}

// TrackByID returns the track with the given id, or nil.
func (p *Project) TrackByID(trackID string) *Track {
	for i := range p.Tracks {
		if p.Tracks[i].ID == trackID {
			return &p.Tracks[i]
		}
	}
	return nil
}

// Collaborator grants a user a role on a project. The owner has full access
// implicitly and is not required to appear here.
type Collaborator struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_project_user" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_project_user" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Role      string    `gorm:"default:'editor'" json:"role"`
}
