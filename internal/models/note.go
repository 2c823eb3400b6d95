package models

import "math"

// EventTypeNote is the only event type the sequencer persists. Payloads with
// any other type are ignored by the realtime and rendering paths.
const EventTypeNote = "note"

// Note parameter bounds and defaults applied when a client omits or mangles a field.
const (
	MinPitch        = 0
	MaxPitch        = 127
	MinVelocity     = 1
	MaxVelocity     = 127
	DefaultVelocity = 100
	DefaultDuration = 0.25
)

// NoteEvent is one discrete sound in a track's timeline. The wire shape is
// shared between the REST payloads and the realtime channel.
type NoteEvent struct {
	Type     string  `json:"type"`
	Note     int     `json:"note"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Velocity int     `json:"velocity"`
	TrackID  string  `json:"trackId"`
}

// EventKey identifies a note event for toggle purposes. Two events with the
// same key are the same cell; there is no separate assigned identifier.
type EventKey struct {
	TrackID string
	Note    int
	Time    float64
}

// Key returns the event's identity triple.
func (e NoteEvent) Key() EventKey {
	return EventKey{TrackID: e.TrackID, Note: e.Note, Time: e.Time}
}

// Valid reports whether the event has an in-range pitch and a finite,
// non-negative start time. Events failing this are dropped, not clamped.
func (e NoteEvent) Valid() bool {
	if e.Note < MinPitch || e.Note > MaxPitch {
		return false
	}
	return !math.IsNaN(e.Time) && !math.IsInf(e.Time, 0) && e.Time >= 0
}

// Normalize fills in defaults for the fields that have a safe one: an absent
// velocity becomes the default, an out-of-range one is clamped into [1,127],
// and non-positive durations fall back to a 16th at 120bpm.
func (e NoteEvent) Normalize() NoteEvent {
	e.Type = EventTypeNote
	if e.Velocity == 0 {
		e.Velocity = DefaultVelocity
	}
	e.Velocity = ClampVelocity(e.Velocity)
	if e.Duration <= 0 || math.IsNaN(e.Duration) || math.IsInf(e.Duration, 0) {
		e.Duration = DefaultDuration
	}
	return e
}

// ClampVelocity clamps v into the valid MIDI velocity range.
func ClampVelocity(v int) int {
	if v < MinVelocity {
		return MinVelocity
	}
	if v > MaxVelocity {
		return MaxVelocity
	}
	return v
}
