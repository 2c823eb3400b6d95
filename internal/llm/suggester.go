package llm

import (
	"context"
	"math"
)

// Default grid constraints for suggestions. Clients may override per request.
const (
	DefaultSteps       = 16
	DefaultStepSeconds = 0.25
	DefaultPitchMin    = 60
	DefaultPitchMax    = 72
)

// Grid describes the step-sequencer window a suggestion must fit.
type Grid struct {
	Steps       int     `json:"steps"`
	StepSeconds float64 `json:"stepSeconds"`
	PitchMin    int     `json:"pitchMin"`
	PitchMax    int     `json:"pitchMax"`
}

// Normalize fills zero fields with the defaults.
func (g Grid) Normalize() Grid {
	if g.Steps <= 0 {
		g.Steps = DefaultSteps
	}
	if g.StepSeconds <= 0 {
		g.StepSeconds = DefaultStepSeconds
	}
	if g.PitchMin <= 0 {
		g.PitchMin = DefaultPitchMin
	}
	if g.PitchMax <= 0 || g.PitchMax < g.PitchMin {
		g.PitchMax = DefaultPitchMax
	}
	return g
}

// GridNote is one suggested note, quantized to grid steps.
type GridNote struct {
	Note          int `json:"note"`
	Step          int `json:"step"`
	DurationSteps int `json:"durationSteps"`
	Velocity      int `json:"velocity"`
}

// TrackSummary gives the model context about an existing track without
// shipping its full event list.
type TrackSummary struct {
	Name       string `json:"name"`
	Instrument string `json:"instrument"`
	EventCount int    `json:"eventCount"`
}

// Request is everything the suggester needs to produce a note layer.
type Request struct {
	Prompt        string
	Grid          Grid
	BPM           int
	TimeSignature string
	Tracks        []TrackSummary
	Existing      []GridNote // last notes of the target track, grid-quantized
}

// Suggestion is a validated candidate note list; merging the notes into a
// track is the caller's job.
type Suggestion struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Notes       []GridNote `json:"notes"`
	Raw         string     `json:"raw,omitempty"`
}

// Suggester produces candidate note lists for a project. Implementations must
// return only validated notes: pitches in the MIDI range [0,127], steps inside
// the grid, velocities in [1,127]. Fitting the grid's pitch register is
// best-effort: model output is clamped into it, while curated fallback
// patterns may sit outside it on purpose (a bassline demo stays in the bass
// register).
type Suggester interface {
	Suggest(ctx context.Context, req Request) (*Suggestion, error)
	Name() string
}

// sanitizeNotes clamps each candidate note into the grid and drops entries
// that cannot be salvaged. The suggestion pipeline never trusts model output.
func sanitizeNotes(notes []GridNote, grid Grid) []GridNote {
	grid = grid.Normalize()
	out := make([]GridNote, 0, len(notes))
	for _, n := range notes {
		if n.DurationSteps < 1 {
			continue
		}
		if n.Step < 0 || n.Step >= grid.Steps {
			continue
		}
		if n.Note < 0 || n.Note > 127 {
			continue
		}
		n.Note = clampInt(n.Note, grid.PitchMin, grid.PitchMax)
		n.DurationSteps = clampInt(n.DurationSteps, 1, grid.Steps)
		if n.Velocity == 0 {
			n.Velocity = 100
		}
		n.Velocity = clampInt(n.Velocity, 1, 127)
		out = append(out, n)
	}
	return out
}

func clampInt(v, min, max int) int {
	return int(math.Min(math.Max(float64(v), float64(min)), float64(max)))
}
