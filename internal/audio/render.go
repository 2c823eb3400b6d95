package audio

import (
	"math"

	"github.com/gridbeat/gridbeat-api/internal/models"
)

// SampleRate is the fixed export sample rate in Hz.
const SampleRate = 44100

// Synth voice parameters: sine oscillator with a linear attack and an
// exponential release past the note's nominal duration.
const (
	attackSeconds  = 0.005
	releaseSeconds = 0.08
	baseAmplitude  = 0.18
	minNoteSeconds = 0.02

	// Rendered length is padded by half a second past the last note end and
	// never shorter than half a second, so empty projects still export.
	tailPadSeconds  = 0.5
	minTotalSeconds = 0.5

	// Peaks above this trigger downward normalization; quieter material is
	// left untouched.
	normalizeThreshold = 0.99
)

// MIDIToFreq converts a MIDI note number to its equal-tempered frequency,
// A4 (note 69) = 440 Hz.
func MIDIToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// Render synthesizes the project's note events into a mono float sample
// buffer at SampleRate. It is a pure function of the project state: the same
// tracks always produce the same buffer.
func Render(project *models.Project) []float64 {
	type voice struct {
		note     int
		time     float64
		duration float64
		velocity int
	}

	var events []voice
	for _, track := range project.Tracks {
		for _, ev := range track.Events {
			if ev.Type != models.EventTypeNote || !ev.Valid() {
				continue
			}
			ev = ev.Normalize()
			events = append(events, voice{
				note:     ev.Note,
				time:     ev.Time,
				duration: ev.Duration,
				velocity: ev.Velocity,
			})
		}
	}

	var maxEnd float64
	for _, e := range events {
		if end := e.time + e.duration; end > maxEnd {
			maxEnd = end
		}
	}

	totalSeconds := math.Max(minTotalSeconds, maxEnd+tailPadSeconds)
	totalSamples := int(math.Ceil(totalSeconds * SampleRate))
	out := make([]float64, totalSamples)

	for _, e := range events {
		start := int(math.Floor(e.time * SampleRate))
		if start < 0 {
			start = 0
		}
		durS := math.Max(minNoteSeconds, e.duration)
		end := start + int(math.Floor((durS+releaseSeconds)*SampleRate))
		if end > totalSamples {
			end = totalSamples
		}

		freq := MIDIToFreq(e.note)
		amp := baseAmplitude * float64(e.velocity) / 127

		for i := start; i < end; i++ {
			t := float64(i-start) / SampleRate
			env := 1.0
			if t < attackSeconds {
				env = t / attackSeconds
			}
			if relT := t - durS; relT > 0 {
				env *= math.Exp(-relT / releaseSeconds)
			}
			out[i] += math.Sin(2*math.Pi*freq*t) * amp * env
		}
	}

	normalize(out)
	return out
}

// normalize scales the buffer down when the peak exceeds the clip threshold.
// Quiet buffers pass through bit-identical: gain is never applied upward.
func normalize(out []float64) {
	var peak float64
	for _, s := range out {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak <= normalizeThreshold {
		return
	}
	gain := normalizeThreshold / peak
	for i := range out {
		out[i] *= gain
	}
}
