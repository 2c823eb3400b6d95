package realtime

import (
	"errors"
	"sync"

	"github.com/gridbeat/gridbeat-api/internal/logger"
	"github.com/gridbeat/gridbeat-api/internal/metrics"
	"github.com/gridbeat/gridbeat-api/internal/models"
	"github.com/gridbeat/gridbeat-api/internal/services"
)

// ToggleStore applies a toggle against persisted project state and returns
// the resulting cell state. Implemented by services.ProjectService.
type ToggleStore interface {
	ApplyToggle(projectID uint, ev models.NoteEvent) (*services.ToggleResult, error)
}

// Engine reconciles toggle intents against the store and rebroadcasts the
// accepted result to the project's channel. A per-project mutex spans the
// write and its broadcast, so the order in which peers receive events is the
// order in which the writes committed.
type Engine struct {
	store   ToggleStore
	hub     *Hub
	metrics *metrics.Client

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewEngine(store ToggleStore, hub *Hub, m *metrics.Client) *Engine {
	return &Engine{
		store:   store,
		hub:     hub,
		metrics: m,
		locks:   make(map[uint]*sync.Mutex),
	}
}

func (e *Engine) projectLock(projectID uint) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[projectID] = lock
	}
	return lock
}

// HandleToggle persists a noteToggle intent and, only after the write
// succeeds, broadcasts the resulting cell state to every other session on the
// project's channel. The originating session never receives its own echo; it
// already applied the flip locally. Failures are silent toward the client:
// unknown projects and out-of-range input are dropped, and a persistence
// failure suppresses the broadcast so no peer sees an event that was never
// saved.
func (e *Engine) HandleToggle(origin *Session, projectID uint, ev NoteToggleEvent) {
	if ev.Type != EventNoteToggle {
		return
	}

	note := ev.toModelEvent()
	if !note.Valid() {
		logger.Debug("Dropping toggle with out-of-range note or time", logger.Fields{
			"project_id": projectID,
			"note":       ev.Note,
		})
		return
	}

	// The lock is held through the broadcast: releasing it after the write
	// but before the fanout would let two toggles reach peers in inverted
	// commit order, leaving every peer with the opposite of the stored state.
	lock := e.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	result, err := e.store.ApplyToggle(projectID, note)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Debug("Dropping toggle for unknown project", logger.Fields{
				"project_id": projectID,
			})
		} else {
			logger.Error("Toggle not persisted, broadcast suppressed", err, logger.Fields{
				"project_id": projectID,
			})
		}
		if e.metrics != nil {
			e.metrics.RecordToggle(false, 0)
		}
		return
	}

	on := result.On
	out := NoteToggleEvent{
		Type:     EventNoteToggle,
		Note:     result.Event.Note,
		Step:     ev.Step,
		Time:     result.Event.Time,
		Duration: result.Event.Duration,
		Velocity: result.Event.Velocity,
		TrackID:  result.Event.TrackID,
		On:       &on,
	}

	sent := e.hub.Broadcast(projectID, origin, ServerMessage{
		Type:      MessageMidiEvent,
		ProjectID: projectID,
		Event:     out,
	})
	if e.metrics != nil {
		e.metrics.RecordToggle(true, sent)
	}
}
