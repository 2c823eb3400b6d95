package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gridbeat/gridbeat-api/internal/logger"
)

// Hub tracks which sessions are subscribed to which project channel and fans
// broadcasts out to them. A session belongs to at most one project channel;
// joining another project implicitly leaves the previous one. The channel
// keeps no backlog: late joiners fetch current state over HTTP.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uint]map[*Session]bool
	joined  map[*Session]uint
	started map[*Session]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[uint]map[*Session]bool),
		joined:  make(map[*Session]uint),
		started: make(map[*Session]bool),
	}
}

// Register adds a connected session before it joins any project.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started[s] = true
}

// Unregister drops the session from its room and closes its send channel.
// Safe to call more than once.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(s)
	if h.started[s] {
		delete(h.started, s)
		close(s.send)
	}
}

// Subscribe moves the session into the project's channel, leaving any
// previous one.
func (h *Hub) Subscribe(s *Session, projectID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started[s] {
		return
	}
	h.detach(s)
	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*Session]bool)
		h.rooms[projectID] = room
	}
	room[s] = true
	h.joined[s] = projectID
}

// ProjectOf returns the project channel the session is subscribed to.
func (h *Hub) ProjectOf(s *Session) (uint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.joined[s]
	return id, ok
}

// Broadcast sends the payload to every session in the project's channel
// except the origin, which already applied the change locally. Delivery is
// fire-and-forget: a session whose send buffer is full is disconnected rather
// than allowed to stall the channel. Returns the number of sessions reached.
func (h *Hub) Broadcast(projectID uint, origin *Session, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal broadcast payload", err, logger.Fields{
			"project_id": projectID,
		})
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for s := range h.rooms[projectID] {
		if s == origin {
			continue
		}
		select {
		case s.send <- data:
			sent++
		default:
			h.detach(s)
			delete(h.started, s)
			close(s.send)
		}
	}
	return sent
}

// detach removes the session from its current room. Caller holds h.mu.
func (h *Hub) detach(s *Session) {
	projectID, ok := h.joined[s]
	if !ok {
		return
	}
	delete(h.joined, s)
	if room, ok := h.rooms[projectID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, projectID)
		}
	}
}
