package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gridbeat/gridbeat-api/internal/logger"
	"github.com/gridbeat/gridbeat-api/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Message types on the realtime channel.
const (
	MessageJoinProject = "joinProject"
	MessageMidiEvent   = "midiEvent"
	EventNoteToggle    = "noteToggle"
)

// ClientMessage is the envelope for everything a client sends on the socket.
type ClientMessage struct {
	Type      string           `json:"type"`
	ProjectID uint             `json:"projectId"`
	Event     *NoteToggleEvent `json:"event,omitempty"`
}

// NoteToggleEvent is the toggle intent and, with On set, the broadcast of the
// resulting cell state. Step mirrors the client's grid column and is relayed
// untouched; Time in seconds is authoritative.
type NoteToggleEvent struct {
	Type     string  `json:"type"`
	Note     int     `json:"note"`
	Step     int     `json:"step"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration,omitempty"`
	Velocity int     `json:"velocity,omitempty"`
	TrackID  string  `json:"trackId,omitempty"`
	On       *bool   `json:"on,omitempty"`
}

// ServerMessage is the envelope for peer broadcasts.
type ServerMessage struct {
	Type      string          `json:"type"`
	ProjectID uint            `json:"projectId"`
	Event     NoteToggleEvent `json:"event"`
}

// Session is one connected client on the realtime channel.
type Session struct {
	hub    *Hub
	engine *Engine
	conn   *websocket.Conn
	userID uint
	send   chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware on the HTTP
	// side; the socket endpoint accepts any origin that got this far.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the session pumps. userID comes from
// the authenticated HTTP request that opened the socket.
func ServeWS(hub *Hub, engine *Engine, w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	s := &Session{
		hub:    hub,
		engine: engine,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
	hub.Register(s)

	go s.writePump()
	go s.readPump()
	return nil
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Socket closed unexpectedly", logger.Fields{"error": err.Error()})
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Best-effort channel: malformed frames are dropped.
			continue
		}

		switch msg.Type {
		case MessageJoinProject:
			if msg.ProjectID != 0 {
				s.hub.Subscribe(s, msg.ProjectID)
			}
		case MessageMidiEvent:
			if msg.ProjectID != 0 && msg.Event != nil {
				s.engine.HandleToggle(s, msg.ProjectID, *msg.Event)
			}
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// toModelEvent converts the wire toggle to the persisted note shape.
func (e NoteToggleEvent) toModelEvent() models.NoteEvent {
	return models.NoteEvent{
		Type:     models.EventTypeNote,
		Note:     e.Note,
		Time:     e.Time,
		Duration: e.Duration,
		Velocity: e.Velocity,
		TrackID:  e.TrackID,
	}
}
