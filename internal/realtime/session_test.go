package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbeat/gridbeat-api/internal/models"
	"github.com/gridbeat/gridbeat-api/internal/services"
)

func dialSession(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestSocketToggleFanout(t *testing.T) {
	store := &stubStore{result: &services.ToggleResult{
		On: true,
		Event: models.NoteEvent{
			Type: models.EventTypeNote, Note: 60, Time: 0.75,
			Duration: 0.25, Velocity: 100, TrackID: "t1",
		},
	}}
	hub := NewHub()
	engine := NewEngine(store, hub, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, ServeWS(hub, engine, w, r, 1))
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	alice := dialSession(t, wsURL)
	bob := dialSession(t, wsURL)

	join := ClientMessage{Type: MessageJoinProject, ProjectID: 7}
	require.NoError(t, alice.WriteJSON(join))
	require.NoError(t, bob.WriteJSON(join))

	// Joining is asynchronous from the dial; wait until both sessions are in
	// the room before toggling.
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms[7]) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(ClientMessage{
		Type:      MessageMidiEvent,
		ProjectID: 7,
		Event: &NoteToggleEvent{
			Type: EventNoteToggle, Note: 60, Step: 3, Time: 0.75, TrackID: "t1",
		},
	}))

	msg := readServerMessage(t, bob)
	assert.Equal(t, MessageMidiEvent, msg.Type)
	assert.Equal(t, uint(7), msg.ProjectID)
	assert.Equal(t, 60, msg.Event.Note)
	assert.Equal(t, 3, msg.Event.Step)
	require.NotNil(t, msg.Event.On)
	assert.True(t, msg.Event.On != nil && *msg.Event.On)

	// Alice gets nothing back for her own toggle.
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err, "origin should time out waiting for an echo")
}

func TestSocketMalformedFramesIgnored(t *testing.T) {
	store := &stubStore{}
	hub := NewHub()
	engine := NewEngine(store, hub, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, ServeWS(hub, engine, w, r, 1))
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn := dialSession(t, wsURL)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "unknown", ProjectID: 1}))

	// The connection survives: a join after the garbage still works.
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageJoinProject, ProjectID: 3}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms[3]) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, store.calls)
}
