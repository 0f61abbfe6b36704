package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSignalServer(t *testing.T) (*SignalHub, *httptest.Server) {
	t.Helper()

	hub := NewSignalHub()
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if err := hub.ServeSignalWS(w, r, userID); err != nil {
			t.Logf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(server.Close)

	return hub, server
}

func dialSignal(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) SignalEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event SignalEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestSignalHub_PresenceOnConnect(t *testing.T) {
	_, server := startSignalServer(t)

	alice := dialSignal(t, server, "alice")

	event := readEvent(t, alice)
	assert.Equal(t, SignalPresence, event.Type)
	assert.Contains(t, event.Online, "alice")

	// A second connection triggers a fresh presence broadcast to everyone.
	dialSignal(t, server, "bob")

	event = readEvent(t, alice)
	assert.Equal(t, SignalPresence, event.Type)
	assert.Contains(t, event.Online, "alice")
	assert.Contains(t, event.Online, "bob")
}

func TestSignalHub_RelaysCallEvents(t *testing.T) {
	_, server := startSignalServer(t)

	alice := dialSignal(t, server, "alice")
	bob := dialSignal(t, server, "bob")

	// Drain initial presence traffic.
	readEvent(t, alice)
	readEvent(t, alice)
	readEvent(t, bob)

	require.NoError(t, alice.WriteJSON(SignalEvent{
		Type: SignalCallOffer,
		// A forged sender id is overwritten by the connection identity.
		From: "mallory",
		To:   "bob",
	}))

	event := readEvent(t, bob)
	assert.Equal(t, SignalCallOffer, event.Type)
	assert.Equal(t, "alice", event.From)
	assert.Equal(t, "bob", event.To)
}

func TestSignalHub_DropsUnknownEventTypes(t *testing.T) {
	_, server := startSignalServer(t)

	alice := dialSignal(t, server, "alice")
	bob := dialSignal(t, server, "bob")

	readEvent(t, alice)
	readEvent(t, alice)
	readEvent(t, bob)

	require.NoError(t, alice.WriteJSON(SignalEvent{Type: "shutdown_everything", To: "bob"}))
	require.NoError(t, alice.WriteJSON(SignalEvent{Type: SignalCallEnd, To: "bob"}))

	// Only the call event arrives.
	event := readEvent(t, bob)
	assert.Equal(t, SignalCallEnd, event.Type)
	assert.Equal(t, "alice", event.From)
}
