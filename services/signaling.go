package services

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Signal event types relayed between connected users
const (
	SignalPresence      = "presence"
	SignalCallOffer     = "call_offer"
	SignalCallAnswer    = "call_answer"
	SignalCallCandidate = "call_candidate"
	SignalCallEnd       = "call_end"
)

const (
	signalWriteWait  = 10 * time.Second
	signalPongWait   = 60 * time.Second
	signalPingPeriod = 54 * time.Second
	signalMaxMsgSize = 8192
)

// SignalEvent is one message relayed through the hub. Call events carry an
// opaque payload that is re-emitted to the target user's room untouched.
type SignalEvent struct {
	Type    string          `json:"type"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Online  []string        `json:"online,omitempty"`
}

// signalClient is one websocket connection. All per-connection state lives
// here, owned by the connection's pumps; the hub only sees channel traffic.
type signalClient struct {
	hub    *SignalHub
	conn   *websocket.Conn
	send   chan SignalEvent
	userID string
}

// SignalHub relays presence and call events between users. Rooms are keyed
// by user id; a user may hold several connections (tabs, devices).
type SignalHub struct {
	register   chan *signalClient
	unregister chan *signalClient
	relay      chan SignalEvent
	rooms      map[string]map[*signalClient]bool
}

// NewSignalHub creates an idle hub; call Run in a goroutine to start it
func NewSignalHub() *SignalHub {
	return &SignalHub{
		register:   make(chan *signalClient),
		unregister: make(chan *signalClient),
		relay:      make(chan SignalEvent, 64),
		rooms:      make(map[string]map[*signalClient]bool),
	}
}

// Run owns the room map; all mutations go through the hub's channels
func (h *SignalHub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.rooms[client.userID] == nil {
				h.rooms[client.userID] = make(map[*signalClient]bool)
			}
			h.rooms[client.userID][client] = true
			h.broadcastPresence()
		case client := <-h.unregister:
			if room, ok := h.rooms[client.userID]; ok {
				if room[client] {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.userID)
					}
					h.broadcastPresence()
				}
			}
		case event := <-h.relay:
			h.deliver(event)
		}
	}
}

// Online returns the ids of all connected users (hub goroutine only)
func (h *SignalHub) online() []string {
	users := make([]string, 0, len(h.rooms))
	for userID := range h.rooms {
		users = append(users, userID)
	}
	return users
}

// broadcastPresence pushes the current online list to every connection
func (h *SignalHub) broadcastPresence() {
	event := SignalEvent{Type: SignalPresence, Online: h.online()}
	for _, room := range h.rooms {
		for client := range room {
			select {
			case client.send <- event:
			default:
				// Slow consumer; drop the presence update for it.
			}
		}
	}
}

// deliver re-emits an event to every connection in the target user's room
func (h *SignalHub) deliver(event SignalEvent) {
	room, ok := h.rooms[event.To]
	if !ok {
		return
	}
	for client := range room {
		select {
		case client.send <- event:
		default:
		}
	}
}

var signalUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the router level
		return true
	},
}

// ServeSignalWS upgrades an authenticated request and attaches the
// connection to the hub under the given user id.
func (h *SignalHub) ServeSignalWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := signalUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &signalClient{
		hub:    h,
		conn:   conn,
		send:   make(chan SignalEvent, 16),
		userID: userID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump forwards inbound call events to the hub until the connection dies
func (c *signalClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			_ = err
		}
	}()

	c.conn.SetReadLimit(signalMaxMsgSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(signalPongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(signalPongWait))
	})

	for {
		var event SignalEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Signaling connection error for user %s: %v", c.userID, err)
			}
			return
		}

		switch event.Type {
		case SignalCallOffer, SignalCallAnswer, SignalCallCandidate, SignalCallEnd:
			// The sender identity always comes from the connection, not
			// from the payload.
			event.From = c.userID
			c.hub.relay <- event
		default:
			// Unknown event types are dropped.
		}
	}
}

// writePump drains the send channel onto the connection and keeps it alive
func (c *signalClient) writePump() {
	ticker := time.NewTicker(signalPingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			_ = err
		}
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(signalWriteWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(signalWriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
