package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Controllers connect from phones on arbitrary origins.
		return true
	},
}

// Message is one outbound WebSocket frame.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// inboundFrame is one frame received from a client.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler consumes inbound traffic from the hub. The Dispatcher implements it.
type Handler interface {
	// HandleEvent is called once per well-formed inbound frame, on the
	// connection's reader goroutine.
	HandleEvent(connID, event string, data json.RawMessage)

	// HandleDisconnect is called after a connection is gone and has been
	// removed from every group.
	HandleDisconnect(connID string)
}

// Client represents one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub maintains the set of active connections and the per-session broadcast
// groups.
type Hub struct {
	mu sync.RWMutex

	// clients indexes every live connection by its generated ID.
	clients map[string]*Client

	// groups maps a session code to the member connections.
	groups map[string]map[string]*Client

	// memberOf maps a connection ID to the groups it belongs to, so teardown
	// does not scan every group.
	memberOf map[string]map[string]bool

	handler Handler

	// Register requests from clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]*Client),
		memberOf:   make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetHandler attaches the inbound handler. Must be called before Run.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// Run starts the hub's connection lifecycle loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// ServeWS upgrades an HTTP request and starts the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.NewString(),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// JoinGroup adds a connection to a session's broadcast group.
func (h *Hub) JoinGroup(group, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]*Client)
	}
	h.groups[group][connID] = client
	if h.memberOf[connID] == nil {
		h.memberOf[connID] = make(map[string]bool)
	}
	h.memberOf[connID][group] = true
}

// LeaveGroup removes a connection from a session's broadcast group.
func (h *Hub) LeaveGroup(group, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveGroupLocked(group, connID)
}

func (h *Hub) leaveGroupLocked(group, connID string) {
	if members, ok := h.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	if groups, ok := h.memberOf[connID]; ok {
		delete(groups, group)
		if len(groups) == 0 {
			delete(h.memberOf, connID)
		}
	}
}

// SendTo sends an event to a single connection.
func (h *Hub) SendTo(connID, event string, payload any) {
	data, ok := marshalMessage(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	client, found := h.clients[connID]
	h.mu.RUnlock()
	if found {
		client.enqueue(data)
	}
}

// SendToOthers sends an event to every group member except the sender.
func (h *Hub) SendToOthers(group, senderID, event string, payload any) {
	data, ok := marshalMessage(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, client := range h.groups[group] {
		if id != senderID {
			client.enqueue(data)
		}
	}
}

// SendToAll sends an event to every member of a group, sender included.
func (h *Hub) SendToAll(group, event string, payload any) {
	data, ok := marshalMessage(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.groups[group] {
		client.enqueue(data)
	}
}

// GroupSize returns the number of connections in a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

func marshalMessage(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", event, err)
		return nil, false
	}
	return data, true
}

// registerClient adds a freshly upgraded connection.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("Client %s connected (total clients: %d)", client.id, total)
}

// unregisterClient tears a connection down: it leaves every group, then the
// handler gets a chance to update the roster it belonged to.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	for group := range h.memberOf[client.id] {
		h.leaveGroupLocked(group, client.id)
	}
	close(client.send)
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("Client %s disconnected (total clients: %d)", client.id, total)

	if h.handler != nil {
		h.handler.HandleDisconnect(client.id)
	}
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		// Slow consumer; drop the connection rather than block the hub.
		go func() { c.hub.unregister <- c }()
	}
}

// readPump pumps frames from the WebSocket connection into the handler.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			// Malformed frames are dropped without a reply.
			log.Printf("Dropping malformed frame from %s", c.id)
			continue
		}

		if c.hub.handler != nil {
			c.hub.handler.HandleEvent(c.id, frame.Event, frame.Data)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
