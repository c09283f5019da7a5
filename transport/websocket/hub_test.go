package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// recordingHandler captures the inbound traffic the hub delivers.
type recordingHandler struct {
	mu          sync.Mutex
	events      []recordedEvent
	disconnects []string
}

type recordedEvent struct {
	connID string
	event  string
	data   json.RawMessage
}

func (r *recordingHandler) HandleEvent(connID, event string, data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{connID: connID, event: event, data: data})
}

func (r *recordingHandler) HandleDisconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, connID)
}

func (r *recordingHandler) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recordingHandler) disconnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.disconnects)
}

func newTestClient(hub *Hub, id string) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
		id:   id,
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}

	if hub.groups == nil {
		t.Error("Hub groups map is nil")
	}

	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}

	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "conn-1")

	hub.registerClient(client)

	if hub.clientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.clientCount())
	}
}

func TestHubGroups(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient(hub, "conn-1")
	client2 := newTestClient(hub, "conn-2")
	hub.registerClient(client1)
	hub.registerClient(client2)

	hub.JoinGroup("123456", "conn-1")
	hub.JoinGroup("123456", "conn-2")

	if size := hub.GroupSize("123456"); size != 2 {
		t.Errorf("Expected 2 members, got %d", size)
	}

	// Joining under an unknown connection ID must not create a phantom member.
	hub.JoinGroup("123456", "conn-missing")
	if size := hub.GroupSize("123456"); size != 2 {
		t.Errorf("Unknown connection joined the group, size %d", size)
	}

	hub.LeaveGroup("123456", "conn-1")
	if size := hub.GroupSize("123456"); size != 1 {
		t.Errorf("Expected 1 member after leave, got %d", size)
	}

	// The group map entry is removed with its last member.
	hub.LeaveGroup("123456", "conn-2")
	hub.mu.RLock()
	_, exists := hub.groups["123456"]
	hub.mu.RUnlock()
	if exists {
		t.Error("Empty group should have been cleaned up")
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	handler := &recordingHandler{}
	hub.SetHandler(handler)

	client := newTestClient(hub, "conn-1")
	hub.registerClient(client)
	hub.JoinGroup("123456", "conn-1")

	hub.unregisterClient(client)

	if hub.clientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.clientCount())
	}
	if size := hub.GroupSize("123456"); size != 0 {
		t.Errorf("Expected the group to be empty, got %d", size)
	}
	if handler.disconnectCount() != 1 {
		t.Errorf("Expected 1 disconnect callback, got %d", handler.disconnectCount())
	}

	// A second unregister for the same client is a no-op.
	hub.unregisterClient(client)
	if handler.disconnectCount() != 1 {
		t.Errorf("Disconnect callback fired twice, got %d", handler.disconnectCount())
	}
}

func TestHubSendTo(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "conn-1")
	hub.registerClient(client)

	hub.SendTo("conn-1", "session_created", map[string]string{"sessionCode": "123456"})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != "session_created" {
			t.Errorf("Expected event 'session_created', got %s", message.Event)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}

	// Sending to an unknown connection must not panic or deliver anywhere.
	hub.SendTo("conn-missing", "session_created", nil)
}

func TestHubSendToOthers(t *testing.T) {
	hub := NewHub()
	sender := newTestClient(hub, "sender")
	other := newTestClient(hub, "other")
	hub.registerClient(sender)
	hub.registerClient(other)
	hub.JoinGroup("123456", "sender")
	hub.JoinGroup("123456", "other")

	hub.SendToOthers("123456", "sender", "player_joined", nil)

	select {
	case <-other.send:
	case <-time.After(100 * time.Millisecond):
		t.Error("Other group member received nothing")
	}

	select {
	case <-sender.send:
		t.Error("Sender must be excluded from the broadcast")
	default:
	}
}

func TestHubSendToAll(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient(hub, "conn-1")
	client2 := newTestClient(hub, "conn-2")
	outsider := newTestClient(hub, "conn-3")
	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.registerClient(outsider)
	hub.JoinGroup("123456", "conn-1")
	hub.JoinGroup("123456", "conn-2")

	hub.SendToAll("123456", "start_game_for_all", nil)

	for _, c := range []*Client{client1, client2} {
		select {
		case <-c.send:
		case <-time.After(100 * time.Millisecond):
			t.Errorf("Group member %s received nothing", c.id)
		}
	}

	select {
	case <-outsider.send:
		t.Error("Connection outside the group must not receive the broadcast")
	default:
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub()
	handler := &recordingHandler{}
	hub.SetHandler(handler)

	// Start hub in background
	go hub.Run()

	// Create a test HTTP server
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	// Convert HTTP URL to WebSocket URL
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	// Connect to WebSocket
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	// Give some time for registration
	time.Sleep(50 * time.Millisecond)

	if hub.clientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.clientCount())
	}

	// Close connection
	conn.Close()

	// Give some time for unregistration
	time.Sleep(50 * time.Millisecond)

	if hub.clientCount() != 0 {
		t.Errorf("Expected 0 clients after close, got %d", hub.clientCount())
	}
	if handler.disconnectCount() != 1 {
		t.Errorf("Expected 1 disconnect callback, got %d", handler.disconnectCount())
	}
}

func TestWebSocketInboundFrames(t *testing.T) {
	hub := NewHub()
	handler := &recordingHandler{}
	hub.SetHandler(handler)

	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	time.Sleep(10 * time.Millisecond)

	// A malformed frame and a frame without an event are dropped, and the
	// connection stays open for the well-formed frame that follows.
	frames := []string{
		`{not json`,
		`{"data": {"sessionCode": "123456"}}`,
		`{"event": "join_session", "data": {"sessionCode": "123456"}}`,
	}
	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("Failed to write frame: %v", err)
		}
	}

	time.Sleep(50 * time.Millisecond)

	if handler.eventCount() != 1 {
		t.Fatalf("Expected 1 delivered event, got %d", handler.eventCount())
	}

	handler.mu.Lock()
	got := handler.events[0]
	handler.mu.Unlock()
	if got.event != "join_session" {
		t.Errorf("Expected event 'join_session', got %s", got.event)
	}
	var payload struct {
		SessionCode string `json:"sessionCode"`
	}
	if err := json.Unmarshal(got.data, &payload); err != nil {
		t.Fatalf("Failed to unmarshal delivered data: %v", err)
	}
	if payload.SessionCode != "123456" {
		t.Errorf("Expected sessionCode 123456, got %s", payload.SessionCode)
	}
}
