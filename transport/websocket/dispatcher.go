package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/wricardo/dual-screen-racer/game/service"
	"github.com/wricardo/dual-screen-racer/game/session"
)

// Inbound event names. These are the strings the display and controller
// clients emit.
const (
	EventRequestActiveSessions = "request_active_sessions"
	EventCreateSession         = "create_session"
	EventReconnectHost         = "reconnect_host"
	EventJoinSession           = "join_session"
	EventPlayerReady           = "player_ready"
	EventRequestReplay         = "request_replay"
	EventUpdateName            = "update_name"
	EventStartTurn             = "start_turn"
	EventStopTurn              = "stop_turn"
	EventSteer                 = "steer"
	EventGameOver              = "game_over"
)

// Transport is the broadcast collaborator the dispatcher sends through. The
// Hub implements it; tests substitute a recorder.
type Transport interface {
	JoinGroup(group, connID string)
	LeaveGroup(group, connID string)
	SendTo(connID, event string, payload any)
	SendToOthers(group, senderID, event string, payload any)
	SendToAll(group, event string, payload any)
}

// Dispatcher routes inbound events to service operations and converts the
// resulting notifications into transport sends. It also owns the canonical
// per-connection membership record, so a transport-level disconnect maps to
// exactly one roster removal regardless of how many times the client joined
// and left before.
type Dispatcher struct {
	service   service.GameService
	transport Transport

	mu sync.Mutex
	// membership maps a controller connection to the session it joined.
	membership map[string]string
	// hosting maps a display connection to the session it owns.
	hosting map[string]string
}

// NewDispatcher creates a dispatcher bound to a service and a transport.
func NewDispatcher(svc service.GameService, transport Transport) *Dispatcher {
	return &Dispatcher{
		service:    svc,
		transport:  transport,
		membership: make(map[string]string),
		hosting:    make(map[string]string),
	}
}

// sessionCodeData is the payload shape shared by most controller events.
type sessionCodeData struct {
	SessionCode string `json:"sessionCode"`
}

type updateNameData struct {
	SessionCode string `json:"sessionCode"`
	Name        string `json:"name"`
}

type gameOverData struct {
	SessionCode string   `json:"sessionCode"`
	Score       *float64 `json:"score"`
}

// relayPayload wraps a relayed input event with the sender's identity.
type relayPayload struct {
	PlayerID string          `json:"playerId"`
	Data     json.RawMessage `json:"data,omitempty"`
}

type availableSessionsPayload struct {
	Sessions []session.OpenSession `json:"sessions"`
}

type hostReconnectedPayload struct {
	SessionCode string               `json:"sessionCode"`
	Players     []session.PlayerInfo `json:"players"`
}

// HandleEvent processes one inbound frame. Malformed events are dropped
// without a reply; only targeted error notifications ever go back to the
// sender.
func (d *Dispatcher) HandleEvent(connID, event string, data json.RawMessage) {
	ctx := context.Background()

	switch event {
	case EventRequestActiveSessions:
		open := d.service.OpenSessions(ctx)
		d.transport.SendTo(connID, session.EventAvailableSessionsList, availableSessionsPayload{Sessions: open})

	case EventCreateSession:
		code, err := d.service.CreateSession(ctx, connID)
		if err != nil {
			log.Printf("create_session from %s failed: %v", connID, err)
			return
		}
		d.releaseHosting(ctx, connID, code)
		d.setHosting(connID, code)
		d.transport.JoinGroup(code, connID)
		d.transport.SendTo(connID, session.EventSessionCreated, session.SessionCreatedPayload{SessionCode: code})
		log.Printf("Session %s created by %s", code, connID)

	case EventReconnectHost:
		var payload sessionCodeData
		if !decode(data, &payload, connID, event) || payload.SessionCode == "" {
			return
		}
		roster, err := d.service.ReconnectHost(ctx, payload.SessionCode, connID)
		if err != nil {
			d.transport.SendTo(connID, session.EventSessionNotFound, session.ReasonPayload{Reason: "session not found"})
			return
		}
		d.releaseHosting(ctx, connID, payload.SessionCode)
		d.setHosting(connID, payload.SessionCode)
		d.transport.JoinGroup(payload.SessionCode, connID)
		d.transport.SendTo(connID, session.EventHostReconnected, hostReconnectedPayload{
			SessionCode: payload.SessionCode,
			Players:     roster,
		})
		log.Printf("Host %s reconnected to session %s", connID, payload.SessionCode)

	case EventJoinSession:
		var payload sessionCodeData
		if !decode(data, &payload, connID, event) || payload.SessionCode == "" {
			return
		}
		d.leaveCurrentSession(ctx, connID)
		notes, err := d.service.JoinSession(ctx, payload.SessionCode, connID)
		if err != nil {
			d.transport.SendTo(connID, session.EventInvalidSession, session.ReasonPayload{Reason: joinRejection(err)})
			return
		}
		d.setMembership(connID, payload.SessionCode)
		d.transport.JoinGroup(payload.SessionCode, connID)
		d.deliver(payload.SessionCode, connID, notes)
		log.Printf("Client %s joined session %s", connID, payload.SessionCode)

	case EventPlayerReady:
		var payload sessionCodeData
		if !decode(data, &payload, connID, event) || payload.SessionCode == "" {
			return
		}
		notes, err := d.service.MarkReady(ctx, payload.SessionCode, connID)
		if err != nil {
			log.Printf("player_ready from %s dropped: %v", connID, err)
			return
		}
		d.deliver(payload.SessionCode, connID, notes)

	case EventRequestReplay:
		var payload sessionCodeData
		if !decode(data, &payload, connID, event) || payload.SessionCode == "" {
			return
		}
		notes, err := d.service.RequestReplay(ctx, payload.SessionCode, connID)
		if err != nil {
			log.Printf("request_replay from %s dropped: %v", connID, err)
			return
		}
		d.deliver(payload.SessionCode, connID, notes)

	case EventUpdateName:
		var payload updateNameData
		if !decode(data, &payload, connID, event) || payload.SessionCode == "" || payload.Name == "" {
			return
		}
		notes, err := d.service.RenamePlayer(ctx, payload.SessionCode, connID, payload.Name)
		if errors.Is(err, session.ErrNameTaken) {
			d.transport.SendTo(connID, session.EventNameAlreadyTaken, session.ReasonPayload{Reason: "name already taken"})
			return
		}
		if err != nil {
			log.Printf("update_name from %s dropped: %v", connID, err)
			return
		}
		d.deliver(payload.SessionCode, connID, notes)

	case EventGameOver:
		var payload gameOverData
		if !decode(data, &payload, connID, event) || payload.SessionCode == "" || payload.Score == nil {
			return
		}
		notes, err := d.service.ReportGameOver(ctx, payload.SessionCode, *payload.Score)
		if err != nil {
			log.Printf("game_over from %s dropped: %v", connID, err)
			return
		}
		d.deliver(payload.SessionCode, connID, notes)

	case EventStartTurn, EventStopTurn, EventSteer:
		// Input relays go straight to the rest of the group, tagged with the
		// sender; the session state machine is not involved.
		var payload sessionCodeData
		if !decode(data, &payload, connID, event) || payload.SessionCode == "" {
			return
		}
		d.transport.SendToOthers(payload.SessionCode, connID, event, relayPayload{
			PlayerID: connID,
			Data:     data,
		})

	default:
		log.Printf("Dropping unknown event %q from %s", event, connID)
	}
}

// HandleDisconnect resolves which session the connection belonged to and
// removes it. The hub has already torn down the connection's group
// memberships.
func (d *Dispatcher) HandleDisconnect(connID string) {
	d.mu.Lock()
	playerCode, wasPlayer := d.membership[connID]
	delete(d.membership, connID)
	hostCode, wasHost := d.hosting[connID]
	delete(d.hosting, connID)
	d.mu.Unlock()

	ctx := context.Background()
	if wasPlayer {
		notes := d.service.LeaveSession(ctx, playerCode, connID)
		d.deliver(playerCode, connID, notes)
	}
	if wasHost {
		d.service.HostDisconnected(ctx, hostCode, connID)
	}
}

// Publish implements session.Notifier for timer-driven transitions. Those
// have no originating connection, so every notification addresses the whole
// group.
func (d *Dispatcher) Publish(sessionCode string, notes []session.Notification) {
	for _, n := range notes {
		d.transport.SendToAll(sessionCode, n.Event, n.Payload)
	}
}

// deliver fans a notification set out through the transport.
func (d *Dispatcher) deliver(sessionCode, senderID string, notes []session.Notification) {
	for _, n := range notes {
		switch n.Scope {
		case session.ToSender:
			d.transport.SendTo(senderID, n.Event, n.Payload)
		case session.ToOthers:
			d.transport.SendToOthers(sessionCode, senderID, n.Event, n.Payload)
		case session.ToAll:
			d.transport.SendToAll(sessionCode, n.Event, n.Payload)
		}
	}
}

func (d *Dispatcher) setMembership(connID, code string) {
	d.mu.Lock()
	d.membership[connID] = code
	d.mu.Unlock()
}

func (d *Dispatcher) setHosting(connID, code string) {
	d.mu.Lock()
	d.hosting[connID] = code
	d.mu.Unlock()
}

// leaveCurrentSession runs the full leave path for whatever session the
// connection currently belongs to. A connection holds at most one membership,
// so joining again moves the player instead of leaving a stale roster entry
// behind.
func (d *Dispatcher) leaveCurrentSession(ctx context.Context, connID string) {
	d.mu.Lock()
	code, ok := d.membership[connID]
	delete(d.membership, connID)
	d.mu.Unlock()
	if !ok {
		return
	}

	notes := d.service.LeaveSession(ctx, code, connID)
	d.transport.LeaveGroup(code, connID)
	d.deliver(code, connID, notes)
	log.Printf("Client %s left session %s", connID, code)
}

// releaseHosting reports a host disconnect for any session the connection
// owned before keepCode, so an abandoned session is not orphaned with a live
// hosting record. Re-hosting the same code is a no-op.
func (d *Dispatcher) releaseHosting(ctx context.Context, connID, keepCode string) {
	d.mu.Lock()
	code, ok := d.hosting[connID]
	if ok && code != keepCode {
		delete(d.hosting, connID)
	}
	d.mu.Unlock()
	if !ok || code == keepCode {
		return
	}

	d.service.HostDisconnected(ctx, code, connID)
	d.transport.LeaveGroup(code, connID)
	log.Printf("Host %s released session %s", connID, code)
}

// decode unmarshals an event payload, dropping the event on malformed JSON.
func decode(data json.RawMessage, v any, connID, event string) bool {
	if len(data) == 0 {
		log.Printf("Dropping %s from %s: missing payload", event, connID)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("Dropping %s from %s: %v", event, connID, err)
		return false
	}
	return true
}

// joinRejection maps a join error to the reason string carried by
// invalid_session.
func joinRejection(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionFull):
		return "session is full"
	case errors.Is(err, session.ErrAlreadyStarted):
		return "game already started"
	default:
		return "session not found"
	}
}
