package session

// Outbound event names. The controller and display clients key off these
// strings, so they are part of the wire contract.
const (
	EventSessionCreated        = "session_created"
	EventInvalidSession        = "invalid_session"
	EventLobbyJoined           = "lobby_joined"
	EventPlayerJoined          = "player_joined"
	EventPlayerStatusUpdated   = "player_status_updated"
	EventStartGameForAll       = "start_game_for_all"
	EventPlayerWantsToReplay   = "player_wants_to_replay"
	EventReturnToLobby         = "return_to_lobby"
	EventPlayerLeft            = "player_left"
	EventPlayerNameUpdated     = "player_name_updated"
	EventNameAlreadyTaken      = "name_already_taken"
	EventGameOver              = "game_over"
	EventSessionNotFound       = "session_not_found"
	EventHostReconnected       = "host_reconnected"
	EventAvailableSessionsList = "available_sessions_list"
)

// Scope selects which connections in a session group receive a notification.
type Scope int

const (
	// ToSender targets only the connection whose event produced the notification.
	ToSender Scope = iota
	// ToOthers targets every connection in the group except the sender.
	ToOthers
	// ToAll targets every connection in the group, sender included.
	ToAll
)

// Notification is one outbound message produced by a session operation. The
// transport layer turns it into an actual send; this package only declares
// intent.
type Notification struct {
	Scope   Scope
	Event   string
	Payload any
}

func toSender(event string, payload any) Notification {
	return Notification{Scope: ToSender, Event: event, Payload: payload}
}

func toOthers(event string, payload any) Notification {
	return Notification{Scope: ToOthers, Event: event, Payload: payload}
}

func toAll(event string, payload any) Notification {
	return Notification{Scope: ToAll, Event: event, Payload: payload}
}

// Notifier delivers notifications that originate outside a client event, such
// as a replay-return timer firing. The websocket dispatcher implements it.
type Notifier interface {
	Publish(sessionCode string, notes []Notification)
}

// PlayerInfo is the wire representation of one player.
type PlayerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	IsReady     bool   `json:"isReady"`
	WantsReplay bool   `json:"wantsReplay"`
}

// SessionCreatedPayload is sent to the display after create_session.
type SessionCreatedPayload struct {
	SessionCode string `json:"sessionCode"`
}

// LobbyJoinedPayload is sent to a controller after a successful join.
type LobbyJoinedPayload struct {
	SessionCode string       `json:"sessionCode"`
	Player      PlayerInfo   `json:"player"`
	Players     []PlayerInfo `json:"players"`
}

// PlayerPayload carries a single player's current record.
type PlayerPayload struct {
	Player PlayerInfo `json:"player"`
}

// RosterPayload carries the full roster, ordered by join sequence.
type RosterPayload struct {
	Players []PlayerInfo `json:"players"`
}

// ScorePayload carries the final score reported by the display.
type ScorePayload struct {
	Score float64 `json:"score"`
}

// ReasonPayload explains why a join or lookup was rejected.
type ReasonPayload struct {
	Reason string `json:"reason"`
}

// OpenSession is one entry in the available-sessions listing.
type OpenSession struct {
	SessionCode string `json:"sessionCode"`
	PlayerCount int    `json:"playerCount"`
}
