package session

// Player is one connected controller inside a session. A Player lives exactly
// as long as its connection is a member of the roster; a reconnect produces a
// brand-new Player with a new connection ID.
type Player struct {
	// ID is the transport connection identity, stable for the life of one
	// connection.
	ID string

	// Name is the player's label, unique within the session. Defaults to
	// "Player {n}" by join order and can be changed with a rename.
	Name string

	// Color is a palette entry, unique within the session until the palette
	// overflows.
	Color string

	// IsReady marks the lobby readiness vote. Reset on every entry to the lobby.
	IsReady bool

	// WantsReplay marks the post-game replay vote. Reset on entry to the lobby
	// and on game start.
	WantsReplay bool

	joinOrder int
}

// Info returns the wire representation of the player.
func (p *Player) Info() PlayerInfo {
	return PlayerInfo{
		ID:          p.ID,
		Name:        p.Name,
		Color:       p.Color,
		IsReady:     p.IsReady,
		WantsReplay: p.WantsReplay,
	}
}
