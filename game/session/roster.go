package session

import (
	"fmt"
	"sort"
)

// Capacity is the maximum number of concurrently connected players per session.
const Capacity = 10

// roster tracks the players of one session. It enforces the capacity, name
// uniqueness, and color uniqueness invariants; the surrounding Session decides
// when mutations are legal.
type roster struct {
	players map[string]*Player
	joinSeq int
}

func newRoster() *roster {
	return &roster{players: make(map[string]*Player)}
}

func (r *roster) count() int {
	return len(r.players)
}

func (r *roster) get(connID string) (*Player, bool) {
	p, ok := r.players[connID]
	return p, ok
}

// add inserts a new player for connID with a default name and an allocated
// color. It fails with ErrSessionFull at capacity and ErrAlreadyJoined when
// the connection already holds a player, so a player is never replaced in
// place.
func (r *roster) add(connID string) (*Player, error) {
	if _, ok := r.players[connID]; ok {
		return nil, ErrAlreadyJoined
	}
	if len(r.players) >= Capacity {
		return nil, ErrSessionFull
	}

	r.joinSeq++
	p := &Player{
		ID:        connID,
		Name:      r.defaultName(r.joinSeq),
		Color:     allocateColor(r.colorInUse),
		joinOrder: r.joinSeq,
	}
	r.players[connID] = p
	return p, nil
}

// remove deletes the player for connID and returns it, or nil if absent.
// The player's color becomes allocatable again immediately.
func (r *roster) remove(connID string) *Player {
	p, ok := r.players[connID]
	if !ok {
		return nil
	}
	delete(r.players, connID)
	return p
}

// rename changes a player's name, rejecting names held by any other current
// player. Renaming to the player's own current name is allowed.
func (r *roster) rename(connID, name string) (*Player, error) {
	p, ok := r.players[connID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if r.nameInUse(name, connID) {
		return nil, ErrNameTaken
	}
	p.Name = name
	return p, nil
}

// defaultName returns "Player {n}", bumping n past any name a previous player
// claimed through a rename.
func (r *roster) defaultName(n int) string {
	for {
		name := fmt.Sprintf("Player %d", n)
		if !r.nameInUse(name, "") {
			return name
		}
		n++
	}
}

func (r *roster) nameInUse(name, exceptConnID string) bool {
	for id, p := range r.players {
		if id != exceptConnID && p.Name == name {
			return true
		}
	}
	return false
}

func (r *roster) colorInUse(color string) bool {
	for _, p := range r.players {
		if p.Color == color {
			return true
		}
	}
	return false
}

// allReady reports whether every present player is ready. An empty roster is
// never ready; an empty lobby must not auto-start.
func (r *roster) allReady() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// allWantReplay reports whether every present player voted to replay. The
// empty case is handled by the caller, which routes it to the idle-session
// path instead.
func (r *roster) allWantReplay() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.WantsReplay {
			return false
		}
	}
	return true
}

// resetForLobby clears both votes on every player, as required on any entry to
// the lobby state.
func (r *roster) resetForLobby() {
	for _, p := range r.players {
		p.IsReady = false
		p.WantsReplay = false
	}
}

// resetForGame clears replay votes on game start so a stale vote from the
// previous round cannot satisfy the next replay barrier.
func (r *roster) resetForGame() {
	for _, p := range r.players {
		p.WantsReplay = false
	}
}

// snapshot returns the roster in join order.
func (r *roster) snapshot() []PlayerInfo {
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].joinOrder < players[j].joinOrder
	})

	infos := make([]PlayerInfo, len(players))
	for i, p := range players {
		infos[i] = p.Info()
	}
	return infos
}
