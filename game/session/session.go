package session

import (
	"time"
)

// State is a session's lifecycle phase.
type State string

const (
	// StateLobby accepts joins and readiness votes.
	StateLobby State = "lobby"
	// StateInGame means gameplay is in progress; no joins are accepted.
	StateInGame State = "in_game"
	// StateGameOver means final scores are posted and replay votes are open.
	StateGameOver State = "game_over"
)

// Session is one game's isolated state container. All methods are unexported
// and must be called with the owning Registry's lock held; the Registry is the
// only entry point.
type Session struct {
	code      string
	host      string
	state     State
	roster    *roster
	createdAt time.Time

	// replayTimer is armed on entry to GameOver and cleared on any return to
	// the lobby. At most one per game-over episode.
	replayTimer *time.Timer

	// idleTimer is armed whenever the player count reaches zero. The reaper
	// re-checks emptiness at fire time.
	idleTimer *time.Timer
}

func newSession(code, hostConnID string) *Session {
	return &Session{
		code:      code,
		host:      hostConnID,
		state:     StateLobby,
		roster:    newRoster(),
		createdAt: time.Now(),
	}
}

// join adds a controller to the session. Valid only in the lobby and below
// capacity.
func (s *Session) join(connID string) ([]Notification, error) {
	if s.state != StateLobby {
		return nil, ErrAlreadyStarted
	}

	p, err := s.roster.add(connID)
	if err != nil {
		return nil, err
	}

	return []Notification{
		toSender(EventLobbyJoined, LobbyJoinedPayload{
			SessionCode: s.code,
			Player:      p.Info(),
			Players:     s.roster.snapshot(),
		}),
		toOthers(EventPlayerJoined, PlayerPayload{Player: p.Info()}),
	}, nil
}

// markReady flips a player's readiness and evaluates the all-ready barrier.
// The barrier only fires from the lobby: readiness votes arriving in any other
// state update the flag and broadcast, nothing more.
func (s *Session) markReady(connID string) ([]Notification, error) {
	p, ok := s.roster.get(connID)
	if !ok {
		return nil, ErrPlayerNotFound
	}

	p.IsReady = true
	notes := []Notification{
		toAll(EventPlayerStatusUpdated, PlayerPayload{Player: p.Info()}),
	}

	if s.state == StateLobby && s.roster.allReady() {
		s.state = StateInGame
		s.roster.resetForGame()
		notes = append(notes, toAll(EventStartGameForAll, RosterPayload{Players: s.roster.snapshot()}))
	}
	return notes, nil
}

// reportGameOver moves the session to GameOver and posts the score. The
// returned bool tells the Registry to arm the replay-return timer; a session
// already past InGame ignores the call, so only the first report per round
// arms a timer.
func (s *Session) reportGameOver(score float64) ([]Notification, bool) {
	if s.state != StateInGame {
		return nil, false
	}

	s.state = StateGameOver
	return []Notification{
		toAll(EventGameOver, ScorePayload{Score: score}),
	}, true
}

// requestReplay records a replay vote and evaluates the all-replay barrier.
// Votes outside GameOver are ignored.
func (s *Session) requestReplay(connID string) ([]Notification, error) {
	p, ok := s.roster.get(connID)
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if s.state != StateGameOver {
		return nil, nil
	}

	p.WantsReplay = true
	notes := []Notification{
		toAll(EventPlayerWantsToReplay, PlayerPayload{Player: p.Info()}),
	}

	if s.roster.allWantReplay() {
		notes = append(notes, s.returnToLobby()...)
	}
	return notes, nil
}

// leave removes a player and reports whether the session is now empty. A
// departure during GameOver can make the remaining set unanimously pro-replay,
// so the replay barrier is re-evaluated here; the empty case is left to the
// Registry, which arms the idle reaper instead of broadcasting a lobby return.
func (s *Session) leave(connID string) (notes []Notification, nowEmpty bool) {
	p := s.roster.remove(connID)
	if p == nil {
		return nil, s.roster.count() == 0
	}

	notes = []Notification{
		toOthers(EventPlayerLeft, PlayerPayload{Player: p.Info()}),
	}

	if s.roster.count() == 0 {
		return notes, true
	}

	if s.state == StateGameOver && s.roster.allWantReplay() {
		notes = append(notes, s.returnToLobby()...)
	}
	return notes, false
}

// rename changes a player's name, enforcing uniqueness against every other
// present player.
func (s *Session) rename(connID, name string) ([]Notification, error) {
	p, err := s.roster.rename(connID, name)
	if err != nil {
		return nil, err
	}
	return []Notification{
		toAll(EventPlayerNameUpdated, PlayerPayload{Player: p.Info()}),
	}, nil
}

// returnToLobby performs the GameOver -> Lobby transition: it cancels and
// clears the replay timer, resets every vote, and announces the fresh roster.
// Both the unanimous-replay barrier and the timer expiry funnel through here,
// and clearing the timer handle is what prevents a double transition.
func (s *Session) returnToLobby() []Notification {
	if s.replayTimer != nil {
		s.replayTimer.Stop()
		s.replayTimer = nil
	}
	s.state = StateLobby
	s.roster.resetForLobby()
	return []Notification{
		toAll(EventReturnToLobby, RosterPayload{Players: s.roster.snapshot()}),
	}
}

func (s *Session) stopTimers() {
	if s.replayTimer != nil {
		s.replayTimer.Stop()
		s.replayTimer = nil
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}
