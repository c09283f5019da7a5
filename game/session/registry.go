package session

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFull     = errors.New("session is full")
	ErrAlreadyJoined   = errors.New("connection already joined")
	ErrAlreadyStarted  = errors.New("game already started")
	ErrNameTaken       = errors.New("name already taken")
	ErrPlayerNotFound  = errors.New("player not found in session")
)

// Default timer durations. Options can override both, which the tests rely on.
const (
	DefaultReplayReturnDelay = 30 * time.Second
	DefaultIdleGrace         = 5 * time.Second
)

// Options tunes Registry timers. Zero values select the defaults.
type Options struct {
	// ReplayReturnDelay is how long a GameOver session waits for replay votes
	// before returning to the lobby unconditionally.
	ReplayReturnDelay time.Duration

	// IdleGrace is how long an empty session survives before the reaper
	// deletes it, giving a disconnected party a window to come back.
	IdleGrace time.Duration
}

// Registry is the process-wide table of live sessions and their exclusive
// owner. A single mutex serializes every operation and every timer callback,
// so each event runs to completion before the next is admitted.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	notifier Notifier

	replayReturnDelay time.Duration
	idleGrace         time.Duration

	// generateCode is swappable so tests can force collisions.
	generateCode func() string
}

// NewRegistry creates an empty registry. notifier receives notifications for
// timer-driven transitions and may be nil when no transport is attached.
func NewRegistry(notifier Notifier, opts Options) *Registry {
	if opts.ReplayReturnDelay <= 0 {
		opts.ReplayReturnDelay = DefaultReplayReturnDelay
	}
	if opts.IdleGrace <= 0 {
		opts.IdleGrace = DefaultIdleGrace
	}
	return &Registry{
		sessions:          make(map[string]*Session),
		notifier:          notifier,
		replayReturnDelay: opts.ReplayReturnDelay,
		idleGrace:         opts.IdleGrace,
		generateCode:      GenerateCode,
	}
}

// SetNotifier attaches the notifier after construction. The registry and the
// transport dispatcher reference each other, so one side has to bind late.
func (r *Registry) SetNotifier(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier = n
}

// Create allocates an empty lobby session owned by hostConnID and returns its
// code. Generation retries until the code is free among live sessions, so a
// collision can never silently overwrite an existing session.
func (r *Registry) Create(hostConnID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.generateCode()
	for _, exists := r.sessions[code]; exists; _, exists = r.sessions[code] {
		code = r.generateCode()
	}

	s := newSession(code, hostConnID)
	r.sessions[code] = s
	return code
}

// ReconnectHost reassigns the session's display connection and returns the
// current roster. The roster itself is untouched: host identity and player
// identity are fully decoupled. Reconnecting restarts any pending idle grace
// window instead of letting a scheduled deletion fire under the new host.
func (r *Registry) ReconnectHost(code, hostConnID string) ([]PlayerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.host = hostConnID
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	return s.roster.snapshot(), nil
}

// HostDisconnected records that a session's display connection dropped. An
// empty session whose host is gone has nobody left, so the idle reaper is
// armed; a session that still has players keeps running and waits for a
// reconnect_host. A stale host identity (already replaced by a reconnect) is
// ignored.
func (r *Registry) HostDisconnected(code, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok || s.host != connID {
		return
	}
	if s.roster.count() == 0 {
		r.scheduleReapLocked(s)
	}
}

// Join adds a controller connection to the session's roster.
func (r *Registry) Join(code, connID string) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}

	notes, err := s.join(connID)
	if err != nil {
		return nil, err
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	return notes, nil
}

// MarkReady records a readiness vote and may start the game.
func (r *Registry) MarkReady(code, connID string) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.markReady(connID)
}

// ReportGameOver posts the final score and arms the replay-return timer.
// Re-entrant calls while already in GameOver are ignored, so exactly one timer
// exists per game-over episode.
func (r *Registry) ReportGameOver(code string, score float64) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}

	notes, arm := s.reportGameOver(score)
	if arm {
		s.replayTimer = time.AfterFunc(r.replayReturnDelay, func() {
			r.replayTimerFired(code)
		})
	}
	return notes, nil
}

// RequestReplay records a replay vote and may return the session to the lobby.
func (r *Registry) RequestReplay(code, connID string) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.requestReplay(connID)
}

// Rename changes a player's display name, enforcing uniqueness.
func (r *Registry) Rename(code, connID, name string) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.rename(connID, name)
}

// Leave removes a player from the session. When the last player leaves, the
// idle reaper is armed rather than deleting synchronously, so a reconnect
// within the grace window keeps the session alive. Leaving an unknown session
// is a no-op.
func (r *Registry) Leave(code, connID string) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil
	}

	notes, nowEmpty := s.leave(connID)
	if nowEmpty {
		r.scheduleReapLocked(s)
	}
	return notes
}

// Lookup returns a point-in-time snapshot of one session.
func (r *Registry) Lookup(code string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshotOf(s), nil
}

// Delete removes a session and stops its timers. Deleting an absent code is
// safe.
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(code)
}

// OpenSessions lists joinable sessions: in the lobby and below capacity. The
// slice is recomputed on every call.
func (r *Registry) OpenSessions() []OpenSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	open := make([]OpenSession, 0)
	for code, s := range r.sessions {
		if s.state == StateLobby && s.roster.count() < Capacity {
			open = append(open, OpenSession{SessionCode: code, PlayerCount: s.roster.count()})
		}
	}
	return open
}

// Snapshots returns a point-in-time view of every live session.
func (r *Registry) Snapshots() []*Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Snapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, snapshotOf(s))
	}
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// replayTimerFired is the replay-return timer callback. It re-validates that
// the session still exists, is still in GameOver, and still owns an armed
// timer; the unanimous-vote path may have superseded it.
func (r *Registry) replayTimerFired(code string) {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if !ok || s.state != StateGameOver || s.replayTimer == nil {
		r.mu.Unlock()
		return
	}
	notes := s.returnToLobby()
	r.mu.Unlock()

	r.publish(code, notes)
}

// reapIfEmpty is the idle reaper callback. The player count is re-checked at
// fire time: a rejoin during the grace window aborts the deletion.
func (r *Registry) reapIfEmpty(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok || s.roster.count() > 0 {
		return
	}
	r.deleteLocked(code)
}

// scheduleReapLocked arms (or re-arms) the idle reaper for an empty session.
// Callers must hold r.mu.
func (r *Registry) scheduleReapLocked(s *Session) {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(r.idleGrace, func() {
		r.reapIfEmpty(s.code)
	})
}

func (r *Registry) deleteLocked(code string) {
	s, ok := r.sessions[code]
	if !ok {
		return
	}
	s.stopTimers()
	delete(r.sessions, code)
}

func (r *Registry) publish(code string, notes []Notification) {
	if r.notifier == nil || len(notes) == 0 {
		return
	}
	r.notifier.Publish(code, notes)
}

// Snapshot is a point-in-time copy of one session's observable state.
type Snapshot struct {
	Code      string       `json:"sessionCode"`
	State     State        `json:"state"`
	CreatedAt time.Time    `json:"createdAt"`
	Players   []PlayerInfo `json:"players"`
}

func snapshotOf(s *Session) *Snapshot {
	return &Snapshot{
		Code:      s.code,
		State:     s.state,
		CreatedAt: s.createdAt,
		Players:   s.roster.snapshot(),
	}
}
