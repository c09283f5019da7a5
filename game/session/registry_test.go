package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// captureNotifier records timer-driven publishes for assertions.
type captureNotifier struct {
	mu        sync.Mutex
	published []capturedPublish
}

type capturedPublish struct {
	code  string
	notes []Notification
}

func (c *captureNotifier) Publish(code string, notes []Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, capturedPublish{code: code, notes: notes})
}

func (c *captureNotifier) events(code string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, p := range c.published {
		if p.code != code {
			continue
		}
		for _, n := range p.notes {
			out = append(out, n.Event)
		}
	}
	return out
}

func findEvent(notes []Notification, event string) (Notification, bool) {
	for _, n := range notes {
		if n.Event == event {
			return n, true
		}
	}
	return Notification{}, false
}

// fastOptions keeps timer tests quick while leaving a comfortable margin
// between "before the timer" and "after the timer" assertions.
func fastOptions() Options {
	return Options{
		ReplayReturnDelay: 60 * time.Millisecond,
		IdleGrace:         60 * time.Millisecond,
	}
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry(nil, Options{})

	code := reg.Create("host-1")
	if len(code) != codeLength {
		t.Fatalf("Expected %d-digit code, got %q", codeLength, code)
	}

	snap, err := reg.Lookup(code)
	if err != nil {
		t.Fatalf("Failed to look up created session: %v", err)
	}
	if snap.State != StateLobby {
		t.Errorf("Expected new session in lobby, got %s", snap.State)
	}
	if len(snap.Players) != 0 {
		t.Errorf("Expected empty roster, got %d players", len(snap.Players))
	}
}

func TestRegistry_CreateRetriesOnCollision(t *testing.T) {
	reg := NewRegistry(nil, Options{})

	// Force the generator through a fixed script: the second Create draws an
	// already-live code first and must retry.
	script := []string{"111111", "111111", "222222"}
	reg.generateCode = func() string {
		next := script[0]
		script = script[1:]
		return next
	}

	first := reg.Create("host-1")
	if first != "111111" {
		t.Fatalf("Expected first code 111111, got %s", first)
	}
	second := reg.Create("host-2")
	if second != "222222" {
		t.Errorf("Expected collision retry to yield 222222, got %s", second)
	}
	if reg.Count() != 2 {
		t.Errorf("Expected 2 live sessions, got %d", reg.Count())
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg := NewRegistry(nil, Options{})
	code := reg.Create("host-1")

	reg.Delete(code)
	if _, err := reg.Lookup(code); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}

	// Deleting an absent code is a no-op.
	reg.Delete(code)
	reg.Delete("999999")
}

func TestRegistry_OpenSessions(t *testing.T) {
	reg := NewRegistry(nil, Options{})

	lobby := reg.Create("host-1")
	reg.Join(lobby, "conn-1")

	started := reg.Create("host-2")
	reg.Join(started, "conn-2")
	reg.MarkReady(started, "conn-2")

	full := reg.Create("host-3")
	for i := 0; i < Capacity; i++ {
		if _, err := reg.Join(full, fmt.Sprintf("filler-%d", i)); err != nil {
			t.Fatalf("Failed to fill session: %v", err)
		}
	}

	open := reg.OpenSessions()
	if len(open) != 1 {
		t.Fatalf("Expected exactly 1 open session, got %d", len(open))
	}
	if open[0].SessionCode != lobby {
		t.Errorf("Expected open session %s, got %s", lobby, open[0].SessionCode)
	}
	if open[0].PlayerCount != 1 {
		t.Errorf("Expected player count 1, got %d", open[0].PlayerCount)
	}
}

func TestRegistry_IdleReap(t *testing.T) {
	reg := NewRegistry(nil, fastOptions())
	code := reg.Create("host-1")
	reg.Join(code, "conn-1")

	t.Run("last player leaving schedules deletion", func(t *testing.T) {
		reg.Leave(code, "conn-1")

		// Still retrievable inside the grace window.
		if _, err := reg.Lookup(code); err != nil {
			t.Fatalf("Session reaped before the grace period: %v", err)
		}

		time.Sleep(200 * time.Millisecond)
		if _, err := reg.Lookup(code); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected session to be reaped after grace period, got %v", err)
		}
	})
}

func TestRegistry_ReapAbortedByRejoin(t *testing.T) {
	reg := NewRegistry(nil, fastOptions())
	code := reg.Create("host-1")
	reg.Join(code, "conn-1")
	reg.Leave(code, "conn-1")

	// Rejoin within the grace window.
	if _, err := reg.Join(code, "conn-2"); err != nil {
		t.Fatalf("Failed to rejoin during grace window: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if _, err := reg.Lookup(code); err != nil {
		t.Errorf("Rejoin during grace window must abort deletion, got %v", err)
	}
}

func TestRegistry_HostDisconnected(t *testing.T) {
	t.Run("empty session is reaped after host drops", func(t *testing.T) {
		reg := NewRegistry(nil, fastOptions())
		code := reg.Create("host-1")

		reg.HostDisconnected(code, "host-1")
		time.Sleep(200 * time.Millisecond)
		if _, err := reg.Lookup(code); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected empty hostless session to be reaped, got %v", err)
		}
	})

	t.Run("session with players survives", func(t *testing.T) {
		reg := NewRegistry(nil, fastOptions())
		code := reg.Create("host-1")
		reg.Join(code, "conn-1")

		reg.HostDisconnected(code, "host-1")
		time.Sleep(200 * time.Millisecond)
		if _, err := reg.Lookup(code); err != nil {
			t.Errorf("Session with players must survive a host drop, got %v", err)
		}
	})

	t.Run("stale host identity is ignored", func(t *testing.T) {
		reg := NewRegistry(nil, fastOptions())
		code := reg.Create("host-1")
		if _, err := reg.ReconnectHost(code, "host-2"); err != nil {
			t.Fatalf("Failed to reconnect host: %v", err)
		}

		// The old connection's deferred disconnect must not reap the session
		// out from under the reconnected host.
		reg.HostDisconnected(code, "host-1")
		time.Sleep(200 * time.Millisecond)
		if _, err := reg.Lookup(code); err != nil {
			t.Errorf("Stale host disconnect must not reap the session, got %v", err)
		}
	})
}

func TestRegistry_ReconnectHost(t *testing.T) {
	reg := NewRegistry(nil, Options{})
	code := reg.Create("host-1")
	reg.Join(code, "conn-1")
	reg.Join(code, "conn-2")

	t.Run("returns current roster", func(t *testing.T) {
		roster, err := reg.ReconnectHost(code, "host-2")
		if err != nil {
			t.Fatalf("Failed to reconnect host: %v", err)
		}
		if len(roster) != 2 {
			t.Errorf("Expected roster of 2, got %d", len(roster))
		}
	})

	t.Run("roster is untouched", func(t *testing.T) {
		snap, _ := reg.Lookup(code)
		if len(snap.Players) != 2 {
			t.Errorf("Host reconnection must not touch the roster, got %d players", len(snap.Players))
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := reg.ReconnectHost("000000", "host-9"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestRegistry_ReplayTimerReturnsToLobby(t *testing.T) {
	notifier := &captureNotifier{}
	reg := NewRegistry(notifier, fastOptions())
	code := reg.Create("host-1")
	reg.Join(code, "conn-1")
	reg.Join(code, "conn-2")
	reg.MarkReady(code, "conn-1")
	reg.MarkReady(code, "conn-2")

	if _, err := reg.ReportGameOver(code, 100); err != nil {
		t.Fatalf("Failed to report game over: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	snap, err := reg.Lookup(code)
	if err != nil {
		t.Fatalf("Failed to look up session: %v", err)
	}
	if snap.State != StateLobby {
		t.Errorf("Expected timer to return session to lobby, state is %s", snap.State)
	}
	for _, p := range snap.Players {
		if p.IsReady || p.WantsReplay {
			t.Errorf("Expected votes reset on lobby return, player %s has ready=%v replay=%v",
				p.Name, p.IsReady, p.WantsReplay)
		}
	}

	events := notifier.events(code)
	returns := 0
	for _, e := range events {
		if e == EventReturnToLobby {
			returns++
		}
	}
	if returns != 1 {
		t.Errorf("Expected exactly one timer-driven return_to_lobby, got %d (%v)", returns, events)
	}
}

func TestRegistry_ReplayTimerSupersededByVotes(t *testing.T) {
	notifier := &captureNotifier{}
	reg := NewRegistry(notifier, fastOptions())
	code := reg.Create("host-1")
	reg.Join(code, "conn-1")
	reg.Join(code, "conn-2")
	reg.MarkReady(code, "conn-1")
	reg.MarkReady(code, "conn-2")
	reg.ReportGameOver(code, 42)

	// Both votes arrive before the timer fires.
	reg.RequestReplay(code, "conn-1")
	notes, err := reg.RequestReplay(code, "conn-2")
	if err != nil {
		t.Fatalf("Failed to request replay: %v", err)
	}
	if _, ok := findEvent(notes, EventReturnToLobby); !ok {
		t.Fatal("Expected unanimous votes to return the session to the lobby")
	}

	// The superseded timer must not fire a second transition.
	time.Sleep(200 * time.Millisecond)
	for _, e := range notifier.events(code) {
		if e == EventReturnToLobby {
			t.Error("Cancelled replay timer still published a lobby return")
		}
	}

	snap, _ := reg.Lookup(code)
	if snap.State != StateLobby {
		t.Errorf("Expected lobby state, got %s", snap.State)
	}
}
