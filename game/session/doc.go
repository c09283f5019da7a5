// Package session implements the session and lobby state machine for the
// Dual Screen Racer server.
//
// The session package implements:
//   - Session code generation and collision-free addressing
//   - Per-session player rosters with naming and color invariants
//   - The Lobby -> InGame -> GameOver lifecycle with readiness and replay
//     synchronization barriers
//   - Timer-driven transitions (game-over return to lobby, idle-session reaping)
//   - A process-wide Registry that owns every live session
//
// Core Types:
//
// Registry is the single owner of all live sessions, keyed by a 6-digit numeric
// code. Session holds one game's state: lifecycle phase, roster, and pending
// timers. Player records one connected controller with its name, color,
// readiness and replay flags.
//
// Notifications:
//
// Every mutating operation returns an ordered slice of Notification values
// describing what must be sent over the transport and to whom (the acting
// connection, everyone else in the session group, or the whole group). The
// transport layer forwards them verbatim; this package never talks to a socket.
// Transitions fired by timers are delivered through the Notifier supplied to
// NewRegistry.
//
// Concurrency:
//
// A single mutex inside Registry serializes every operation, including timer
// callbacks. Each inbound event is fully processed before the next one is
// accepted, so barrier evaluation never interleaves with joins or departures.
// Timer callbacks re-validate their preconditions at fire time instead of
// assuming them: a replay-return timer that fires after the session already
// went back to the lobby is a no-op, and an idle reaper only deletes a session
// that is still empty.
//
// Usage:
//
//	reg := session.NewRegistry(notifier, session.Options{})
//
//	code := reg.Create(hostConnID)
//	notes, err := reg.Join(code, controllerConnID)
//	if err != nil {
//		// session full, already started, or unknown code
//	}
//	// forward notes through the transport
package session
