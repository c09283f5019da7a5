package service

import (
	"context"
	"fmt"

	"github.com/wricardo/dual-screen-racer/game/session"
)

// gameServiceImpl implements the GameService interface over one Registry.
type gameServiceImpl struct {
	registry *session.Registry
}

// NewGameService creates a new game service instance.
func NewGameService(registry *session.Registry) GameService {
	return &gameServiceImpl{registry: registry}
}

// CreateSession allocates a new lobby owned by the given display connection.
func (s *gameServiceImpl) CreateSession(ctx context.Context, hostConnID string) (string, error) {
	if hostConnID == "" {
		return "", fmt.Errorf("create session: missing host connection")
	}
	return s.registry.Create(hostConnID), nil
}

// ReconnectHost reassigns a session's display connection and returns the
// current roster.
func (s *gameServiceImpl) ReconnectHost(ctx context.Context, code, hostConnID string) ([]session.PlayerInfo, error) {
	return s.registry.ReconnectHost(code, hostConnID)
}

// JoinSession adds a controller to the session's roster.
func (s *gameServiceImpl) JoinSession(ctx context.Context, code, connID string) ([]session.Notification, error) {
	return s.registry.Join(code, connID)
}

// MarkReady records a readiness vote; the returned notifications include the
// game start when the vote completes the all-ready barrier.
func (s *gameServiceImpl) MarkReady(ctx context.Context, code, connID string) ([]session.Notification, error) {
	return s.registry.MarkReady(code, connID)
}

// RequestReplay records a replay vote; the returned notifications include the
// lobby return when the vote completes the all-replay barrier.
func (s *gameServiceImpl) RequestReplay(ctx context.Context, code, connID string) ([]session.Notification, error) {
	return s.registry.RequestReplay(code, connID)
}

// RenamePlayer changes a player's display name.
func (s *gameServiceImpl) RenamePlayer(ctx context.Context, code, connID, name string) ([]session.Notification, error) {
	return s.registry.Rename(code, connID, name)
}

// ReportGameOver posts the final score and starts the replay-return countdown.
func (s *gameServiceImpl) ReportGameOver(ctx context.Context, code string, score float64) ([]session.Notification, error) {
	return s.registry.ReportGameOver(code, score)
}

// LeaveSession removes a player; safe against unknown codes and players.
func (s *gameServiceImpl) LeaveSession(ctx context.Context, code, connID string) []session.Notification {
	return s.registry.Leave(code, connID)
}

// HostDisconnected reports a dropped display connection to the registry.
func (s *gameServiceImpl) HostDisconnected(ctx context.Context, code, connID string) {
	s.registry.HostDisconnected(code, connID)
}

// OpenSessions lists sessions currently accepting joins.
func (s *gameServiceImpl) OpenSessions(ctx context.Context) []session.OpenSession {
	return s.registry.OpenSessions()
}

// GetSession returns the admin view of one session.
func (s *gameServiceImpl) GetSession(ctx context.Context, code string) (*SessionInfo, error) {
	snap, err := s.registry.Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", code, err)
	}
	return infoFromSnapshot(snap), nil
}

// ListSessions returns the admin view of every live session.
func (s *gameServiceImpl) ListSessions(ctx context.Context) []*SessionInfo {
	snaps := s.registry.Snapshots()
	infos := make([]*SessionInfo, len(snaps))
	for i, snap := range snaps {
		infos[i] = infoFromSnapshot(snap)
	}
	return infos
}

// DeleteSession removes a session, reporting whether it existed.
func (s *gameServiceImpl) DeleteSession(ctx context.Context, code string) error {
	if _, err := s.registry.Lookup(code); err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	s.registry.Delete(code)
	return nil
}
