package service

import (
	"context"

	"github.com/wricardo/dual-screen-racer/game/session"
)

// GameService defines every operation the transports can invoke.
type GameService interface {
	// Realtime operations, driven by the websocket dispatcher. Each returns
	// the outbound notifications the caller must forward.
	CreateSession(ctx context.Context, hostConnID string) (string, error)
	ReconnectHost(ctx context.Context, code, hostConnID string) ([]session.PlayerInfo, error)
	JoinSession(ctx context.Context, code, connID string) ([]session.Notification, error)
	MarkReady(ctx context.Context, code, connID string) ([]session.Notification, error)
	RequestReplay(ctx context.Context, code, connID string) ([]session.Notification, error)
	RenamePlayer(ctx context.Context, code, connID, name string) ([]session.Notification, error)
	ReportGameOver(ctx context.Context, code string, score float64) ([]session.Notification, error)
	LeaveSession(ctx context.Context, code, connID string) []session.Notification
	HostDisconnected(ctx context.Context, code, connID string)
	OpenSessions(ctx context.Context) []session.OpenSession

	// Admin surface for the REST API and MCP tools.
	GetSession(ctx context.Context, code string) (*SessionInfo, error)
	ListSessions(ctx context.Context) []*SessionInfo
	DeleteSession(ctx context.Context, code string) error
}
