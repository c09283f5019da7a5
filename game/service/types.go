package service

import (
	"time"

	"github.com/wricardo/dual-screen-racer/game/session"
)

// SessionInfo is the admin-facing view of one session.
type SessionInfo struct {
	Code        string               `json:"sessionCode"`
	State       session.State        `json:"state"`
	PlayerCount int                  `json:"playerCount"`
	CreatedAt   time.Time            `json:"createdAt"`
	Players     []session.PlayerInfo `json:"players"`
}

func infoFromSnapshot(snap *session.Snapshot) *SessionInfo {
	return &SessionInfo{
		Code:        snap.Code,
		State:       snap.State,
		PlayerCount: len(snap.Players),
		CreatedAt:   snap.CreatedAt,
		Players:     snap.Players,
	}
}
