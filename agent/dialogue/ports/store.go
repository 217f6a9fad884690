package ports

import "context"

// SessionStats summarizes a persisted session.
type SessionStats struct {
	SessionID  string `json:"session_id"`
	TurnCount  int    `json:"turn_count"`
	FirstTurn  string `json:"first_turn,omitempty"`
	LatestTurn string `json:"latest_turn,omitempty"`
}

// SessionStore persists committed turns per session. Persistence is
// write-behind: the in-process State stays authoritative and a store failure
// must not fail the turn.
type SessionStore interface {
	SaveTurn(ctx context.Context, sessionID string, turn Turn) error
	LoadRecent(ctx context.Context, sessionID string, k int) ([]Turn, error)
	Stats(ctx context.Context, sessionID string) (SessionStats, error)
}
