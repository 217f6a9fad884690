package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// LibSQLSessionStore persists committed turns to the embedded libsql
// database. The in-process State stays authoritative; this store is a
// write-behind append log plus session statistics.
type LibSQLSessionStore struct {
	db *sql.DB
}

func NewLibSQLSessionStore(db *sql.DB) *LibSQLSessionStore {
	return &LibSQLSessionStore{db: db}
}

// SaveTurn appends one turn to the session. The sequence number is assigned
// from the current maximum inside the insert, so sequential session commits
// stay ordered without a counter on the caller side.
func (s *LibSQLSessionStore) SaveTurn(ctx context.Context, sessionID string, turn ports.Turn) error {
	changes, err := json.Marshal(turn.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}
	var result any
	if turn.Result != nil {
		raw, err := json.Marshal(turn.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		result = string(raw)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, seq, role, label, body, failed, changes_json, result_json, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?), ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, sessionID, sessionID,
		string(turn.Role), string(turn.Label), turn.Text, turn.Failed,
		string(changes), result, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save turn %s: %w", turn.ID, err)
	}
	return nil
}

// LoadRecent returns the last k turns of a session in log order.
func (s *LibSQLSessionStore) LoadRecent(ctx context.Context, sessionID string, k int) ([]ports.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, label, body, failed, changes_json, result_json, created_at
		FROM (
			SELECT * FROM turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, sessionID, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []ports.Turn
	for rows.Next() {
		var t ports.Turn
		var role, label, changesJSON string
		var resultJSON sql.NullString
		if err := rows.Scan(&t.ID, &role, &label, &t.Text, &t.Failed, &changesJSON, &resultJSON, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Role = ports.Role(role)
		t.Label = ports.Label(label)
		if err := json.Unmarshal([]byte(changesJSON), &t.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes for turn %s: %w", t.ID, err)
		}
		if resultJSON.Valid {
			var r curve.Result
			if err := json.Unmarshal([]byte(resultJSON.String), &r); err != nil {
				return nil, fmt.Errorf("failed to unmarshal result for turn %s: %w", t.ID, err)
			}
			t.Result = &r
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Stats summarizes one persisted session.
func (s *LibSQLSessionStore) Stats(ctx context.Context, sessionID string) (ports.SessionStats, error) {
	stats := ports.SessionStats{SessionID: sessionID}

	var first, latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       MIN(created_at),
		       MAX(created_at)
		FROM turns WHERE session_id = ?`, sessionID).
		Scan(&stats.TurnCount, &first, &latest)
	if err != nil {
		return ports.SessionStats{}, fmt.Errorf("failed to query session stats: %w", err)
	}
	stats.FirstTurn = first.String
	stats.LatestTurn = latest.String
	return stats, nil
}

var _ ports.SessionStore = (*LibSQLSessionStore)(nil)
