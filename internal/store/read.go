package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
)

// SessionInfo describes a journaled session.
type SessionInfo struct {
	ID             string
	EngineVersion  string
	JournalVersion string
	Events         int
}

// ReadEvents returns a session's events in append order.
// Returns an empty slice (not nil) if the session has no events.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, kind, widget_id, value, status, error_code, output_digest
		FROM events
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadSessions lists journaled sessions ordered by id.
func (s *Store) ReadSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.engine_version, s.journal_version, COUNT(e.id)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.EngineVersion, &info.JournalVersion, &info.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var (
		ev     Event
		kind   string
		status string
		value  sql.NullString
	)
	err := rows.Scan(
		&ev.ID,
		&ev.SessionID,
		&ev.Seq,
		&kind,
		&ev.WidgetID,
		&value,
		&status,
		&ev.ErrorCode,
		&ev.OutputDigest,
	)
	if err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = EventKind(kind)
	ev.Status = EventStatus(status)

	if value.Valid {
		v, err := ir.UnmarshalValue([]byte(value.String))
		if err != nil {
			return Event{}, fmt.Errorf("scan event %d: value: %w", ev.ID, err)
		}
		ev.Value = v
	}
	return ev, nil
}
