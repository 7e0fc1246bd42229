package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
)

// WriteEvent appends an event and returns its journal id.
// The session row is created on first use, stamped with the engine and
// journal versions that produced it.
func (s *Store) WriteEvent(ctx context.Context, ev Event) (int64, error) {
	if err := ev.Validate(); err != nil {
		return 0, fmt.Errorf("write event: %w", err)
	}

	var value sql.NullString
	if ev.Value != nil {
		data, err := ir.MarshalValue(ev.Value)
		if err != nil {
			return 0, fmt.Errorf("write event: marshal value: %w", err)
		}
		value = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write event: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, engine_version, journal_version)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ev.SessionID, ir.EngineVersion, ir.JournalVersion)
	if err != nil {
		return 0, fmt.Errorf("write event: session: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(session_id, seq, kind, widget_id, value, status, error_code, output_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.SessionID,
		ev.Seq,
		string(ev.Kind),
		ev.WidgetID,
		value,
		string(ev.Status),
		ev.ErrorCode,
		ev.OutputDigest,
	)
	if err != nil {
		return 0, fmt.Errorf("write event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write event: last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write event: commit: %w", err)
	}
	return id, nil
}
