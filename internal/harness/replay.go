package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/store"
)

// Divergence is the first journaled event a replay could not reproduce.
type Divergence struct {
	Index   int
	EventID int64
	Seq     int64
	Reason  string
}

func (d *Divergence) String() string {
	return fmt.Sprintf("event %d (journal id %d, seq %d): %s", d.Index, d.EventID, d.Seq, d.Reason)
}

// ReplayReport is the outcome of a replay.
type ReplayReport struct {
	Events     int
	Divergence *Divergence
}

// OK reports whether every event reproduced.
func (r *ReplayReport) OK() bool {
	return r.Divergence == nil
}

// Replay re-drives journaled events, in order, through a fresh session
// running script. Each event must reproduce its seq, its outcome and the
// digest of its output.
func Replay(ctx context.Context, script engine.Script, events []store.Event) (*ReplayReport, error) {
	eng := engine.New(script, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	report := &ReplayReport{}
	if len(events) == 0 {
		return report, nil
	}
	sess := engine.NewSession(events[0].SessionID)

	for i, ev := range events {
		report.Events++

		var (
			res engine.Result
			err error
		)
		switch ev.Kind {
		case store.EventLoad:
			res, err = eng.Load(ctx, sess)
		case store.EventImmediate, store.EventBuffered:
			res, err = eng.HandleEvent(ctx, sess, ev.WidgetID, ev.Value)
		default:
			return report, fmt.Errorf("event %d: unknown kind %q", ev.ID, ev.Kind)
		}
		if err != nil && engine.CodeOf(err) == "" {
			return report, fmt.Errorf("event %d: %w", ev.ID, err)
		}

		if reason := compareEvent(ev, res, err); reason != "" {
			report.Divergence = &Divergence{Index: i, EventID: ev.ID, Seq: ev.Seq, Reason: reason}
			return report, nil
		}
	}
	return report, nil
}

func compareEvent(ev store.Event, res engine.Result, err error) string {
	status := store.StatusOK
	if err != nil {
		status = store.StatusFailed
	}
	if status != ev.Status {
		return fmt.Sprintf("status %s, journaled %s", status, ev.Status)
	}
	if code := string(engine.CodeOf(err)); code != ev.ErrorCode {
		return fmt.Sprintf("error code %q, journaled %q", code, ev.ErrorCode)
	}
	if res.Seq != ev.Seq {
		return fmt.Sprintf("seq %d, journaled %d", res.Seq, ev.Seq)
	}
	digest, derr := res.Output.Digest()
	if derr != nil {
		return fmt.Sprintf("output digest: %v", derr)
	}
	if digest != ev.OutputDigest {
		return fmt.Sprintf("output digest %s, journaled %s", short(digest), short(ev.OutputDigest))
	}
	return ""
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
