package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/fixtures"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/jsscript"
	"github.com/roach88/jeamlit/internal/session"
	"github.com/roach88/jeamlit/internal/testutil"
	"github.com/roach88/jeamlit/internal/widget"
)

// Option configures a scenario run.
type Option func(*Harness)

// WithJournal journals every step, as a server would.
func WithJournal(j session.Journal) Option {
	return func(h *Harness) {
		h.journal = j
	}
}

// WithLogger sets the logger. Scenario runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness executes one scenario against a fresh session manager.
type Harness struct {
	manager *session.Manager
	journal session.Journal
	logger  *slog.Logger

	sessionID string
	loaded    bool
}

// ResolveScript returns the script a scenario runs.
func ResolveScript(s *Scenario) (engine.Script, error) {
	if s.App != "" {
		return fixtures.Lookup(s.App)
	}
	return jsscript.Load(s.Script)
}

// Run executes a scenario and returns the result.
//
// A non-nil error means the scenario could not be executed (unknown app,
// unresolvable widget target). Expectation failures are reported in
// Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	script, err := ResolveScript(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	return RunScript(scenario, script, opts...)
}

// RunScript executes a scenario's steps against the given script.
func RunScript(scenario *Scenario, script engine.Script, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.manager = session.NewManager(
		engine.New(script, engine.WithLogger(h.logger)),
		session.WithIDGenerator(testutil.NewSequentialIDs("session")),
		session.WithJournal(h.journal),
		session.WithLogger(h.logger),
	)
	defer h.manager.Shutdown()
	h.sessionID = scenario.Session

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		entry, err := h.executeStep(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		result.Trace = append(result.Trace, entry)

		var snap map[string]ir.Value
		if step.Expect != nil && (len(step.Expect.State) > 0 || len(step.Expect.MissingState) > 0) {
			snap, err = h.state(ctx)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		for _, msg := range checkExpect(entry, step.Expect, snap) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", entry.Step, entry.Describe(), msg))
		}

		h.logger.Debug("scenario step",
			"scenario", scenario.Name,
			"step", entry.Step,
			"seq", entry.Seq,
			"error", entry.Error,
		)
	}

	result.SessionID = h.sessionID
	err := h.manager.Inspect(ctx, h.sessionID, func(s *engine.Session) {
		result.State = s.Store.Snapshot()
		result.Output = s.Output()
		result.Seq = s.Clock.Current()
	})
	if err != nil {
		return nil, fmt.Errorf("inspect final session: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, n int, step Step) (TraceEntry, error) {
	entry := TraceEntry{Step: n}

	var (
		res engine.Result
		err error
	)
	switch {
	case step.Load && !h.loaded:
		h.sessionID, res, err = h.manager.GetOrCreate(ctx, h.sessionID)
		if err != nil && engine.CodeOf(err) == "" {
			return entry, err
		}
		h.loaded = true
		res.Rerun = true

	case step.Load:
		res, err = h.manager.Rerun(ctx, h.sessionID)

	default:
		if !h.loaded {
			return entry, fmt.Errorf("event before the first load")
		}
		ev := step.Event
		entry.Target, entry.WidgetID, err = h.resolve(ctx, ev)
		if err != nil {
			return entry, err
		}
		entry.Value = ev.Value
		res, err = h.manager.HandleEvent(ctx, h.sessionID, entry.WidgetID, ev.Value)
	}

	if err != nil && engine.CodeOf(err) == "" {
		return entry, err
	}
	entry.Seq = res.Seq
	entry.Rerun = res.Rerun
	entry.Output = res.Output

	var re *engine.RunError
	if errors.As(err, &re) {
		entry.Error = string(re.Code)
		entry.ErrKey = re.Key
	}
	return entry, nil
}

// resolve maps an event target to a widget identity using the previous
// run's widgets.
func (h *Harness) resolve(ctx context.Context, ev *EventStep) (string, string, error) {
	switch {
	case ev.ID != "":
		return fmt.Sprintf("id %s", ev.ID), ev.ID, nil
	case ev.Key != "":
		return fmt.Sprintf("key %s", ev.Key), ev.Key, nil
	}

	target := fmt.Sprintf("%s %q", ev.Kind, ev.Label)
	if ev.Ordinal > 0 {
		target = fmt.Sprintf("%s #%d", target, ev.Ordinal)
	}

	var id string
	err := h.manager.Inspect(ctx, h.sessionID, func(s *engine.Session) {
		if w, ok := s.Registry().Find(widget.Kind(ev.Kind), ev.Label, ev.Ordinal); ok {
			id = w.ID
		}
	})
	if err != nil {
		return target, "", err
	}
	if id == "" {
		return target, "", fmt.Errorf("no %s in the previous run", target)
	}
	return target, id, nil
}

func (h *Harness) state(ctx context.Context) (map[string]ir.Value, error) {
	var snap map[string]ir.Value
	err := h.manager.Inspect(ctx, h.sessionID, func(s *engine.Session) {
		snap = s.Store.Snapshot()
	})
	return snap, err
}
