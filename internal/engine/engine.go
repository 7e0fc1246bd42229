package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/jeamlit/internal/form"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/render"
	"github.com/roach88/jeamlit/internal/state"
	"github.com/roach88/jeamlit/internal/widget"
)

// Script is an app: it declares widgets and output top to bottom.
// Errors raised by primitives are sticky on the Run; a script may also
// return its own error to abort the run.
type Script func(r *Run) error

// Callback runs on the run triggered by its widget, before the script.
type Callback func(r *Run)

// Trigger is the event pre-applied to exactly one widget before a run.
type Trigger struct {
	WidgetID string
	Value    ir.Value
}

// Result is the outcome of handling one event.
type Result struct {
	// Seq is the run that produced Output, or the last run when no run
	// executed.
	Seq int64

	// Output is the render output of the last completed run.
	Output render.Output

	// Rerun is false when the event was absorbed by a form buffer.
	Rerun bool

	// Classification is how the event's widget applies edits.
	Classification widget.Classification
}

// Session is the engine-facing state of one user session.
//
// A Session is not safe for concurrent use: the session manager runs at
// most one Execute or HandleEvent per Session at a time.
type Session struct {
	ID     string
	Store  *state.Store
	Buffer *form.Buffer
	Clock  *Clock

	registry  *widget.Registry
	callbacks map[string]Callback
	output    render.Output
	completed int
}

// NewSession creates an empty session. Its first run is the initial load.
func NewSession(id string) *Session {
	return &Session{
		ID:     id,
		Store:  state.NewStore(),
		Buffer: form.NewBuffer(),
		Clock:  NewClock(),
	}
}

// Output returns the output of the last completed run.
func (s *Session) Output() render.Output {
	return s.output
}

// Registry returns the widgets of the last completed run.
func (s *Session) Registry() *widget.Registry {
	return s.registry
}

// Loaded reports whether the session has completed at least one run.
func (s *Session) Loaded() bool {
	return s.completed > 0
}

// Engine executes a script against sessions.
//
// The engine holds no session state. It owns the script, which may be
// replaced at any time (hot reload), and the Cache shared by all sessions.
// Runs already started keep the script they started with.
type Engine struct {
	mu     sync.RWMutex
	script Script
	cache  *Cache
	logger *slog.Logger
}

// maxReruns bounds how many times one event may restart the script
// through Run.Rerun.
const maxReruns = 32

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger used for run lifecycle events.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache sets the cache shared by the engine's sessions.
//
// Default: an empty cache per Engine
func WithCache(c *Cache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

// New creates an Engine running the given script.
func New(script Script, opts ...EngineOption) *Engine {
	e := &Engine{
		script: script,
		cache:  NewCache(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetScript replaces the script for subsequent runs.
func (e *Engine) SetScript(s Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.script = s
}

// Cache returns the cache shared by the engine's sessions.
func (e *Engine) Cache() *Cache {
	return e.cache
}

func (e *Engine) currentScript() Script {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.script
}

// HandleEvent applies a widget edit to a session.
//
// Edits of form-buffered widgets are held in the session's form buffer and
// return the previous output without a run. Every other edit triggers a
// full rerun with the new value pre-applied. A momentary widget (button)
// edit with a false value reruns without a trigger.
func (e *Engine) HandleEvent(ctx context.Context, sess *Session, widgetID string, raw any) (Result, error) {
	w, ok := sess.registry.Get(widgetID)
	if !ok {
		return Result{Seq: sess.Clock.Current(), Output: sess.output}, NewUnknownWidgetError(widgetID)
	}

	v, err := w.Coerce(raw)
	if err != nil {
		re := asRunError(err)
		return Result{Seq: sess.Clock.Current(), Output: sess.output}, re
	}

	class := w.Classify()
	if class == widget.FormBuffered {
		sess.Buffer.Put(w.FormID, w.ID, v)
		e.logger.Debug("form edit buffered",
			"session_id", sess.ID,
			"widget_id", w.ID,
			"form_id", w.FormID,
		)
		return Result{Seq: sess.Clock.Current(), Output: sess.output, Classification: class}, nil
	}

	var trig *Trigger
	if !w.Kind.Momentary() || v == ir.Bool(true) {
		trig = &Trigger{WidgetID: w.ID, Value: v}
	}
	res, err := e.Execute(ctx, sess, trig)
	res.Classification = class
	return res, err
}

// Execute runs the script for a session.
//
// trig is nil for the initial load and for plain reruns. On success the
// session's state, widget registry and output advance to the new run. On
// failure nothing the run staged is visible and the error is a *RunError.
//
// A run that calls Rerun commits what it wrote and is followed by a run
// without a trigger, each with its own sequence number. Only the last run
// renders.
func (e *Engine) Execute(ctx context.Context, sess *Session, trig *Trigger) (Result, error) {
	for reruns := 0; ; reruns++ {
		res, halted, err := e.execute(ctx, sess, trig)
		if err != nil || !halted {
			return res, err
		}
		if reruns == maxReruns {
			re := &RunError{
				Code:    ErrCodeRerunLimit,
				Message: fmt.Sprintf("script requested more than %d consecutive reruns", maxReruns),
				Seq:     res.Seq,
			}
			e.logger.Warn("run failed", "session_id", sess.ID, "seq", res.Seq, "code", re.Code)
			return res, re
		}
		trig = nil
	}
}

func (e *Engine) execute(ctx context.Context, sess *Session, trig *Trigger) (Result, bool, error) {
	seq := sess.Clock.Next()
	log := e.logger.With("session_id", sess.ID, "seq", seq)

	r := newRun(ctx, sess, seq, trig, e.cache, log)
	err := r.start()
	if err == nil {
		err = r.execute(e.currentScript())
	}
	if err == nil {
		err = r.finish()
	}
	if err != nil {
		r.abort()
		re := asRunError(err)
		re.Seq = seq
		log.Warn("run failed",
			"code", re.Code,
			"key", re.Key,
			"error", re.Message,
		)
		return Result{Seq: seq, Output: sess.output, Rerun: true}, false, re
	}
	if r.halted {
		log.Debug("run halted for rerun", "widgets", r.registry.Len())
		return Result{Seq: seq, Output: sess.output, Rerun: true}, true, nil
	}

	sess.registry = r.registry
	sess.callbacks = r.callbacks
	sess.output = r.render()
	sess.completed++

	log.Debug("run completed",
		"phase", r.phase,
		"widgets", r.registry.Len(),
		"elements", sess.output.Len(),
	)
	return Result{Seq: seq, Output: sess.output, Rerun: true}, false, nil
}

// Load runs the script without a trigger.
func (e *Engine) Load(ctx context.Context, sess *Session) (Result, error) {
	return e.Execute(ctx, sess, nil)
}

func (t *Trigger) String() string {
	if t == nil {
		return "<load>"
	}
	return fmt.Sprintf("%s=%s", t.WidgetID, ir.Format(t.Value))
}
