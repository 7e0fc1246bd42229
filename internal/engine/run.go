package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/jeamlit/internal/form"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/render"
	"github.com/roach88/jeamlit/internal/state"
	"github.com/roach88/jeamlit/internal/widget"
)

// Phase is the lifecycle state of a run.
type Phase string

const (
	PhaseStart     Phase = "START"
	PhaseExecuting Phase = "EXECUTING"
	PhaseDone      Phase = "DONE"
	PhaseFailed    Phase = "FAILED"
)

// Run is one top-to-bottom execution of the script.
//
// Run embeds the root Block, so scripts declare widgets directly on it:
//
//	func app(r *engine.Run) error {
//	    age := r.Slider("Select your age", 0, 100, 30)
//	    r.Text(fmt.Sprintf("You selected age: %v", age))
//	    return nil
//	}
//
// The first error raised by any primitive is kept and every later
// primitive becomes a no-op returning the zero value.
type Run struct {
	*Block

	ctx       context.Context
	sess      *Session
	seq       int64
	phase     Phase
	trigger   *Trigger
	tx        *state.Tx
	registry  *widget.Registry
	forms     *form.Coordinator
	callbacks map[string]Callback
	state     *SessionState
	cache     *Cache
	err       error
	halted    bool
	log       *slog.Logger
}

func newRun(ctx context.Context, sess *Session, seq int64, trig *Trigger, cache *Cache, log *slog.Logger) *Run {
	r := &Run{
		ctx:       ctx,
		sess:      sess,
		seq:       seq,
		trigger:   trig,
		tx:        sess.Store.Begin(),
		registry:  widget.NewRegistry(),
		callbacks: make(map[string]Callback),
		cache:     cache,
		log:       log,
	}
	r.Block = &Block{run: r, kind: "main", path: "main"}
	r.state = &SessionState{run: r}
	return r
}

// Seq returns the run's logical sequence number within its session.
func (r *Run) Seq() int64 { return r.seq }

// Phase returns the run's lifecycle state.
func (r *Run) Phase() Phase { return r.phase }

// SessionID returns the id of the session the run belongs to.
func (r *Run) SessionID() string { return r.sess.ID }

// Context returns the context the run was started with.
func (r *Run) Context() context.Context { return r.ctx }

// Err returns the first error raised during the run.
func (r *Run) Err() error { return r.err }

// State returns the session state accessor.
func (r *Run) State() *SessionState { return r.state }

// Cache returns the accessor for the cache shared by all sessions.
func (r *Run) Cache() *AppCache { return &AppCache{run: r} }

// Rerun stops the run and requests a fresh one without a trigger. State
// written so far is committed. Later primitives become no-ops, so the
// script should return right after calling it.
func (r *Run) Rerun() {
	if r.ok() {
		r.halted = true
		r.log.Debug("rerun requested")
	}
}

// Halted reports whether Rerun was called.
func (r *Run) Halted() bool { return r.halted }

// Fail aborts the run with err. Later primitives become no-ops.
func (r *Run) Fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Submitted reports whether this run was triggered by the submit button of
// the form with the given id.
func (r *Run) Submitted(formID string) bool {
	return r.forms.Submit(formID)
}

// ok reports whether primitives may still act. A cancelled context
// becomes the run's error.
func (r *Run) ok() bool {
	if r.err != nil || r.halted {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.Fail(err)
		return false
	}
	return true
}

// start pre-applies the trigger: the new value of an immediate widget, or
// the pending edits of the form whose submit button fired.
func (r *Run) start() error {
	r.phase = PhaseStart
	r.log.Debug("run phase", "phase", r.phase, "trigger", r.trigger.String())

	submitting := ""
	if t := r.trigger; t != nil {
		w, ok := r.sess.registry.Get(t.WidgetID)
		if !ok {
			r.forms = form.NewCoordinator(r.sess.Buffer, "")
			return NewUnknownWidgetError(t.WidgetID)
		}
		if w.Kind == widget.KindFormSubmitButton {
			submitting = w.FormID
		}
		if err := r.tx.Set(w.ID, t.Value); err != nil {
			r.forms = form.NewCoordinator(r.sess.Buffer, "")
			return err
		}
	}

	r.forms = form.NewCoordinator(r.sess.Buffer, submitting)
	for _, edit := range r.forms.Commits() {
		if err := r.tx.Set(edit.WidgetID, edit.Value); err != nil {
			return err
		}
	}
	return nil
}

// execute runs the trigger's callback, then the script.
func (r *Run) execute(script Script) (err error) {
	r.phase = PhaseExecuting
	r.log.Debug("run phase", "phase", r.phase)

	defer func() {
		if p := recover(); p != nil {
			r.Fail(fmt.Errorf("script panicked: %v", p))
			err = r.err
		}
	}()

	if t := r.trigger; t != nil {
		if cb := r.sess.callbacks[t.WidgetID]; cb != nil {
			cb(r)
			if r.err != nil || r.halted {
				return r.err
			}
		}
	}

	if script == nil {
		return fmt.Errorf("no script loaded")
	}
	if serr := script(r); serr != nil {
		r.Fail(serr)
	}
	r.ok()
	return r.err
}

// finish settles widget state and commits.
func (r *Run) finish() error {
	if r.halted {
		return r.finishHalted()
	}
	for _, w := range r.registry.Instances() {
		var err error
		switch {
		case w.Kind.Momentary():
			err = r.tx.Set(w.ID, ir.Bool(false))
		case w.Classify() == widget.Immediate:
			err = r.tx.Set(w.ID, w.Value)
		}
		if err != nil {
			return err
		}
	}

	for _, id := range r.forms.ToReset() {
		w, _ := r.registry.Get(id)
		if err := r.tx.Set(id, w.Default); err != nil {
			return err
		}
	}

	for _, w := range r.sess.registry.Instances() {
		if _, still := r.registry.Get(w.ID); still {
			continue
		}
		if w.Explicit() && w.Persist {
			continue
		}
		r.tx.Delete(w.ID)
	}

	if err := r.tx.Commit(); err != nil {
		return err
	}
	r.forms.Finish()
	r.phase = PhaseDone
	return nil
}

// finishHalted commits a run stopped by Rerun. Widgets the run never
// reached are left alone, except that every button is released so the
// rerun does not see the click again.
func (r *Run) finishHalted() error {
	for _, reg := range []*widget.Registry{r.sess.registry, r.registry} {
		for _, w := range reg.Instances() {
			if !w.Kind.Momentary() || !r.tx.Has(w.ID) {
				continue
			}
			if err := r.tx.Set(w.ID, ir.Bool(false)); err != nil {
				return err
			}
		}
	}
	for _, w := range r.registry.Instances() {
		if w.Classify() != widget.Immediate || w.Kind.Momentary() {
			continue
		}
		if err := r.tx.Set(w.ID, w.Value); err != nil {
			return err
		}
	}
	for _, id := range r.forms.ToReset() {
		w, _ := r.registry.Get(id)
		if err := r.tx.Set(id, w.Default); err != nil {
			return err
		}
	}

	if err := r.tx.Commit(); err != nil {
		return err
	}
	r.forms.FinishHalted()
	r.phase = PhaseDone
	return nil
}

// abort discards everything the run staged.
func (r *Run) abort() {
	r.tx.Rollback()
	r.phase = PhaseFailed
}

func (r *Run) render() render.Output {
	var out render.Output
	r.Block.flatten(&out)
	return out
}
