package form

import (
	"errors"
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
)

// UsageError reports a form primitive used where it is not allowed.
type UsageError struct {
	FormID string
	Reason string
}

func (e *UsageError) Error() string {
	if e.FormID == "" {
		return "form usage: " + e.Reason
	}
	return fmt.Sprintf("form %q: %s", e.FormID, e.Reason)
}

// DuplicateFormError reports two forms with the same id in one run.
type DuplicateFormError struct {
	FormID string
}

func (e *DuplicateFormError) Error() string {
	return fmt.Sprintf("duplicate form id %q", e.FormID)
}

// IsUsageError reports whether err is or wraps a UsageError.
func IsUsageError(err error) bool {
	var e *UsageError
	return errors.As(err, &e)
}

// Context is a form opened during one run.
type Context struct {
	ID            string
	ClearOnSubmit bool

	members   []string
	memberSet map[string]struct{}
	submitted bool
	hasSubmit bool
}

// Members returns member widget identities in declaration order.
func (c *Context) Members() []string {
	return c.members
}

// Submitted reports whether this run was triggered by the form's submit
// button.
func (c *Context) Submitted() bool {
	return c.submitted
}

// Coordinator tracks the forms of one run.
type Coordinator struct {
	buffer    *Buffer
	trigger   string
	forms     map[string]*Context
	order     []*Context
	committed []Edit
}

// NewCoordinator starts form tracking for a run. submitting names the form
// whose submit button triggered the run, or is empty. The pending edits of
// that form are returned by Commits and leave the buffer only on Finish.
func NewCoordinator(buf *Buffer, submitting string) *Coordinator {
	c := &Coordinator{
		buffer:  buf,
		trigger: submitting,
		forms:   make(map[string]*Context),
	}
	if submitting != "" {
		c.committed = buf.Edits(submitting)
	}
	return c
}

// Commits returns the edits a submit run writes to state.
func (c *Coordinator) Commits() []Edit {
	return c.committed
}

// Open declares a form. Form ids are unique within a run.
func (c *Coordinator) Open(id string, clearOnSubmit bool) (*Context, error) {
	if id == "" {
		return nil, &UsageError{Reason: "form id cannot be empty"}
	}
	if _, dup := c.forms[id]; dup {
		return nil, &DuplicateFormError{FormID: id}
	}
	ctx := &Context{
		ID:            id,
		ClearOnSubmit: clearOnSubmit,
		memberSet:     make(map[string]struct{}),
		submitted:     id == c.trigger,
	}
	c.forms[id] = ctx
	c.order = append(c.order, ctx)
	return ctx, nil
}

// Get returns a form opened in this run.
func (c *Coordinator) Get(id string) (*Context, bool) {
	ctx, ok := c.forms[id]
	return ctx, ok
}

// RegisterMember adds a widget to an open form.
func (c *Coordinator) RegisterMember(formID, widgetID string) error {
	ctx, ok := c.forms[formID]
	if !ok {
		return &UsageError{FormID: formID, Reason: "widget declared in a form that was not opened"}
	}
	if _, dup := ctx.memberSet[widgetID]; !dup {
		ctx.memberSet[widgetID] = struct{}{}
		ctx.members = append(ctx.members, widgetID)
	}
	return nil
}

// RegisterSubmit records the submit button of a form and returns the value
// it reports for this run. At most one submit button per form is allowed.
func (c *Coordinator) RegisterSubmit(formID string) (bool, error) {
	if formID == "" {
		return false, &UsageError{Reason: "form_submit_button must be declared inside a form"}
	}
	ctx, ok := c.forms[formID]
	if !ok {
		return false, &UsageError{FormID: formID, Reason: "form_submit_button declared in a form that was not opened"}
	}
	if ctx.hasSubmit {
		return false, &UsageError{FormID: formID, Reason: "form has more than one submit button"}
	}
	ctx.hasSubmit = true
	return ctx.submitted, nil
}

// Submit reports whether the run was triggered by the form's submit action.
func (c *Coordinator) Submit(formID string) bool {
	ctx, ok := c.forms[formID]
	return ok && ctx.submitted
}

// Pending returns the unsubmitted edit of a member, if any.
// Edits being committed by this run are not pending.
func (c *Coordinator) Pending(formID, widgetID string) (ir.Value, bool) {
	if formID == c.trigger {
		return nil, false
	}
	return c.buffer.Pending(formID, widgetID)
}

// Cleared reports whether a member's display resets to its default at the
// end of this run.
func (c *Coordinator) Cleared(formID string) bool {
	ctx, ok := c.forms[formID]
	return ok && ctx.submitted && ctx.ClearOnSubmit
}

// ToReset returns the members whose state returns to the widget default
// once this run completes.
func (c *Coordinator) ToReset() []string {
	var ids []string
	for _, ctx := range c.order {
		if ctx.submitted && ctx.ClearOnSubmit {
			ids = append(ids, ctx.members...)
		}
	}
	return ids
}

// Forms returns forms in declaration order.
func (c *Coordinator) Forms() []*Context {
	return c.order
}

// FinishHalted settles the buffer after a run that stopped early to rerun.
// Only the submitted form's edits leave it. Forms the run never reached
// keep their pending edits for the rerun to declare.
func (c *Coordinator) FinishHalted() {
	if c.trigger != "" {
		c.buffer.Drop(c.trigger)
	}
}

// Finish settles the buffer after a completed run: committed edits leave
// it, as do edits of widgets no longer declared in any form.
// It is not called for failed runs, so their edits stay pending.
func (c *Coordinator) Finish() {
	if c.trigger != "" {
		c.buffer.Drop(c.trigger)
	}
	c.buffer.Retain(func(formID, widgetID string) bool {
		ctx, ok := c.forms[formID]
		if !ok {
			return false
		}
		_, member := ctx.memberSet[widgetID]
		return member
	})
}
