package harness

import (
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/render"
)

// TraceEntry records one executed step.
type TraceEntry struct {
	// Step is the 1-based step number.
	Step int

	// Target describes the event's widget as the scenario named it.
	// Empty for loads.
	Target string

	// WidgetID is the resolved widget identity. Empty for loads.
	WidgetID string

	// Value is the event's raw value.
	Value any

	Seq    int64
	Rerun  bool
	Error  string // run error code, empty on success
	ErrKey string

	// Output is the session's output after the step.
	Output render.Output
}

// Describe renders the step for transcripts and error messages.
func (e TraceEntry) Describe() string {
	if e.Target == "" {
		return "load"
	}
	return fmt.Sprintf("%s = %s", e.Target, formatAny(e.Value))
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool

	// SessionID is the id of the session the scenario drove.
	SessionID string

	// Trace contains every step in order.
	Trace []TraceEntry

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string

	// State is the session's State Store after the last step.
	State map[string]ir.Value

	// Output is the session's output after the last step.
	Output render.Output

	// Seq is the session's last run.
	Seq int64
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
		State:  map[string]ir.Value{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func formatAny(v any) string {
	if val, err := ir.FromAny(v); err == nil {
		return ir.Format(val)
	}
	return fmt.Sprintf("%v", v)
}
