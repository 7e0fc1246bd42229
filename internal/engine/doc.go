// Package engine implements the script execution engine.
//
// A script is a Go function (or a compiled JavaScript app wrapped as one)
// that declares widgets and output statements top to bottom. The engine
// re-executes the whole script once per trigger and reconciles widget state
// across executions.
//
// ARCHITECTURE:
//
// Run State Machine:
// Every run moves START -> EXECUTING -> DONE, or to FAILED when the script
// raises a typed error. There is no suspension inside a run: widget calls
// return immediately with the widget's current-run value.
//
// Run Flow:
//  1. START: open a state transaction; pre-apply the triggering event to
//     exactly one widget (or, for a submit button, stage the form's
//     pending edits)
//  2. EXECUTING: run the trigger's OnChange callback, then the script;
//     each widget call resolves an identity, validates, and stages
//  3. DONE: reset momentary widgets, reset cleared forms, drop state of
//     widgets that disappeared, commit
//
// A failed run rolls back its transaction. The session keeps the state and
// output of its last completed run.
//
// CRITICAL PATTERNS:
//
// Single Writer:
// The engine holds no per-session state of its own. A Session is mutated
// only by the goroutine that calls Execute or HandleEvent for it; the
// session manager guarantees one such call at a time.
//
// Logical Clock:
// Runs of a session are numbered by its Clock. NEVER use wall-clock time
// for ordering.
package engine
