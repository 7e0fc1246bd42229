// Package form batches widget edits declared inside a form scope.
//
// A Buffer belongs to a session and outlives runs: it holds edits of
// form members that have not been submitted yet. A Coordinator belongs to
// one run: it tracks which forms the script opened, which widgets belong
// to them, and whether the run was triggered by a form's submit button.
//
// Edits move from the Buffer into the State Store only on a submit run,
// and only once that run completes.
package form
