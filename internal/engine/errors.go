package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/jeamlit/internal/form"
	"github.com/roach88/jeamlit/internal/state"
	"github.com/roach88/jeamlit/internal/widget"
)

// RunError represents an error that aborted a run.
//
// Run errors are run-fatal but session-recoverable: the run's writes are
// discarded and the session keeps the state of its last completed run.
//
// RunError includes structured fields for display and diagnostics.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// Key is the state key or widget identity involved, if any.
	Key string

	// Seq is the run that failed. Zero for errors raised before a run.
	Seq int64

	// Details contains additional context.
	Details map[string]string

	err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeDuplicateKey indicates two widgets or forms resolved to one identity.
	ErrCodeDuplicateKey RunErrorCode = "DUPLICATE_KEY"

	// ErrCodeKeyNotFound indicates a state read of a key that was never set.
	ErrCodeKeyNotFound RunErrorCode = "KEY_NOT_FOUND"

	// ErrCodeTypeMismatch indicates a state key reused with another value kind.
	ErrCodeTypeMismatch RunErrorCode = "TYPE_MISMATCH"

	// ErrCodeConstraintViolation indicates a widget value outside its bounds,
	// or invalid bounds.
	ErrCodeConstraintViolation RunErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeLayout indicates an invalid layout call, such as columns
	// without weights.
	ErrCodeLayout RunErrorCode = "LAYOUT_ERROR"

	// ErrCodeFormUsage indicates a form primitive used outside its scope.
	ErrCodeFormUsage RunErrorCode = "FORM_USAGE"

	// ErrCodeUnknownWidget indicates an event for a widget absent from the
	// session's last completed run.
	ErrCodeUnknownWidget RunErrorCode = "UNKNOWN_WIDGET"

	// ErrCodeScript indicates the script returned an error or panicked.
	ErrCodeScript RunErrorCode = "SCRIPT_ERROR"

	// ErrCodeRerunLimit indicates a script that kept requesting reruns.
	ErrCodeRerunLimit RunErrorCode = "RERUN_LIMIT"

	// ErrCodeCancelled indicates the run's context was cancelled.
	ErrCodeCancelled RunErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying typed error.
func (e *RunError) Unwrap() error {
	return e.err
}

// CodeOf returns the RunErrorCode of err, or "" if err is not a RunError.
func CodeOf(err error) RunErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsDuplicateKey reports whether err is a duplicate identity error.
func IsDuplicateKey(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateKey
}

// IsKeyNotFound reports whether err is a missing state key error.
func IsKeyNotFound(err error) bool {
	return CodeOf(err) == ErrCodeKeyNotFound
}

// IsTypeMismatch reports whether err is a state type mismatch error.
func IsTypeMismatch(err error) bool {
	return CodeOf(err) == ErrCodeTypeMismatch
}

// IsConstraintViolation reports whether err is a constraint violation.
func IsConstraintViolation(err error) bool {
	return CodeOf(err) == ErrCodeConstraintViolation
}

// IsLayoutError reports whether err is an invalid layout call.
func IsLayoutError(err error) bool {
	return CodeOf(err) == ErrCodeLayout
}

// IsUnknownWidget reports whether err names a widget the session never declared.
func IsUnknownWidget(err error) bool {
	return CodeOf(err) == ErrCodeUnknownWidget
}

// NewUnknownWidgetError creates a RunError for an event naming an unknown widget.
func NewUnknownWidgetError(widgetID string) *RunError {
	return &RunError{
		Code:    ErrCodeUnknownWidget,
		Message: "received update for a widget absent from the last run",
		Key:     widgetID,
	}
}

// asRunError maps a lower-level error onto a RunError.
func asRunError(err error) *RunError {
	var re *RunError
	if errors.As(err, &re) {
		return re
	}

	out := &RunError{Code: ErrCodeScript, Message: err.Error(), err: err}

	var (
		dupWidget *widget.DuplicateKeyError
		dupForm   *form.DuplicateFormError
		notFound  *state.KeyNotFoundError
		mismatch  *state.TypeMismatchError
		violation *widget.ConstraintError
		usage     *form.UsageError
		layout    *LayoutError
	)
	switch {
	case errors.As(err, &dupWidget):
		out.Code, out.Key = ErrCodeDuplicateKey, dupWidget.ID
		out.Details = map[string]string{
			"kind":           string(dupWidget.Kind),
			"label":          dupWidget.Label,
			"existing_kind":  string(dupWidget.Existing.Kind),
			"existing_label": dupWidget.Existing.Label,
		}
	case errors.As(err, &dupForm):
		out.Code, out.Key = ErrCodeDuplicateKey, dupForm.FormID
	case errors.As(err, &notFound):
		out.Code, out.Key = ErrCodeKeyNotFound, notFound.Key
	case errors.As(err, &mismatch):
		out.Code, out.Key = ErrCodeTypeMismatch, mismatch.Key
		out.Details = map[string]string{
			"have": mismatch.Have.String(),
			"want": mismatch.Want.String(),
		}
	case errors.As(err, &violation):
		out.Code, out.Key = ErrCodeConstraintViolation, violation.WidgetID
	case errors.As(err, &usage):
		out.Code, out.Key = ErrCodeFormUsage, usage.FormID
	case errors.As(err, &layout):
		out.Code = ErrCodeLayout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out.Code = ErrCodeCancelled
	}
	return out
}
