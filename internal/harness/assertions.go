package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/jeamlit/internal/ir"
)

// checkExpect compares one step against its expect clause. state is the
// State Store after the step; nil when the clause checks no state.
//
// A step without an expect clause must succeed.
func checkExpect(entry TraceEntry, exp *Expect, state map[string]ir.Value) []string {
	var errs []string

	if exp == nil {
		if entry.Error != "" {
			errs = append(errs, fmt.Sprintf("unexpected error %s", entry.Error))
		}
		return errs
	}

	if string(exp.Error) != entry.Error {
		switch {
		case exp.Error == "":
			errs = append(errs, fmt.Sprintf("unexpected error %s", entry.Error))
		case entry.Error == "":
			errs = append(errs, fmt.Sprintf("expected error %s, run succeeded", exp.Error))
		default:
			errs = append(errs, fmt.Sprintf("expected error %s, got %s", exp.Error, entry.Error))
		}
	}

	if exp.Rerun != nil && *exp.Rerun != entry.Rerun {
		errs = append(errs, fmt.Sprintf("expected rerun=%v, got %v", *exp.Rerun, entry.Rerun))
	}

	for _, text := range exp.Contains {
		if !entry.Output.Contains(text) {
			errs = append(errs, fmt.Sprintf("output does not contain %q", text))
		}
	}
	for _, text := range exp.Absent {
		if entry.Output.Contains(text) {
			errs = append(errs, fmt.Sprintf("output unexpectedly contains %q", text))
		}
	}

	for _, key := range ir.SortedKeys(exp.State) {
		errs = append(errs, checkState(state, key, exp.State[key])...)
	}
	for _, key := range exp.MissingState {
		if v, ok := state[key]; ok {
			errs = append(errs, fmt.Sprintf("state %q should be unset, holds %s", key, ir.Format(v)))
		}
	}
	return errs
}

// EvaluateAssertions checks the final session against every assertion.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		for _, msg := range evaluate(result, a) {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %s", i, a.Type, msg))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) []string {
	switch a.Type {
	case AssertFinalState:
		return checkState(result.State, a.Key, a.Value)
	case AssertStateAbsent:
		if v, ok := result.State[a.Key]; ok {
			return []string{fmt.Sprintf("state %q should be unset, holds %s", a.Key, ir.Format(v))}
		}
	case AssertOutputContains:
		if !result.Output.Contains(a.Text) {
			return []string{fmt.Sprintf("final output does not contain %q", a.Text)}
		}
	case AssertOutputAbsent:
		if result.Output.Contains(a.Text) {
			return []string{fmt.Sprintf("final output unexpectedly contains %q", a.Text)}
		}
	case AssertFinalSeq:
		if result.Seq != a.Seq {
			return []string{fmt.Sprintf("expected final seq %d, got %d", a.Seq, result.Seq)}
		}
	default:
		return []string{fmt.Sprintf("unknown assertion type %q", a.Type)}
	}
	return nil
}

func checkState(state map[string]ir.Value, key string, want any) []string {
	wantVal, err := ir.FromAny(want)
	if err != nil {
		return []string{fmt.Sprintf("state %q: bad expected value: %v", key, err)}
	}
	got, ok := state[key]
	if !ok {
		return []string{fmt.Sprintf("state %q is unset, want %s", key, ir.Format(wantVal))}
	}
	if !ir.Equal(got, wantVal) {
		return []string{fmt.Sprintf("state %q = %s (%s), want %s (%s)",
			key, ir.Format(got), got.Kind(), ir.Format(wantVal), wantVal.Kind())}
	}
	return nil
}

// Summary renders a result's errors, one per line.
func (r *Result) Summary() string {
	if r.Pass {
		return "PASS"
	}
	return "FAIL\n  " + strings.Join(r.Errors, "\n  ")
}
