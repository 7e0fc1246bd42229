package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Transcript renders a result as plain text: one block per step with the
// step, its seq, its error code if any, and the output it left behind.
// Buffered edits show no output.
func Transcript(name string, r *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", name)
	for _, e := range r.Trace {
		fmt.Fprintf(&sb, "\n# step %d: %s\n", e.Step, e.Describe())
		fmt.Fprintf(&sb, "seq: %d\n", e.Seq)
		if e.Error != "" {
			if e.ErrKey != "" {
				fmt.Fprintf(&sb, "error: %s key=%s\n", e.Error, e.ErrKey)
			} else {
				fmt.Fprintf(&sb, "error: %s\n", e.Error)
			}
		}
		if !e.Rerun {
			sb.WriteString("rerun: false\n")
			continue
		}
		sb.WriteString(e.Output.Text())
	}
	return sb.String()
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, "testdata/golden", scenario.Name, result)
	return result, nil
}

// AssertGolden compares a result's transcript against {dir}/{name}.golden.
func AssertGolden(t *testing.T, dir, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(Transcript(name, result)))
}
