package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/fixtures"
	"github.com/roach88/jeamlit/internal/store"
)

// goldenScenarios have transcripts under testdata/golden.
var goldenScenarios = map[string]bool{
	"slider_test":  true,
	"callbacks":    true,
	"layout":       true,
	"forms_strict": true,
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			var result *Result
			if goldenScenarios[scenario.Name] {
				result, err = RunWithGolden(t, scenario)
			} else {
				result, err = Run(scenario)
			}
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Summary())
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong
app: demo
steps:
  - load: true
    expect:
      contains: ["You selected age: 31"]
      state: { clicks: 2 }
  - event: { kind: button, label: "Click me!", value: true }
    expect:
      error: KEY_NOT_FOUND
assertions:
  - type: final_seq
    seq: 7
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `output does not contain "You selected age: 31"`)
	assert.Contains(t, result.Errors[1], `state "clicks" = 0`)
	assert.Contains(t, result.Errors[2], "expected error KEY_NOT_FOUND, run succeeded")
	assert.Contains(t, result.Errors[3], "expected final seq 7, got 2")
	assert.True(t, strings.HasPrefix(result.Summary(), "FAIL"))
}

func TestRun_UnexpectedErrorFailsStep(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: unexpected
app: forms_strict
steps:
  - load: true
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "unexpected error KEY_NOT_FOUND")
}

func TestRun_UnresolvableTarget(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: missing_target
app: demo
steps:
  - load: true
  - event: { kind: slider, label: "Nope", value: 1 }
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	assert.ErrorContains(t, err, `no slider "Nope" in the previous run`)
}

func TestRun_EventBeforeLoad(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: early
app: demo
steps:
  - event: { key: x, value: 1 }
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	assert.ErrorContains(t, err, "event before the first load")
}

func TestRun_UnknownApp(t *testing.T) {
	scenario := &Scenario{Name: "x", App: "nope", Steps: []Step{{Load: true}}}
	_, err := Run(scenario)
	assert.ErrorContains(t, err, `unknown fixture "nope"`)
}

func TestTranscript_BufferedStep(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: buffered
app: forms
steps:
  - load: true
  - event: { key: valA, value: 5 }
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Summary())

	text := Transcript("buffered", result)
	assert.True(t, strings.HasSuffix(text, "# step 2: key valA = 5\nseq: 1\nrerun: false\n"), text)
}

func TestReplay_ReproducesJournal(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	scenario, err := LoadScenario("testdata/scenarios/forms_buffering.yaml")
	require.NoError(t, err)
	result, err := Run(scenario, WithJournal(db))
	require.NoError(t, err)
	require.True(t, result.Pass, result.Summary())

	events, err := db.ReadEvents(ctx, result.SessionID)
	require.NoError(t, err)
	require.Len(t, events, len(scenario.Steps))

	report, err := Replay(ctx, fixtures.Forms, events)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Divergence)
	assert.Equal(t, len(events), report.Events)
}

func TestReplay_ReportsDivergence(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	scenario, err := LoadScenario("testdata/scenarios/demo_scenario.yaml")
	require.NoError(t, err)
	result, err := Run(scenario, WithJournal(db))
	require.NoError(t, err)

	events, err := db.ReadEvents(ctx, result.SessionID)
	require.NoError(t, err)

	changed := func(r *engine.Run) error {
		if err := fixtures.Demo(r); err != nil {
			return err
		}
		if r.Seq() == 3 {
			r.Text("extra")
		}
		return nil
	}
	report, err := Replay(ctx, changed, events)
	require.NoError(t, err)
	require.False(t, report.OK())
	assert.Equal(t, 2, report.Divergence.Index)
	assert.Equal(t, int64(3), report.Divergence.Seq)
	assert.Contains(t, report.Divergence.String(), "output digest")
}

func TestReplay_Empty(t *testing.T) {
	report, err := Replay(context.Background(), fixtures.Demo, nil)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Events)
}
