package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/jeamlit/internal/harness"
	"github.com/roach88/jeamlit/internal/render"
	"github.com/roach88/jeamlit/internal/store"
	"github.com/roach88/jeamlit/internal/widget"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Events  []string
	Journal string
}

// RunStep is one step of a run in JSON output.
type RunStep struct {
	Step   int           `json:"step"`
	Target string        `json:"target,omitempty"`
	Seq    int64         `json:"seq"`
	Rerun  bool          `json:"rerun"`
	Error  string        `json:"error,omitempty"`
	Output render.Output `json:"output"`
}

// RunResult is the JSON output of the run command.
type RunResult struct {
	App       string    `json:"app"`
	SessionID string    `json:"session_id"`
	Steps     []RunStep `json:"steps"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <app>",
		Short: "Run an app in one session and print its output",
		Long: `Run an app in a single session: the initial load, then each --event in
order. Prints the output left by every step.

<app> is a built-in fixture name or a path to a JavaScript app.

An event is target=value. The target is a widget key, id:<widget id>, or
<kind>:<label> for the first widget with that kind and label. The value is
parsed as YAML, so 10 is a number, true is a boolean and "10" is a string.

Examples:
  jeamlit run demo
  jeamlit run demo --event "slider:Select your age=70" --event "button:Click me!=true"
  jeamlit run ./app.js --event name=Ada --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Events, "event", "e", nil, "widget event target=value (repeatable)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal events to this SQLite database")

	return cmd
}

func runApp(opts *RunOptions, app string, cmd *cobra.Command) error {
	script, err := resolveApp(app)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load app", err)
	}

	scenario := &harness.Scenario{
		Name:  "run",
		App:   app,
		Steps: []harness.Step{{Load: true}},
	}
	for _, raw := range opts.Events {
		ev, err := ParseEvent(raw)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --event", err)
		}
		scenario.Steps = append(scenario.Steps, harness.Step{Event: ev})
	}

	hopts := []harness.Option{harness.WithLogger(opts.logger(cmd.ErrOrStderr()))}
	if opts.Journal != "" {
		st, err := store.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()
		hopts = append(hopts, harness.WithJournal(st))
	}

	result, err := harness.RunScript(scenario, script, hopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		out := RunResult{App: app, SessionID: result.SessionID, Steps: make([]RunStep, 0, len(result.Trace))}
		for _, e := range result.Trace {
			out.Steps = append(out.Steps, RunStep{
				Step:   e.Step,
				Target: e.Target,
				Seq:    e.Seq,
				Rerun:  e.Rerun,
				Error:  e.Error,
				Output: e.Output,
			})
		}
		return f.JSON(out, nil)
	}

	f.Printf("%s", harness.Transcript(app, result))
	return nil
}

// ParseEvent parses a target=value event argument.
func ParseEvent(raw string) (*harness.EventStep, error) {
	target, value, ok := strings.Cut(raw, "=")
	if !ok || target == "" {
		return nil, fmt.Errorf("%q: want target=value", raw)
	}

	var v any
	if err := yaml.Unmarshal([]byte(value), &v); err != nil {
		return nil, fmt.Errorf("%q: value: %w", raw, err)
	}
	if v == nil {
		// An empty value is an empty string, not null.
		v = value
	}

	ev := &harness.EventStep{Value: v}
	switch prefix, rest, found := strings.Cut(target, ":"); {
	case found && prefix == "id":
		ev.ID = rest
	case found && widget.Kind(prefix).Valid():
		ev.Kind, ev.Label = prefix, rest
	default:
		ev.Key = target
	}
	return ev, nil
}
