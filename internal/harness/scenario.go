package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/widget"
)

// Scenario drives one session through a sequence of steps.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// App is the name of a fixture script.
	App string `yaml:"app,omitempty"`

	// Script is a path to a JavaScript app. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Script string `yaml:"script,omitempty"`

	// Session is an optional fixed session id.
	Session string `yaml:"session,omitempty"`

	// Steps run in order against one session.
	Steps []Step `yaml:"steps"`

	// Assertions validate the session after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is either a load (run without a trigger) or a widget event.
type Step struct {
	Load   bool       `yaml:"load,omitempty"`
	Event  *EventStep `yaml:"event,omitempty"`
	Expect *Expect    `yaml:"expect,omitempty"`
}

// EventStep is a widget edit.
type EventStep struct {
	// ID addresses a widget by raw identity. It is not checked against the
	// previous run, so it can exercise UNKNOWN_WIDGET.
	ID string `yaml:"id,omitempty"`

	// Key addresses a widget by its explicit key.
	Key string `yaml:"key,omitempty"`

	// Kind, Label and Ordinal address a widget without a key.
	Kind    string `yaml:"kind,omitempty"`
	Label   string `yaml:"label,omitempty"`
	Ordinal int    `yaml:"ordinal,omitempty"`

	// Value is the new raw value.
	Value any `yaml:"value"`
}

// Expect checks the outcome of one step.
type Expect struct {
	// Rerun, when set, is whether the step ran the script.
	Rerun *bool `yaml:"rerun,omitempty"`

	// Error is the expected run error code. Empty expects success.
	Error engine.RunErrorCode `yaml:"error,omitempty"`

	// Contains lists substrings that must appear in the output's text.
	Contains []string `yaml:"contains,omitempty"`

	// Absent lists substrings that must not appear in the output's text.
	Absent []string `yaml:"absent,omitempty"`

	// State lists state values after the step. Subset match.
	State map[string]any `yaml:"state,omitempty"`

	// MissingState lists keys that must not be set after the step.
	MissingState []string `yaml:"missing_state,omitempty"`
}

// Assertion validates the session after the last step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Key is the state key (final_state, state_absent).
	Key string `yaml:"key,omitempty"`

	// Value is the expected state value (final_state).
	Value any `yaml:"value,omitempty"`

	// Text is the substring to look for (output_contains, output_absent).
	Text string `yaml:"text,omitempty"`

	// Seq is the expected seq of the last run (final_seq).
	Seq int64 `yaml:"seq,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState     = "final_state"
	AssertStateAbsent    = "state_absent"
	AssertOutputContains = "output_contains"
	AssertOutputAbsent   = "output_absent"
	AssertFinalSeq       = "final_seq"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Script != "" && !filepath.IsAbs(scenario.Script) {
		scenario.Script = filepath.Join(filepath.Dir(path), scenario.Script)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if (s.App == "") == (s.Script == "") {
		return fmt.Errorf("exactly one of app or script is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	if step.Load == (step.Event != nil) {
		return fmt.Errorf("steps[%d]: exactly one of load or event is required", index)
	}
	if step.Event == nil {
		return nil
	}

	ev := step.Event
	targets := 0
	if ev.ID != "" {
		targets++
	}
	if ev.Key != "" {
		targets++
	}
	if ev.Kind != "" || ev.Label != "" {
		targets++
		if !widget.Kind(ev.Kind).Valid() {
			return fmt.Errorf("steps[%d]: unknown widget kind %q", index, ev.Kind)
		}
		if ev.Ordinal < 0 {
			return fmt.Errorf("steps[%d]: ordinal must be non-negative", index)
		}
	}
	if targets != 1 {
		return fmt.Errorf("steps[%d]: event needs exactly one of id, key or kind+label", index)
	}
	if ev.Value == nil {
		return fmt.Errorf("steps[%d]: event value is required", index)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if a.Key == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: key and value are required for final_state", index)
		}
	case AssertStateAbsent:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for state_absent", index)
		}
	case AssertOutputContains, AssertOutputAbsent:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertFinalSeq:
		if a.Seq <= 0 {
			return fmt.Errorf("assertions[%d]: seq must be positive for final_seq", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
