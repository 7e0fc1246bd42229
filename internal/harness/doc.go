// Package harness runs scripted sessions against the engine and checks
// what they render.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: demo_clicks
//	description: "Clicks persist across unrelated events"
//	app: demo                 # a fixture name, or
//	script: apps/demo.js      # a JavaScript app, relative to the scenario
//	steps:
//	  - load: true
//	    expect:
//	      contains: ["You selected age: 30"]
//	  - event: { kind: button, label: "Click me!", value: true }
//	    expect:
//	      contains: ["Button clicked 1 times"]
//	      state: { clicks: 1 }
//	  - event: { key: valA, value: 5 }
//	    expect:
//	      rerun: false
//	  - event: { id: "missing", value: 1 }
//	    expect:
//	      error: UNKNOWN_WIDGET
//	assertions:
//	  - type: final_state
//	    key: clicks
//	    value: 1
//
// An event names its widget by explicit key, by raw id, or by kind, label
// and ordinal (the n-th widget with that kind and label in the previous
// run). Kind/label targets are resolved against the session's last
// completed run, exactly as a browser would address them.
//
// # Assertion Types
//
//   - final_state: a state key holds a value after the last step
//   - state_absent: a state key is not set after the last step
//   - output_contains: the final output has a text element containing text
//   - output_absent: no text element of the final output contains text
//   - final_seq: the session's last run has the given seq
//
// # Deterministic Testing
//
// Every scenario runs in a fresh session manager with sequential session
// ids, so transcripts are byte-identical across runs and compared against
// goldie snapshots under testdata/golden.
//
// Replay re-drives a journaled event sequence through a fresh session and
// reports the first event whose outcome or output digest diverges.
package harness
