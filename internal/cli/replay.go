package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/jeamlit/internal/harness"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
	Session string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string `json:"session_id"`
	Events        int    `json:"events"`
	EngineVersion string `json:"engine_version"`
	Deterministic bool   `json:"deterministic"`
	Divergence    string `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <app>",
		Short: "Replay a journal and verify determinism",
		Long: `Re-drive journaled sessions through fresh sessions of <app> and verify
that every event reproduces its seq, outcome and output digest.

The journal is diagnostic only; replay never restores a live session.

Exit codes:
  0 - All sessions reproduced
  1 - A session diverged
  2 - Command error (journal not found, unknown app, etc.)

Examples:
  jeamlit replay --journal ./jeamlit.db demo
  jeamlit replay --journal ./jeamlit.db --session 0190c1a2-... ./app.js
  jeamlit replay --journal ./jeamlit.db demo --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, app string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	script, err := resolveApp(app)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load app", err)
	}

	if _, err := os.Stat(opts.Journal); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	st, err := store.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	if opts.Session != "" {
		var only []store.SessionInfo
		for _, s := range sessions {
			if s.ID == opts.Session {
				only = append(only, s)
			}
		}
		if len(only) == 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("session %s not in journal", opts.Session))
		}
		sessions = only
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	if len(sessions) == 0 {
		if opts.Format == "json" {
			return f.JSON(result, nil)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in journal.")
		return nil
	}

	for _, info := range sessions {
		if info.EngineVersion != ir.EngineVersion {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: session %s was journaled by engine %s, replaying with %s\n",
				info.ID, info.EngineVersion, ir.EngineVersion)
		}

		events, err := st.ReadEvents(ctx, info.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read session %s", info.ID), err)
		}
		report, err := harness.Replay(ctx, script, events)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", info.ID), err)
		}

		sr := ReplaySessionResult{
			SessionID:     info.ID,
			Events:        report.Events,
			EngineVersion: info.EngineVersion,
			Deterministic: report.OK(),
		}
		if !report.OK() {
			sr.Divergence = report.Divergence.String()
			result.AllDeterministic = false
		}
		result.Sessions = append(result.Sessions, sr)
	}

	var failure *CLIError
	if !result.AllDeterministic {
		failure = &CLIError{Code: CodeReplayDiverged, Message: "replay diverged from the journal"}
	}

	if opts.Format == "json" {
		if err := f.JSON(result, failure); err != nil {
			return err
		}
	} else {
		for _, s := range result.Sessions {
			if s.Deterministic {
				f.Printf("✓ %s: %d events reproduced\n", s.SessionID, s.Events)
			} else {
				f.Printf("✗ %s: %s\n", s.SessionID, s.Divergence)
			}
		}
	}

	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}
