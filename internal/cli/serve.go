package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/jsscript"
	"github.com/roach88/jeamlit/internal/realtime"
	"github.com/roach88/jeamlit/internal/session"
	"github.com/roach88/jeamlit/internal/store"
	"github.com/roach88/jeamlit/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command. Empty flags fall back to
// the configuration.
type ServeOptions struct {
	*RootOptions
	Addr      string
	Journal   string
	StaticDir string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <app>",
		Short: "Serve an app over HTTP and WebSocket",
		Long: `Serve an app to browsers. Each WebSocket connection gets its own session.

When <app> is a JavaScript file it is watched: on change it is recompiled
and every live session reruns. A script that fails to compile is reported
to clients and the previous version keeps running.

Configuration comes from defaults, --config, JEAMLIT_* environment
variables and finally these flags.

Examples:
  jeamlit serve demo
  jeamlit serve ./app.js --addr :8080
  jeamlit serve ./app.js --journal ./jeamlit.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, :8501)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal events to this SQLite database")
	cmd.Flags().StringVar(&opts.StaticDir, "static", "", "serve the browser client from this directory")

	return cmd
}

func runServe(opts *ServeOptions, app string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.Journal != "" {
		cfg.Journal = opts.Journal
	}
	if opts.StaticDir != "" {
		cfg.StaticDir = opts.StaticDir
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	script, err := resolveApp(app)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load app", err)
	}
	eng := engine.New(script, engine.WithLogger(logger))

	mopts := []session.Option{
		session.WithLogger(logger),
		session.WithMaxSessions(cfg.MaxSessions),
		session.WithIdleTimeout(cfg.IdleTimeout),
	}
	if cfg.Journal != "" {
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		mopts = append(mopts, session.WithJournal(st))
		logger.Info("journal enabled", "path", cfg.Journal)
	}
	mgr := session.NewManager(eng, mopts...)
	defer mgr.Shutdown()

	srv := realtime.New(mgr,
		realtime.WithLogger(logger),
		realtime.WithStaticDir(cfg.StaticDir),
	)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if isScriptFile(app) {
		w, err := watcher.New(app, func(path string) {
			reload(ctx, path, eng, srv, logger)
		}, watcher.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch app", err)
		}
		defer w.Close()
	}

	go mgr.RunSweeper(ctx, sweepInterval(cfg.IdleTimeout))

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	httpServer := &http.Server{Handler: srv.Handler()}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	logger.Info("server starting", "addr", ln.Addr().String(), "app", app)
	fmt.Fprintf(cmd.OutOrStdout(), "Jeamlit serving %s on http://%s\n", app, ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// reload recompiles a changed script and reruns every session with it.
func reload(ctx context.Context, path string, eng *engine.Engine, srv *realtime.Server, logger *slog.Logger) {
	script, err := jsscript.Load(path)
	if err != nil {
		logger.Warn("script failed to compile, keeping previous version", "path", path, "error", err)
		srv.CompilationError(err)
		return
	}
	eng.SetScript(script)
	logger.Info("script reloaded", "path", path)
	srv.Reload(ctx)
}

// sweepInterval checks for idle sessions several times per timeout.
func sweepInterval(idle time.Duration) time.Duration {
	if idle <= 0 {
		return 0
	}
	return max(idle/4, time.Second)
}
