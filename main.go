package main

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

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/cli"
	"github.com/michame/console/internal/config"
	"github.com/michame/console/internal/credstore"
	"github.com/michame/console/internal/metrics"
	"github.com/michame/console/internal/session"
	"github.com/michame/console/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	// JSON logs go to stderr; stdout belongs to command output.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; serve and --watch stop when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Config:  cfg,
		Version: version,
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Serve: func(ctx context.Context, cfg *config.Config) error {
			return run(ctx, cfg, nil)
		},
	}

	// execute is a separate func so app.Close always runs before os.Exit.
	if err := execute(ctx, app); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, app *cli.App) error {
	defer app.Close()
	return cli.NewRootCommand(app).ExecuteContext(ctx)
}

// run holds all web console logic and returns error instead of calling os.Exit,
// so deferred resource cleanup always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	store, backend, closeStore, err := credstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer closeStore()

	m := metrics.New()

	// The client needs the session for its navigator and the session needs the
	// client, so the navigator closes over sess.
	var sess *session.Session
	client := apiclient.New(cfg.APIURL, store,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithObserver(m),
		apiclient.WithNavigator(func(path string) {
			slog.Warn("session expired", "redirect", path)
			sess.Expire()
		}),
	)
	sess = session.New(client, store)
	sess.Init(ctx)
	slog.Info("session restored", "state", sess.Snapshot().State.String())

	// A login or logout from the CLI rewrites the credentials file; follow it.
	if fb, ok := backend.(*credstore.FileBackend); ok {
		if err := fb.Watch(ctx, func() { sess.Sync(ctx) }); err != nil {
			slog.Warn("credential file watch disabled", "error", err)
		}
	}

	h, err := web.NewHandler(sess, client, web.Options{
		WhatsAppLink: cfg.WhatsAppLink(),
		PollInterval: cfg.PollInterval,
		Fallback:     cfg.Fallback,
		OnDegrade:    m.Degraded,
	})
	if err != nil {
		return fmt.Errorf("failed to build web handler: %w", err)
	}

	// Bind listener; port "0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.ListenAddr, cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{Handler: buildRouter(h, m), ReadHeaderTimeout: 10 * time.Second}

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("michame console listening", "addr", ln.Addr().String(), "backend", cfg.APIURL)
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	// Wait for server error or shutdown signal from ctx.
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildRouter wires all routes and middleware.
// Called from run() and from smoke tests.
func buildRouter(h *web.Handler, m *metrics.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(m.Middleware)

	r.Get("/health", h.CheckHealth)
	r.Handle("/metrics", m.Handler())
	h.Mount(r)

	return r
}
