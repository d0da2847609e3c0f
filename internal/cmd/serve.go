package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hypermind/hypermind-agent/internal/api"
	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/entries"
	"github.com/hypermind/hypermind-agent/internal/manager"
	"github.com/hypermind/hypermind-agent/internal/metrics"
	"github.com/hypermind/hypermind-agent/internal/scraper"
	"github.com/hypermind/hypermind-agent/internal/setup"
	"github.com/hypermind/hypermind-agent/internal/ws"
)

const (
	shutdownTimeout = 10 * time.Second
	streamKeepalive = 30 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent",
		Long: `Load the configured entries, poll each one every scan interval and serve
the REST API, the WebSocket sensor stream and Prometheus metrics.

The config file is watched; entries added, removed or edited in it are
applied without a restart. SIGINT or SIGTERM shuts the agent down.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, v)
		},
	}
	cmd.Flags().String("http-addr", "", "listen address (overrides config)")
	cmd.Flags().Duration("scan-interval", 0, "poll interval (overrides config)")
	cmd.Flags().Duration("timeout", 0, "per-request timeout (overrides config)")
	return cmd
}

// agent is the wired runtime of the serve command.
type agent struct {
	store   *entries.Store
	manager *manager.Manager
	flow    *setup.Flow
	hub     *ws.Hub
	handler http.Handler
}

// newAgent wires every component for cfg. File entries are stored but not
// set up yet.
func newAgent(cfg *config.Config) (*agent, error) {
	fetcher := scraper.New(cfg.Agent.RequestTimeout)
	st := entries.New()
	for i, spec := range cfg.Entries {
		ep, err := config.ResolveEndpoint(spec.Data, spec.Options)
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}
		if _, err := manager.AddFileEntry(st, ep); err != nil {
			return nil, fmt.Errorf("entries[%d] %q: %w", i, ep.UniqueID(), err)
		}
	}

	rec := metrics.NewRecorder()
	mgr := manager.New(st, fetcher, cfg.Agent.ScanInterval, manager.WithRecorder(rec))
	flow := setup.NewFlow(setup.NewValidator(fetcher), st, mgr)
	hub := ws.New(st, mgr, streamKeepalive)
	reg := metrics.NewRegistry(metrics.NewCollector(mgr), rec)

	return &agent{
		store:   st,
		manager: mgr,
		flow:    flow,
		hub:     hub,
		handler: api.New(st, flow, mgr, api.Options{
			SetupRatePerMinute: cfg.Agent.SetupRatePerMinute,
			SetupBurst:         cfg.Agent.SetupBurst,
			Metrics:            metrics.Handler(reg),
			Stream:             hub,
		}),
	}, nil
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, path, err := loadConfig(v)
	if err != nil {
		return err
	}
	level := setupLogging(cfg.Agent.LogLevel)

	slog.Info("hypermind-agent starting",
		"version", versionInfo.Version,
		"config", path,
		"http_addr", cfg.Agent.HTTPAddr,
		"entries", len(cfg.Entries),
		"scan_interval", cfg.Agent.ScanInterval,
	)

	a, err := newAgent(cfg)
	if err != nil {
		return err
	}
	defer a.manager.Close()

	go a.hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Agent.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Agent.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	a.manager.LoadAll(ctx)
	slog.Info("entries loaded", "loaded", len(a.manager.Loaded()), "total", a.store.Count())

	go func() {
		if err := config.Watch(ctx, path, func(updated *config.Config) {
			level.Set(parseLevel(updated.Agent.LogLevel))
			a.manager.Reconcile(ctx, updated)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("hypermind-agent shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
