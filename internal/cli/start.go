package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fefferico/quiz-app-sub000/internal/config"
	"github.com/fefferico/quiz-app-sub000/internal/infra/postgres"
	transport "github.com/fefferico/quiz-app-sub000/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := ensureRemoteSchema(ctx, cfg, rt); err != nil {
		return err
	}

	probeCtx, stopProbe := context.WithCancel(ctx)
	defer stopProbe()
	if rt.monitor != nil {
		go rt.monitor.Run(probeCtx)
	}

	handler := transport.NewHandler(rt.store, rt.analytics, rt.log)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		rt.log.WithField("port", finalPort).Info("starting quiz sync service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rt.log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		rt.log.Info("shutting down server...")
	case <-ctx.Done():
		rt.log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// ensureRemoteSchema applies remote migrations. When the remote cannot be
// reached they are retried on every reconnect until one run succeeds, and
// the service keeps serving from the cache meanwhile.
func ensureRemoteSchema(ctx context.Context, cfg config.Config, rt *runtime) error {
	if cfg.Postgres.URL == "" || rt.monitor == nil {
		return nil
	}
	err := runMigrationsWithConfig(ctx, cfg, rt.log)
	if err == nil {
		return nil
	}
	if !postgres.IsConnectivity(err) {
		return err
	}
	rt.log.WithError(err).Warn("remote migrations deferred until the remote store is reachable")

	var done atomic.Bool
	rt.monitor.OnReconnect(func(ctx context.Context) {
		if done.Load() {
			return
		}
		if err := runMigrationsWithConfig(ctx, cfg, rt.log); err != nil {
			rt.log.WithError(err).Error("deferred remote migrations failed")
			return
		}
		done.Store(true)
	})
	return nil
}
