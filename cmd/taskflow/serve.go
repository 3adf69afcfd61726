package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Veraticus/taskflow/internal/api"
	"github.com/Veraticus/taskflow/internal/scheduler"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr        string
		noScheduler bool
		syncOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the catalog sync scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				handler := api.NewRouter(api.Deps{
					Store:    a.store,
					Engine:   a.engine,
					Resolver: newResolver(a.engine, cfg),
					JWT:      api.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL),
				}, api.Options{
					CORSAllowedOrigins:   cfg.Server.CORSAllowedOrigins,
					CORSAllowCredentials: cfg.Server.CORSAllowCredentials,
				})

				if !noScheduler {
					loc, err := cfg.Location()
					if err != nil {
						return err
					}
					sched := scheduler.New(a.store, a.engine, loc, cfg.Scheduler.Timeout)
					if _, err := sched.Schedule(cfg.Scheduler.SyncSpec); err != nil {
						return err
					}
					if syncOnStart {
						if _, err := sched.RunOnce(ctx); err != nil {
							slog.Warn("Startup catalog sync failed", "error", err)
						}
					}
					sched.Start()
					defer sched.Stop()
					slog.Info("Catalog sync scheduled", "spec", cfg.Scheduler.SyncSpec, "timezone", loc.String())
				}

				return serveHTTP(ctx, cfg.Server.Addr, handler, cfg.Server.ShutdownTimeout)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run the periodic catalog sync")
	cmd.Flags().BoolVar(&syncOnStart, "sync-on-start", false, "sync every owner before serving")
	return cmd
}

// serveHTTP runs until ctx is canceled, then drains in-flight requests.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
