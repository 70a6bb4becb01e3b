package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"water_service/internal/api"
	"water_service/internal/config"
	"water_service/internal/core"
	"water_service/internal/domain/repository"
	"water_service/internal/infrastructure/telemetry"
)

func serveCmd() *cobra.Command {
	var cfg config.Config
	envErr := config.ParseEnv(&cfg)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the projection API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return envErr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return runServe(ctx, cfg, ln)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.HTTP.Addr, "addr", cfg.HTTP.Addr, "HTTP listen address")
	fs.StringSliceVar(&cfg.CORS.AllowedOrigins, "cors-origins", cfg.CORS.AllowedOrigins, "Allowed cross-origin request origins")
	fs.BoolVar(&cfg.Recorder.Enabled, "save-requests", cfg.Recorder.Enabled, "Store accepted request inputs")
	fs.StringVar(&cfg.Recorder.Driver, "recorder-driver", cfg.Recorder.Driver, "Request store driver (postgres or sqlite)")
	fs.StringVar(&cfg.Recorder.DSN, "recorder-dsn", cfg.Recorder.DSN, "Request store connection string")
	fs.StringVar(&cfg.Overpass.URL, "overpass-url", cfg.Overpass.URL, "Overpass API endpoint for region lookups")
	fs.BoolVar(&cfg.Telemetry.MetricsEnabled, "metrics", cfg.Telemetry.MetricsEnabled, "Expose Prometheus metrics on /metrics")

	return cmd
}

// runServe serves the API on ln until ctx is done, then drains in-flight
// requests within the shutdown timeout.
func runServe(ctx context.Context, cfg config.Config, ln net.Listener) error {
	defer ln.Close()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			klog.ErrorS(err, "Tracing shutdown failed")
		}
	}()

	var recorder core.RequestRecorder
	if cfg.Recorder.Enabled {
		sqlRecorder, err := repository.OpenSQLRecorder(ctx, cfg.Recorder.Driver, cfg.Recorder.DSN)
		if err != nil {
			return fmt.Errorf("open request recorder: %w", err)
		}
		defer sqlRecorder.Close()
		recorder = sqlRecorder
		klog.InfoS("Request recording enabled", "driver", cfg.Recorder.Driver)
	}

	var regions core.RegionFinder
	if cfg.Overpass.URL != "" {
		regions = repository.NewOverpassRegionFinder(cfg.Overpass.URL, cfg.Overpass.Timeout)
		klog.InfoS("Region lookup enabled", "endpoint", cfg.Overpass.URL)
	}

	handler := api.NewHandler(core.NewProjectionService(recorder, regions))
	srv := &http.Server{
		Handler:      api.NewRouter(handler, cfg.CORS, cfg.Telemetry.MetricsEnabled),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		klog.InfoS("Starting server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		klog.InfoS("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
