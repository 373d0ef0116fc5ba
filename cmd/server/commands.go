package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/db"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/obs"
	"github.com/nekogravitycat/field-booking-backend/internal/sweep"
)

func newServeCommand() *cobra.Command {
	var noSweep bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), !noSweep)
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not run background sweeps in this process")
	return cmd
}

func newSweepCommand() *cobra.Command {
	var job string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepOnce(cmd.Context(), job)
		},
	}
	cmd.Flags().StringVar(&job, "job", "all", "job to run: completion, retention or all")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := db.Migrate(cmd.Context(), rt.pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			rt.logger.Info("schema applied")
			return nil
		},
	}
}

func serve(ctx context.Context, runSweeps bool) error {
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracerConfig{
		Endpoint:    rt.cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Version:     version,
		Environment: envName(rt.cfg.IsProduction),
	})
	if err != nil {
		return err
	}

	c, err := rt.container()
	if err != nil {
		return err
	}

	var sweepers []sweep.Runner
	if runSweeps {
		for _, s := range c.Sweepers {
			sweepers = append(sweepers, s)
		}
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              rt.cfg.HTTPAddr,
		Handler:           c.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runErr := runServer(ctx, server, sweepers, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	return runErr
}

// runServer serves HTTP and runs the sweepers until ctx is done or the
// listener fails. Either way the server is shut down and every sweeper has
// returned before it does. A listener failure is returned.
func runServer(ctx context.Context, server *http.Server, sweepers []sweep.Runner, logger *zap.Logger) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	// Sweeps stop with runCtx; wait for the pass in flight before closing the pool.
	var wg sync.WaitGroup
	for _, s := range sweepers {
		wg.Add(1)
		go func(s sweep.Runner) {
			defer wg.Done()
			logger.Info("sweeper started", zap.String("job", s.Name()))
			s.Run(runCtx)
		}(s)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for Ctrl+C or a listener failure
	var listenErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			listenErr = fmt.Errorf("http server: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	wg.Wait()

	if listenErr == nil {
		logger.Info("server exited gracefully")
	}
	return listenErr
}

func sweepOnce(ctx context.Context, job string) error {
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()

	c, err := rt.container()
	if err != nil {
		return err
	}

	var names []string
	switch job {
	case "all":
		for name := range c.Sweepers {
			names = append(names, name)
		}
		sort.Strings(names)
	default:
		if _, ok := c.Sweepers[job]; !ok {
			return fmt.Errorf("unknown job %q (want completion, retention or all)", job)
		}
		names = []string{job}
	}

	var errs []error
	for _, name := range names {
		res, err := c.Sweepers[name].RunOnce(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if res.Failed > 0 {
			errs = append(errs, fmt.Errorf("%s: %d of %d items failed", name, res.Failed, res.Scanned))
		}
	}
	return errors.Join(errs...)
}

func envName(isProduction bool) string {
	if isProduction {
		return "prod"
	}
	return "dev"
}
