package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/app"
	"github.com/nekogravitycat/field-booking-backend/internal/config"
	"github.com/nekogravitycat/field-booking-backend/internal/db"
	"github.com/nekogravitycat/field-booking-backend/internal/events"
)

const serviceName = "field-booking-backend"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Football field booking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// For receiving Ctrl+C / SIGTERM
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			cobra.OnFinalize(stop)
			cmd.SetContext(ctx)
		},
	}
	root.SetContext(context.Background())
	root.AddCommand(newServeCommand(), newSweepCommand(), newMigrateCommand())
	return root
}

// stack bundles what every subcommand needs.
type stack struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	publisher events.Publisher
}

func newLogger(isProduction bool) (*zap.Logger, error) {
	if isProduction {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// bootstrap loads config, builds the logger and connects to the database.
// withPublisher also dials the broker when one is configured.
func bootstrap(ctx context.Context, withPublisher bool) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.IsProduction)
	if err != nil {
		return nil, fmt.Errorf("zap init: %w", err)
	}
	zap.ReplaceGlobals(logger)

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	rt := &stack{cfg: cfg, logger: logger, pool: pool, publisher: events.Nop{}}
	if withPublisher && cfg.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			pool.Close()
			_ = logger.Sync()
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		logger.Info("publishing events", zap.String("exchange", cfg.AMQPExchange))
		rt.publisher = pub
	}
	return rt, nil
}

func (rt *stack) close() {
	if err := rt.publisher.Close(); err != nil {
		rt.logger.Warn("close publisher failed", zap.Error(err))
	}
	rt.pool.Close()
	_ = rt.logger.Sync()
}

func (rt *stack) container() (*app.Container, error) {
	cfg := rt.cfg
	return app.NewContainer(app.Config{
		IsProduction:            cfg.IsProduction,
		ProdOrigins:             cfg.ProdOrigins,
		DBPool:                  rt.pool,
		JWTSecret:               cfg.JWTSecret,
		JWTTTL:                  cfg.JWTAccessTokenTTL,
		BcryptCost:              cfg.BcryptCost,
		Location:                cfg.Location,
		SlotGranularity:         cfg.SlotGranularity,
		EditWindow:              cfg.EditWindow,
		CompletionSweepInterval: cfg.CompletionSweepInterval,
		RetentionSweepInterval:  cfg.RetentionSweepInterval,
		RetentionWindow:         cfg.RetentionWindow,
		StoragePath:             cfg.StoragePath,
		Publisher:               rt.publisher,
		Logger:                  rt.logger,
	})
}
