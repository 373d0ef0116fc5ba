// Package sweep runs periodic reconciliation passes: scan a set of records,
// apply an independent short step to each, and keep going when one fails.
package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrSkip is returned by Job.Process when an item needs no change on this
// pass (not yet due, or already transitioned by someone else).
var ErrSkip = errors.New("sweep: item skipped")

// Job describes one kind of sweep over items of type T.
type Job[T any] interface {
	Name() string
	Scan(ctx context.Context, now time.Time) ([]T, error)
	Key(item T) string
	Process(ctx context.Context, item T, now time.Time) error
}

// Result summarises a single pass.
type Result struct {
	Scanned   int
	Processed int
	Skipped   int
	Failed    int
}

// Runner is the type-erased view main uses to drive several sweepers.
type Runner interface {
	Name() string
	RunOnce(ctx context.Context) (Result, error)
	Run(ctx context.Context)
}

// Sweeper drives a Job on a fixed interval.
type Sweeper[T any] struct {
	job      Job[T]
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu sync.Mutex // serialises passes of the same job
}

// New returns a Sweeper running job every interval. now supplies the pass time.
func New[T any](job Job[T], interval time.Duration, now func() time.Time, logger *zap.Logger) *Sweeper[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper[T]{
		job:      job,
		interval: interval,
		now:      now,
		logger:   logger.With(zap.String("job", job.Name())),
	}
}

func (s *Sweeper[T]) Name() string { return s.job.Name() }

// RunOnce performs a single pass. Only a failed scan returns an error;
// per-item failures are logged, counted and left for the next pass.
func (s *Sweeper[T]) RunOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := otel.Tracer("sweep").Start(ctx, "sweep."+s.job.Name())
	defer span.End()

	started := time.Now()
	now := s.now()

	var res Result
	items, err := s.job.Scan(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		s.logger.Error("sweep scan failed", zap.Error(err))
		return res, err
	}
	res.Scanned = len(items)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		err := s.job.Process(ctx, item, now)
		switch {
		case err == nil:
			res.Processed++
		case errors.Is(err, ErrSkip):
			res.Skipped++
		default:
			res.Failed++
			s.logger.Warn("sweep item failed",
				zap.String("key", s.job.Key(item)),
				zap.Error(err),
			)
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.scanned", res.Scanned),
		attribute.Int("sweep.processed", res.Processed),
		attribute.Int("sweep.failed", res.Failed),
	)
	s.logger.Info("sweep pass finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", time.Since(started)),
	)
	return res, ctx.Err()
}

// Run performs a pass immediately and then every interval until ctx is done.
func (s *Sweeper[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		_, _ = s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
