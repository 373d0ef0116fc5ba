package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/events"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
	"github.com/nekogravitycat/field-booking-backend/internal/sweep"
)

// CompletionJob flips active reservations whose end instant has passed to
// completed. It is the only writer of that transition.
type CompletionJob struct {
	repo      Repository
	publisher events.Publisher
	logger    *zap.Logger
}

var _ sweep.Job[*Reservation] = (*CompletionJob)(nil)

func NewCompletionJob(repo Repository, publisher events.Publisher, logger *zap.Logger) *CompletionJob {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionJob{repo: repo, publisher: publisher, logger: logger}
}

func (j *CompletionJob) Name() string { return "reservation-completion" }

// Scan lists active reservations dated today or earlier; later days cannot
// have ended yet.
func (j *CompletionJob) Scan(ctx context.Context, now time.Time) ([]*Reservation, error) {
	return j.repo.ListActive(ctx, now.Format(daytime.DateLayout))
}

func (j *CompletionJob) Key(r *Reservation) string { return r.ID }

func (j *CompletionJob) Process(ctx context.Context, r *Reservation, now time.Time) error {
	end, err := r.EndInstant(now.Location())
	if err != nil {
		return fmt.Errorf("reservation %s has malformed schedule: %w", r.ID, err)
	}
	if end.After(now) {
		return sweep.ErrSkip
	}

	completed, err := j.repo.Transition(ctx, r.ID, StatusActive, StatusCompleted)
	if err != nil {
		// Cancelled or completed since the scan.
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			return sweep.ErrSkip
		}
		return err
	}

	publish(ctx, j.publisher, j.logger, events.ReservationCompleted, completed, now)
	return nil
}
