package user

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/events"
	"github.com/nekogravitycat/field-booking-backend/internal/sweep"
)

// DefaultRetentionWindow is how long a deactivated account is kept.
const DefaultRetentionWindow = 30 * 24 * time.Hour

// FileRemover deletes stored media left behind by a purge.
type FileRemover interface {
	Delete(ctx context.Context, path string) error
}

// RetentionJob purges accounts deactivated longer than the retention window,
// cascading to their reservations and, for owners, their fields.
type RetentionJob struct {
	repo      Repository
	window    time.Duration
	files     FileRemover
	publisher events.Publisher
	logger    *zap.Logger
}

var _ sweep.Job[*User] = (*RetentionJob)(nil)

func NewRetentionJob(repo Repository, window time.Duration, files FileRemover, publisher events.Publisher, logger *zap.Logger) *RetentionJob {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionJob{repo: repo, window: window, files: files, publisher: publisher, logger: logger}
}

func (j *RetentionJob) Name() string { return "account-retention" }

func (j *RetentionJob) Scan(ctx context.Context, now time.Time) ([]*User, error) {
	return j.repo.ListPurgeable(ctx, now.Add(-j.window))
}

func (j *RetentionJob) Key(u *User) string { return u.ID }

func (j *RetentionJob) Process(ctx context.Context, u *User, now time.Time) error {
	res, err := j.repo.Purge(ctx, u.ID, now.Add(-j.window))
	if err != nil {
		if errors.Is(err, ErrNotPurgeable) {
			return sweep.ErrSkip
		}
		return err
	}

	if j.files != nil {
		for _, p := range res.ImagePaths {
			if err := j.files.Delete(ctx, p); err != nil {
				j.logger.Warn("remove purged file failed", zap.String("path", p), zap.Error(err))
			}
		}
	}

	j.logger.Info("account purged",
		zap.String("user_id", u.ID),
		zap.Int64("reservations", res.Reservations),
		zap.Int64("fields", res.Fields),
	)

	if err := j.publisher.Publish(ctx, events.AccountPurged, events.AccountEvent{
		UserID:     u.ID,
		Email:      u.Email,
		OccurredAt: now,
	}); err != nil {
		j.logger.Warn("publish event failed", zap.String("routing_key", events.AccountPurged), zap.Error(err))
	}
	return nil
}
