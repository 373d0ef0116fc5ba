package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/clock"
	"github.com/nekogravitycat/field-booking-backend/internal/events"
	"github.com/nekogravitycat/field-booking-backend/internal/sweep"
)

func seed(repo *memRepo, id, date, start, end string, status Status) {
	repo.put(&Reservation{ID: id, FieldID: "field-1", PlayerID: "p", OwnerID: "owner-1", Date: date, StartTime: start, EndTime: end, Status: status})
}

func newCompletionSweeper(repo Repository, clk clock.Clock, pub events.Publisher) *sweep.Sweeper[*Reservation] {
	return sweep.New[*Reservation](NewCompletionJob(repo, pub, zap.NewNop()), 5*time.Minute, clk.Now, zap.NewNop())
}

func TestCompletionSweepIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "ended-yesterday", "2026-03-01", "20:00", "21:00", StatusActive)
	seed(repo, "ended-now", testDate, "09:00", "10:00", StatusActive)
	seed(repo, "running", testDate, "10:00", "11:00", StatusActive)
	seed(repo, "tomorrow", "2026-03-03", "09:00", "10:00", StatusActive)
	seed(repo, "cancelled", "2026-03-01", "09:00", "10:00", StatusCancelled)

	clk := clock.NewFixed(at(testDate, 10, 0))
	pub := &recordingPublisher{}
	s := newCompletionSweeper(repo, clk, pub)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sweep.Result{Scanned: 3, Processed: 2, Skipped: 1}, res)

	want := map[string]Status{
		"ended-yesterday": StatusCompleted,
		"ended-now":       StatusCompleted,
		"running":         StatusActive,
		"tomorrow":        StatusActive,
		"cancelled":       StatusCancelled,
	}
	for id, st := range want {
		assert.Equal(t, st, repo.status(id), id)
	}

	res, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sweep.Result{Scanned: 1, Skipped: 1}, res)
	for id, st := range want {
		assert.Equal(t, st, repo.status(id), id)
	}
	assert.Equal(t, []string{events.ReservationCompleted, events.ReservationCompleted}, pub.keys())
}

func TestCompletionSweepToleratesBadRecords(t *testing.T) {
	repo := newMemRepo()
	seed(repo, "corrupt", "2026-03-01", "late", "later", StatusActive)
	seed(repo, "flaky", "2026-03-01", "10:00", "11:00", StatusActive)
	seed(repo, "good", "2026-03-01", "12:00", "13:00", StatusActive)
	seed(repo, "raced", "2026-03-01", "14:00", "15:00", StatusActive)
	repo.failOn["flaky"] = errors.New("connection reset")
	repo.failOn["raced"] = ErrInvalidTransition

	s := newCompletionSweeper(repo, clock.NewFixed(at(testDate, 10, 0)), nil)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sweep.Result{Scanned: 4, Processed: 1, Skipped: 1, Failed: 2}, res)
	assert.Equal(t, StatusCompleted, repo.status("good"))
	assert.Equal(t, StatusActive, repo.status("flaky"))

	delete(repo.failOn, "flaky")
	res, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, StatusCompleted, repo.status("flaky"))
}

func TestBookCancelRebookComplete(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(at(testDate, 7, 0))

	first, err := fx.svc.Create(ctx, bookReq("player-1", "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, first.Status)
	assert.Equal(t, 100.0, first.TotalPrice)

	_, err = fx.svc.Create(ctx, bookReq("player-2", "10:00", "11:00"))
	assert.ErrorIs(t, err, ErrSlotConflict)

	_, err = fx.svc.Cancel(ctx, first.ID, Actor{UserID: "owner-1"})
	require.NoError(t, err)

	slots, err := fx.svc.AvailableSlots(ctx, "field-1", testDate)
	require.NoError(t, err)
	assert.True(t, slots[2].Available)

	fx.clock.Set(at(testDate, 9, 0))
	second, err := fx.svc.Create(ctx, bookReq("player-2", "10:00", "11:00"))
	require.NoError(t, err)

	s := newCompletionSweeper(fx.repo, fx.clock, fx.pub)
	fx.clock.Set(at(testDate, 10, 59))
	_, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, fx.repo.status(second.ID))

	fx.clock.Set(at(testDate, 11, 1))
	_, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, fx.repo.status(second.ID))
	assert.Equal(t, StatusCancelled, fx.repo.status(first.ID))
}
