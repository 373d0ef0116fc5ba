package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/clock"
	"github.com/nekogravitycat/field-booking-backend/internal/events"
	"github.com/nekogravitycat/field-booking-backend/internal/field"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
)

// FieldLookup resolves the field a reservation belongs to.
type FieldLookup interface {
	GetByID(ctx context.Context, id string) (*field.Field, error)
}

// CreateRequest carries a booking request. TotalPrice is a pointer so that a
// missing price can be told apart from a free slot.
type CreateRequest struct {
	FieldID    string
	PlayerID   string
	Date       string
	StartTime  string
	EndTime    string
	TotalPrice *float64
}

// UpdateRequest reschedules a reservation. Nil fields keep their value.
type UpdateRequest struct {
	Date       *string
	StartTime  *string
	EndTime    *string
	TotalPrice *float64
}

// Service books, reschedules and cancels reservations and reports slot availability.
type Service interface {
	AvailableSlots(ctx context.Context, fieldID, date string) ([]Slot, error)
	Create(ctx context.Context, req CreateRequest) (*Reservation, error)
	GetByID(ctx context.Context, id string, actor Actor) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	ListByField(ctx context.Context, fieldID string, filter Filter) ([]*Reservation, int, error)
	Update(ctx context.Context, id string, req UpdateRequest, actor Actor) (*Reservation, error)
	Cancel(ctx context.Context, id string, actor Actor) (*Reservation, error)
}

type service struct {
	repo        Repository
	fields      FieldLookup
	clock       clock.Clock
	policy      EditWindowPolicy
	granularity time.Duration
	publisher   events.Publisher
	logger      *zap.Logger
	tracer      trace.Tracer
}

// Option configures a Service.
type Option func(*service)

// WithPublisher sets where lifecycle events go. Nil keeps the no-op publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEditWindow sets the lead time before start after which a reservation is frozen.
func WithEditWindow(d time.Duration) Option {
	return func(s *service) { s.policy = NewEditWindowPolicy(d) }
}

// WithGranularity sets the slot length of the availability grid.
func WithGranularity(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.granularity = d
		}
	}
}

// NewService creates a reservation service. Times are read from clk.
func NewService(repo Repository, fields FieldLookup, clk clock.Clock, opts ...Option) Service {
	s := &service{
		repo:        repo,
		fields:      fields,
		clock:       clk,
		policy:      NewEditWindowPolicy(DefaultEditWindow),
		granularity: DefaultGranularity,
		publisher:   events.Nop{},
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("reservation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) loadField(ctx context.Context, id string) (*field.Field, error) {
	f, err := s.fields.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, field.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *service) AvailableSlots(ctx context.Context, fieldID, date string) ([]Slot, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.AvailableSlots",
		trace.WithAttributes(attribute.String("field.id", fieldID), attribute.String("date", date)))
	defer span.End()

	now := s.clock.Now()
	if _, err := daytime.ParseDate(date, now.Location()); err != nil {
		return nil, ErrInvalidDate
	}

	f, err := s.loadField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListByFieldDate(ctx, fieldID, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ComputeSlots(f, date, existing, now, s.granularity)
}

// schedule is a parsed and validated (date, start, end) triple.
type schedule struct {
	date       string
	start, end int
}

func parseSchedule(date, start, end string, loc *time.Location) (schedule, time.Time, error) {
	day, err := daytime.ParseDate(date, loc)
	if err != nil {
		return schedule{}, time.Time{}, ErrInvalidDate
	}
	s, err1 := daytime.ParseClock(start)
	e, err2 := daytime.ParseClock(end)
	if err1 != nil || err2 != nil {
		return schedule{}, time.Time{}, ErrInvalidTime
	}
	if e <= s {
		return schedule{}, time.Time{}, ErrInvalidTimeRange
	}
	return schedule{date: day.Format(daytime.DateLayout), start: s, end: e}, day, nil
}

// checkAgainstField enforces the field's weekly closures and opening hours.
func checkAgainstField(f *field.Field, sc schedule, day time.Time) error {
	if f.IsClosedOn(day.Weekday()) {
		return ErrFieldClosed
	}
	open, err1 := daytime.ParseClock(f.OpenTime)
	closing, err2 := daytime.ParseClock(f.CloseTime)
	if err1 != nil || err2 != nil {
		return field.ErrInvalidOpeningHours
	}
	if sc.start < open || sc.end > closing {
		return ErrOutsideHours
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Create",
		trace.WithAttributes(attribute.String("field.id", req.FieldID), attribute.String("date", req.Date)))
	defer span.End()

	if strings.TrimSpace(req.FieldID) == "" || strings.TrimSpace(req.PlayerID) == "" ||
		strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.StartTime) == "" ||
		strings.TrimSpace(req.EndTime) == "" || req.TotalPrice == nil {
		return nil, ErrMissingField
	}
	if *req.TotalPrice < 0 {
		return nil, ErrInvalidPrice
	}

	now := s.clock.Now()
	sc, day, err := parseSchedule(req.Date, req.StartTime, req.EndTime, now.Location())
	if err != nil {
		return nil, err
	}

	f, err := s.loadField(ctx, req.FieldID)
	if err != nil {
		return nil, err
	}

	if daytime.At(day, sc.start).Before(now) {
		return nil, ErrPastTime
	}
	if err := checkAgainstField(f, sc, day); err != nil {
		return nil, err
	}

	r := &Reservation{
		FieldID:    f.ID,
		PlayerID:   req.PlayerID,
		OwnerID:    f.OwnerID,
		Date:       sc.date,
		StartTime:  daytime.FormatClock(sc.start),
		EndTime:    daytime.FormatClock(sc.end),
		TotalPrice: *req.TotalPrice,
		Status:     StatusActive,
	}

	// Fast path only; the store's constraints decide concurrent races.
	overlap, err := s.repo.HasOverlap(ctx, r.FieldID, r.Date, r.StartTime, r.EndTime, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if overlap {
		return nil, ErrSlotConflict
	}

	if err := s.repo.Create(ctx, r); err != nil {
		if !errors.Is(err, ErrSlotConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create reservation failed")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("reservation.id", r.ID))
	publish(ctx, s.publisher, s.logger, events.ReservationCreated, r, now)
	return r, nil
}

func (s *service) GetByID(ctx context.Context, id string, actor Actor) (*Reservation, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != r.PlayerID && actor.UserID != r.OwnerID {
		return nil, ErrPermissionDenied
	}
	return r, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperror.Wrap(ErrValidation, errors.New("unknown status "+string(filter.Status)))
	}
	return s.repo.List(ctx, filter)
}

func (s *service) ListByField(ctx context.Context, fieldID string, filter Filter) ([]*Reservation, int, error) {
	if _, err := s.loadField(ctx, fieldID); err != nil {
		return nil, 0, err
	}
	filter.FieldID = fieldID
	return s.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, actor Actor) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Update", trace.WithAttributes(attribute.String("reservation.id", id)))
	defer span.End()

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != r.PlayerID {
		return nil, ErrPermissionDenied
	}
	if r.Status != StatusActive {
		return nil, ErrInvalidTransition
	}

	now := s.clock.Now()
	if !s.policy.CanEdit(r, now) {
		return nil, ErrEditWindow
	}

	date, start, end, price := r.Date, r.StartTime, r.EndTime, r.TotalPrice
	if req.Date != nil {
		date = *req.Date
	}
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if req.TotalPrice != nil {
		if *req.TotalPrice < 0 {
			return nil, ErrInvalidPrice
		}
		price = *req.TotalPrice
	}

	sc, day, err := parseSchedule(date, start, end, now.Location())
	if err != nil {
		return nil, err
	}
	if daytime.At(day, sc.start).Before(now) {
		return nil, ErrPastTime
	}
	f, err := s.loadField(ctx, r.FieldID)
	if err != nil {
		return nil, err
	}
	if err := checkAgainstField(f, sc, day); err != nil {
		return nil, err
	}

	updated := *r
	updated.Date = sc.date
	updated.StartTime = daytime.FormatClock(sc.start)
	updated.EndTime = daytime.FormatClock(sc.end)
	updated.TotalPrice = price

	overlap, err := s.repo.HasOverlap(ctx, r.FieldID, updated.Date, updated.StartTime, updated.EndTime, r.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if overlap {
		return nil, ErrSlotConflict
	}

	if err := s.repo.UpdateSchedule(ctx, &updated); err != nil {
		if !errors.Is(err, ErrSlotConflict) && !errors.Is(err, ErrInvalidTransition) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update reservation failed")
		}
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.ReservationUpdated, &updated, now)
	return &updated, nil
}

func (s *service) Cancel(ctx context.Context, id string, actor Actor) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Cancel", trace.WithAttributes(attribute.String("reservation.id", id)))
	defer span.End()

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// The owner recorded at booking time keeps the right to cancel even if
	// the field later changes hands.
	if !actor.IsAdmin && actor.UserID != r.OwnerID {
		return nil, ErrPermissionDenied
	}
	if r.Status != StatusActive {
		return nil, ErrInvalidTransition
	}

	now := s.clock.Now()
	if !s.policy.CanEdit(r, now) {
		return nil, ErrEditWindow
	}

	cancelled, err := s.repo.Transition(ctx, r.ID, StatusActive, StatusCancelled)
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			span.RecordError(err)
		}
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.ReservationCancelled, cancelled, now)
	return cancelled, nil
}

// publish emits a reservation event. Failures are logged and never undo the
// committed change.
func publish(ctx context.Context, p events.Publisher, logger *zap.Logger, key string, r *Reservation, now time.Time) {
	payload := events.ReservationEvent{
		ReservationID: r.ID,
		FieldID:       r.FieldID,
		PlayerID:      r.PlayerID,
		OwnerID:       r.OwnerID,
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        string(r.Status),
		OccurredAt:    now,
	}
	if err := p.Publish(ctx, key, payload); err != nil {
		logger.Warn("publish event failed",
			zap.String("routing_key", key),
			zap.String("reservation_id", r.ID),
			zap.Error(err),
		)
	}
}
