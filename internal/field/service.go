package field

import (
	"context"
	"strings"

	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
)

// CreateRequest carries data to create a field.
type CreateRequest struct {
	OwnerID    string
	Name       string
	Address    string
	OpenTime   string
	CloseTime  string
	Pricing    float64
	ClosedDays []string
}

// UpdateRequest carries data for partial updates.
type UpdateRequest struct {
	Name       *string
	Address    *string
	OpenTime   *string
	CloseTime  *string
	Pricing    *float64
	ClosedDays *[]string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Field, error)
	GetByID(ctx context.Context, id string) (*Field, error)
	List(ctx context.Context, filter Filter) ([]*Field, int, error)
	Update(ctx context.Context, id string, req UpdateRequest, actorID string, isAdmin bool) (*Field, error)
	Delete(ctx context.Context, id string, actorID string, isAdmin bool) error
	SetCoverImage(ctx context.Context, id string, imageID *string, actorID string, isAdmin bool) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// validateField checks the logical rules for a Field and normalizes its
// opening hours to HH:MM.
func validateField(f *Field) error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNameRequired
	}
	if f.Pricing <= 0 {
		return ErrInvalidPricing
	}

	// Opening hours are same-day only; overnight wraparound is not supported.
	open, err1 := daytime.ParseClock(f.OpenTime)
	closing, err2 := daytime.ParseClock(f.CloseTime)
	if err1 != nil || err2 != nil || open >= closing {
		return ErrInvalidOpeningHours
	}
	f.OpenTime = daytime.FormatClock(open)
	f.CloseTime = daytime.FormatClock(closing)

	days, err := normalizeClosedDays(f.ClosedDays)
	if err != nil {
		return err
	}
	f.ClosedDays = days
	return nil
}

// canManage reports whether the actor may modify f.
func canManage(f *Field, actorID string, isAdmin bool) bool {
	return isAdmin || (actorID != "" && f.OwnerID == actorID)
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Field, error) {
	if req.OwnerID == "" {
		return nil, ErrOwnerRequired
	}

	f := &Field{
		OwnerID:    req.OwnerID,
		Name:       strings.TrimSpace(req.Name),
		Address:    strings.TrimSpace(req.Address),
		OpenTime:   req.OpenTime,
		CloseTime:  req.CloseTime,
		Pricing:    req.Pricing,
		ClosedDays: req.ClosedDays,
	}
	if err := validateField(f); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Field, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Field, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, actorID string, isAdmin bool) (*Field, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(f, actorID, isAdmin) {
		return nil, ErrPermissionDenied
	}

	// Apply non-nil fields
	if req.Name != nil {
		f.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		f.Address = strings.TrimSpace(*req.Address)
	}
	if req.OpenTime != nil {
		f.OpenTime = *req.OpenTime
	}
	if req.CloseTime != nil {
		f.CloseTime = *req.CloseTime
	}
	if req.Pricing != nil {
		f.Pricing = *req.Pricing
	}
	if req.ClosedDays != nil {
		f.ClosedDays = *req.ClosedDays
	}

	if err := validateField(f); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) Delete(ctx context.Context, id string, actorID string, isAdmin bool) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(f, actorID, isAdmin) {
		return ErrPermissionDenied
	}
	// Reservations on the field are removed by the foreign key cascade.
	return s.repo.Delete(ctx, id)
}

func (s *service) SetCoverImage(ctx context.Context, id string, imageID *string, actorID string, isAdmin bool) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(f, actorID, isAdmin) {
		return ErrPermissionDenied
	}
	return s.repo.SetCoverImage(ctx, id, imageID)
}
