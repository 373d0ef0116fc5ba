package field

import (
	"net/http"
	"strings"
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, apperror.KindNotFound, "field not found")
	ErrNameRequired        = apperror.New(http.StatusBadRequest, apperror.KindValidation, "field name is required")
	ErrInvalidOpeningHours = apperror.New(http.StatusBadRequest, apperror.KindValidation, "opening hours must be HH:MM with open before close")
	ErrInvalidPricing      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "pricing must be greater than zero")
	ErrInvalidClosedDay    = apperror.New(http.StatusBadRequest, apperror.KindValidation, "closed days must be weekday names")
	ErrOwnerRequired       = apperror.New(http.StatusBadRequest, apperror.KindValidation, "owner id is required")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, apperror.KindForbidden, "permission denied")
)

// Field is a bookable football pitch owned by a single owner account.
type Field struct {
	ID           string
	OwnerID      string
	Name         string
	Address      string
	OpenTime     string // HH:MM
	CloseTime    string // HH:MM
	Pricing      float64
	ClosedDays   []string // lower-case weekday names
	CoverImageID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsClosedOn reports whether the field does not operate on weekday d.
func (f *Field) IsClosedOn(d time.Weekday) bool {
	name := strings.ToLower(d.String())
	for _, c := range f.ClosedDays {
		if c == name {
			return true
		}
	}
	return false
}

// Filter defines parameters for listing fields.
type Filter struct {
	OwnerID   string
	Name      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// normalizeClosedDays lower-cases, validates and de-duplicates weekday names.
func normalizeClosedDays(days []string) ([]string, error) {
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		name := strings.ToLower(strings.TrimSpace(d))
		if _, ok := weekdays[name]; !ok {
			return nil, ErrInvalidClosedDay
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}
