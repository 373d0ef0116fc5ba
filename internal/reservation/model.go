package reservation

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
)

var (
	ErrValidation        = apperror.New(http.StatusBadRequest, apperror.KindValidation, "invalid reservation request")
	ErrMissingField      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "field id, date, start time, end time, total price and player are required")
	ErrInvalidDate       = apperror.New(http.StatusBadRequest, apperror.KindValidation, "date must be YYYY-MM-DD")
	ErrInvalidTime       = apperror.New(http.StatusBadRequest, apperror.KindValidation, "start and end time must be HH:MM")
	ErrInvalidTimeRange  = apperror.New(http.StatusBadRequest, apperror.KindValidation, "start time must be before end time")
	ErrOutsideHours      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "requested time is outside the field's opening hours")
	ErrFieldClosed       = apperror.New(http.StatusBadRequest, apperror.KindValidation, "field is closed on the requested day")
	ErrInvalidPrice      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "total price must not be negative")
	ErrNotFound          = apperror.New(http.StatusNotFound, apperror.KindNotFound, "reservation not found")
	ErrFieldNotFound     = apperror.New(http.StatusNotFound, apperror.KindNotFound, "field not found")
	ErrPastTime          = apperror.New(http.StatusBadRequest, apperror.KindPastTime, "the requested date and time are in the past")
	ErrSlotConflict      = apperror.New(http.StatusConflict, apperror.KindConflict, "this slot is already booked, please pick another slot")
	ErrEditWindow        = apperror.New(http.StatusBadRequest, apperror.KindEditWindow, "reservation can no longer be changed: it starts in less than the allowed lead time or has already started")
	ErrInvalidTransition = apperror.New(http.StatusConflict, apperror.KindState, "reservation is no longer active")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, apperror.KindForbidden, "permission denied")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Live reports whether a reservation in this status occupies its slot.
func (s Status) Live() bool {
	return s == StatusActive || s == StatusCompleted
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCancelled || s == StatusCompleted
}

// Reservation is one booked slot. Date is a calendar day and StartTime/EndTime
// are wall-clock "HH:MM" values in the system time zone.
type Reservation struct {
	ID         string
	FieldID    string
	PlayerID   string
	OwnerID    string // copied from the field at booking time, never refreshed
	Date       string
	StartTime  string
	EndTime    string
	TotalPrice float64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StartInstant returns Date+StartTime in loc.
func (r *Reservation) StartInstant(loc *time.Location) (time.Time, error) {
	return daytime.Combine(r.Date, r.StartTime, loc)
}

// EndInstant returns Date+EndTime in loc.
func (r *Reservation) EndInstant(loc *time.Location) (time.Time, error) {
	return daytime.Combine(r.Date, r.EndTime, loc)
}

// Actor identifies who is performing a change.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Filter defines parameters for listing reservations.
type Filter struct {
	FieldID   string
	PlayerID  string
	OwnerID   string
	Status    Status
	DateFrom  string
	DateTo    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Slot is one candidate booking window in the grid for a field and date.
type Slot struct {
	ID             string
	Label          string
	StartTime      string
	EndTime        string
	Price          float64
	IsPastDay      bool
	IsPastHour     bool
	Closed         bool
	Available      bool
	ReservationID  string
	Status         Status
	OwnerOfBooking string // player id of the matching reservation
}
