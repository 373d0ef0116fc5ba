package http

import (
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/field-booking-backend/internal/reservation"
)

// ListReservationsRequest defines query parameters for listing reservations.
type ListReservationsRequest struct {
	request.ListParams
	FieldID  string `form:"field_id" binding:"omitempty,uuid"`
	PlayerID string `form:"player_id" binding:"omitempty,uuid"`
	OwnerID  string `form:"owner_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=active cancelled completed"`
	DateFrom string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=date created_at status total_price"`
	// Scope selects whose reservations a non-admin sees: "player" (default) or "owner".
	Scope string `form:"scope" binding:"omitempty,oneof=player owner"`
}

// Validate performs custom validation for ListReservationsRequest.
func (r *ListReservationsRequest) Validate() error {
	// Dates share one layout, so lexical order is chronological.
	if r.DateFrom != "" && r.DateTo != "" && r.DateFrom > r.DateTo {
		return reservation.ErrInvalidTimeRange
	}
	return nil
}

func (r *ListReservationsRequest) Filter() reservation.Filter {
	return reservation.Filter{
		FieldID:   r.FieldID,
		PlayerID:  r.PlayerID,
		OwnerID:   r.OwnerID,
		Status:    reservation.Status(r.Status),
		DateFrom:  r.DateFrom,
		DateTo:    r.DateTo,
		Page:      r.Page,
		PageSize:  r.PageSize,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
	}
}

type SlotsRequest struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

type CreateReservationRequest struct {
	FieldID    string   `json:"field_id" binding:"required,uuid"`
	Date       string   `json:"date" binding:"required"`
	StartTime  string   `json:"start_time" binding:"required"`
	EndTime    string   `json:"end_time" binding:"required"`
	TotalPrice *float64 `json:"total_price" binding:"required"`
}

type UpdateReservationRequest struct {
	Date       *string  `json:"date"`
	StartTime  *string  `json:"start_time"`
	EndTime    *string  `json:"end_time"`
	TotalPrice *float64 `json:"total_price"`
}

type ReservationResponse struct {
	ID         string    `json:"id"`
	FieldID    string    `json:"field_id"`
	PlayerID   string    `json:"player_id"`
	OwnerID    string    `json:"owner_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		FieldID:    r.FieldID,
		PlayerID:   r.PlayerID,
		OwnerID:    r.OwnerID,
		Date:       r.Date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		TotalPrice: r.TotalPrice,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// FieldReservationResponse is the reduced read model used for slot
// annotation: status, player and time only.
type FieldReservationResponse struct {
	ID        string `json:"id"`
	PlayerID  string `json:"player_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

type SlotResponse struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Price          float64 `json:"price"`
	IsPastDay      bool    `json:"is_past_day"`
	IsPastHour     bool    `json:"is_past_hour"`
	Closed         bool    `json:"closed"`
	Available      bool    `json:"available"`
	ReservationID  string  `json:"reservation_id,omitempty"`
	Status         string  `json:"status,omitempty"`
	OwnerOfBooking string  `json:"owner_of_booking,omitempty"`
}

func NewSlotResponse(s reservation.Slot) SlotResponse {
	return SlotResponse{
		ID:             s.ID,
		Label:          s.Label,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Price:          s.Price,
		IsPastDay:      s.IsPastDay,
		IsPastHour:     s.IsPastHour,
		Closed:         s.Closed,
		Available:      s.Available,
		ReservationID:  s.ReservationID,
		Status:         string(s.Status),
		OwnerOfBooking: s.OwnerOfBooking,
	}
}
