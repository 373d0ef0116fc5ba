package http

import (
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/field"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/request"
)

// ListFieldsRequest defines query parameters for listing fields.
type ListFieldsRequest struct {
	request.ListParams
	OwnerID string `form:"owner_id" binding:"omitempty,uuid"`
	Name    string `form:"q"`
	SortBy  string `form:"sort_by" binding:"omitempty,oneof=name pricing created_at"`
}

type FieldResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	OpenTime     string    `json:"open_time"`
	CloseTime    string    `json:"close_time"`
	Pricing      float64   `json:"pricing"`
	ClosedDays   []string  `json:"closed_days"`
	CoverImageID *string   `json:"cover_image_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewFieldResponse(f *field.Field) FieldResponse {
	closed := f.ClosedDays
	if closed == nil {
		closed = []string{}
	}
	return FieldResponse{
		ID:           f.ID,
		OwnerID:      f.OwnerID,
		Name:         f.Name,
		Address:      f.Address,
		OpenTime:     f.OpenTime,
		CloseTime:    f.CloseTime,
		Pricing:      f.Pricing,
		ClosedDays:   closed,
		CoverImageID: f.CoverImageID,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

type CreateFieldRequest struct {
	// OwnerID is honoured only for admins; owners always create for themselves.
	OwnerID    string   `json:"owner_id" binding:"omitempty,uuid"`
	Name       string   `json:"name" binding:"required"`
	Address    string   `json:"address"`
	OpenTime   string   `json:"open_time" binding:"required"`
	CloseTime  string   `json:"close_time" binding:"required"`
	Pricing    float64  `json:"pricing" binding:"required,gt=0"`
	ClosedDays []string `json:"closed_days"`
}

type UpdateFieldRequest struct {
	Name       *string   `json:"name"`
	Address    *string   `json:"address"`
	OpenTime   *string   `json:"open_time"`
	CloseTime  *string   `json:"close_time"`
	Pricing    *float64  `json:"pricing" binding:"omitempty,gt=0"`
	ClosedDays *[]string `json:"closed_days"`
}
