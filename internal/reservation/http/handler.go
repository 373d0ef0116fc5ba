package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/field-booking-backend/internal/reservation"
)

type Handler struct {
	service reservation.Service
}

func NewHandler(service reservation.Service) *Handler {
	return &Handler{service: service}
}

func actorFrom(c *gin.Context) reservation.Actor {
	return reservation.Actor{UserID: auth.GetUserID(c), IsAdmin: auth.IsAdmin(c)}
}

// Slots returns the slot grid of a field for one day.
func (h *Handler) Slots(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid field id", err)
		return
	}
	var req SlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "date query parameter must be YYYY-MM-DD", err)
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), uri.ID, req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}
	c.JSON(http.StatusOK, response.NewListResponse(items))
}

// ListByField returns the reservations of a field in reduced form.
func (h *Handler) ListByField(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid field id", err)
		return
	}
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	filter := req.Filter()
	filter.PlayerID = ""
	filter.OwnerID = ""

	list, total, err := h.service.ListByField(c.Request.Context(), uri.ID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]FieldReservationResponse, len(list))
	for i, r := range list {
		items[i] = FieldReservationResponse{
			ID:        r.ID,
			PlayerID:  r.PlayerID,
			Date:      r.Date,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Status:    string(r.Status),
		}
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	filter := req.Filter()
	// Non-admins only ever see their own bookings, either as player or as
	// the owner recorded on the reservation.
	if !auth.IsAdmin(c) {
		userID := auth.GetUserID(c)
		if req.Scope == "owner" && auth.GetRole(c).CanOwnFields() {
			filter.OwnerID = userID
			filter.PlayerID = ""
		} else {
			filter.PlayerID = userID
			filter.OwnerID = ""
		}
	}

	list, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ReservationResponse, len(list))
	for i, r := range list {
		items[i] = NewReservationResponse(r)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), uri.ID, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateReservationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.service.Create(c.Request.Context(), reservation.CreateRequest{
		FieldID:    body.FieldID,
		PlayerID:   auth.GetUserID(c),
		Date:       body.Date,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
		TotalPrice: body.TotalPrice,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewReservationResponse(r))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}
	var body UpdateReservationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if body.Date == nil && body.StartTime == nil && body.EndTime == nil && body.TotalPrice == nil {
		response.Error(c, reservation.ErrValidation)
		return
	}

	r, err := h.service.Update(c.Request.Context(), uri.ID, reservation.UpdateRequest{
		Date:       body.Date,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
		TotalPrice: body.TotalPrice,
	}, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}

	r, err := h.service.Cancel(c.Request.Context(), uri.ID, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewReservationResponse(r))
}
