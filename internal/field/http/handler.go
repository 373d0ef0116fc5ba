package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/field"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/response"
)

type FieldHandler struct {
	service field.Service
}

func NewHandler(service field.Service) *FieldHandler {
	return &FieldHandler{service: service}
}

// List retrieves a paginated list of fields with optional filtering.
func (h *FieldHandler) List(c *gin.Context) {
	var req ListFieldsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	fields, total, err := h.service.List(c.Request.Context(), field.Filter{
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]FieldResponse, len(fields))
	for i, f := range fields {
		items[i] = NewFieldResponse(f)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Create adds a new field owned by the caller. Admins may create on behalf of an owner.
func (h *FieldHandler) Create(c *gin.Context) {
	var body CreateFieldRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	ownerID := auth.GetUserID(c)
	if auth.IsAdmin(c) && body.OwnerID != "" {
		ownerID = body.OwnerID
	}

	f, err := h.service.Create(c.Request.Context(), field.CreateRequest{
		OwnerID:    ownerID,
		Name:       body.Name,
		Address:    body.Address,
		OpenTime:   body.OpenTime,
		CloseTime:  body.CloseTime,
		Pricing:    body.Pricing,
		ClosedDays: body.ClosedDays,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewFieldResponse(f))
}

// Get retrieves specific field details.
func (h *FieldHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid field id", err)
		return
	}

	f, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewFieldResponse(f))
}

// Update modifies specific attributes of a field. Only its owner or an admin may do so.
func (h *FieldHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid field id", err)
		return
	}
	var body UpdateFieldRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	f, err := h.service.Update(c.Request.Context(), uri.ID, field.UpdateRequest{
		Name:       body.Name,
		Address:    body.Address,
		OpenTime:   body.OpenTime,
		CloseTime:  body.CloseTime,
		Pricing:    body.Pricing,
		ClosedDays: body.ClosedDays,
	}, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewFieldResponse(f))
}

// Delete removes a field together with its reservations.
func (h *FieldHandler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid field id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID, auth.GetUserID(c), auth.IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
