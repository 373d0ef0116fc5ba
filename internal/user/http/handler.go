package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/field-booking-backend/internal/user"
)

type UserHandler struct {
	userService user.Service
	jwtManager  *auth.JWTManager
}

func NewHandler(userService user.Service, jwtManager *auth.JWTManager) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Register handles the user registration process.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	u, err := h.userService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, MeResponse{User: NewUserResponse(u)})
}

// Login authenticates a user using email and password.
// On success, it returns a JWT access token carrying the user's role.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	u, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		User:        NewUserResponse(u),
	})
}

// Me retrieves the profile of the currently authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.userService.GetByID(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}

// DeactivateMe soft-deletes the caller's own account.
func (h *UserHandler) DeactivateMe(c *gin.Context) {
	userID := auth.GetUserID(c)
	if _, err := h.userService.Deactivate(c.Request.Context(), userID, userID, false); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List retrieves a paginated list of users with optional filtering.
// Access Control: Admin only.
func (h *UserHandler) List(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	users, total, err := h.userService.List(c.Request.Context(), user.UserFilter{
		Page:        req.Page,
		PageSize:    req.PageSize,
		SortBy:      req.SortBy,
		SortOrder:   strings.ToUpper(req.SortOrder),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        auth.Role(req.Role),
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]UserResponse, len(users))
	for i, u := range users {
		items[i] = NewUserResponse(u)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Get retrieves a specific user by their ID.
// Access Control: Admin only.
func (h *UserHandler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}

// Update modifies the display name of a user.
// Access Control: Admin only.
func (h *UserHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var body UpdateUserRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid body", err)
		return
	}

	u, err := h.userService.UpdateDisplayName(c.Request.Context(), uri.ID, body.DisplayName)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}

// Promote turns a player into a field owner.
// Access Control: Admin only.
func (h *UserHandler) Promote(c *gin.Context) {
	h.byID(c, h.userService.PromoteToOwner)
}

// Deactivate soft-deletes a user.
// Access Control: Admin only.
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.byID(c, func(ctx context.Context, id string) (*user.User, error) {
		return h.userService.Deactivate(ctx, id, auth.GetUserID(c), true)
	})
}

// Reactivate restores a deactivated user before it is purged.
// Access Control: Admin only.
func (h *UserHandler) Reactivate(c *gin.Context) {
	h.byID(c, h.userService.Reactivate)
}

func (h *UserHandler) byID(c *gin.Context, op func(ctx context.Context, id string) (*user.User, error)) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	u, err := op(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}
