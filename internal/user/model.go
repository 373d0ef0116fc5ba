package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, apperror.KindNotFound, "user not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, apperror.KindDuplicate, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, apperror.KindAuth, "invalid email or password")
	ErrInactiveUser       = apperror.New(http.StatusForbidden, apperror.KindForbidden, "account is deactivated")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, apperror.KindValidation, "password is too short")
	ErrNotPlayer          = apperror.New(http.StatusConflict, apperror.KindState, "only active players can be promoted to owner")
	ErrPermissionDenied   = apperror.New(http.StatusForbidden, apperror.KindForbidden, "permission denied")
	// ErrNotPurgeable is returned by Purge when the account was reactivated
	// or is still inside the retention window.
	ErrNotPurgeable = apperror.New(http.StatusConflict, apperror.KindState, "account is not eligible for purge")
)

// User represents an account on the platform.
type User struct {
	ID            string // UUID
	Email         string
	PasswordHash  string
	DisplayName   *string
	Role          auth.Role
	IsActive      bool
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

// UserFilter defines filter options for listing users.
type UserFilter struct {
	Email       string
	DisplayName string
	Role        auth.Role
	IsActive    *bool // Use pointer to distinguish between false and nil (not set)

	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PurgeResult reports what a purge removed.
type PurgeResult struct {
	Reservations int64
	Fields       int64
	// ImagePaths are storage paths of deleted photo rows whose files still
	// need removing.
	ImagePaths []string
}
