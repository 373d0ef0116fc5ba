package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/clock"
)

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, int, error)
	UpdateDisplayName(ctx context.Context, id string, displayName *string) (*User, error)
	PromoteToOwner(ctx context.Context, id string) (*User, error)
	Deactivate(ctx context.Context, id string, actorID string, isAdmin bool) (*User, error)
	Reactivate(ctx context.Context, id string) (*User, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	clock  clock.Clock
	logger *zap.Logger

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher, clk clock.Clock, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:              repo,
		hasher:            hasher,
		clock:             clk,
		logger:            logger,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}

	if len(password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	// Check if email is already used. The unique index still decides races.
	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var displayNamePtr *string
	if d := strings.TrimSpace(displayName); d != "" {
		displayNamePtr = &d
	}

	// Every account starts as a player; owners are promoted by an admin.
	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  displayNamePtr,
		Role:         auth.RolePlayer,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	// Compare before revealing the account state.
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	now := s.clock.Now()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateDisplayName(ctx context.Context, id string, displayName *string) (*User, error) {
	if displayName != nil {
		d := strings.TrimSpace(*displayName)
		if d == "" {
			displayName = nil
		} else {
			displayName = &d
		}
	}
	if err := s.repo.UpdateDisplayName(ctx, id, displayName); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) PromoteToOwner(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != auth.RolePlayer || !u.IsActive {
		return nil, ErrNotPlayer
	}
	if err := s.repo.SetRole(ctx, id, auth.RoleOwner); err != nil {
		return nil, err
	}
	u.Role = auth.RoleOwner
	return u, nil
}

// Deactivate soft-deletes an account. The retention sweep purges it once the
// retention window has passed.
func (s *service) Deactivate(ctx context.Context, id string, actorID string, isAdmin bool) (*User, error) {
	if !isAdmin && actorID != id {
		return nil, ErrPermissionDenied
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return u, nil
	}

	now := s.clock.Now()
	if err := s.repo.SetActive(ctx, id, false, &now); err != nil {
		return nil, err
	}
	u.IsActive = false
	u.DeactivatedAt = &now
	return u, nil
}

func (s *service) Reactivate(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive {
		return u, nil
	}
	if err := s.repo.SetActive(ctx, id, true, nil); err != nil {
		return nil, err
	}
	u.IsActive = true
	u.DeactivatedAt = nil
	return u, nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
