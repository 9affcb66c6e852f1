// Package auth implements password authentication and principal
// resolution for the HTTP layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
	"github.com/launchthat/storefront/internal/users"
)

// ErrInvalidCredentials covers every login failure so responses do not
// reveal whether the email exists.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", httpx.ErrUnauthorized)

// Service wraps authentication business rules.
type Service struct {
	users users.Repository
}

// NewService constructs a Service.
func NewService(userRepo users.Repository) *Service {
	return &Service{users: userRepo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RegisterInput carries a new account's attributes.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates an active account with the default download role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*users.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", httpx.ErrValidation)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: an account with this email already exists", httpx.ErrValidation)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id, err := s.users.Create(ctx, users.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		DownloadRole: rbac.DefaultRole,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, id)
}

// Principal builds the request principal for a user id. An unknown or
// deactivated user yields the guest principal.
func (s *Service) Principal(ctx context.Context, userID string) rbac.Principal {
	if userID == "" {
		return rbac.Principal{}
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil || !user.IsActive {
		return rbac.Principal{}
	}
	return rbac.Principal{
		UserID:       user.ID,
		Admin:        user.IsAdmin(),
		DownloadRole: user.DownloadRole,
		OrgRole:      user.OrgRole,
	}
}
