// Package services – AuthService
//
// This file adapts the authentication provider (package auth) to the shapes
// returned by the auth endpoints, and translates the provider's sentinel
// errors into typed application errors:
//
//	auth.ErrInvalidCredentials → UNAUTHORIZED / AUTH
//	auth.ErrBanned             → FORBIDDEN    / AUTH
//	auth.ErrEmailTaken         → CONFLICT     / AUTH
//	auth.ErrUserNotFound       → NOT_FOUND    / ADMIN (session revocation)
//	anything else              → EXTERNAL_SERVICE / EXTERNAL
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/auth"
	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/observability"
)

// AuthProvider is the subset of *auth.Provider used by AuthService.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password, name string) (*domain.User, error)
	SignIn(ctx context.Context, email, password string, meta auth.Meta) (*auth.Session, string, error)
	SignOut(ctx context.Context, sessionID string) error
	RevokeUserSessions(ctx context.Context, userID string) (int64, error)
	RevokeAllSessions(ctx context.Context) (int64, error)
}

// TokenInfo describes an issued access token.
type TokenInfo struct {
	AccessToken string `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	// ExpiresIn is the remaining session lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn" example:"604800"`
}

// UserInfo is the public view of an authenticated user.
type UserInfo struct {
	ID            string      `json:"id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Email         string      `json:"email" example:"jane@example.com"`
	Name          string      `json:"name,omitempty" example:"Jane Doe"`
	Role          domain.Role `json:"role,omitempty" example:"USER"`
	EmailVerified bool        `json:"emailVerified" example:"false"`
}

// AuthResponse is the payload of login and signup.
type AuthResponse struct {
	Token *TokenInfo `json:"token,omitempty"`
	User  UserInfo   `json:"user"`

	// Session is the session opened by SignIn; never serialized.
	Session *auth.Session `json:"-"`
}

// SignInInput carries login credentials and client metadata.
type SignInInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// SignUpInput carries the fields of a new account.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// AuthService exposes authentication use cases.
type AuthService struct {
	Provider AuthProvider
	now      func() time.Time
}

// NewAuthService constructs an AuthService over p.
func NewAuthService(p AuthProvider) *AuthService {
	return &AuthService{Provider: p, now: time.Now}
}

// SignIn verifies credentials and opens a session.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (_ *AuthResponse, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.SignIn")
	defer func() { observability.EndSpan(span, err) }()

	sess, token, err := s.Provider.SignIn(ctx, in.Email, in.Password, auth.Meta{
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})
	if err != nil {
		return nil, mapAuthError(err)
	}
	return &AuthResponse{
		Token: &TokenInfo{
			AccessToken: token,
			ExpiresIn:   secondsUntil(sess.ExpiresAt, s.now()),
		},
		User:    sessionUserInfo(sess.User),
		Session: sess,
	}, nil
}

// SignUp registers a new account. No session is opened.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResponse, error) {
	u, err := s.Provider.SignUp(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return &AuthResponse{User: NewUserInfo(u)}, nil
}

// SignOut closes the session identified by sessionID.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if err := s.Provider.SignOut(ctx, sessionID); err != nil {
		return mapAuthError(err)
	}
	return nil
}

// RevokeSession closes every session of userID.
func (s *AuthService) RevokeSession(ctx context.Context, userID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "auth.RevokeSession", attribute.String("user.id", userID))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.Provider.RevokeUserSessions(ctx, userID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return userNotFoundIn(userID, apperr.DomainAdmin, err)
		}
		return mapAuthError(err)
	}
	return nil
}

// RevokeAllSessions closes every session of every user.
func (s *AuthService) RevokeAllSessions(ctx context.Context) error {
	if _, err := s.Provider.RevokeAllSessions(ctx); err != nil {
		return mapAuthError(err)
	}
	return nil
}

// NewUserInfo builds the public view of u.
func NewUserInfo(u *domain.User) UserInfo {
	return UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

func sessionUserInfo(u auth.SessionUser) UserInfo {
	return UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

func secondsUntil(t, now time.Time) int64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

func mapAuthError(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperr.Unauthorized(MsgInvalidCredentials, apperr.WithCause(err))
	case errors.Is(err, auth.ErrBanned):
		return apperr.Forbidden(MsgBanned, apperr.InDomain(apperr.DomainAuth), apperr.WithCause(err))
	case errors.Is(err, auth.ErrEmailTaken):
		return apperr.Conflict(MsgEmailRegistered, apperr.InDomain(apperr.DomainAuth), apperr.WithCause(err))
	case errors.Is(err, auth.ErrUserNotFound):
		return apperr.NotFound("", apperr.InDomain(apperr.DomainAdmin), apperr.WithCause(err))
	}
	return apperr.ExternalService(MsgAuthUnavailable, apperr.InDomain(apperr.DomainExternal), apperr.WithCause(err))
}
