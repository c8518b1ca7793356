// Package handlers exposes the REST endpoints of the API:
//   - /auth/*   login, signup, logout, current session
//   - /users/*  user listing and CRUD
//   - /admin/*  session revocation
//
// Handlers are transport-thin: they decode and validate input, call the
// application services, and translate results into HTTP responses. Every
// failure is forwarded unchanged to the error dispatcher.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/services"
	"github.com/tbourn/go-auth-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AuthService defines the authentication operations consumed by handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// SignIn verifies credentials and opens a session.
	SignIn(ctx context.Context, in services.SignInInput) (*services.AuthResponse, error)
	// SignUp registers a new USER account.
	SignUp(ctx context.Context, in services.SignUpInput) (*services.AuthResponse, error)
	// SignOut closes one session.
	SignOut(ctx context.Context, sessionID string) error
	// RevokeSession closes every session of a user.
	RevokeSession(ctx context.Context, userID string) error
	// RevokeAllSessions closes every session of every user.
	RevokeAllSessions(ctx context.Context) error
}

// UserService defines user read/update/delete operations.
type UserService interface {
	GetUsers(ctx context.Context) ([]domain.User, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, in services.UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (*services.DeleteResult, error)
}

//
// Handler wiring
//

// Options carries transport settings for the session cookie.
type Options struct {
	// CookieName is the name of the session cookie.
	CookieName string
	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
}

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	authSvc AuthService
	userSvc UserService
	opts    Options

	now func() time.Time
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, userSvc UserService, opts Options) *Handlers {
	return &Handlers{authSvc: authSvc, userSvc: userSvc, opts: opts, now: time.Now}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	p := utils.ParsePage(c.Query("page"), c.Query("page_size"))
	return p.Number, p.Size
}

// wantsPage reports whether the caller asked for a paginated listing.
func wantsPage(c *gin.Context) bool {
	_, hasPage := c.GetQuery("page")
	_, hasSize := c.GetQuery("page_size")
	return hasPage || hasSize
}
