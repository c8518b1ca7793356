// Package guard implements the per-route authorization pipeline.
//
// A Guard receives an immutable Request and either returns it (possibly with
// a session attached) or fails with an *apperr.Error. Guards run strictly in
// order and the first failure stops the pipeline. The resolved session is
// carried forward in the returned Request, so the auth provider is consulted
// at most once per request no matter how many guards run.
package guard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/auth"
	"github.com/tbourn/go-auth-backend/internal/domain"
)

// Messages used when a guard wraps an unexpected failure.
const (
	msgAuthFailure  = "Error verifying authentication."
	msgAdminFailure = "Error verifying permissions."
	unknownRole     = "Unknown"
)

// SessionResolver turns request credentials into a session. It returns
// (nil, nil) when the credentials do not identify an active session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, creds auth.Credentials) (*auth.Session, error)
}

// ResolverFunc adapts a function to SessionResolver.
type ResolverFunc func(ctx context.Context, creds auth.Credentials) (*auth.Session, error)

func (f ResolverFunc) ResolveSession(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	return f(ctx, creds)
}

// Request is the guard pipeline's view of an inbound request. Values are
// never mutated; WithSession returns a copy.
type Request struct {
	id      string
	creds   auth.Credentials
	session *auth.Session
}

// NewRequest builds a Request with no session attached.
func NewRequest(id string, creds auth.Credentials) Request {
	return Request{id: id, creds: creds}
}

func (r Request) ID() string                    { return r.id }
func (r Request) Credentials() auth.Credentials { return r.creds }
func (r Request) Session() *auth.Session        { return r.session }

// HasUser reports whether a session with a user is attached.
func (r Request) HasUser() bool {
	return r.session != nil && r.session.User.ID != ""
}

// WithSession returns a copy of r carrying s.
func (r Request) WithSession(s *auth.Session) Request {
	r.session = s
	return r
}

// Guard checks a request and returns the (possibly enriched) request to hand
// to the next guard.
type Guard func(ctx context.Context, req Request) (Request, error)

// Run executes guards in order and stops at the first failure.
func Run(ctx context.Context, req Request, guards ...Guard) (Request, error) {
	for _, g := range guards {
		next, err := g(ctx, req)
		if err != nil {
			return req, err
		}
		req = next
	}
	return req, nil
}

// Authenticate requires a logged-in user. A request that already carries a
// session passes without consulting res.
func Authenticate(res SessionResolver) Guard {
	return func(ctx context.Context, req Request) (out Request, err error) {
		if req.HasUser() {
			return req, nil
		}

		defer func() {
			if rec := recover(); rec != nil {
				out, err = req, authFailure(req, fmt.Errorf("panic: %v", rec))
			}
		}()

		s, rerr := res.ResolveSession(ctx, req.Credentials())
		if rerr != nil {
			zerolog.Ctx(ctx).Error().Err(rerr).Str("request_id", req.ID()).Msg("Error verifying authentication")
			return req, authFailure(req, rerr)
		}
		if s == nil || s.User.ID == "" {
			return req, apperr.Unauthorized(apperr.MsgUnauthorized,
				apperr.WithDetail("requestId", req.ID()),
			)
		}
		return req.WithSession(s), nil
	}
}

// RequireAdmin requires the attached session to belong to an ADMIN. It must
// run after Authenticate; without a session it fails as unauthenticated.
func RequireAdmin() Guard {
	return func(ctx context.Context, req Request) (out Request, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(ctx).Error().Interface("panic", rec).Str("request_id", req.ID()).Msg("Error verifying admin permissions")
				out, err = req, apperr.Forbidden(msgAdminFailure,
					apperr.InDomain(apperr.DomainAdmin),
					apperr.WithDetails(apperr.Details{
						"requestId":     req.ID(),
						"originalError": fmt.Sprint(rec),
					}),
				)
			}
		}()

		if !req.HasUser() {
			return req, apperr.Unauthorized(apperr.MsgUnauthorized,
				apperr.WithDetail("requestId", req.ID()),
			)
		}

		role := req.Session().User.Role
		if role == domain.RoleAdmin {
			return req, nil
		}
		observed := string(role)
		if observed == "" {
			observed = unknownRole
		}
		return req, apperr.Forbidden(apperr.MsgForbidden,
			apperr.InDomain(apperr.DomainAdmin),
			apperr.WithDetails(apperr.Details{
				"requestId":    req.ID(),
				"userRole":     observed,
				"requiredRole": string(domain.RoleAdmin),
			}),
		)
	}
}

func authFailure(req Request, cause error) *apperr.Error {
	return apperr.Unauthorized(msgAuthFailure,
		apperr.WithCause(cause),
		apperr.WithDetails(apperr.Details{
			"requestId":     req.ID(),
			"originalError": cause.Error(),
		}),
	)
}
