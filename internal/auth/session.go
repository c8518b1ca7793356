// Package auth implements the authentication provider: password sign-up and
// sign-in, server-side sessions referenced by signed bearer tokens, session
// resolution with sliding expiry, and revocation.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/go-auth-backend/internal/domain"
)

var (
	// ErrInvalidCredentials is returned by SignIn for an unknown email or a
	// wrong password. The two cases are indistinguishable to callers.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrBanned is returned by SignIn when an active ban applies to the user.
	ErrBanned = errors.New("auth: user is banned")
	// ErrEmailTaken is returned by SignUp when the email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrUserNotFound is returned by operations addressing a missing user.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrInvalidToken is returned when a token cannot be parsed or verified.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// SessionUser is the subset of the user record carried with a session.
type SessionUser struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	Role          domain.Role `json:"role"`
	EmailVerified bool        `json:"emailVerified"`
}

// Session is a resolved, active login session.
type Session struct {
	ID        string      `json:"id"`
	ExpiresAt time.Time   `json:"expiresAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	User      SessionUser `json:"user"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.User.Role == domain.RoleAdmin
}

func newSession(s *domain.Session, u *domain.User) *Session {
	return &Session{
		ID:        s.ID,
		ExpiresAt: s.ExpiresAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
		User: SessionUser{
			ID:            u.ID,
			Email:         u.Email,
			Name:          u.Name,
			Role:          u.Role,
			EmailVerified: u.EmailVerified,
		},
	}
}

// Credentials are the raw authentication inputs presented with a request.
type Credentials struct {
	BearerToken string
	Cookie      string
}

// Token returns the bearer token when present, otherwise the cookie value.
func (c Credentials) Token() string {
	if c.BearerToken != "" {
		return c.BearerToken
	}
	return c.Cookie
}

// Empty reports whether no credential was presented.
func (c Credentials) Empty() bool { return c.Token() == "" }

// CredentialsFromRequest extracts the Authorization bearer token and the
// session cookie named cookieName from r.
func CredentialsFromRequest(r *http.Request, cookieName string) Credentials {
	var creds Credentials
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			creds.BearerToken = strings.TrimSpace(tok)
		}
	}
	if cookieName != "" {
		if ck, err := r.Cookie(cookieName); err == nil {
			creds.Cookie = ck.Value
		}
	}
	return creds
}

// Meta is client metadata recorded on a new session.
type Meta struct {
	IPAddress string
	UserAgent string
}
