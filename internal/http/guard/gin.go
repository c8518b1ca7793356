package guard

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/auth"
	"github.com/tbourn/go-auth-backend/internal/http/middleware"
)

// Gin context keys.
const (
	ctxKeyRequest = "guard.request"
	ctxKeyUserID  = "userID" // read by middleware.KeyByUserOrIP and Logger
)

// Set is the capability set handed to route registration: the guards a route
// may declare, plus what is needed to build a Request from a gin.Context.
type Set struct {
	Authenticate Guard
	Admin        Guard
	CookieName   string
}

// NewSet builds the standard guards around res.
func NewSet(res SessionResolver, cookieName string) Set {
	return Set{
		Authenticate: Authenticate(res),
		Admin:        RequireAdmin(),
		CookieName:   cookieName,
	}
}

// Authenticated requires a logged-in user.
func (s Set) Authenticated() gin.HandlerFunc {
	return Chain(s.CookieName, s.Authenticate)
}

// AdminOnly requires a logged-in ADMIN.
func (s Set) AdminOnly() gin.HandlerFunc {
	return Chain(s.CookieName, s.Authenticate, s.Admin)
}

// Chain returns a middleware running guards in order. A Request stored by an
// earlier Chain on the same context is reused, so stacking chains does not
// resolve the session twice. On failure the error is handed to the error
// dispatcher and the handler chain is aborted.
func Chain(cookieName string, guards ...Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := RequestFrom(c)
		if !ok {
			req = NewRequest(middleware.RequestIDFrom(c), auth.CredentialsFromRequest(c.Request, cookieName))
		}

		out, err := Run(c.Request.Context(), req, guards...)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(ctxKeyRequest, out)
		if out.HasUser() {
			c.Set(ctxKeyUserID, out.Session().User.ID)
		}
		c.Next()
	}
}

// RequestFrom returns the Request stored by Chain.
func RequestFrom(c *gin.Context) (Request, bool) {
	v, ok := c.Get(ctxKeyRequest)
	if !ok {
		return Request{}, false
	}
	r, ok := v.(Request)
	return r, ok
}

// SessionFrom returns the session attached by Authenticate, or nil.
func SessionFrom(c *gin.Context) *auth.Session {
	if r, ok := RequestFrom(c); ok {
		return r.Session()
	}
	return nil
}
