// Auth HTTP handlers.
//
// This file exposes the authentication endpoints:
//   - POST /auth/login    (credentials → session cookie + bearer token)
//   - POST /auth/signup   (register a USER account)
//   - POST /auth/logout   (close the current session)
//   - GET  /auth/session  (describe the current session)
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/http/guard"
	"github.com/tbourn/go-auth-backend/internal/http/middleware"
	"github.com/tbourn/go-auth-backend/internal/services"
)

//
// DTOs
//

// LoginRequest is the JSON payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"jane@example.com"`
	Password string `json:"password" validate:"required,min=6" errmsg:"min:Password must be at least 6 characters long" example:"s3cret!"`
}

// SignupRequest is the JSON payload for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email" example:"jane@example.com"`
	Password string `json:"password" validate:"required,min=6,max=100" errmsg:"min:The password must be at least 6 characters long" example:"s3cret!"`
	Name     string `json:"name" validate:"required,min=2" errmsg:"min:The name must be at least 2 characters long" example:"Jane Doe"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Message string                `json:"message" example:"Login successful"`
	Data    services.AuthResponse `json:"data"`
}

// SignupResponse is returned by POST /auth/signup.
type SignupResponse struct {
	Message string                `json:"message" example:"Signup successful"`
	Data    services.AuthResponse `json:"data"`
}

// SessionInfo describes the current session.
type SessionInfo struct {
	ID        string    `json:"id" example:"0b6f2c1e-8a58-4c1f-9b57-3f8c1d2a7e10"`
	ExpiresAt time.Time `json:"expiresAt" example:"2025-01-09T15:04:05Z"`
}

// SessionResponse is returned by GET /auth/session.
type SessionResponse struct {
	Session SessionInfo       `json:"session"`
	User    services.UserInfo `json:"user"`
}

//
// Handlers
//

// Login godoc
// @ID          login
// @Summary     Login
// @Description Authenticates with email and password. Sets the session cookie and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.LoginResponse
// @Failure     400   {object}  apperr.Response  "Malformed body or validation failure"
// @Failure     401   {object}  apperr.Response  "Invalid email or password"
// @Failure     403   {object}  apperr.Response  "Banned or rate limited"
// @Failure     502   {object}  apperr.Response  "Authentication provider failure"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req, apperr.DomainAuth) {
		return
	}

	resp, err := h.authSvc.SignIn(c.Request.Context(), services.SignInInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	middleware.RecordAuthEvent(middleware.AuthEventLogin, err)
	if err != nil {
		fail(c, err)
		return
	}

	if resp.Session != nil && resp.Token != nil {
		h.setSessionCookie(c, resp.Token.AccessToken, resp.Session.ExpiresAt)
	}
	ok(c, http.StatusOK, LoginResponse{Message: "Login successful", Data: *resp})
}

// Signup godoc
// @ID          signup
// @Summary     Create account
// @Description Registers a new USER account. Does not log the user in.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignupRequest  true  "Account"
// @Success     201   {object}  handlers.SignupResponse
// @Failure     400   {object}  apperr.Response  "Malformed body or validation failure"
// @Failure     409   {object}  apperr.Response  "Email already registered"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if !bind(c, &req, apperr.DomainAuth) {
		return
	}

	resp, err := h.authSvc.SignUp(c.Request.Context(), services.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	middleware.RecordAuthEvent(middleware.AuthEventSignup, err)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, SignupResponse{Message: "Signup successful", Data: *resp})
}

// Logout godoc
// @ID          logout
// @Summary     Logout
// @Description Closes the current session and clears the session cookie.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MessageResponse
// @Failure     401  {object}  apperr.Response  "Not logged in"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	sess := guard.SessionFrom(c)
	if sess == nil {
		fail(c, apperr.Unauthorized(apperr.MsgUnauthorized))
		return
	}
	err := h.authSvc.SignOut(c.Request.Context(), sess.ID)
	middleware.RecordAuthEvent(middleware.AuthEventLogout, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.clearSessionCookie(c)
	ok(c, http.StatusOK, MessageResponse{Message: "Signout successful"})
}

// Session godoc
// @ID          getSession
// @Summary     Current session
// @Description Returns the session and user behind the presented credentials.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.SessionResponse
// @Failure     401  {object}  apperr.Response  "Not logged in"
// @Router      /auth/session [get]
func (h *Handlers) Session(c *gin.Context) {
	sess := guard.SessionFrom(c)
	if sess == nil {
		fail(c, apperr.Unauthorized(apperr.MsgUnauthorized))
		return
	}
	ok(c, http.StatusOK, SessionResponse{
		Session: SessionInfo{ID: sess.ID, ExpiresAt: sess.ExpiresAt},
		User: services.UserInfo{
			ID:            sess.User.ID,
			Email:         sess.User.Email,
			Name:          sess.User.Name,
			Role:          sess.User.Role,
			EmailVerified: sess.User.EmailVerified,
		},
	})
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string, expires time.Time) {
	maxAge := int(expires.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
