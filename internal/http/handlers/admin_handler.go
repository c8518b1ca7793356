// Admin HTTP handlers.
//
//   - POST /admin/revoke-sessions          (close every session)
//   - POST /admin/revoke-session/{userId}  (close every session of one user)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-auth-backend/internal/http/middleware"
	"github.com/tbourn/go-auth-backend/internal/services"
)

// RevokeAllSessions godoc
// @ID          revokeAllSessions
// @Summary     Revoke all sessions
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.SuccessResponse
// @Failure     401  {object}  apperr.Response "Not logged in"
// @Failure     403  {object}  apperr.Response "Not an administrator"
// @Failure     502  {object}  apperr.Response "Authentication provider failure"
// @Router      /admin/revoke-sessions [post]
func (h *Handlers) RevokeAllSessions(c *gin.Context) {
	ctx := c.Request.Context()
	err := h.authSvc.RevokeAllSessions(ctx)
	middleware.RecordAuthEvent(middleware.AuthEventRevokeAll, err)
	if err != nil {
		fail(c, err)
		return
	}
	zerolog.Ctx(ctx).Info().Msg("all sessions revoked")
	ok(c, http.StatusOK, SuccessResponse{Success: true, Message: services.MsgSessionsRevoked})
}

// RevokeUserSessions godoc
// @ID          revokeUserSessions
// @Summary     Revoke a user's sessions
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       userId  path      string  true  "User ID"  format(uuid)
// @Success     200     {object}  handlers.SuccessResponse
// @Failure     401     {object}  apperr.Response "Not logged in"
// @Failure     403     {object}  apperr.Response "Not an administrator"
// @Failure     404     {object}  apperr.Response "User not found"
// @Router      /admin/revoke-session/{userId} [post]
func (h *Handlers) RevokeUserSessions(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")
	err := h.authSvc.RevokeSession(ctx, userID)
	middleware.RecordAuthEvent(middleware.AuthEventRevokeUser, err)
	if err != nil {
		fail(c, err)
		return
	}
	zerolog.Ctx(ctx).Info().Str("target_user_id", userID).Msg("user sessions revoked")
	ok(c, http.StatusOK, SuccessResponse{Success: true, Message: services.MsgSessionRevoked})
}
