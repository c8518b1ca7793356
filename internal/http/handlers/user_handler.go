// User HTTP handlers.
//
// This file exposes REST endpoints for user resources:
//   - GET    /users       (list, admin only, optional pagination, ETag support)
//   - GET    /users/{id}  (fetch)
//   - PUT    /users/{id}  (partial update)
//   - DELETE /users/{id}  (delete, together with the user's sessions)
//
// Non-admins may only modify or delete their own account and may never change
// a role.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/http/guard"
	"github.com/tbourn/go-auth-backend/internal/http/middleware"
	"github.com/tbourn/go-auth-backend/internal/repo"
	"github.com/tbourn/go-auth-backend/internal/services"
)

// UpdateUserRequest is the JSON payload for PUT /users/{id}. Absent fields
// are left untouched.
type UpdateUserRequest struct {
	Email *string      `json:"email,omitempty" validate:"omitempty,email" example:"jane@example.com"`
	Name  *string      `json:"name,omitempty" validate:"omitempty,min=2" errmsg:"min:The name must be at least 2 characters long" example:"Jane Doe"`
	Role  *domain.Role `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER" example:"USER"`
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Description Returns all users, or one page when page/page_size are given. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"users:2:1735830245\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
// @Success     200  {array}   domain.User
// @Header      200  {string}  ETag           "Weak ETag for current result"
// @Header      200  {integer} X-Total-Count  "Total number of users (paginated requests)"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  apperr.Response "Not logged in"
// @Failure     403  {object}  apperr.Response "Not an administrator"
// @Failure     500  {object}  apperr.Response "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.userSvc.(*services.UserService); ok {
		db = svc.DB
	}
	if db != nil {
		if v, err := repo.UsersStats(ctx, db); err == nil {
			var etag string
			if wantsPage(c) {
				etag = v.ETag(clampPagination(c))
			} else {
				etag = v.ETag(0, 0)
			}
			middleware.AllowRevalidation(c)
			c.Header("ETag", etag)
			if c.GetHeader("If-None-Match") == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	if !wantsPage(c) {
		users, err := h.userSvc.GetUsers(ctx)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, users)
		return
	}

	page, pageSize := clampPagination(c)
	users, total, err := h.userSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	ok(c, http.StatusOK, users)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "User ID"  format(uuid)
// @Success     200  {object}  domain.User
// @Failure     401  {object}  apperr.Response "Not logged in"
// @Failure     404  {object}  apperr.Response "User not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.userSvc.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update a user
// @Description Partially updates a user. Non-admins may only update themselves and cannot change roles.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                      true  "User ID"  format(uuid)
// @Param       body  body      handlers.UpdateUserRequest  true  "Fields to change"
// @Success     200   {object}  domain.User
// @Failure     400   {object}  apperr.Response "Malformed body or validation failure"
// @Failure     401   {object}  apperr.Response "Not logged in"
// @Failure     403   {object}  apperr.Response "Not allowed"
// @Failure     404   {object}  apperr.Response "User not found"
// @Failure     409   {object}  apperr.Response "Email already in use"
// @Router      /users/{id} [put]
func (h *Handlers) UpdateUser(c *gin.Context) {
	id := c.Param("id")
	if err := authorizeChange(c, id, false); err != nil {
		fail(c, err)
		return
	}

	var req UpdateUserRequest
	if !bind(c, &req, apperr.DomainUser) {
		return
	}
	if req.Role != nil {
		if err := authorizeChange(c, id, true); err != nil {
			fail(c, err)
			return
		}
	}

	u, err := h.userSvc.UpdateUser(c.Request.Context(), id, services.UpdateUserInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Description Deletes a user and all of their sessions. Non-admins may only delete themselves.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "User ID"  format(uuid)
// @Success     200  {object}  services.DeleteResult
// @Failure     401  {object}  apperr.Response "Not logged in"
// @Failure     403  {object}  apperr.Response "Not allowed"
// @Failure     404  {object}  apperr.Response "User not found"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := authorizeChange(c, id, false); err != nil {
		fail(c, err)
		return
	}

	res, err := h.userSvc.DeleteUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// authorizeChange enforces the ownership policy for write operations on the
// user identified by id.
func authorizeChange(c *gin.Context, id string, roleChange bool) error {
	sess := guard.SessionFrom(c)
	if sess == nil {
		return apperr.Unauthorized(apperr.MsgUnauthorized)
	}
	if sess.IsAdmin() {
		return nil
	}
	details := apperr.Details{
		"userId":   id,
		"userRole": string(sess.User.Role),
	}
	if sess.User.ID != id {
		return apperr.Forbidden(services.MsgChangeOthers, apperr.InDomain(apperr.DomainUser), apperr.WithDetails(details))
	}
	if roleChange {
		return apperr.Forbidden(services.MsgChangeRole, apperr.InDomain(apperr.DomainUser), apperr.WithDetails(details))
	}
	return nil
}
