// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response and request helpers shared by every
// endpoint. Success responses are written directly; failures are never
// written here. Instead they are attached to the gin context and the chain is
// aborted, leaving the single error dispatcher (middleware.ErrorHandler) to
// log and render them in the uniform envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "error": {
//	    "code": "USER-NOT_FOUND-20250102150405",
//	    "type": "NOT_FOUND",
//	    "domain": "USER",
//	    "message": "User with ID 42 not found.",
//	    "timestamp": "2025-01-02T15:04:05.123Z",
//	    "details": { "userId": "42" }
//	  }
//	}
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/validation"
)

// MsgMalformedBody is reported when a request body is not valid JSON.
const MsgMalformedBody = "Malformed JSON body."

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Signout successful"`
}

// SuccessResponse acknowledges an operation with a success flag.
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Session revoked successfully"`
}

// fail hands err to the error dispatcher and stops the handler chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Fail is the exported variant of fail(), used by router fallbacks.
func Fail(c *gin.Context, err error) { fail(c, err) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// bind decodes the JSON body into dst and validates it. A body that cannot be
// decoded yields BAD_REQUEST; a decoded body violating its rules yields
// VALIDATION with details.validationErrors. Both are tagged with domain d.
// On failure the error has already been reported and bind returns false.
func bind(c *gin.Context, dst any, d apperr.Domain) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.BadRequest(MsgMalformedBody, apperr.InDomain(d), apperr.WithCause(err)))
		return false
	}
	if err := validation.Check(dst, d); err != nil {
		fail(c, err)
		return false
	}
	return true
}
