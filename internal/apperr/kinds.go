// Package apperr defines the application error taxonomy: a closed set of
// error kinds (each bound to one HTTP status), an orthogonal set of error
// domains used for log routing and alerting, and the immutable Error value
// that every expected failure is reported with.
//
// The wire shape produced by (*Error).ToResponse is the only error body the
// HTTP layer ever writes:
//
//	{
//	  "error": {
//	    "code":      "USER-NOT_FOUND-20250102150405",
//	    "type":      "NOT_FOUND",
//	    "domain":    "USER",
//	    "message":   "User with ID 42 not found.",
//	    "timestamp": "2025-01-02T15:04:05.123Z",
//	    "details":   { "userId": "42" }
//	  }
//	}
package apperr

import "net/http"

// Kind classifies an error by what went wrong. Each kind maps to exactly one
// HTTP status code (see Status).
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindValidation      Kind = "VALIDATION"
	KindInternal        Kind = "INTERNAL"
	KindExternalService Kind = "EXTERNAL_SERVICE"
	KindConflict        Kind = "CONFLICT"
	KindBadRequest      Kind = "BAD_REQUEST"
)

// Kinds lists every defined kind in declaration order.
var Kinds = []Kind{
	KindNotFound,
	KindUnauthorized,
	KindForbidden,
	KindValidation,
	KindInternal,
	KindExternalService,
	KindConflict,
	KindBadRequest,
}

// Status returns the HTTP status code bound to k. Values outside the defined
// set report 500.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindInternal:
		return http.StatusInternalServerError
	case KindExternalService:
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Domain tags where an error originated. It never influences the status code.
type Domain string

const (
	DomainAuth       Domain = "AUTH"
	DomainUser       Domain = "USER"
	DomainAdmin      Domain = "ADMIN"
	DomainSystem     Domain = "SYSTEM"
	DomainValidation Domain = "VALIDATION"
	DomainExternal   Domain = "EXTERNAL"
)
