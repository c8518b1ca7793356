package apperr

import (
	"errors"
	"time"
)

// codeTimeLayout renders the creation instant inside the error code:
// YYYYMMDDHHMMSS, UTC, no separators.
const codeTimeLayout = "20060102150405"

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// now is the clock used to stamp new errors. Tests replace it.
var now = time.Now

// Details carries structured context attached to an error, such as the
// request id or per-field validation failures.
type Details map[string]any

// Error is the single error value used for all expected failure signaling.
//
// An Error is immutable once constructed: its fields are unexported, the
// status code is derived from the kind, and the code is generated exactly once
// at construction. Details returns a copy so callers cannot mutate it.
type Error struct {
	message   string
	kind      Kind
	domain    Domain
	details   Details
	code      string
	timestamp time.Time
	cause     error
}

// New builds an Error of the given kind. details may be nil.
func New(kind Kind, message string, domain Domain, details Details) *Error {
	ts := now().UTC()
	return &Error{
		message:   message,
		kind:      kind,
		domain:    domain,
		details:   cloneDetails(details),
		code:      string(domain) + "-" + string(kind) + "-" + ts.Format(codeTimeLayout),
		timestamp: ts,
	}
}

// Error implements the error interface with the human-readable message.
func (e *Error) Error() string { return e.message }

// Unwrap exposes the underlying cause (if any) to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Message returns the human-readable message.
func (e *Error) Message() string { return e.message }

// Kind returns the error kind.
func (e *Error) Kind() Kind { return e.kind }

// Domain returns the originating domain.
func (e *Error) Domain() Domain { return e.domain }

// StatusCode returns the HTTP status bound to the error kind.
func (e *Error) StatusCode() int { return e.kind.Status() }

// Code returns the generated identifier {DOMAIN}-{KIND}-{YYYYMMDDHHMMSS}.
func (e *Error) Code() string { return e.code }

// Timestamp returns the UTC creation instant.
func (e *Error) Timestamp() time.Time { return e.timestamp }

// Cause returns the wrapped cause, or nil.
func (e *Error) Cause() error { return e.cause }

// Details returns a copy of the attached details, or nil when none were set.
func (e *Error) Details() Details { return cloneDetails(e.details) }

// Detail returns a single details entry.
func (e *Error) Detail(key string) (any, bool) {
	v, ok := e.details[key]
	return v, ok
}

// Response is the JSON envelope written for every error reply.
type Response struct {
	Error Body `json:"error"`
}

// Body is the inner error object of Response.
type Body struct {
	Code      string  `json:"code"      example:"USER-NOT_FOUND-20250102150405"`
	Type      Kind    `json:"type"      example:"NOT_FOUND"`
	Domain    Domain  `json:"domain"    example:"USER"`
	Message   string  `json:"message"   example:"User with ID 42 not found."`
	Timestamp string  `json:"timestamp" example:"2025-01-02T15:04:05.123Z"`
	Details   Details `json:"details,omitempty" swaggertype:"object"`
}

// ToResponse serializes the error into the wire envelope. Details are omitted
// when none were supplied.
func (e *Error) ToResponse() Response {
	return Response{Error: Body{
		Code:      e.code,
		Type:      e.kind,
		Domain:    e.domain,
		Message:   e.message,
		Timestamp: e.timestamp.Format(timestampLayout),
		Details:   cloneDetails(e.details),
	}}
}

// As reports whether err (or anything it wraps) is an *Error and returns it.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	ae, ok := As(err)
	return ok && ae.kind == k
}

func cloneDetails(d Details) Details {
	if len(d) == 0 {
		return nil
	}
	out := make(Details, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
