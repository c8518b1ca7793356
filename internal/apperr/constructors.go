package apperr

// Default messages used when a constructor receives an empty message.
const (
	MsgNotFound        = "Resource not found."
	MsgUnauthorized    = "You need to be logged in to access this resource."
	MsgForbidden       = "You do not have permission to access this resource."
	MsgValidation      = "Invalid input data."
	MsgInternal        = "Internal server error. Please try again later."
	MsgExternalService = "External service error."
	MsgConflict        = "Resource already exists."
	MsgBadRequest      = "Bad request."
)

// Option customizes an Error built by one of the named constructors.
type Option func(*options)

type options struct {
	domain  Domain
	details Details
	cause   error
}

// InDomain overrides the constructor's default domain.
func InDomain(d Domain) Option {
	return func(o *options) { o.domain = d }
}

// WithDetails merges d into the error details.
func WithDetails(d Details) Option {
	return func(o *options) {
		if len(d) == 0 {
			return
		}
		if o.details == nil {
			o.details = make(Details, len(d))
		}
		for k, v := range d {
			o.details[k] = v
		}
	}
}

// WithDetail sets a single details entry.
func WithDetail(key string, value any) Option {
	return WithDetails(Details{key: value})
}

// WithCause records the underlying error. The cause is logged by the
// dispatcher but never serialized to clients.
func WithCause(err error) Option {
	return func(o *options) { o.cause = err }
}

func build(kind Kind, msg, defMsg string, defDomain Domain, opts []Option) *Error {
	o := options{domain: defDomain}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if msg == "" {
		msg = defMsg
	}
	e := New(kind, msg, o.domain, o.details)
	e.cause = o.cause
	return e
}

// NotFound reports a missing resource (404). Default domain: SYSTEM.
func NotFound(msg string, opts ...Option) *Error {
	return build(KindNotFound, msg, MsgNotFound, DomainSystem, opts)
}

// Unauthorized reports a missing or invalid session (401). Default domain: AUTH.
func Unauthorized(msg string, opts ...Option) *Error {
	return build(KindUnauthorized, msg, MsgUnauthorized, DomainAuth, opts)
}

// Forbidden reports an authenticated caller lacking permission (403).
// Default domain: AUTH.
func Forbidden(msg string, opts ...Option) *Error {
	return build(KindForbidden, msg, MsgForbidden, DomainAuth, opts)
}

// Validation reports input that failed schema validation (400).
// Default domain: VALIDATION.
func Validation(msg string, opts ...Option) *Error {
	return build(KindValidation, msg, MsgValidation, DomainValidation, opts)
}

// Internal reports an unexpected server-side failure (500). Default domain: SYSTEM.
func Internal(msg string, opts ...Option) *Error {
	return build(KindInternal, msg, MsgInternal, DomainSystem, opts)
}

// ExternalService reports a failing upstream collaborator (502).
// Default domain: EXTERNAL.
func ExternalService(msg string, opts ...Option) *Error {
	return build(KindExternalService, msg, MsgExternalService, DomainExternal, opts)
}

// Conflict reports a uniqueness or state conflict (409). Default domain: SYSTEM.
func Conflict(msg string, opts ...Option) *Error {
	return build(KindConflict, msg, MsgConflict, DomainSystem, opts)
}

// BadRequest reports a malformed request (400). Default domain: SYSTEM.
func BadRequest(msg string, opts ...Option) *Error {
	return build(KindBadRequest, msg, MsgBadRequest, DomainSystem, opts)
}
