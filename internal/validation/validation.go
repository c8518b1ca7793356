// Package validation checks decoded request payloads against their struct
// tags and reports failures as ordered {path, message} pairs.
//
// Rules use go-playground/validator tags under the "validate" key. Paths are
// built from JSON field names. A field may override messages per rule with
// an "errmsg" tag of the form "rule:message;rule:message".
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-auth-backend/internal/apperr"
)

// FieldError is one failing field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v and returns the failing fields in declaration order, or
// nil when v is valid.
func Struct(v any) []FieldError {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Path: "", Message: err.Error()}}
	}

	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Path:    path(fe.Namespace()),
			Message: message(rt, fe),
		})
	}
	return out
}

// Check validates v and wraps failures in a VALIDATION error for domain d,
// with details.validationErrors listing every failing field.
func Check(v any, d apperr.Domain) error {
	fields := Struct(v)
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation(apperr.MsgValidation,
		apperr.InDomain(d),
		apperr.WithDetail("validationErrors", fields),
	)
}

// path drops the root struct name: "signupRequest.email" -> "email".
func path(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(root reflect.Type, fe validator.FieldError) string {
	if custom := customMessage(root, fe); custom != "" {
		return custom
	}
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "min":
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	case "oneof":
		opts := strings.Fields(fe.Param())
		for i, o := range opts {
			opts[i] = "'" + o + "'"
		}
		return fmt.Sprintf("Invalid enum value. Expected %s, received '%v'", strings.Join(opts, " | "), fe.Value())
	default:
		return "Invalid value"
	}
}

// customMessage looks up an errmsg override on the failing field.
func customMessage(root reflect.Type, fe validator.FieldError) string {
	sf, ok := lookupField(root, fe.StructNamespace())
	if !ok {
		return ""
	}
	for _, pair := range strings.Split(sf.Tag.Get("errmsg"), ";") {
		rule, msg, ok := strings.Cut(pair, ":")
		if ok && strings.TrimSpace(rule) == fe.Tag() {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}

// lookupField resolves a struct namespace ("Root.Field.Sub") to its field.
func lookupField(root reflect.Type, ns string) (reflect.StructField, bool) {
	parts := strings.Split(ns, ".")
	if len(parts) < 2 {
		return reflect.StructField{}, false
	}
	t := root
	var sf reflect.StructField
	for _, name := range parts[1:] {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return reflect.StructField{}, false
		}
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		f, ok := t.FieldByName(name)
		if !ok {
			return reflect.StructField{}, false
		}
		sf, t = f, f.Type
	}
	return sf, true
}
