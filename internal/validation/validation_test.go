package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-auth-backend/internal/apperr"
)

type signup struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100" errmsg:"min:The password must be at least 6 characters long"`
	Name     string `json:"name"     validate:"required,min=2"         errmsg:"min:The name must be at least 2 characters long"`
}

type patch struct {
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role"  validate:"omitempty,oneof=ADMIN USER"`
}

type nested struct {
	Profile signup `json:"profile"`
}

func ptr(s string) *string { return &s }

func TestStruct_Valid(t *testing.T) {
	assert.Nil(t, Struct(signup{Email: "a@b.co", Password: "secret1", Name: "Al"}))
	assert.Nil(t, Struct(&patch{}))
	assert.Nil(t, Struct(patch{Role: ptr("ADMIN")}))
}

func TestStruct_OrderedFieldErrors(t *testing.T) {
	got := Struct(signup{Email: "nope", Password: "123", Name: ""})
	require.Len(t, got, 3)
	assert.Equal(t, FieldError{Path: "email", Message: "Invalid email"}, got[0])
	assert.Equal(t, FieldError{Path: "password", Message: "The password must be at least 6 characters long"}, got[1])
	assert.Equal(t, FieldError{Path: "name", Message: "Required"}, got[2])
}

func TestStruct_MissingRequiredField(t *testing.T) {
	got := Struct(signup{Email: "a@b.co", Password: "secret1"})
	require.Len(t, got, 1)
	assert.Equal(t, "name", got[0].Path)
	assert.Equal(t, "Required", got[0].Message)
}

func TestStruct_DefaultMessages(t *testing.T) {
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	got := Struct(signup{Email: "a@b.co", Password: string(long), Name: "Al"})
	require.Len(t, got, 1)
	assert.Equal(t, "String must contain at most 100 character(s)", got[0].Message)

	got = Struct(patch{Email: ptr(""), Role: ptr("ROOT")})
	require.Len(t, got, 2)
	assert.Equal(t, "email", got[0].Path)
	assert.Equal(t, "role", got[1].Path)
	assert.Equal(t, "Invalid enum value. Expected 'ADMIN' | 'USER', received 'ROOT'", got[1].Message)
}

func TestStruct_NestedPath(t *testing.T) {
	got := Struct(nested{Profile: signup{Email: "a@b.co", Password: "secret1", Name: "A"}})
	require.Len(t, got, 1)
	assert.Equal(t, "profile.name", got[0].Path)
	assert.Equal(t, "The name must be at least 2 characters long", got[0].Message)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(signup{Email: "a@b.co", Password: "secret1", Name: "Al"}, apperr.DomainUser))

	err := Check(signup{}, apperr.DomainUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind())
	assert.Equal(t, apperr.DomainUser, e.Domain())
	assert.Equal(t, 400, e.StatusCode())
	assert.Equal(t, apperr.MsgValidation, e.Message())

	fields, ok := e.Detail("validationErrors")
	require.True(t, ok)
	assert.Len(t, fields, 3)
}
