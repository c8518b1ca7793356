// Package services implements the application use cases consumed by the HTTP
// handlers. This file centralizes the user-facing messages that services
// attach to typed errors (package apperr), so that handlers and tests refer
// to one definition.
//
// Services never leak raw storage or provider error text into a message; the
// underlying error is kept as the cause and only reaches the logs.
package services

import (
	"fmt"

	"github.com/tbourn/go-auth-backend/internal/apperr"
)

// User-facing messages.
const (
	MsgFetchUsers         = "Error fetching users."
	MsgFetchUser          = "Error fetching user."
	MsgUpdateUser         = "Error updating user."
	MsgDeleteUser         = "Error deleting user."
	MsgUserDeleted        = "User deleted successfully."
	MsgChangeOthers       = "You can only modify your own account."
	MsgChangeRole         = "Only administrators can change roles."
	MsgInvalidCredentials = "Invalid email or password."
	MsgBanned             = "Your account has been suspended."
	MsgEmailRegistered    = "Email already registered."
	MsgAuthUnavailable    = "Authentication service error."
	MsgSessionsRevoked    = "All sessions revoked successfully"
	MsgSessionRevoked     = "Session revoked successfully"
)

// userNotFound builds the NOT_FOUND error shared by every user lookup.
func userNotFound(id string) *apperr.Error {
	return userNotFoundIn(id, apperr.DomainUser, nil)
}

func userNotFoundIn(id string, d apperr.Domain, cause error) *apperr.Error {
	return apperr.NotFound(
		fmt.Sprintf("User with ID %s not found.", id),
		apperr.InDomain(d),
		apperr.WithDetail("userId", id),
		apperr.WithCause(cause),
	)
}

// emailInUse builds the CONFLICT error for an email owned by another user.
func emailInUse(email string) *apperr.Error {
	return apperr.Conflict(
		fmt.Sprintf("Email %s already in use.", email),
		apperr.InDomain(apperr.DomainUser),
		apperr.WithDetail("email", email),
	)
}

// passThrough returns err unchanged when it already is a typed error, or wraps
// it as INTERNAL in domain d with msg.
func passThrough(err error, msg string, d apperr.Domain) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(msg, apperr.InDomain(d), apperr.WithCause(err))
}
