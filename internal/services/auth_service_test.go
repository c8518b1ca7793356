package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/auth"
	"github.com/tbourn/go-auth-backend/internal/domain"
)

type fakeProvider struct {
	err error

	signInEmail string
	meta        auth.Meta
	signedOut   string
	revokedUser string
	revokedAll  bool

	session *auth.Session
}

func (p *fakeProvider) SignUp(_ context.Context, email, _, name string) (*domain.User, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.User{ID: "u1", Email: email, Name: name, Role: domain.RoleUser}, nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, _ string, meta auth.Meta) (*auth.Session, string, error) {
	p.signInEmail, p.meta = email, meta
	if p.err != nil {
		return nil, "", p.err
	}
	return p.session, "tok", nil
}

func (p *fakeProvider) SignOut(_ context.Context, id string) error {
	p.signedOut = id
	return p.err
}

func (p *fakeProvider) RevokeUserSessions(_ context.Context, userID string) (int64, error) {
	p.revokedUser = userID
	return 1, p.err
}

func (p *fakeProvider) RevokeAllSessions(context.Context) (int64, error) {
	p.revokedAll = true
	return 3, p.err
}

func TestAuthService_SignIn(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &fakeProvider{session: &auth.Session{
		ID:        "s1",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		User:      auth.SessionUser{ID: "u1", Email: "a@example.com", Name: "A", Role: domain.RoleUser},
	}}
	svc := NewAuthService(p)
	svc.now = func() time.Time { return now }

	resp, err := svc.SignIn(context.Background(), SignInInput{
		Email: "a@example.com", Password: "secret1", IPAddress: "1.2.3.4", UserAgent: "ua",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Token)
	assert.Equal(t, "tok", resp.Token.AccessToken)
	assert.Equal(t, int64(7*24*3600), resp.Token.ExpiresIn)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Same(t, p.session, resp.Session)
	assert.Equal(t, auth.Meta{IPAddress: "1.2.3.4", UserAgent: "ua"}, p.meta)
}

func TestAuthService_SignUp(t *testing.T) {
	resp, err := NewAuthService(&fakeProvider{}).SignUp(context.Background(), SignUpInput{
		Email: "n@example.com", Password: "secret1", Name: "New",
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Token)
	assert.Nil(t, resp.Session)
	assert.Equal(t, UserInfo{ID: "u1", Email: "n@example.com", Name: "New", Role: domain.RoleUser}, resp.User)
}

func TestAuthService_ErrorMapping(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("auth.X: %w", err) }
	cases := []struct {
		name   string
		err    error
		kind   apperr.Kind
		domain apperr.Domain
		msg    string
	}{
		{"invalid credentials", wrap(auth.ErrInvalidCredentials), apperr.KindUnauthorized, apperr.DomainAuth, MsgInvalidCredentials},
		{"banned", wrap(auth.ErrBanned), apperr.KindForbidden, apperr.DomainAuth, MsgBanned},
		{"email taken", wrap(auth.ErrEmailTaken), apperr.KindConflict, apperr.DomainAuth, MsgEmailRegistered},
		{"unexpected", errors.New("connection refused"), apperr.KindExternalService, apperr.DomainExternal, MsgAuthUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAuthService(&fakeProvider{err: tc.err})

			_, err := svc.SignIn(context.Background(), SignInInput{})
			ae := requireAppErr(t, err, tc.kind, tc.domain)
			assert.Equal(t, tc.msg, ae.Message())
			assert.ErrorIs(t, err, tc.err)

			_, err = svc.SignUp(context.Background(), SignUpInput{})
			requireAppErr(t, err, tc.kind, tc.domain)
		})
	}
}

func TestAuthService_SignOut(t *testing.T) {
	p := &fakeProvider{}
	require.NoError(t, NewAuthService(p).SignOut(context.Background(), "s1"))
	assert.Equal(t, "s1", p.signedOut)

	p.err = errors.New("db gone")
	err := NewAuthService(p).SignOut(context.Background(), "s1")
	requireAppErr(t, err, apperr.KindExternalService, apperr.DomainExternal)
}

func TestAuthService_RevokeSession(t *testing.T) {
	p := &fakeProvider{}
	svc := NewAuthService(p)
	require.NoError(t, svc.RevokeSession(context.Background(), "u9"))
	assert.Equal(t, "u9", p.revokedUser)

	p.err = fmt.Errorf("auth.RevokeUserSessions: %w", auth.ErrUserNotFound)
	err := svc.RevokeSession(context.Background(), "u9")
	ae := requireAppErr(t, err, apperr.KindNotFound, apperr.DomainAdmin)
	assert.Equal(t, "User with ID u9 not found.", ae.Message())
	got, _ := ae.Detail("userId")
	assert.Equal(t, "u9", got)
}

func TestAuthService_RevokeAllSessions(t *testing.T) {
	p := &fakeProvider{}
	require.NoError(t, NewAuthService(p).RevokeAllSessions(context.Background()))
	assert.True(t, p.revokedAll)

	p.err = errors.New("x")
	requireAppErr(t, NewAuthService(p).RevokeAllSessions(context.Background()), apperr.KindExternalService, apperr.DomainExternal)
}

func TestSecondsUntil(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.Equal(t, int64(0), secondsUntil(now.Add(-time.Second), now))
	assert.Equal(t, int64(2), secondsUntil(now.Add(1500*time.Millisecond), now))
}
