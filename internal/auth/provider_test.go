package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/repo"
)

// memCache is an in-process SessionCache for tests.
type memCache struct {
	mu sync.Mutex
	m  map[string]Session
}

func newMemCache() *memCache { return &memCache{m: map[string]Session{}} }

func (c *memCache) Get(_ context.Context, id string) (*Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[id]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *memCache) Set(_ context.Context, s *Session, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[s.ID] = *s
	return nil
}

func (c *memCache) Delete(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.m, id)
	}
	return nil
}

func (c *memCache) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = map[string]Session{}
	return nil
}

func (c *memCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[id]
	return ok
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func newTestProvider(t *testing.T, cache SessionCache) (*Provider, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	p, err := NewProvider(db, Options{
		Secret:     testSecret,
		Issuer:     testIssuer,
		SessionTTL: 7 * 24 * time.Hour,
		UpdateAge:  24 * time.Hour,
		BcryptCost: 4,
		Cache:      cache,
	})
	require.NoError(t, err)
	return p, db
}

func bearer(tok string) Credentials { return Credentials{BearerToken: tok} }

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(nil, Options{Secret: testSecret})
	assert.Error(t, err)

	_, err = NewProvider(newTestDB(t), Options{})
	assert.Error(t, err)
}

func TestProvider_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, nil)

	u, err := p.SignUp(ctx, " Jane@Example.com ", "secret123", " Jane ")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, "Jane", u.Name)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	s, tok, err := p.SignIn(ctx, "JANE@example.com", "secret123", Meta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.Equal(t, u.ID, s.User.ID)
	assert.Equal(t, domain.RoleUser, s.User.Role)

	got, err := p.ResolveSession(ctx, bearer(tok))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "jane@example.com", got.User.Email)

	// Same token presented as a cookie resolves too.
	got, err = p.ResolveSession(ctx, Credentials{Cookie: tok})
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, p.SignOut(ctx, s.ID))

	got, err = p.ResolveSession(ctx, bearer(tok))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProvider_SignUp_EmailTaken(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, nil)

	_, err := p.SignUp(ctx, "a@example.com", "secret123", "Alice")
	require.NoError(t, err)

	_, err = p.SignUp(ctx, "A@EXAMPLE.COM", "other123", "Alice Two")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestProvider_SignIn_Failures(t *testing.T) {
	ctx := context.Background()
	p, db := newTestProvider(t, nil)

	u, err := p.SignUp(ctx, "bob@example.com", "secret123", "Bob")
	require.NoError(t, err)

	_, _, err = p.SignIn(ctx, "bob@example.com", "wrong-pass", Meta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = p.SignIn(ctx, "nobody@example.com", "secret123", Meta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	yes := true
	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", u.ID).Update("banned", &yes).Error)
	_, _, err = p.SignIn(ctx, "bob@example.com", "secret123", Meta{})
	assert.ErrorIs(t, err, ErrBanned)

	past := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", u.ID).Update("ban_expires", &past).Error)
	_, _, err = p.SignIn(ctx, "bob@example.com", "secret123", Meta{})
	assert.NoError(t, err, "expired ban no longer applies")
}

func TestProvider_ResolveSession_InvalidInputs(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, nil)

	s, err := p.ResolveSession(ctx, Credentials{})
	assert.NoError(t, err)
	assert.Nil(t, s)

	s, err = p.ResolveSession(ctx, bearer("garbage"))
	assert.NoError(t, err)
	assert.Nil(t, s)

	// Well-formed token for a session that never existed.
	tok, err := IssueToken(testSecret, testIssuer, "user-x", uuid.NewString(), time.Now())
	require.NoError(t, err)
	s, err = p.ResolveSession(ctx, bearer(tok))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestProvider_ResolveSession_SubjectMismatch(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, nil)

	_, err := p.SignUp(ctx, "c@example.com", "secret123", "Carol")
	require.NoError(t, err)
	s, _, err := p.SignIn(ctx, "c@example.com", "secret123", Meta{})
	require.NoError(t, err)

	forged, err := IssueToken(testSecret, testIssuer, "someone-else", s.ID, time.Now())
	require.NoError(t, err)
	got, err := p.ResolveSession(ctx, bearer(forged))
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestProvider_SlidingExpiry_And_Expiry(t *testing.T) {
	ctx := context.Background()
	p, db := newTestProvider(t, nil)

	_, err := p.SignUp(ctx, "d@example.com", "secret123", "Dan")
	require.NoError(t, err)
	s, tok, err := p.SignIn(ctx, "d@example.com", "secret123", Meta{})
	require.NoError(t, err)

	base := time.Now()

	// Two days later the session is refreshed.
	p.now = func() time.Time { return base.Add(48 * time.Hour) }
	got, err := p.ResolveSession(ctx, bearer(tok))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ExpiresAt.After(s.ExpiresAt), "expiry must move forward")

	// Past the refreshed expiry it is gone and the row is removed.
	p.now = func() time.Time { return base.Add(48*time.Hour + 8*24*time.Hour) }
	got, err = p.ResolveSession(ctx, bearer(tok))
	require.NoError(t, err)
	assert.Nil(t, got)

	var n int64
	require.NoError(t, db.Model(&domain.Session{}).Where("id = ?", s.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestProvider_ResolveSession_BannedUser(t *testing.T) {
	ctx := context.Background()
	p, db := newTestProvider(t, nil)

	u, err := p.SignUp(ctx, "e@example.com", "secret123", "Eve")
	require.NoError(t, err)
	_, tok, err := p.SignIn(ctx, "e@example.com", "secret123", Meta{})
	require.NoError(t, err)

	yes := true
	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", u.ID).Update("banned", &yes).Error)

	got, err := p.ResolveSession(ctx, bearer(tok))
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestProvider_Revocation(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	p, _ := newTestProvider(t, cache)

	u1, err := p.SignUp(ctx, "f@example.com", "secret123", "Fay")
	require.NoError(t, err)
	_, err = p.SignUp(ctx, "g@example.com", "secret123", "Gus")
	require.NoError(t, err)

	s1a, tok1a, err := p.SignIn(ctx, "f@example.com", "secret123", Meta{})
	require.NoError(t, err)
	_, tok1b, err := p.SignIn(ctx, "f@example.com", "secret123", Meta{})
	require.NoError(t, err)
	_, tok2, err := p.SignIn(ctx, "g@example.com", "secret123", Meta{})
	require.NoError(t, err)
	assert.True(t, cache.has(s1a.ID))

	n, err := p.RevokeUserSessions(ctx, u1.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.False(t, cache.has(s1a.ID), "revocation evicts cache")

	for _, tok := range []string{tok1a, tok1b} {
		got, err := p.ResolveSession(ctx, bearer(tok))
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	got, err := p.ResolveSession(ctx, bearer(tok2))
	require.NoError(t, err)
	assert.NotNil(t, got, "other users keep their sessions")

	_, err = p.RevokeUserSessions(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)

	n, err = p.RevokeAllSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got, err = p.ResolveSession(ctx, bearer(tok2))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProvider_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	p, db := newTestProvider(t, nil)

	_, err := p.SignUp(ctx, "h@example.com", "secret123", "Hal")
	require.NoError(t, err)
	_, _, err = p.SignIn(ctx, "h@example.com", "secret123", Meta{})
	require.NoError(t, err)

	n, err := p.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	p.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	n, err = p.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left int64
	require.NoError(t, db.Model(&domain.Session{}).Count(&left).Error)
	assert.Zero(t, left)
}

func TestProvider_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, nil)

	changed, err := p.EnsureAdmin(ctx, "root@example.com", "rootpass", "Root")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = p.EnsureAdmin(ctx, "root@example.com", "rootpass", "Root")
	require.NoError(t, err)
	assert.False(t, changed)

	s, _, err := p.SignIn(ctx, "root@example.com", "rootpass", Meta{})
	require.NoError(t, err)
	assert.True(t, s.IsAdmin())

	// Existing USER is promoted.
	_, err = p.SignUp(ctx, "ivy@example.com", "secret123", "Ivy")
	require.NoError(t, err)
	changed, err = p.EnsureAdmin(ctx, "ivy@example.com", "ignored", "Ivy")
	require.NoError(t, err)
	assert.True(t, changed)
	s, _, err = p.SignIn(ctx, "ivy@example.com", "secret123", Meta{})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, s.User.Role)
}

func TestProvider_CachedResolve(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	p, db := newTestProvider(t, cache)

	_, err := p.SignUp(ctx, "j@example.com", "secret123", "Jo")
	require.NoError(t, err)
	s, tok, err := p.SignIn(ctx, "j@example.com", "secret123", Meta{})
	require.NoError(t, err)

	// Remove the row behind the cache's back: a fresh cache entry still serves.
	require.NoError(t, db.Where("id = ?", s.ID).Delete(&domain.Session{}).Error)
	got, err := p.ResolveSession(ctx, bearer(tok))
	require.NoError(t, err)
	require.NotNil(t, got)

	// SignOut evicts it.
	require.NoError(t, p.SignOut(ctx, s.ID))
	got, err = p.ResolveSession(ctx, bearer(tok))
	require.NoError(t, err)
	assert.Nil(t, got)
}
