package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/repo"
)

// Options configures a Provider.
type Options struct {
	Secret     string        // HS256 signing key
	Issuer     string        // token "iss"
	SessionTTL time.Duration // lifetime of a new or refreshed session
	UpdateAge  time.Duration // refresh expiry when last update is older than this
	BcryptCost int
	CacheTTL   time.Duration // upper bound for cached entries
	Cache      SessionCache  // nil means NopCache
}

// Provider authenticates users and manages their sessions.
type Provider struct {
	db   *gorm.DB
	opts Options

	cache SessionCache
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewProvider returns a Provider backed by db.
func NewProvider(db *gorm.DB, opts Options) (*Provider, error) {
	if db == nil {
		return nil, errors.New("auth: nil db")
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.UpdateAge < 0 {
		opts.UpdateAge = 0
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	cache := opts.Cache
	if cache == nil {
		cache = NopCache{}
	}
	return &Provider{db: db, opts: opts, cache: cache, now: time.Now}, nil
}

// SessionTTL returns the configured session lifetime.
func (p *Provider) SessionTTL() time.Duration { return p.opts.SessionTTL }

// SignUp registers a USER account. Returns ErrEmailTaken when the email is in
// use.
func (p *Provider) SignUp(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = NormalizeEmail(email)

	if _, err := repo.FindUserByEmail(ctx, p.db, email); err == nil {
		return nil, fmt.Errorf("auth.SignUp: %w", ErrEmailTaken)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("auth.SignUp: lookup: %w", err)
	}

	hash, err := HashPassword(password, p.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth.SignUp: %w", err)
	}
	u := &domain.User{
		Email:        email,
		Name:         NormalizeName(name),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := repo.CreateUser(ctx, p.db, u); err != nil {
		if repo.IsDuplicate(err) {
			return nil, fmt.Errorf("auth.SignUp: %w", ErrEmailTaken)
		}
		return nil, fmt.Errorf("auth.SignUp: create: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("user_id", u.ID).Msg("user signed up")
	return u, nil
}

// SignIn verifies credentials, opens a session and returns it together with
// a signed bearer token.
func (p *Provider) SignIn(ctx context.Context, email, password string, meta Meta) (*Session, string, error) {
	u, err := repo.FindUserByEmail(ctx, p.db, NormalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		// Spend comparable time on unknown emails.
		CheckPassword(p.dummy(), password)
		return nil, "", fmt.Errorf("auth.SignIn: %w", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, "", fmt.Errorf("auth.SignIn: lookup: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, "", fmt.Errorf("auth.SignIn: %w", ErrInvalidCredentials)
	}
	now := p.now().UTC()
	if u.IsBanned(now) {
		return nil, "", fmt.Errorf("auth.SignIn: %w", ErrBanned)
	}

	row := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: now.Add(p.opts.SessionTTL),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := repo.CreateSession(ctx, p.db, row); err != nil {
		return nil, "", fmt.Errorf("auth.SignIn: create session: %w", err)
	}
	token, err := IssueToken(p.opts.Secret, p.opts.Issuer, u.ID, row.ID, now)
	if err != nil {
		_ = repo.DeleteSession(ctx, p.db, row.ID)
		return nil, "", fmt.Errorf("auth.SignIn: %w", err)
	}

	s := newSession(row, u)
	p.cacheSet(ctx, s)
	zerolog.Ctx(ctx).Info().Str("user_id", u.ID).Str("session_id", row.ID).Msg("user signed in")
	return s, token, nil
}

// ResolveSession returns the active session for creds. It returns (nil, nil)
// when no valid session applies: missing or forged token, unknown or expired
// session, or a banned user. Storage failures are returned as errors.
func (p *Provider) ResolveSession(ctx context.Context, creds Credentials) (*Session, error) {
	tok := creds.Token()
	if tok == "" {
		return nil, nil
	}
	claims, err := ParseToken(p.opts.Secret, p.opts.Issuer, tok)
	if err != nil {
		return nil, nil
	}
	now := p.now().UTC()

	if s, ok, err := p.cache.Get(ctx, claims.SessionID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session cache read failed")
	} else if ok && s.User.ID == claims.Subject && s.ExpiresAt.After(now) {
		if !p.needsRefresh(s.UpdatedAt, now) {
			return s, nil
		}
	}

	row, err := repo.FindSession(ctx, p.db, claims.SessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth.ResolveSession: %w", err)
	}
	if row.UserID != claims.Subject {
		return nil, nil
	}
	if !row.ExpiresAt.After(now) {
		_ = repo.DeleteSession(ctx, p.db, row.ID)
		p.cacheDelete(ctx, row.ID)
		return nil, nil
	}
	if row.User.IsBanned(now) {
		return nil, nil
	}

	if p.needsRefresh(row.UpdatedAt, now) {
		exp := now.Add(p.opts.SessionTTL)
		if err := repo.TouchSession(ctx, p.db, row.ID, exp); err != nil {
			return nil, fmt.Errorf("auth.ResolveSession: refresh: %w", err)
		}
		row.ExpiresAt, row.UpdatedAt = exp, now
	}

	s := newSession(row, &row.User)
	p.cacheSet(ctx, s)
	return s, nil
}

// SignOut revokes a single session.
func (p *Provider) SignOut(ctx context.Context, sessionID string) error {
	if err := repo.DeleteSession(ctx, p.db, sessionID); err != nil {
		return fmt.Errorf("auth.SignOut: %w", err)
	}
	p.cacheDelete(ctx, sessionID)
	return nil
}

// RevokeUserSessions revokes every session of userID and returns how many
// were removed. ErrUserNotFound when the user does not exist.
func (p *Provider) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	if _, err := repo.FindUserByID(ctx, p.db, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, fmt.Errorf("auth.RevokeUserSessions: %w", ErrUserNotFound)
		}
		return 0, fmt.Errorf("auth.RevokeUserSessions: %w", err)
	}
	ids, err := repo.ListSessionIDs(ctx, p.db, userID)
	if err != nil {
		return 0, fmt.Errorf("auth.RevokeUserSessions: %w", err)
	}
	n, err := repo.DeleteUserSessions(ctx, p.db, userID)
	if err != nil {
		return 0, fmt.Errorf("auth.RevokeUserSessions: %w", err)
	}
	p.cacheDelete(ctx, ids...)
	return n, nil
}

// RevokeAllSessions revokes every session of every user.
func (p *Provider) RevokeAllSessions(ctx context.Context) (int64, error) {
	n, err := repo.DeleteAllSessions(ctx, p.db)
	if err != nil {
		return 0, fmt.Errorf("auth.RevokeAllSessions: %w", err)
	}
	if err := p.cache.Flush(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session cache flush failed")
	}
	return n, nil
}

// EvictUser drops cached sessions of userID without touching the database.
// Used after the user row itself was changed or removed.
func (p *Provider) EvictUser(ctx context.Context, userID string, sessionIDs []string) {
	if len(sessionIDs) == 0 {
		return
	}
	p.cacheDelete(ctx, sessionIDs...)
	zerolog.Ctx(ctx).Debug().Str("user_id", userID).Int("sessions", len(sessionIDs)).Msg("evicted cached sessions")
}

// PurgeExpired deletes sessions whose expiry has passed.
func (p *Provider) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := repo.DeleteExpiredSessions(ctx, p.db, p.now())
	if err != nil {
		return 0, fmt.Errorf("auth.PurgeExpired: %w", err)
	}
	return n, nil
}

// EnsureAdmin makes sure an ADMIN account exists for email. A missing user is
// created with password; an existing one is promoted. Returns true when a
// change was made.
func (p *Provider) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = NormalizeEmail(email)
	u, err := repo.FindUserByEmail(ctx, p.db, email)
	switch {
	case err == nil:
		if u.Role == domain.RoleAdmin {
			return false, nil
		}
		role := domain.RoleAdmin
		if _, err := repo.UpdateUser(ctx, p.db, u.ID, repo.UserUpdate{Role: &role}); err != nil {
			return false, fmt.Errorf("auth.EnsureAdmin: promote: %w", err)
		}
		return true, nil
	case errors.Is(err, repo.ErrNotFound):
	default:
		return false, fmt.Errorf("auth.EnsureAdmin: lookup: %w", err)
	}

	hash, err := HashPassword(password, p.opts.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("auth.EnsureAdmin: %w", err)
	}
	admin := &domain.User{
		Email:         email,
		Name:          NormalizeName(name),
		PasswordHash:  hash,
		Role:          domain.RoleAdmin,
		EmailVerified: true,
	}
	if err := repo.CreateUser(ctx, p.db, admin); err != nil {
		return false, fmt.Errorf("auth.EnsureAdmin: create: %w", err)
	}
	return true, nil
}

func (p *Provider) needsRefresh(updatedAt, now time.Time) bool {
	return now.Sub(updatedAt) > p.opts.UpdateAge
}

// cacheSet stores s for at most CacheTTL and never beyond its expiry.
func (p *Provider) cacheSet(ctx context.Context, s *Session) {
	ttl := p.opts.CacheTTL
	if left := s.ExpiresAt.Sub(p.now()); left < ttl {
		ttl = left
	}
	if err := p.cache.Set(ctx, s, ttl); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session cache write failed")
	}
}

func (p *Provider) cacheDelete(ctx context.Context, ids ...string) {
	if err := p.cache.Delete(ctx, ids...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session cache evict failed")
	}
}

func (p *Provider) dummy() string {
	p.dummyOnce.Do(func() {
		p.dummyHash, _ = HashPassword(uuid.NewString(), p.opts.BcryptCost)
	})
	return p.dummyHash
}
