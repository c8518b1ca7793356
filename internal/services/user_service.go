// Package services – UserService
//
// This file implements the UserService, which backs the user CRUD endpoints.
// It maps repository outcomes onto the application error taxonomy: missing
// rows become NOT_FOUND, an email already owned by someone else becomes
// CONFLICT, and any other storage failure becomes INTERNAL in the USER domain
// (the original error is kept as the cause for logging).
//
// Changing or deleting a user also evicts that user's cached sessions so a
// stale role or email is never served from the session cache.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/auth"
	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/observability"
	"github.com/tbourn/go-auth-backend/internal/repo"
	"github.com/tbourn/go-auth-backend/internal/utils"
)

// UserRepo defines the repository contract required by UserService.
type UserRepo interface {
	// ListUsers returns every user (non-paginated).
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)

	// CountUsers returns the total number of users for pagination.
	CountUsers(ctx context.Context, db *gorm.DB) (int64, error)

	// ListUsersPage returns a page of users.
	ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error)

	// FindUserByID fetches a user by primary key.
	FindUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)

	// FindUserByEmail fetches a user by email.
	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)

	// UpdateUser applies a partial update and returns the refreshed row.
	UpdateUser(ctx context.Context, db *gorm.DB, id string, upd repo.UserUpdate) (*domain.User, error)

	// DeleteUser removes a user together with their sessions.
	DeleteUser(ctx context.Context, db *gorm.DB, id string) error

	// ListSessionIDs returns the ids of a user's sessions.
	ListSessionIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error)
}

// SessionEvicter drops cached sessions. *auth.Provider implements it.
type SessionEvicter interface {
	EvictUser(ctx context.Context, userID string, sessionIDs []string)
}

// UpdateUserInput carries the optional fields of a user update.
type UpdateUserInput struct {
	Email *string
	Name  *string
	Role  *domain.Role
}

// DeleteResult is returned by DeleteUser.
type DeleteResult struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"User deleted successfully."`
}

// UserService provides user read, update and delete operations.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Evicter, when set, is told about users whose cached sessions went stale.
	Evicter SessionEvicter
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, r UserRepo, ev SessionEvicter) *UserService {
	return &UserService{DB: db, Repo: r, Evicter: ev}
}

// GetUsers returns every user.
func (s *UserService) GetUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Repo.ListUsers(ctx, s.DB)
	if err != nil {
		return nil, fetchUsersFailed(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// ListPage returns a page of users and the total count. It applies defaults
// for invalid page/pageSize.
func (s *UserService) ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	p := utils.NewPage(page, pageSize)

	total, err := s.Repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, fetchUsersFailed(err)
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}

	items, err := s.Repo.ListUsersPage(ctx, s.DB, p.Offset(), p.Size)
	if err != nil {
		return nil, 0, fetchUsersFailed(err)
	}
	if items == nil {
		items = []domain.User{}
	}
	return items, total, nil
}

// GetUserByID returns the user identified by id.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.FindUserByID(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userNotFound(id)
		}
		return nil, passThrough(err, MsgFetchUser, apperr.DomainUser)
	}
	return u, nil
}

// UpdateUser applies in to the user identified by id and returns the result.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (_ *domain.User, err error) {
	ctx, span := observability.StartSpan(ctx, "users.Update", attribute.String("user.id", id))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.GetUserByID(ctx, id); err != nil {
		return nil, err
	}

	upd := repo.UserUpdate{Name: in.Name, Role: in.Role}
	if in.Name != nil {
		name := auth.NormalizeName(*in.Name)
		upd.Name = &name
	}
	if in.Email != nil {
		email := auth.NormalizeEmail(*in.Email)
		owner, err := s.Repo.FindUserByEmail(ctx, s.DB, email)
		switch {
		case err == nil && owner.ID != id:
			return nil, emailInUse(*in.Email)
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, passThrough(err, MsgUpdateUser, apperr.DomainUser)
		}
		upd.Email = &email
	}

	u, err := s.Repo.UpdateUser(ctx, s.DB, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, userNotFound(id)
		case repo.IsDuplicate(err) && in.Email != nil:
			return nil, emailInUse(*in.Email)
		}
		return nil, passThrough(err, MsgUpdateUser, apperr.DomainUser)
	}
	if !upd.Empty() {
		s.evict(ctx, id)
	}
	return u, nil
}

// DeleteUser removes the user identified by id and all of their sessions.
func (s *UserService) DeleteUser(ctx context.Context, id string) (_ *DeleteResult, err error) {
	ctx, span := observability.StartSpan(ctx, "users.Delete", attribute.String("user.id", id))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.GetUserByID(ctx, id); err != nil {
		return nil, err
	}

	// Collect session ids before the rows go away.
	ids := s.sessionIDs(ctx, id)

	if err := s.Repo.DeleteUser(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userNotFound(id)
		}
		return nil, passThrough(err, MsgDeleteUser, apperr.DomainUser)
	}
	if s.Evicter != nil {
		s.Evicter.EvictUser(ctx, id, ids)
	}
	return &DeleteResult{Success: true, Message: MsgUserDeleted}, nil
}

func (s *UserService) evict(ctx context.Context, id string) {
	if s.Evicter == nil {
		return
	}
	s.Evicter.EvictUser(ctx, id, s.sessionIDs(ctx, id))
}

// sessionIDs lists the user's session ids for cache eviction. A lookup
// failure is logged and yields no ids, leaving those entries to expire on
// their own TTL.
func (s *UserService) sessionIDs(ctx context.Context, userID string) []string {
	ids, err := s.Repo.ListSessionIDs(ctx, s.DB, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("list sessions for cache eviction failed")
		return nil
	}
	return ids
}

func fetchUsersFailed(err error) error {
	return passThrough(err, MsgFetchUsers, apperr.DomainUser)
}
