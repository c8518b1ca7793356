// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model. Sessions are looked up by ID (carried inside bearer tokens) and
// deleted to revoke them.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/domain"
)

// CreateSession inserts s with UTC timestamps.
func CreateSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	return db.WithContext(ctx).Omit("User").Create(s).Error
}

// FindSession fetches a session together with its owning user, or
// ErrNotFound.
func FindSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessionIDs returns the IDs of every session owned by userID.
func ListSessionIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error
	return ids, err
}

// TouchSession moves a session's expiry to expiresAt.
func TouchSession(ctx context.Context, db *gorm.DB, id string, expiresAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{"expires_at": expiresAt.UTC(), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteSession removes a single session. Deleting a missing session is not
// an error.
func DeleteSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error
}

// DeleteUserSessions removes every session of userID and reports how many
// were deleted.
func DeleteUserSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}

// DeleteAllSessions removes every session.
func DeleteAllSessions(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Where("1 = 1").Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
