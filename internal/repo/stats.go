package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/domain"
)

// UsersVersion fingerprints the users table for conditional list responses.
// Any insert, update or delete changes either the count or the newest
// updated_at.
type UsersVersion struct {
	Count       int64
	LastUpdated time.Time // zero when the table is empty
}

// ETag renders v as a weak entity tag. A page > 0 scopes the tag to one
// page of the listing.
func (v UsersVersion) ETag(page, pageSize int) string {
	var ts int64
	if !v.LastUpdated.IsZero() {
		ts = v.LastUpdated.UnixNano()
	}
	if page > 0 {
		return fmt.Sprintf(`W/"users:%d:%d:%d:%d"`, v.Count, ts, page, pageSize)
	}
	return fmt.Sprintf(`W/"users:%d:%d"`, v.Count, ts)
}

// UsersStats reads the current UsersVersion.
func UsersStats(ctx context.Context, db *gorm.DB) (UsersVersion, error) {
	var v UsersVersion
	if err := db.WithContext(ctx).Model(&domain.User{}).Count(&v.Count).Error; err != nil {
		return UsersVersion{}, err
	}
	if v.Count == 0 {
		return v, nil
	}

	// ORDER BY instead of MAX(): SQLite returns MAX(datetime) as TEXT.
	var latest domain.User
	err := db.WithContext(ctx).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Take(&latest).Error
	if err != nil {
		return UsersVersion{}, err
	}
	v.LastUpdated = latest.UpdatedAt
	return v, nil
}
