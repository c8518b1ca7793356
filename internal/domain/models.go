// Package domain defines the persistence models for users and their login
// sessions. These types are mapped with GORM and form the core data layer of
// the application.
package domain

import "time"

// Role is the authorization role carried by a user account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User is an account that can authenticate against the API.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identifier, stored lower-cased.
//   - Name: display name.
//   - PasswordHash: bcrypt hash; never serialized.
//   - Role: ADMIN or USER (enforced by DB constraint).
//   - EmailVerified: whether the address has been confirmed.
//   - Image: optional avatar URL.
//   - Banned / BanReason / BanExpires: administrative ban state. A ban with a
//     BanExpires in the past no longer applies.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID            string     `json:"id"            gorm:"type:char(36);primaryKey"`
	Email         string     `json:"email"         gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Name          string     `json:"name"          gorm:"type:varchar(255);not null;default:''"`
	PasswordHash  string     `json:"-"             gorm:"type:varchar(255);not null"`
	Role          Role       `json:"role"          gorm:"type:varchar(16);not null;default:'USER';check:role IN ('ADMIN','USER')"`
	EmailVerified bool       `json:"emailVerified" gorm:"not null;default:false"`
	Image         *string    `json:"image,omitempty"`
	Banned        *bool      `json:"banned,omitempty"`
	BanReason     *string    `json:"banReason,omitempty"`
	BanExpires    *time.Time `json:"banExpires,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsBanned reports whether a ban applies to u at instant t.
func (u *User) IsBanned(t time.Time) bool {
	if u == nil || u.Banned == nil || !*u.Banned {
		return false
	}
	return u.BanExpires == nil || u.BanExpires.After(t)
}

// Session is a server-side login session. Bearer tokens reference a session
// by ID, so deleting the row revokes every token issued for it.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owning user (indexed; cascade-deleted with the user).
//   - ExpiresAt: absolute expiry; pushed forward on use (sliding expiry).
//   - IPAddress / UserAgent: client metadata captured at sign-in.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Session struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"userId"     gorm:"type:char(36);not null;index:idx_sessions_user"`
	ExpiresAt time.Time `json:"expiresAt"  gorm:"not null;index"`
	IPAddress string    `json:"ipAddress"  gorm:"type:varchar(64)"`
	UserAgent string    `json:"userAgent"  gorm:"type:varchar(512)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// User is the session owner. Sessions are cascade-deleted with the user.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }
