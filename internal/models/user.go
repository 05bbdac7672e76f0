package models

import (
	"strings"
	"time"

	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	FullName     string    `gorm:"type:varchar(255)"`
	IsActive     bool      `gorm:"not null"`
	IsFrozen     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// BeforeCreate hook for validation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.Validation("username is required")
	}
	if u.PasswordHash == "" {
		return errors.Validation("password credential is required")
	}
	return nil
}

// CanAuthenticate reports whether the account may open a session.
func (u *User) CanAuthenticate() bool {
	return u.IsActive && !u.IsFrozen
}

func (User) TableName() string {
	return "users"
}

// Session binds a logged-in user to one terminal. A row with a nil
// LoggedOutAt is the user's active session; storage allows at most one.
type Session struct {
	ID          uint       `gorm:"primaryKey"`
	UserID      uint       `gorm:"not null;index"`
	User        User       `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	DeviceID    string     `gorm:"type:varchar(255);not null"`
	LoggedInAt  time.Time  `gorm:"not null"`
	LastSeenAt  *time.Time `gorm:"index"`
	LoggedOutAt *time.Time `gorm:"index"`
}

func (s *Session) Active() bool {
	return s.LoggedOutAt == nil
}

func (Session) TableName() string {
	return "sessions"
}

type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Description string `gorm:"type:text"`
}

func (Role) TableName() string {
	return "roles"
}

type Permission struct {
	ID          uint           `gorm:"primaryKey"`
	Code        PermissionCode `gorm:"type:varchar(64);uniqueIndex;not null"`
	Description string         `gorm:"type:text"`
}

func (Permission) TableName() string {
	return "permissions"
}

type UserRole struct {
	UserID uint `gorm:"primaryKey"`
	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	RoleID uint `gorm:"primaryKey;index"`
	Role   Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

type RolePermission struct {
	RoleID       uint       `gorm:"primaryKey"`
	Role         Role       `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	PermissionID uint       `gorm:"primaryKey;index"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}
