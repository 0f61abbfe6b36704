package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a storefront customer or back-office administrator
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Auth0ID        string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	FirstName      string         `gorm:"not null" json:"first_name"`
	LastName       string         `gorm:"not null" json:"last_name"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	ProfilePicture string         `gorm:"default:'default_profile.svg'" json:"profile_picture"`
	IsAdmin        bool           `gorm:"default:false" json:"is_admin"`
	IsSuperAdmin   bool           `gorm:"default:false" json:"is_super_admin"`
	Permissions    string         `json:"permissions"` // comma-separated permission names
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Orders []Order `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// HasPermission reports whether the user holds the named admin permission.
// Super admins bypass all permission checks.
func (u *User) HasPermission(permission string) bool {
	if u.IsSuperAdmin {
		return true
	}
	if u.Permissions == "" {
		return false
	}
	for _, p := range strings.Split(u.Permissions, ",") {
		if strings.TrimSpace(p) == permission {
			return true
		}
	}
	return false
}
