package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleLecturer UserRole = "lecturer"
	RoleStudent  UserRole = "student"
)

// DefaultRole is assigned to users that have no role row
const DefaultRole = RoleStudent

// AllRoles lists the valid roles
var AllRoles = []UserRole{RoleAdmin, RoleLecturer, RoleStudent}

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleLecturer, RoleStudent:
		return true
	}
	return false
}

// User is a profile held by the identity provider, combined with its role
type User struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	AvatarURL *string  `json:"avatar_url"`

	EmailVerified bool `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRoleAssignment maps a user to exactly one role
type UserRoleAssignment struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:255"`
	Role      UserRole  `json:"role" gorm:"type:varchar(20);not null;index" validate:"required,user_role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserRoleAssignment) TableName() string {
	return "user_roles"
}
