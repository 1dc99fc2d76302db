package models

import (
	"time"
)

// Role represents a user's role on the platform.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// ParseRole returns the role named by s. An empty string is a student.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "", RoleStudent:
		return RoleStudent, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	}
	return "", false
}

// User represents a platform user. RSOs is the user's membership set,
// sorted ascending.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"-"`
	Role         Role      `json:"role"`
	UniversityID *int64    `json:"university"`
	RSOs         []int64   `json:"rso"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	Role         Role    `json:"role"`
	UniversityID *int64  `json:"university"`
	RSOs         []int64 `json:"rso"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	rsos := u.RSOs
	if rsos == nil {
		rsos = []int64{}
	}
	return UserPublic{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		UniversityID: u.UniversityID,
		RSOs:         rsos,
	}
}
