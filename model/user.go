package model

import "time"

type Role string

const (
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleStaff, RoleAdmin, RoleDoctor:
		return true
	}
	return false
}

type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

// rolePermissions is the fixed catalog applied at token issuance. Permission
// strings are never accepted from the outside; a token's permission set is
// derived from its role here and nowhere else.
var rolePermissions = map[Role][]string{
	RoleStaff: {
		"read:medication",
		"read:prescription",
		"update:prescription",
	},
	RoleDoctor: {
		"read:medication",
		"read:prescription",
		"create:prescription",
		"create:lab_test",
		"read:lab_test",
		"update:lab_result",
	},
	RoleAdmin: {
		"read:medication",
		"read:prescription",
		"create:prescription",
		"update:prescription",
		"create:lab_test",
		"read:lab_test",
		"update:lab_result",
		"manage:users",
	},
}

func PermissionsForRole(r Role) []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

type User struct {
	ID              int        `json:"id"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	Password        string     `json:"-"`
	Role            Role       `json:"role"`
	Status          UserStatus `json:"status"`
	IsEmailVerified bool       `json:"is_email_verified"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
