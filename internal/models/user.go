package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleStudent    UserRole = "student"
	RoleMentor     UserRole = "mentor"
	RoleAmbassador UserRole = "ambassador"
	RoleEmployer   UserRole = "employer"
)

// IsAdmin reports whether the role carries platform administration rights.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage clamps page and size to the defaults used by every list endpoint.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   string
	Role     UserRole
	Email    string
	FullName string
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}
