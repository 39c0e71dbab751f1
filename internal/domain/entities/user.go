package entities

import (
	"time"
)

// Role is the access level of a clinic user
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	// RoleNone is the role of an anonymous request
	RoleNone Role = "none"
)

// ParseRole accepts the two roles a stored user may have
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// User represents a staff account of the clinic
type User struct {
	ID           string     `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the authenticated caller of a request. The zero value is
// anonymous.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// SystemIdentity is used by background jobs such as the scheduled daily reset
var SystemIdentity = Identity{UserID: "system", Username: "system", Role: RoleAdmin}

// IdentityOf builds the request identity of a user
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// Authenticated reports whether the identity belongs to a signed-in user
func (i Identity) Authenticated() bool {
	return i.UserID != "" && (i.Role == RoleAdmin || i.Role == RoleUser)
}

// IsAdmin reports whether the identity carries the admin role
func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}

// EffectiveRole returns RoleNone for anonymous identities
func (i Identity) EffectiveRole() Role {
	if !i.Authenticated() {
		return RoleNone
	}
	return i.Role
}
