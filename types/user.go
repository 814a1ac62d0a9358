package types

import "time"

const (
	// RoleAdmin may create news and edit or delete any article.
	RoleAdmin = "admin"
	// RoleUser may only edit or delete the articles they authored.
	RoleUser = "user"
)

// User represents an account in the portal.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is unique across all users
	// and is used as the login key.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the portal
	// (RoleAdmin or RoleUser).
	Role string `json:"role" db:"role"`

	// Avatar is an optional URL of the user's profile picture.
	Avatar *string `json:"avatar" db:"avatar"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
