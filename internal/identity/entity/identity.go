package entity

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ParseRole maps a wire string onto a Role, reporting whether it is one of
// the known values.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// Identity represents an account row in the identities table.
//
// Email uniqueness is case-insensitive: the service lowercases the address
// at the edge and the column is CITEXT UNIQUE, so one account exists per
// address regardless of casing.
type Identity struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Role           Role      `db:"role" json:"role"`
	PasswordDigest string    `db:"password_digest" json:"-"`
	EmailConfirmed bool      `db:"email_confirmed" json:"email_confirmed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
