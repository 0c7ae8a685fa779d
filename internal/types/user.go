package types

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the principal roles understood by the authorization layer.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User is a principal. The credential hash and reset-token fields carry
// `json:"-"` so they can never leak through a response envelope.
type User struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Email                string     `json:"email" db:"email"`
	Photo                *string    `json:"photo,omitempty" db:"photo"`
	Role                 Role       `json:"role" db:"role"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	PasswordChangedAt    *time.Time `json:"-" db:"password_changed_at"`
	PasswordResetToken   *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpires *time.Time `json:"-" db:"password_reset_expires"`
	Active               bool       `json:"-" db:"active"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" db:"updated_at"`
}

// CreateUserParams is the admin-side create shape. The public flow is
// signup; the users collection rejects direct creation with an operational
// error, matching the route contract.
type CreateUserParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// UpdateUserParams is a partial admin update; nil fields are left untouched.
type UpdateUserParams struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Photo  *string `json:"photo,omitempty"`
	Role   *Role   `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// UpdateMeParams is the self-service profile update. Password keys are
// rejected at the handler so credentials only change through the password
// routes.
type UpdateMeParams struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Photo *string `json:"photo,omitempty"`
}
