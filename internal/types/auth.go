package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload. Only the principal id travels in the token;
// role and liveness are re-checked against the database on every request.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// TokenPayload is the data block returned by every token-issuing endpoint.
type TokenPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}
