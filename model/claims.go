package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is the payload embedded in both access and refresh tokens.
// Claims are written once at issuance and never mutated; changing anything
// means issuing a new token.
type AppClaims struct {
	UserID      int        `json:"user_id"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Status      UserStatus `json:"status"`
	ProfileID   int        `json:"profile_id"`
	Permissions []string   `json:"permissions"`
	jwt.RegisteredClaims
}
