package model

import "time"

type TokenKind string

const (
	TokenKindAccess            TokenKind = "access"
	TokenKindRefresh           TokenKind = "refresh"
	TokenKindEmailVerification TokenKind = "email_verification"
	TokenKindPasswordReset     TokenKind = "password_reset"
)

// AuthToken is the persisted record of an issued token. Refresh tokens are
// stored verbatim; verification and reset tokens are stored as HMAC digests.
// Used is one-way: once true it never reverts.
type AuthToken struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Token     string    `json:"-"`
	Kind      TokenKind `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
