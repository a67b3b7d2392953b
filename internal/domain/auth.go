package domain

import "time"

// SubjectType differentiates members from administrators in access tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeAdmin SubjectType = "ADMIN"
)

// TokenType is the purpose a verification code was issued for.
type TokenType string

const (
	TokenTypeAccountActivation TokenType = "ACCOUNT ACTIVATION"
	TokenTypeLoginVerification TokenType = "LOGIN VERIFICATION"
)

// TokenStatus tracks single-use consumption of a code.
type TokenStatus string

const (
	TokenStatusNotUsed TokenStatus = "NOT USED"
	TokenStatusUsed    TokenStatus = "USED"
	TokenStatusRevoked TokenStatus = "REVOKED"
)

// Token is a short-lived numeric code emailed to a user.
type Token struct {
	ID        string
	UserID    string
	Code      string
	Type      TokenType
	Status    TokenStatus
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Expired reports whether the code can no longer be redeemed at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SessionStatus tags a session log row.
type SessionStatus string

const (
	SessionLoggedIn  SessionStatus = "LOGGED IN"
	SessionLoggedOut SessionStatus = "LOGGED OUT"
)

// Session is an append-only login/logout event. The latest row is the current state.
type Session struct {
	ID        string
	UserID    string
	Status    SessionStatus
	CreatedAt time.Time
}
