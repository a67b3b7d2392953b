package domain

import "time"

// User is a marketplace member, buyer or seller.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	PhoneNumber  string
	Campus       string
	AvatarKey    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TermsAcceptance records the terms version a user agreed to at registration.
type TermsAcceptance struct {
	ID         string
	UserID     string
	Version    string
	AcceptedAt time.Time
}

// UserProfile is the joined user, verification and KYC projection the
// storefront uses to decide what to render.
type UserProfile struct {
	User         User
	Verification *Verification
	KYC          *KYC
}

// Verified reports whether an approval has been recorded for the user.
func (p UserProfile) Verified() bool {
	return p.Verification != nil && p.Verification.Status == VerificationFullyVerified
}
