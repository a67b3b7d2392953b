package dto

import (
	"time"

	"github.com/campus-market/backend/internal/domain"
)

// UserRegisterRequest holds the text fields of the multipart sign up form.
type UserRegisterRequest struct {
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
	Campus      string `json:"campus" form:"campus"`
}

// SignInRequest payload for member and admin login.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyCodeRequest carries a code and the user it was issued to.
type VerifyCodeRequest struct {
	UserID string `json:"userid"`
	Code   string `json:"code"`
}

// UserIDRequest is the body of endpoints keyed by a user.
type UserIDRequest struct {
	UserID string `json:"userid"`
}

// UserIDResponse is returned while a code is pending.
type UserIDResponse struct {
	UserID string `json:"userid"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a member.
type UserResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Campus      string    `json:"campus,omitempty"`
	AvatarKey   *string   `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerificationResponse mirrors a verify row.
type VerificationResponse struct {
	Status    domain.VerificationStatus `json:"status"`
	KYCID     string                    `json:"kyc_id"`
	CreatedAt time.Time                 `json:"created_at"`
}

// ProfileResponse is the joined user, verification and KYC projection.
type ProfileResponse struct {
	User         UserResponse          `json:"user"`
	Verified     bool                  `json:"verified"`
	Verification *VerificationResponse `json:"verification"`
	KYC          *KYCResponse          `json:"kyc"`
}

// LoginResponse is returned after the login code was accepted.
type LoginResponse struct {
	Profile ProfileResponse `json:"profile"`
	Auth    AuthResponse    `json:"auth"`
}

// SessionResponse is the latest session row of a user.
type SessionResponse struct {
	Session struct {
		ID        string               `json:"id"`
		Status    domain.SessionStatus `json:"status"`
		CreatedAt time.Time            `json:"created_at"`
	} `json:"session"`
	Profile ProfileResponse `json:"profile"`
}

// AdminResponse is the public view of an operator.
type AdminResponse struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Role  domain.AdminRole `json:"role"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Campus:      u.Campus,
		AvatarKey:   u.AvatarKey,
		CreatedAt:   u.CreatedAt,
	}
}

// NewProfileResponse maps the joined projection.
func NewProfileResponse(p *domain.UserProfile) ProfileResponse {
	resp := ProfileResponse{User: NewUserResponse(&p.User), Verified: p.Verified()}
	if p.Verification != nil {
		resp.Verification = &VerificationResponse{
			Status:    p.Verification.Status,
			KYCID:     p.Verification.KYCID,
			CreatedAt: p.Verification.CreatedAt,
		}
	}
	if p.KYC != nil {
		kyc := NewKYCResponse(p.KYC)
		resp.KYC = &kyc
	}
	return resp
}

// NewSessionResponse maps a session with its projection.
func NewSessionResponse(session *domain.Session, profile *domain.UserProfile) SessionResponse {
	var resp SessionResponse
	resp.Session.ID = session.ID
	resp.Session.Status = session.Status
	resp.Session.CreatedAt = session.CreatedAt
	resp.Profile = NewProfileResponse(profile)
	return resp
}
