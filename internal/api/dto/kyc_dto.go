package dto

import (
	"time"

	"github.com/campus-market/backend/internal/domain"
)

// KYCSubmitRequest holds the text fields of the multipart submission.
type KYCSubmitRequest struct {
	UserID        string `json:"userid" form:"userid"`
	ApplicantType string `json:"applicant_type" form:"applicant_type"`
	IDNumber      string `json:"id_number" form:"id_number"`
	IDType        string `json:"id_type" form:"id_type"`
}

// KYCProcessRequest is an admin decision.
type KYCProcessRequest struct {
	KYCID   string `json:"kycid"`
	Status  string `json:"status"`
	AdminID string `json:"adminid"`
}

// KYCResponse mirrors a submission.
type KYCResponse struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	ApplicantType string           `json:"applicant_type"`
	IDNumber      string           `json:"id_number"`
	IDType        string           `json:"id_type"`
	FrontKey      string           `json:"front"`
	BackKey       string           `json:"back"`
	Status        domain.KYCStatus `json:"status"`
	DecidedBy     *string          `json:"decided_by,omitempty"`
	DecidedAt     *time.Time       `json:"decided_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// PendingKYCResponse pairs a submission with its applicant.
type PendingKYCResponse struct {
	KYCResponse
	User UserResponse `json:"user"`
}

// NewKYCResponse maps a submission.
func NewKYCResponse(k *domain.KYC) KYCResponse {
	return KYCResponse{
		ID:            k.ID,
		UserID:        k.UserID,
		ApplicantType: k.ApplicantType,
		IDNumber:      k.IDNumber,
		IDType:        k.IDType,
		FrontKey:      k.FrontKey,
		BackKey:       k.BackKey,
		Status:        k.Status,
		DecidedBy:     k.DecidedBy,
		DecidedAt:     k.DecidedAt,
		CreatedAt:     k.CreatedAt,
	}
}
