package domain

import (
	"strings"
	"time"
)

// KYCStatus is the review state of a submission.
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"
	KYCStatusApproved KYCStatus = "APPROVED"
	KYCStatusDeclined KYCStatus = "DECLINED"
)

// ParseKYCDecision accepts only the two admin outcomes.
func ParseKYCDecision(raw string) (KYCStatus, bool) {
	status := KYCStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case KYCStatusApproved, KYCStatusDeclined:
		return status, true
	default:
		return "", false
	}
}

// KYC is one identity document submission.
type KYC struct {
	ID            string
	UserID        string
	ApplicantType string
	IDNumber      string
	IDType        string
	FrontKey      string
	BackKey       string
	Status        KYCStatus
	DecidedBy     *string
	DecidedAt     *time.Time
	CreatedAt     time.Time
}

// PendingKYC pairs a pending submission with its applicant for the review queue.
type PendingKYC struct {
	KYC  KYC
	User User
}

// VerificationStatus is the only state a verification row carries.
type VerificationStatus string

const VerificationFullyVerified VerificationStatus = "FULLY VERIFIED"

// Verification is written once per approved KYC submission.
type Verification struct {
	ID        string
	UserID    string
	KYCID     string
	AdminID   string
	Status    VerificationStatus
	CreatedAt time.Time
}
