package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/repository"
	"github.com/campus-market/backend/internal/storage"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// KYCService handles identity document submission and admin review.
type KYCService struct {
	tx            repository.TxManager
	users         repository.UserRepository
	kyc           repository.KYCRepository
	verifications repository.VerificationRepository
	storage       storage.Storage
	events        publisher
	logger        *zap.Logger
}

// KYCDependencies bundles requirements for the KYC service.
type KYCDependencies struct {
	TxManager        repository.TxManager
	UserRepo         repository.UserRepository
	KYCRepo          repository.KYCRepository
	VerificationRepo repository.VerificationRepository
	Storage          storage.Storage
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// KYCSubmitInput is one submission with both sides of the ID.
type KYCSubmitInput struct {
	UserID        string
	ApplicantType string
	IDNumber      string
	IDType        string
	Front         *Upload
	Back          *Upload
}

// NewKYCService constructs the service.
func NewKYCService(deps KYCDependencies) *KYCService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KYCService{
		tx:            deps.TxManager,
		users:         deps.UserRepo,
		kyc:           deps.KYCRepo,
		verifications: deps.VerificationRepo,
		storage:       deps.Storage,
		events:        newPublisher(deps.Dispatcher, logger),
		logger:        logger,
	}
}

// Submit stores both images and records a PENDING submission. A previously
// declined submission is replaced; a pending or approved one is a conflict.
func (s *KYCService) Submit(ctx context.Context, in KYCSubmitInput) (*domain.UserProfile, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if err := requireFields(map[string]string{
		"userid":         in.UserID,
		"applicant_type": strings.TrimSpace(in.ApplicantType),
		"id_number":      strings.TrimSpace(in.IDNumber),
		"id_type":        strings.TrimSpace(in.IDType),
	}); err != nil {
		return nil, err
	}
	if in.Front == nil || in.Back == nil {
		return nil, apperrors.NewValidationError("front and back images are required", nil)
	}

	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userid": in.UserID})
	}

	keys, err := storeUploads(ctx, s.storage, storage.FolderKYC, in.Front, in.Back)
	if err != nil {
		return nil, err
	}

	var superseded []string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		status, active, err := s.kyc.ActiveStatus(ctx, in.UserID)
		if err != nil {
			return err
		}
		if active {
			return kycConflict(status)
		}

		superseded, err = s.kyc.DeleteDeclined(ctx, in.UserID)
		if err != nil {
			return err
		}
		return s.kyc.Create(ctx, &domain.KYC{
			UserID:        in.UserID,
			ApplicantType: strings.TrimSpace(in.ApplicantType),
			IDNumber:      strings.TrimSpace(in.IDNumber),
			IDType:        strings.TrimSpace(in.IDType),
			FrontKey:      keys[0],
			BackKey:       keys[1],
			Status:        domain.KYCStatusPending,
		})
	})
	if err != nil {
		discardUploads(ctx, s.storage, s.logger, keys...)
		if repository.IsUniqueViolation(err, repository.PendingKYCConstraint) {
			return nil, kycConflict(domain.KYCStatusPending)
		}
		return nil, apperrors.MapError(err)
	}
	discardUploads(ctx, s.storage, s.logger, superseded...)

	profile, err := s.users.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userid": in.UserID})
	}
	return profile, nil
}

// ListPending returns the review queue.
func (s *KYCService) ListPending(ctx context.Context) ([]domain.PendingKYC, error) {
	pending, err := s.kyc.ListPending(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return pending, nil
}

// Decide approves or declines a pending submission. Approval writes the
// verification row in the same transaction. Realtime and email notices are
// sent after commit.
func (s *KYCService) Decide(ctx context.Context, kycID, rawStatus, adminID string) (*domain.KYC, error) {
	kycID = strings.TrimSpace(kycID)
	if err := requireFields(map[string]string{"kycid": kycID, "adminid": adminID}); err != nil {
		return nil, err
	}
	status, ok := domain.ParseKYCDecision(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("status must be APPROVED or DECLINED", map[string]any{"status": rawStatus})
	}

	var (
		record *domain.KYC
		owner  *domain.User
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.kyc.GetByIDForUpdate(ctx, kycID)
		if err != nil {
			return notFoundOr(err, "kyc", map[string]any{"kycid": kycID})
		}
		if record.Status != domain.KYCStatusPending {
			return apperrors.NewInvalidTransition(string(record.Status), string(status))
		}
		if err := s.kyc.Decide(ctx, kycID, status, adminID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewInvalidTransition(string(record.Status), string(status))
			}
			return err
		}
		if status == domain.KYCStatusApproved {
			if err := s.verifications.Create(ctx, &domain.Verification{
				UserID:  record.UserID,
				KYCID:   record.ID,
				AdminID: adminID,
				Status:  domain.VerificationFullyVerified,
			}); err != nil {
				return err
			}
		}
		owner, err = s.users.GetByID(ctx, record.UserID)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	decidedAt := s.events.now()
	record.Status = status
	record.DecidedBy = &adminID
	record.DecidedAt = &decidedAt

	s.events.publishEvent(ctx, events.Event{
		Type:     events.EventKYCUpdated,
		EntityID: record.ID,
		Actor:    adminActor(adminID),
		Payload: events.KYCUpdatedPayload{
			KYCID:     record.ID,
			UserID:    record.UserID,
			Status:    status,
			Email:     owner.Email,
			FirstName: owner.FirstName,
		},
	})
	return record, nil
}

func kycConflict(status domain.KYCStatus) error {
	if status == domain.KYCStatusApproved {
		return apperrors.NewConflict("account is already verified", map[string]any{"status": status})
	}
	return apperrors.NewConflict("a submission is already under review", map[string]any{"status": status})
}
