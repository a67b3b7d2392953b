package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-market/backend/internal/domain"
)

// PendingKYCConstraint allows one PENDING submission per user.
const PendingKYCConstraint = "kyc_one_pending_per_user"

// KYCRepository stores identity document submissions.
type KYCRepository interface {
	Create(ctx context.Context, kyc *domain.KYC) error
	GetByIDForUpdate(ctx context.Context, id string) (*domain.KYC, error)
	// ActiveStatus returns the most recent PENDING or APPROVED status for the
	// user, and false when the user has neither.
	ActiveStatus(ctx context.Context, userID string) (domain.KYCStatus, bool, error)
	// DeleteDeclined removes declined submissions of the user and returns the
	// storage keys they referenced.
	DeleteDeclined(ctx context.Context, userID string) ([]string, error)
	ListPending(ctx context.Context) ([]domain.PendingKYC, error)
	// Decide moves a PENDING row to status. It returns pgx.ErrNoRows when the
	// row is missing or no longer pending.
	Decide(ctx context.Context, id string, status domain.KYCStatus, adminID string) error
}

type kycRepository struct {
	db DBTX
}

// NewKYCRepository builds repository.
func NewKYCRepository(db DBTX) KYCRepository {
	return &kycRepository{db: db}
}

func (r *kycRepository) Create(ctx context.Context, kyc *domain.KYC) error {
	const query = `
        INSERT INTO kyc (user_id, applicant_type, id_number, id_type, front_key, back_key, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		kyc.UserID,
		kyc.ApplicantType,
		kyc.IDNumber,
		kyc.IDType,
		kyc.FrontKey,
		kyc.BackKey,
		kyc.Status,
	).Scan(&kyc.ID, &kyc.CreatedAt)
}

func (r *kycRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.KYC, error) {
	const query = `
        SELECT id, user_id, applicant_type, id_number, id_type, front_key, back_key, status,
               decided_by, decided_at, created_at
        FROM kyc WHERE id=$1
        FOR UPDATE`
	var kyc domain.KYC
	if err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&kyc.ID,
		&kyc.UserID,
		&kyc.ApplicantType,
		&kyc.IDNumber,
		&kyc.IDType,
		&kyc.FrontKey,
		&kyc.BackKey,
		&kyc.Status,
		&kyc.DecidedBy,
		&kyc.DecidedAt,
		&kyc.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &kyc, nil
}

func (r *kycRepository) ActiveStatus(ctx context.Context, userID string) (domain.KYCStatus, bool, error) {
	const query = `
        SELECT status FROM kyc
        WHERE user_id=$1 AND status IN ('PENDING', 'APPROVED')
        ORDER BY created_at DESC LIMIT 1`
	var status domain.KYCStatus
	err := conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return status, true, nil
}

func (r *kycRepository) DeleteDeclined(ctx context.Context, userID string) ([]string, error) {
	const query = `
        DELETE FROM kyc WHERE user_id=$1 AND status='DECLINED'
        RETURNING front_key, back_key`
	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var front, back string
		if err := rows.Scan(&front, &back); err != nil {
			return nil, err
		}
		keys = append(keys, front, back)
	}
	return keys, rows.Err()
}

func (r *kycRepository) ListPending(ctx context.Context) ([]domain.PendingKYC, error) {
	const query = `
        SELECT k.id, k.user_id, k.applicant_type, k.id_number, k.id_type, k.front_key, k.back_key,
               k.status, k.created_at,
               u.id, u.first_name, u.last_name, u.email, u.phone_number, u.campus, u.avatar_key, u.created_at
        FROM kyc k
        JOIN users u ON u.id = k.user_id
        WHERE k.status='PENDING'
        ORDER BY k.created_at ASC`
	rows, err := conn(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.PendingKYC{}
	for rows.Next() {
		var item domain.PendingKYC
		if err := rows.Scan(
			&item.KYC.ID,
			&item.KYC.UserID,
			&item.KYC.ApplicantType,
			&item.KYC.IDNumber,
			&item.KYC.IDType,
			&item.KYC.FrontKey,
			&item.KYC.BackKey,
			&item.KYC.Status,
			&item.KYC.CreatedAt,
			&item.User.ID,
			&item.User.FirstName,
			&item.User.LastName,
			&item.User.Email,
			&item.User.PhoneNumber,
			&item.User.Campus,
			&item.User.AvatarKey,
			&item.User.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *kycRepository) Decide(ctx context.Context, id string, status domain.KYCStatus, adminID string) error {
	const query = `
        UPDATE kyc SET status=$1, decided_by=$2, decided_at=NOW()
        WHERE id=$3 AND status='PENDING'`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, status, adminID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// VerificationRepository appends verification records.
type VerificationRepository interface {
	Create(ctx context.Context, v *domain.Verification) error
}

type verificationRepository struct {
	db DBTX
}

// NewVerificationRepository builds repository.
func NewVerificationRepository(db DBTX) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, v *domain.Verification) error {
	const query = `
        INSERT INTO verify (user_id, kyc_id, admin_id, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query, v.UserID, v.KYCID, v.AdminID, v.Status).
		Scan(&v.ID, &v.CreatedAt)
}

type nullableVerification struct {
	ID        *string
	KYCID     *string
	AdminID   *string
	Status    *domain.VerificationStatus
	CreatedAt *time.Time
}

func (n nullableVerification) toDomain(userID string) *domain.Verification {
	if n.ID == nil {
		return nil
	}
	v := &domain.Verification{ID: *n.ID, UserID: userID}
	if n.KYCID != nil {
		v.KYCID = *n.KYCID
	}
	if n.AdminID != nil {
		v.AdminID = *n.AdminID
	}
	if n.Status != nil {
		v.Status = *n.Status
	}
	if n.CreatedAt != nil {
		v.CreatedAt = *n.CreatedAt
	}
	return v
}

type nullableKYC struct {
	ID            *string
	ApplicantType *string
	IDNumber      *string
	IDType        *string
	FrontKey      *string
	BackKey       *string
	Status        *domain.KYCStatus
	DecidedBy     *string
	DecidedAt     *time.Time
	CreatedAt     *time.Time
}

func (n nullableKYC) toDomain(userID string) *domain.KYC {
	if n.ID == nil {
		return nil
	}
	k := &domain.KYC{
		ID:        *n.ID,
		UserID:    userID,
		DecidedBy: n.DecidedBy,
		DecidedAt: n.DecidedAt,
	}
	k.ApplicantType = deref(n.ApplicantType)
	k.IDNumber = deref(n.IDNumber)
	k.IDType = deref(n.IDType)
	k.FrontKey = deref(n.FrontKey)
	k.BackKey = deref(n.BackKey)
	if n.Status != nil {
		k.Status = *n.Status
	}
	if n.CreatedAt != nil {
		k.CreatedAt = *n.CreatedAt
	}
	return k
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
