package repository

import (
	"context"

	"github.com/campus-market/backend/internal/domain"
)

// EmailConstraint is the case-insensitive unique index on users.email.
const EmailConstraint = "users_email_key"

// UserRepository defines persistence access for marketplace members.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	AcceptTerms(ctx context.Context, terms *domain.TermsAcceptance) error
	GetProfile(ctx context.Context, id string) (*domain.UserProfile, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, password_hash, phone_number, campus, avatar_key)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return conn(ctx, r.db).QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.Campus,
		user.AvatarKey,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, first_name, last_name, email, password_hash, phone_number, campus, avatar_key, created_at, updated_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, first_name, last_name, email, password_hash, phone_number, campus, avatar_key, created_at, updated_at
        FROM users WHERE lower(email)=lower($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := conn(ctx, r.db).QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.Campus,
		&user.AvatarKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) AcceptTerms(ctx context.Context, terms *domain.TermsAcceptance) error {
	const query = `
        INSERT INTO terms_acceptances (user_id, version)
        VALUES ($1, $2)
        RETURNING id, accepted_at`
	return conn(ctx, r.db).QueryRow(ctx, query, terms.UserID, terms.Version).
		Scan(&terms.ID, &terms.AcceptedAt)
}

// GetProfile joins the user with the latest verification row and latest KYC submission.
func (r *userRepository) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	const query = `
        SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.phone_number, u.campus,
               u.avatar_key, u.created_at, u.updated_at,
               v.id, v.kyc_id, v.admin_id, v.status, v.created_at,
               k.id, k.applicant_type, k.id_number, k.id_type, k.front_key, k.back_key, k.status,
               k.decided_by, k.decided_at, k.created_at
        FROM users u
        LEFT JOIN LATERAL (
            SELECT id, kyc_id, admin_id, status, created_at FROM verify
            WHERE user_id = u.id ORDER BY created_at DESC LIMIT 1
        ) v ON TRUE
        LEFT JOIN LATERAL (
            SELECT id, applicant_type, id_number, id_type, front_key, back_key, status, decided_by, decided_at, created_at
            FROM kyc WHERE user_id = u.id ORDER BY created_at DESC LIMIT 1
        ) k ON TRUE
        WHERE u.id=$1`

	var (
		profile domain.UserProfile
		v       nullableVerification
		k       nullableKYC
	)
	u := &profile.User
	if err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Campus,
		&u.AvatarKey, &u.CreatedAt, &u.UpdatedAt,
		&v.ID, &v.KYCID, &v.AdminID, &v.Status, &v.CreatedAt,
		&k.ID, &k.ApplicantType, &k.IDNumber, &k.IDType, &k.FrontKey, &k.BackKey, &k.Status,
		&k.DecidedBy, &k.DecidedAt, &k.CreatedAt,
	); err != nil {
		return nil, err
	}
	profile.Verification = v.toDomain(u.ID)
	profile.KYC = k.toDomain(u.ID)
	return &profile, nil
}
