package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-market/backend/internal/domain"
)

// TokenRepository manages emailed verification codes.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.Token) error
	// RevokeUnused invalidates every NOT USED code of the given type for the user.
	RevokeUnused(ctx context.Context, userID string, tokenType domain.TokenType) (int64, error)
	// FindRedeemable locks the unused, unexpired code matching (user, code, type).
	FindRedeemable(ctx context.Context, userID, code string, tokenType domain.TokenType, now time.Time) (*domain.Token, error)
	// MarkUsed consumes a NOT USED code. It returns pgx.ErrNoRows if the code
	// was consumed or revoked concurrently.
	MarkUsed(ctx context.Context, id string) error
	LatestByType(ctx context.Context, userID string, tokenType domain.TokenType) (*domain.Token, error)
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db DBTX
}

// NewTokenRepository constructs repository.
func NewTokenRepository(db DBTX) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *domain.Token) error {
	const query = `
        INSERT INTO tokens (user_id, code, type, status, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		token.UserID,
		token.Code,
		token.Type,
		token.Status,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *tokenRepository) RevokeUnused(ctx context.Context, userID string, tokenType domain.TokenType) (int64, error) {
	const query = `
        UPDATE tokens SET status='REVOKED'
        WHERE user_id=$1 AND type=$2 AND status='NOT USED'`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, userID, tokenType)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *tokenRepository) FindRedeemable(ctx context.Context, userID, code string, tokenType domain.TokenType, now time.Time) (*domain.Token, error) {
	const query = `
        SELECT id, user_id, code, type, status, expires_at, used_at, created_at
        FROM tokens
        WHERE user_id=$1 AND code=$2 AND type=$3 AND status='NOT USED' AND expires_at > $4
        ORDER BY created_at DESC LIMIT 1
        FOR UPDATE`
	return r.fetchSingle(ctx, query, userID, code, tokenType, now)
}

func (r *tokenRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE tokens SET status='USED', used_at=NOW()
        WHERE id=$1 AND status='NOT USED'`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tokenRepository) LatestByType(ctx context.Context, userID string, tokenType domain.TokenType) (*domain.Token, error) {
	const query = `
        SELECT id, user_id, code, type, status, expires_at, used_at, created_at
        FROM tokens WHERE user_id=$1 AND type=$2
        ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, userID, tokenType)
}

func (r *tokenRepository) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE tokens SET status='REVOKED'
        WHERE status='NOT USED' AND expires_at <= $1`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *tokenRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Token, error) {
	var token domain.Token
	if err := conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.Code,
		&token.Type,
		&token.Status,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}
