package repository

import (
	"context"

	"github.com/campus-market/backend/internal/domain"
)

// SessionRepository appends login/logout rows.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	Latest(ctx context.Context, userID string) (*domain.Session, error)
}

type sessionRepository struct {
	db DBTX
}

// NewSessionRepository builds repository.
func NewSessionRepository(db DBTX) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO sessions (user_id, status)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query, session.UserID, session.Status).
		Scan(&session.ID, &session.CreatedAt)
}

func (r *sessionRepository) Latest(ctx context.Context, userID string) (*domain.Session, error) {
	const query = `
        SELECT id, user_id, status, created_at
        FROM sessions WHERE user_id=$1
        ORDER BY created_at DESC, id DESC LIMIT 1`
	var session domain.Session
	if err := conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(
		&session.ID,
		&session.UserID,
		&session.Status,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}
