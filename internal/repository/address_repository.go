package repository

import (
	"context"

	"github.com/campus-market/backend/internal/domain"
)

// AddressRepository stores delivery addresses.
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	ListByUser(ctx context.Context, userID string) ([]domain.Address, error)
	GetForUser(ctx context.Context, id, userID string) (*domain.Address, error)
}

type addressRepository struct {
	db DBTX
}

// NewAddressRepository builds repository.
func NewAddressRepository(db DBTX) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	const query = `
        INSERT INTO address (user_id, label, line1, city, region, postal_code, contact_number)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		address.UserID,
		address.Label,
		address.Line1,
		address.City,
		address.Region,
		address.PostalCode,
		address.ContactNumber,
	).Scan(&address.ID, &address.CreatedAt)
}

func (r *addressRepository) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	const query = `
        SELECT id, user_id, label, line1, city, region, postal_code, contact_number, created_at
        FROM address WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.Line1, &a.City, &a.Region, &a.PostalCode, &a.ContactNumber, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *addressRepository) GetForUser(ctx context.Context, id, userID string) (*domain.Address, error) {
	const query = `
        SELECT id, user_id, label, line1, city, region, postal_code, contact_number, created_at
        FROM address WHERE id=$1 AND user_id=$2`
	var a domain.Address
	if err := conn(ctx, r.db).QueryRow(ctx, query, id, userID).Scan(
		&a.ID, &a.UserID, &a.Label, &a.Line1, &a.City, &a.Region, &a.PostalCode, &a.ContactNumber, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
