package repository

import (
	"context"

	"github.com/campus-market/backend/internal/domain"
)

// OrderStatusRepository stores the append-only order status trail.
type OrderStatusRepository interface {
	Create(ctx context.Context, entry *domain.OrderStatusEntry) error
	Latest(ctx context.Context, orderID string) (*domain.OrderStatusEntry, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderStatusEntry, error)
}

type orderStatusRepository struct {
	db DBTX
}

// NewOrderStatusRepository builds repository.
func NewOrderStatusRepository(db DBTX) OrderStatusRepository {
	return &orderStatusRepository{db: db}
}

func (r *orderStatusRepository) Create(ctx context.Context, entry *domain.OrderStatusEntry) error {
	const query = `
        INSERT INTO order_status (order_id, status, changed_by_type, changed_by_id, comment)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		entry.OrderID,
		entry.Status,
		entry.ChangedByType,
		entry.ChangedByID,
		entry.Comment,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *orderStatusRepository) Latest(ctx context.Context, orderID string) (*domain.OrderStatusEntry, error) {
	const query = `
        SELECT id, order_id, status, changed_by_type, changed_by_id, comment, created_at
        FROM order_status WHERE order_id=$1
        ORDER BY created_at DESC LIMIT 1`
	var entry domain.OrderStatusEntry
	if err := conn(ctx, r.db).QueryRow(ctx, query, orderID).Scan(
		&entry.ID,
		&entry.OrderID,
		&entry.Status,
		&entry.ChangedByType,
		&entry.ChangedByID,
		&entry.Comment,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *orderStatusRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderStatusEntry, error) {
	const query = `
        SELECT id, order_id, status, changed_by_type, changed_by_id, comment, created_at
        FROM order_status WHERE order_id=$1 ORDER BY created_at ASC`
	rows, err := conn(ctx, r.db).Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.OrderStatusEntry{}
	for rows.Next() {
		var entry domain.OrderStatusEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Status,
			&entry.ChangedByType,
			&entry.ChangedByID,
			&entry.Comment,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
