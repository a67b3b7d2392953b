package repository

import (
	"context"

	"github.com/campus-market/backend/internal/domain"
)

// DeliveryRepository covers carriers and tracker rows.
type DeliveryRepository interface {
	GetCarrier(ctx context.Context, id string) (*domain.Carrier, error)
	CreateTracker(ctx context.Context, tracker *domain.DeliveryTracker) error
	ListTrackers(ctx context.Context, orderID string) ([]domain.DeliveryTracker, error)
}

type deliveryRepository struct {
	db DBTX
}

// NewDeliveryRepository builds repository.
func NewDeliveryRepository(db DBTX) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) GetCarrier(ctx context.Context, id string) (*domain.Carrier, error) {
	const query = `SELECT id, name, contact_number FROM carriers WHERE id=$1`
	var carrier domain.Carrier
	if err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(&carrier.ID, &carrier.Name, &carrier.ContactNumber); err != nil {
		return nil, err
	}
	return &carrier, nil
}

func (r *deliveryRepository) CreateTracker(ctx context.Context, tracker *domain.DeliveryTracker) error {
	const query = `
        INSERT INTO delivery_trackers (order_id, position, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query, tracker.OrderID, tracker.Position, tracker.Status).
		Scan(&tracker.ID, &tracker.CreatedAt)
}

func (r *deliveryRepository) ListTrackers(ctx context.Context, orderID string) ([]domain.DeliveryTracker, error) {
	const query = `
        SELECT id, order_id, position, status, created_at
        FROM delivery_trackers WHERE order_id=$1 ORDER BY created_at ASC`
	rows, err := conn(ctx, r.db).Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.DeliveryTracker{}
	for rows.Next() {
		var t domain.DeliveryTracker
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Position, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
