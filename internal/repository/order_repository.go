package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/campus-market/backend/internal/domain"
)

// RefNoConstraint is the unique index guarding order reference numbers.
const RefNoConstraint = "orders_ref_no_key"

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// LockByID loads the order with a row lock held until the surrounding
	// transaction ends. Concurrent transitions of one order serialize here.
	LockByID(ctx context.Context, id string) (*domain.Order, error)
	SetCarrier(ctx context.Context, id, carrierID string) error
	ListPurchases(ctx context.Context, buyerID string) ([]domain.Purchase, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
        INSERT INTO orders (ref_no, product_id, buyer_id, address_id, description, payment_method, quantity, total_amount)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		order.RefNo,
		order.ProductID,
		order.BuyerID,
		order.AddressID,
		order.Description,
		order.PaymentMethod,
		order.Quantity,
		order.TotalAmount,
	).Scan(&order.ID, &order.CreatedAt)
}

const orderColumns = `id, ref_no, product_id, buyer_id, address_id, description, payment_method,
               quantity, total_amount, carrier_id, created_at`

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *orderRepository) LockByID(ctx context.Context, id string) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *orderRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var order domain.Order
	if err := conn(ctx, r.db).QueryRow(ctx, query, arg).Scan(
		&order.ID,
		&order.RefNo,
		&order.ProductID,
		&order.BuyerID,
		&order.AddressID,
		&order.Description,
		&order.PaymentMethod,
		&order.Quantity,
		&order.TotalAmount,
		&order.CarrierID,
		&order.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) SetCarrier(ctx context.Context, id, carrierID string) error {
	const query = `UPDATE orders SET carrier_id=$1 WHERE id=$2`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, carrierID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListPurchases joins each of the buyer's orders with its product, latest
// status row, latest tracker row and carrier.
func (r *orderRepository) ListPurchases(ctx context.Context, buyerID string) ([]domain.Purchase, error) {
	const query = `
        SELECT o.id, o.ref_no, o.product_id, o.buyer_id, o.address_id, o.description, o.payment_method,
               o.quantity, o.total_amount, o.carrier_id, o.created_at,
               p.name, p.price,
               s.status, s.created_at,
               t.position, t.status, t.created_at,
               c.name, c.contact_number
        FROM orders o
        JOIN products p ON p.id = o.product_id
        JOIN LATERAL (
            SELECT status, created_at FROM order_status
            WHERE order_id = o.id ORDER BY created_at DESC LIMIT 1
        ) s ON TRUE
        LEFT JOIN LATERAL (
            SELECT position, status, created_at FROM delivery_trackers
            WHERE order_id = o.id ORDER BY created_at DESC LIMIT 1
        ) t ON TRUE
        LEFT JOIN carriers c ON c.id = o.carrier_id
        WHERE o.buyer_id=$1
        ORDER BY o.created_at DESC`
	rows, err := conn(ctx, r.db).Query(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Purchase{}
	for rows.Next() {
		var p domain.Purchase
		o := &p.Order
		if err := rows.Scan(
			&o.ID, &o.RefNo, &o.ProductID, &o.BuyerID, &o.AddressID, &o.Description, &o.PaymentMethod,
			&o.Quantity, &o.TotalAmount, &o.CarrierID, &o.CreatedAt,
			&p.ProductName, &p.ProductPrice,
			&p.Status, &p.StatusAt,
			&p.TrackerPos, &p.TrackerStatus, &p.TrackerAt,
			&p.CarrierName, &p.CarrierContact,
		); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
