package domain

import "time"

// Carrier is a courier that can be assigned to orders.
type Carrier struct {
	ID            string
	Name          string
	ContactNumber string
}

// DeliveryTracker is an append-only position report for an order in transit.
type DeliveryTracker struct {
	ID        string
	OrderID   string
	Position  string
	Status    string
	CreatedAt time.Time
}

// Purchase is the buyer-facing projection of an order joined with its product,
// latest status, latest tracker row and carrier.
type Purchase struct {
	Order          Order
	ProductName    string
	ProductPrice   float64
	Status         OrderStatus
	StatusAt       time.Time
	TrackerPos     *string
	TrackerStatus  *string
	TrackerAt      *time.Time
	CarrierName    *string
	CarrierContact *string
}
