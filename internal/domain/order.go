package domain

import (
	"strings"
	"time"
)

// OrderStatus enumerates lifecycle states for orders.
type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "PENDING"
	OrderStatusApproved    OrderStatus = "APPROVED"
	OrderStatusProcessing  OrderStatus = "PROCESSING"
	OrderStatusForDelivery OrderStatus = "FOR_DELIVERY"
	OrderStatusCompleted   OrderStatus = "COMPLETED"
	OrderStatusDisputed    OrderStatus = "DISPUTED"
	OrderStatusCancelled   OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:     {OrderStatusApproved, OrderStatusCancelled},
	OrderStatusApproved:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:  {OrderStatusForDelivery, OrderStatusCancelled},
	OrderStatusForDelivery: {OrderStatusCompleted, OrderStatusDisputed},
	OrderStatusDisputed:    {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:   {},
	OrderStatusCancelled:   {},
}

// ParseOrderStatus normalizes a client supplied status. The second return is
// false for values outside the lifecycle.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := orderTransitions[status]
	return status, ok
}

// CanTransition reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// Order is the aggregate created at checkout. Only its status trail changes afterwards.
type Order struct {
	ID            string
	RefNo         int64
	ProductID     string
	BuyerID       string
	AddressID     string
	Description   *string
	PaymentMethod string
	Quantity      int
	TotalAmount   float64
	CarrierID     *string
	CreatedAt     time.Time
}

// ActorType identifies who appended a status row.
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeAdmin  ActorType = "ADMIN"
	ActorTypeSystem ActorType = "SYSTEM"
)

// OrderStatusEntry is one immutable row of an order's status trail.
type OrderStatusEntry struct {
	ID            string
	OrderID       string
	Status        OrderStatus
	ChangedByType ActorType
	ChangedByID   *string
	Comment       string
	CreatedAt     time.Time
}
