package dto

import (
	"time"

	"github.com/campus-market/backend/internal/domain"
)

// CreateOrderRequest payload.
type CreateOrderRequest struct {
	ProductID     string  `json:"productid"`
	BuyerID       string  `json:"buyerid"`
	AddressID     string  `json:"addressid"`
	Description   *string `json:"description"`
	PaymentMethod string  `json:"payment_method"`
	Quantity      int     `json:"quantity"`
	TotalAmount   float64 `json:"total_amount"`
}

// OrderStatusRequest moves one order.
type OrderStatusRequest struct {
	OrderID string `json:"orderid"`
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// BulkOrderStatusRequest moves many orders to one status.
type BulkOrderStatusRequest struct {
	Orders []string `json:"orders"`
	Status string   `json:"status"`
}

// OrderIDRequest is the body of endpoints keyed by an order.
type OrderIDRequest struct {
	OrderID string `json:"orderid"`
}

// OrderStatusResponse is one trail row.
type OrderStatusResponse struct {
	ID            string             `json:"id"`
	OrderID       string             `json:"order_id"`
	Status        domain.OrderStatus `json:"status"`
	ChangedByType domain.ActorType   `json:"changed_by_type"`
	ChangedByID   *string            `json:"changed_by_id,omitempty"`
	Comment       string             `json:"comment,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// OrderResponse mirrors an order.
type OrderResponse struct {
	ID            string    `json:"id"`
	RefNo         int64     `json:"ref_no"`
	ProductID     string    `json:"product_id"`
	BuyerID       string    `json:"buyer_id"`
	AddressID     string    `json:"address_id"`
	Description   *string   `json:"description,omitempty"`
	PaymentMethod string    `json:"payment_method"`
	Quantity      int       `json:"quantity"`
	TotalAmount   float64   `json:"total_amount"`
	CarrierID     *string   `json:"carrier_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PurchaseResponse is one row of "my purchases".
type PurchaseResponse struct {
	Order          OrderResponse      `json:"order"`
	ProductName    string             `json:"product_name"`
	ProductPrice   float64            `json:"product_price"`
	Status         domain.OrderStatus `json:"status"`
	StatusAt       time.Time          `json:"status_at"`
	TrackerPos     *string            `json:"tracker_position"`
	TrackerStatus  *string            `json:"tracker_status"`
	TrackerAt      *time.Time         `json:"tracker_at"`
	CarrierName    *string            `json:"carrier_name"`
	CarrierContact *string            `json:"carrier_contact"`
}

// NewOrderResponse maps an order.
func NewOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		RefNo:         o.RefNo,
		ProductID:     o.ProductID,
		BuyerID:       o.BuyerID,
		AddressID:     o.AddressID,
		Description:   o.Description,
		PaymentMethod: o.PaymentMethod,
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount,
		CarrierID:     o.CarrierID,
		CreatedAt:     o.CreatedAt,
	}
}

// NewOrderStatusResponse maps a trail row.
func NewOrderStatusResponse(e *domain.OrderStatusEntry) OrderStatusResponse {
	return OrderStatusResponse{
		ID:            e.ID,
		OrderID:       e.OrderID,
		Status:        e.Status,
		ChangedByType: e.ChangedByType,
		ChangedByID:   e.ChangedByID,
		Comment:       e.Comment,
		CreatedAt:     e.CreatedAt,
	}
}

// NewPurchaseResponse maps a purchase projection.
func NewPurchaseResponse(p *domain.Purchase) PurchaseResponse {
	return PurchaseResponse{
		Order:          NewOrderResponse(&p.Order),
		ProductName:    p.ProductName,
		ProductPrice:   p.ProductPrice,
		Status:         p.Status,
		StatusAt:       p.StatusAt,
		TrackerPos:     p.TrackerPos,
		TrackerStatus:  p.TrackerStatus,
		TrackerAt:      p.TrackerAt,
		CarrierName:    p.CarrierName,
		CarrierContact: p.CarrierContact,
	}
}
