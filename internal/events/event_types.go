package events

import (
	"time"

	"github.com/campus-market/backend/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProductUpdated EventType = "product_updated"
	EventOrderUpdate    EventType = "order_update"
	EventKYCUpdated     EventType = "kycUpdated"

	EventActivationCodeIssued EventType = "activation_code_issued"
	EventLoginCodeIssued      EventType = "login_code_issued"
)

// Broadcast reports whether the event is pushed to realtime clients.
func (t EventType) Broadcast() bool {
	switch t {
	case EventProductUpdated, EventOrderUpdate, EventKYCUpdated:
		return true
	default:
		return false
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	AdminID *string            `json:"admin_id,omitempty"`
}

// Event is a "something changed" signal emitted after a commit. Consumers
// re-fetch state; events never carry commands.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// CodeIssuedPayload carries what the code email needs. It is never broadcast.
type CodeIssuedPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// KYCUpdatedPayload payload.
type KYCUpdatedPayload struct {
	KYCID     string           `json:"kyc_id"`
	UserID    string           `json:"user_id"`
	Status    domain.KYCStatus `json:"status"`
	Email     string           `json:"-"`
	FirstName string           `json:"-"`
}

// OrderUpdatePayload payload.
type OrderUpdatePayload struct {
	OrderID string             `json:"order_id"`
	RefNo   int64              `json:"ref_no,omitempty"`
	Status  domain.OrderStatus `json:"status,omitempty"`
}

// ProductUpdatedPayload payload.
type ProductUpdatedPayload struct {
	ProductID string `json:"product_id"`
}
