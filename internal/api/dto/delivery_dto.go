package dto

import (
	"time"

	"github.com/campus-market/backend/internal/domain"
)

// AssignCarrierRequest payload.
type AssignCarrierRequest struct {
	OrderID   string `json:"orderid"`
	CarrierID string `json:"carrierid"`
}

// TrackRequest payload.
type TrackRequest struct {
	OrderID  string `json:"orderid"`
	Position string `json:"position"`
	Status   string `json:"status"`
}

// TrackerResponse is one position report.
type TrackerResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Position  string    `json:"position"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTrackerResponse maps a tracker row.
func NewTrackerResponse(t *domain.DeliveryTracker) TrackerResponse {
	return TrackerResponse{ID: t.ID, OrderID: t.OrderID, Position: t.Position, Status: t.Status, CreatedAt: t.CreatedAt}
}
