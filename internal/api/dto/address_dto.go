package dto

import (
	"time"

	"github.com/campus-market/backend/internal/domain"
)

// CreateAddressRequest payload.
type CreateAddressRequest struct {
	UserID        string `json:"userid"`
	Label         string `json:"label"`
	Line1         string `json:"line1"`
	City          string `json:"city"`
	Region        string `json:"region"`
	PostalCode    string `json:"postal_code"`
	ContactNumber string `json:"contact_number"`
}

// AddressResponse mirrors an address.
type AddressResponse struct {
	ID            string    `json:"id"`
	Label         string    `json:"label"`
	Line1         string    `json:"line1"`
	City          string    `json:"city"`
	Region        string    `json:"region,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	ContactNumber string    `json:"contact_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewAddressResponse maps an address.
func NewAddressResponse(a *domain.Address) AddressResponse {
	return AddressResponse{
		ID:            a.ID,
		Label:         a.Label,
		Line1:         a.Line1,
		City:          a.City,
		Region:        a.Region,
		PostalCode:    a.PostalCode,
		ContactNumber: a.ContactNumber,
		CreatedAt:     a.CreatedAt,
	}
}
