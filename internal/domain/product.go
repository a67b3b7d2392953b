package domain

import (
	"strings"
	"time"
)

// ProductStatus controls storefront visibility.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusSoldOut  ProductStatus = "SOLD_OUT"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// Product is a listing owned by a seller.
type Product struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	Price       float64
	Stock       int
	Status      ProductStatus
	Images      []ProductImage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductImage stores metadata for an uploaded listing image.
type ProductImage struct {
	ID         string
	ProductID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// Address is a delivery destination owned by a user.
type Address struct {
	ID            string
	UserID        string
	Label         string
	Line1         string
	City          string
	Region        string
	PostalCode    string
	ContactNumber string
	CreatedAt     time.Time
}

// ParseProductStatus validates a status sent by a seller.
func ParseProductStatus(raw string) (ProductStatus, bool) {
	status := ProductStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case ProductStatusActive, ProductStatusSoldOut, ProductStatusArchived:
		return status, true
	default:
		return "", false
	}
}
