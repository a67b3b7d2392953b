package dto

import (
	"time"

	"github.com/campus-market/backend/internal/domain"
)

// CreateProductRequest holds the text fields of the multipart listing form.
type CreateProductRequest struct {
	UserID      string  `json:"userid" form:"userid"`
	Name        string  `json:"name" form:"name"`
	Description string  `json:"description" form:"description"`
	Price       float64 `json:"price" form:"price"`
	Stock       int     `json:"stock" form:"stock"`
}

// UpdateStockRequest payload.
type UpdateStockRequest struct {
	ProductID string  `json:"productid"`
	Stock     *int    `json:"stock"`
	Status    *string `json:"status"`
}

// ProductIDRequest is the body of endpoints keyed by a product.
type ProductIDRequest struct {
	ProductID string `json:"productid"`
}

// ProductImageResponse describes a stored image.
type ProductImageResponse struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// ProductResponse mirrors a listing.
type ProductResponse struct {
	ID          string                 `json:"id"`
	SellerID    string                 `json:"seller_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Price       float64                `json:"price"`
	Stock       int                    `json:"stock"`
	Status      domain.ProductStatus   `json:"status"`
	Images      []ProductImageResponse `json:"images"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewProductResponse maps a listing.
func NewProductResponse(p *domain.Product) ProductResponse {
	images := make([]ProductImageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, ProductImageResponse{
			ID:       img.ID,
			Key:      img.StorageKey,
			FileName: img.FileName,
			MimeType: img.MimeType,
			Size:     img.SizeBytes,
		})
	}
	return ProductResponse{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Status:      p.Status,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
