package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-market/backend/internal/api/dto"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/service"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// ProductService manages listings.
type ProductService interface {
	Create(ctx context.Context, in service.CreateProductInput) (*domain.Product, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
	UpdateStock(ctx context.Context, actorID, productID string, stock int, rawStatus *string) (*domain.Product, error)
}

// ProductsHandler exposes seller listing endpoints.
type ProductsHandler struct {
	products ProductService
}

// NewProductsHandler constructs handler.
func NewProductsHandler(productService ProductService) *ProductsHandler {
	return &ProductsHandler{products: productService}
}

// Create handles POST /api/user-product/create (multipart, images[]).
func (h *ProductsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateProductRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sellerID, err := memberID(c, req.UserID)
	if err != nil {
		return err
	}
	images, closeImages, err := formUploads(c, "images")
	if err != nil {
		return err
	}
	defer closeImages()

	product, err := h.products.Create(c.UserContext(), service.CreateProductInput{
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      images,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}

// Show handles POST /api/user-product/show.
func (h *ProductsHandler) Show(c *fiber.Ctx) error {
	var req dto.ProductIDRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.products.Get(c.UserContext(), req.ProductID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}

// UpdateStock handles POST /api/user-product/update-stock. Only the seller
// may change a listing.
func (h *ProductsHandler) UpdateStock(c *fiber.Ctx) error {
	var req dto.UpdateStockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Stock == nil {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": []string{"stock"}})
	}
	userID, err := memberID(c, "")
	if err != nil {
		return err
	}
	current, err := h.products.Get(c.UserContext(), req.ProductID)
	if err != nil {
		return err
	}
	if current.SellerID != userID {
		return apperrors.NewForbidden("only the seller can update this product")
	}
	product, err := h.products.UpdateStock(c.UserContext(), userID, req.ProductID, *req.Stock, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}
