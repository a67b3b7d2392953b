package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-market/backend/internal/api/dto"
	"github.com/campus-market/backend/internal/domain"
)

// AddressService manages delivery addresses.
type AddressService interface {
	Create(ctx context.Context, address domain.Address) (*domain.Address, error)
	List(ctx context.Context, userID string) ([]domain.Address, error)
}

// AddressHandler exposes address book endpoints.
type AddressHandler struct {
	addresses AddressService
}

// NewAddressHandler constructs handler.
func NewAddressHandler(addressService AddressService) *AddressHandler {
	return &AddressHandler{addresses: addressService}
}

// Create handles POST /api/address/create.
func (h *AddressHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAddressRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := memberID(c, req.UserID)
	if err != nil {
		return err
	}
	address, err := h.addresses.Create(c.UserContext(), domain.Address{
		UserID:        userID,
		Label:         req.Label,
		Line1:         req.Line1,
		City:          req.City,
		Region:        req.Region,
		PostalCode:    req.PostalCode,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAddressResponse(address)})
}

// List handles POST /api/address/list.
func (h *AddressHandler) List(c *fiber.Ctx) error {
	var req dto.UserIDRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := memberID(c, req.UserID)
	if err != nil {
		return err
	}
	addresses, err := h.addresses.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	items := make([]dto.AddressResponse, 0, len(addresses))
	for i := range addresses {
		items = append(items, dto.NewAddressResponse(&addresses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
