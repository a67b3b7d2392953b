package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-market/backend/internal/api/dto"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/service"
)

// DeliveryService assigns carriers and records positions.
type DeliveryService interface {
	AssignCarrier(ctx context.Context, adminID, orderID, carrierID string) (*domain.Order, error)
	Track(ctx context.Context, adminID string, in service.TrackInput) (*domain.DeliveryTracker, error)
	Trackers(ctx context.Context, orderID string) ([]domain.DeliveryTracker, error)
}

// DeliveryHandler exposes back-office delivery endpoints.
type DeliveryHandler struct {
	delivery DeliveryService
}

// NewDeliveryHandler constructs handler.
func NewDeliveryHandler(deliveryService DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{delivery: deliveryService}
}

// Assign handles POST /api/delivery/assign.
func (h *DeliveryHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignCarrierRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := adminPrincipal(c, "")
	if err != nil {
		return err
	}
	order, err := h.delivery.AssignCarrier(c.UserContext(), admin.ID, req.OrderID, req.CarrierID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// Track handles POST /api/delivery/track.
func (h *DeliveryHandler) Track(c *fiber.Ctx) error {
	var req dto.TrackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := adminPrincipal(c, "")
	if err != nil {
		return err
	}
	tracker, err := h.delivery.Track(c.UserContext(), admin.ID, service.TrackInput{
		OrderID:  req.OrderID,
		Position: req.Position,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTrackerResponse(tracker)})
}

// Trackers handles POST /api/delivery/trackers.
func (h *DeliveryHandler) Trackers(c *fiber.Ctx) error {
	var req dto.OrderIDRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	trackers, err := h.delivery.Trackers(c.UserContext(), req.OrderID)
	if err != nil {
		return err
	}
	items := make([]dto.TrackerResponse, 0, len(trackers))
	for i := range trackers {
		items = append(items, dto.NewTrackerResponse(&trackers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
