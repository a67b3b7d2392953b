package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-market/backend/internal/api/dto"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/service"
)

// OrderService is the order lifecycle workflow.
type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*service.CreateOrderResult, error)
	UpdateStatus(ctx context.Context, orderID string, change service.StatusChange) (*domain.OrderStatusEntry, error)
	BulkUpdateStatus(ctx context.Context, orderIDs []string, change service.StatusChange) (*service.BulkResult, error)
	MyPurchases(ctx context.Context, buyerID string) ([]domain.Purchase, error)
	History(ctx context.Context, buyerID, orderID string) ([]domain.OrderStatusEntry, error)
}

// OrdersHandler exposes checkout and status endpoints.
type OrdersHandler struct {
	orders OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orderService OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orderService}
}

// Create handles POST /api/order/create.
func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateOrderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	buyerID, err := memberID(c, req.BuyerID)
	if err != nil {
		return err
	}
	result, err := h.orders.CreateOrder(c.UserContext(), service.CreateOrderInput{
		ProductID:     req.ProductID,
		BuyerID:       buyerID,
		AddressID:     req.AddressID,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Quantity:      req.Quantity,
		TotalAmount:   req.TotalAmount,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "order placed",
		"data":    result,
	})
}

// UpdateStatus handles POST /api/order/status.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.OrderStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := adminPrincipal(c, "")
	if err != nil {
		return err
	}
	entry, err := h.orders.UpdateStatus(c.UserContext(), req.OrderID, service.StatusChange{
		Status:    req.Status,
		Comment:   req.Comment,
		ActorType: domain.ActorTypeAdmin,
		ActorID:   &admin.ID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderStatusResponse(entry)})
}

// BulkUpdateStatus handles POST /api/user-product/approved-bulk-orders.
func (h *OrdersHandler) BulkUpdateStatus(c *fiber.Ctx) error {
	var req dto.BulkOrderStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := adminPrincipal(c, "")
	if err != nil {
		return err
	}
	result, err := h.orders.BulkUpdateStatus(c.UserContext(), req.Orders, service.StatusChange{
		Status:    req.Status,
		ActorType: domain.ActorTypeAdmin,
		ActorID:   &admin.ID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// MyPurchases handles POST /api/order/mypurchases.
func (h *OrdersHandler) MyPurchases(c *fiber.Ctx) error {
	var req dto.UserIDRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := memberID(c, req.UserID)
	if err != nil {
		return err
	}
	purchases, err := h.orders.MyPurchases(c.UserContext(), userID)
	if err != nil {
		return err
	}
	items := make([]dto.PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		items = append(items, dto.NewPurchaseResponse(&purchases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// History handles POST /api/order/history.
func (h *OrdersHandler) History(c *fiber.Ctx) error {
	var req dto.OrderIDRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := memberID(c, "")
	if err != nil {
		return err
	}
	trail, err := h.orders.History(c.UserContext(), userID, req.OrderID)
	if err != nil {
		return err
	}
	items := make([]dto.OrderStatusResponse, 0, len(trail))
	for i := range trail {
		items = append(items, dto.NewOrderStatusResponse(&trail[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
