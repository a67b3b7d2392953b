package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/repository"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// DeliveryService assigns carriers and records tracking positions.
type DeliveryService struct {
	tx       repository.TxManager
	orders   repository.OrderRepository
	history  repository.OrderStatusRepository
	delivery repository.DeliveryRepository
	events   publisher
}

// DeliveryDependencies bundles repositories.
type DeliveryDependencies struct {
	TxManager    repository.TxManager
	OrderRepo    repository.OrderRepository
	HistoryRepo  repository.OrderStatusRepository
	DeliveryRepo repository.DeliveryRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// TrackInput is one position report.
type TrackInput struct {
	OrderID  string
	Position string
	Status   string
}

// NewDeliveryService creates the service.
func NewDeliveryService(deps DeliveryDependencies) *DeliveryService {
	return &DeliveryService{
		tx:       deps.TxManager,
		orders:   deps.OrderRepo,
		history:  deps.HistoryRepo,
		delivery: deps.DeliveryRepo,
		events:   newPublisher(deps.Dispatcher, deps.Logger),
	}
}

// AssignCarrier attaches a carrier to an order that is being prepared or is
// already out for delivery.
func (s *DeliveryService) AssignCarrier(ctx context.Context, adminID, orderID, carrierID string) (*domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	carrierID = strings.TrimSpace(carrierID)
	if err := requireFields(map[string]string{"orderid": orderID, "carrierid": carrierID}); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.lockInStatus(ctx, orderID, domain.OrderStatusProcessing, domain.OrderStatusForDelivery)
		if err != nil {
			return err
		}
		if _, err := s.delivery.GetCarrier(ctx, carrierID); err != nil {
			return notFoundOr(err, "carrier", map[string]any{"carrierid": carrierID})
		}
		if err := s.orders.SetCarrier(ctx, orderID, carrierID); err != nil {
			return err
		}
		order.CarrierID = &carrierID
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, adminID, order)
	return order, nil
}

// Track appends a tracker row for an order out for delivery.
func (s *DeliveryService) Track(ctx context.Context, adminID string, in TrackInput) (*domain.DeliveryTracker, error) {
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.Position = strings.TrimSpace(in.Position)
	in.Status = strings.TrimSpace(in.Status)
	if err := requireFields(map[string]string{"orderid": in.OrderID, "position": in.Position, "status": in.Status}); err != nil {
		return nil, err
	}

	var (
		order   *domain.Order
		tracker *domain.DeliveryTracker
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.lockInStatus(ctx, in.OrderID, domain.OrderStatusForDelivery)
		if err != nil {
			return err
		}
		tracker = &domain.DeliveryTracker{OrderID: in.OrderID, Position: in.Position, Status: in.Status}
		return s.delivery.CreateTracker(ctx, tracker)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, adminID, order)
	return tracker, nil
}

// Trackers lists position reports of an order, oldest first.
func (s *DeliveryService) Trackers(ctx context.Context, orderID string) ([]domain.DeliveryTracker, error) {
	orderID = strings.TrimSpace(orderID)
	if err := requireFields(map[string]string{"orderid": orderID}); err != nil {
		return nil, err
	}
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, notFoundOr(err, "order", map[string]any{"orderid": orderID})
	}
	trackers, err := s.delivery.ListTrackers(ctx, orderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return trackers, nil
}

func (s *DeliveryService) lockInStatus(ctx context.Context, orderID string, allowed ...domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.LockByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order", map[string]any{"orderid": orderID})
	}
	current, err := s.history.Latest(ctx, orderID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for _, status := range allowed {
		if current.Status == status {
			return order, nil
		}
	}
	return nil, apperrors.NewConflict("order is not in a deliverable status", map[string]any{
		"orderid": orderID,
		"status":  current.Status,
	})
}

func (s *DeliveryService) publish(ctx context.Context, adminID string, order *domain.Order) {
	s.events.publishEvent(ctx, events.Event{
		Type:     events.EventOrderUpdate,
		EntityID: order.ID,
		Actor:    adminActor(adminID),
		Payload:  events.OrderUpdatePayload{OrderID: order.ID, RefNo: order.RefNo},
	})
}
