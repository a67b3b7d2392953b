package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/observability"
	"github.com/campus-market/backend/internal/repository"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

const (
	minRefNo       = 100000000
	maxRefNo       = 999999999
	maxRefAttempts = 5

	defaultBulkConcurrency = 8
)

// OrderService coordinates order creation and the status lifecycle.
type OrderService struct {
	tx        repository.TxManager
	orders    repository.OrderRepository
	history   repository.OrderStatusRepository
	products  repository.ProductRepository
	addresses repository.AddressRepository
	events    publisher
	metrics   *observability.Metrics
	logger    *zap.Logger

	bulkConcurrency int
	generateRefNo   func() (int64, error)
}

// OrderDependencies bundles repositories for the order service.
type OrderDependencies struct {
	TxManager       repository.TxManager
	OrderRepo       repository.OrderRepository
	HistoryRepo     repository.OrderStatusRepository
	ProductRepo     repository.ProductRepository
	AddressRepo     repository.AddressRepository
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	BulkConcurrency int
}

// CreateOrderInput describes a checkout.
type CreateOrderInput struct {
	ProductID     string
	BuyerID       string
	AddressID     string
	Description   *string
	PaymentMethod string
	Quantity      int
	TotalAmount   float64
}

// CreateOrderResult identifies the new order.
type CreateOrderResult struct {
	OrderID string `json:"orderid"`
	RefNo   int64  `json:"ref_no"`
}

// StatusChange describes one requested transition.
type StatusChange struct {
	Status    string
	Comment   string
	ActorType domain.ActorType
	ActorID   *string
}

// BulkFailure reports why one order of a bulk update was not changed.
type BulkFailure struct {
	OrderID string `json:"order_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkResult summarizes a bulk update.
type BulkResult struct {
	Count     int           `json:"count"`
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := deps.BulkConcurrency
	if concurrency <= 0 {
		concurrency = defaultBulkConcurrency
	}
	return &OrderService{
		tx:              deps.TxManager,
		orders:          deps.OrderRepo,
		history:         deps.HistoryRepo,
		products:        deps.ProductRepo,
		addresses:       deps.AddressRepo,
		events:          newPublisher(deps.Dispatcher, logger),
		metrics:         deps.Metrics,
		logger:          logger,
		bulkConcurrency: concurrency,
		generateRefNo:   randomRefNo,
	}
}

// CreateOrder inserts the order with its initial PENDING status row in one
// transaction. A colliding reference number is regenerated.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.BuyerID = strings.TrimSpace(in.BuyerID)
	in.AddressID = strings.TrimSpace(in.AddressID)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)

	if err := requireFields(map[string]string{
		"productid":      in.ProductID,
		"buyerid":        in.BuyerID,
		"addressid":      in.AddressID,
		"payment_method": in.PaymentMethod,
	}); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be positive", map[string]any{"quantity": in.Quantity})
	}
	if in.TotalAmount <= 0 {
		return nil, apperrors.NewValidationError("total_amount must be positive", map[string]any{"total_amount": in.TotalAmount})
	}

	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, notFoundOr(err, "product", map[string]any{"productid": in.ProductID})
	}
	if _, err := s.addresses.GetForUser(ctx, in.AddressID, in.BuyerID); err != nil {
		return nil, notFoundOr(err, "address", map[string]any{"addressid": in.AddressID})
	}

	order := &domain.Order{
		ProductID:     in.ProductID,
		BuyerID:       in.BuyerID,
		AddressID:     in.AddressID,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Quantity:      in.Quantity,
		TotalAmount:   in.TotalAmount,
	}

	var err error
	for attempt := 1; attempt <= maxRefAttempts; attempt++ {
		order.RefNo, err = s.generateRefNo()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.orders.Create(ctx, order); err != nil {
				return err
			}
			return s.history.Create(ctx, &domain.OrderStatusEntry{
				OrderID:       order.ID,
				Status:        domain.OrderStatusPending,
				ChangedByType: domain.ActorTypeUser,
				ChangedByID:   &in.BuyerID,
				Comment:       "order placed",
			})
		})
		if err == nil || !repository.IsUniqueViolation(err, repository.RefNoConstraint) {
			break
		}
		s.logger.Debug("ref_no collision, regenerating", zap.Int64("ref_no", order.RefNo), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordTransition(string(domain.OrderStatusPending), true)
	s.publishOrderUpdate(ctx, userActor(in.BuyerID), order, domain.OrderStatusPending)
	return &CreateOrderResult{OrderID: order.ID, RefNo: order.RefNo}, nil
}

// UpdateStatus moves one order along the lifecycle graph.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, change StatusChange) (*domain.OrderStatusEntry, error) {
	orderID = strings.TrimSpace(orderID)
	if err := requireFields(map[string]string{"orderid": orderID}); err != nil {
		return nil, err
	}
	next, ok := domain.ParseOrderStatus(change.Status)
	if !ok {
		return nil, apperrors.NewValidationError("unknown order status", map[string]any{"status": change.Status})
	}

	order, entry, err := s.transition(ctx, orderID, next, change)
	if err != nil {
		return nil, err
	}
	s.publishOrderUpdate(ctx, changeActor(change), order, next)
	return entry, nil
}

// BulkUpdateStatus applies one target status to many orders. Each order is
// its own transaction; one failing order does not affect the others.
func (s *OrderService) BulkUpdateStatus(ctx context.Context, orderIDs []string, change StatusChange) (*BulkResult, error) {
	next, ok := domain.ParseOrderStatus(change.Status)
	if !ok {
		return nil, apperrors.NewValidationError("unknown order status", map[string]any{"status": change.Status})
	}

	ids := make([]string, 0, len(orderIDs))
	seen := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("orders must not be empty", nil)
	}

	type outcome struct {
		order *domain.Order
		err   error
	}
	outcomes := make([]outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			order, _, err := s.transition(ctx, id, next, change)
			outcomes[i] = outcome{order: order, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for i, out := range outcomes {
		if out.err != nil {
			domainErr := apperrors.ToDomainError(out.err)
			if domainErr.Code == apperrors.CodeInternal {
				s.logger.Error("bulk status update", zap.String("order_id", ids[i]), zap.Error(out.err))
			}
			result.Failed = append(result.Failed, BulkFailure{
				OrderID: ids[i],
				Code:    domainErr.Code,
				Message: domainErr.Message,
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, ids[i])
		s.publishOrderUpdate(ctx, changeActor(change), out.order, next)
	}
	result.Count = len(result.Succeeded)
	return result, nil
}

// MyPurchases lists the buyer's orders with product, latest status, latest
// tracker row and carrier.
func (s *OrderService) MyPurchases(ctx context.Context, buyerID string) ([]domain.Purchase, error) {
	buyerID = strings.TrimSpace(buyerID)
	if err := requireFields(map[string]string{"userid": buyerID}); err != nil {
		return nil, err
	}
	purchases, err := s.orders.ListPurchases(ctx, buyerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return purchases, nil
}

// History returns the full status trail of one of the buyer's orders, oldest
// first. Orders of other buyers read as not found.
func (s *OrderService) History(ctx context.Context, buyerID, orderID string) ([]domain.OrderStatusEntry, error) {
	buyerID = strings.TrimSpace(buyerID)
	orderID = strings.TrimSpace(orderID)
	if err := requireFields(map[string]string{"userid": buyerID, "orderid": orderID}); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order", map[string]any{"orderid": orderID})
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.NewNotFound("order", map[string]any{"orderid": orderID})
	}
	entries, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// transition locks the order row, validates the move against the latest
// status and appends the new status row.
func (s *OrderService) transition(ctx context.Context, orderID string, next domain.OrderStatus, change StatusChange) (*domain.Order, *domain.OrderStatusEntry, error) {
	var (
		order *domain.Order
		entry *domain.OrderStatusEntry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order", map[string]any{"orderid": orderID})
		}
		current, err := s.history.Latest(ctx, orderID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransition(next) {
			return apperrors.NewInvalidTransition(string(current.Status), string(next))
		}
		entry = &domain.OrderStatusEntry{
			OrderID:       orderID,
			Status:        next,
			ChangedByType: change.ActorType,
			ChangedByID:   change.ActorID,
			Comment:       strings.TrimSpace(change.Comment),
		}
		return s.history.Create(ctx, entry)
	})
	if err != nil {
		s.metrics.RecordTransition(string(next), false)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewInternalError(err)
		}
		return nil, nil, apperrors.MapError(err)
	}
	s.metrics.RecordTransition(string(next), true)
	return order, entry, nil
}

func (s *OrderService) publishOrderUpdate(ctx context.Context, actor events.Actor, order *domain.Order, status domain.OrderStatus) {
	s.events.publishEvent(ctx, events.Event{
		Type:     events.EventOrderUpdate,
		EntityID: order.ID,
		Actor:    actor,
		Payload: events.OrderUpdatePayload{
			OrderID: order.ID,
			RefNo:   order.RefNo,
			Status:  status,
		},
	})
}

func changeActor(change StatusChange) events.Actor {
	if change.ActorID == nil {
		return events.Actor{Type: domain.SubjectType(change.ActorType)}
	}
	if change.ActorType == domain.ActorTypeAdmin {
		return adminActor(*change.ActorID)
	}
	return userActor(*change.ActorID)
}

func randomRefNo() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxRefNo-minRefNo+1))
	if err != nil {
		return 0, err
	}
	return n.Int64() + minRefNo, nil
}
