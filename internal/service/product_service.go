package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/repository"
	"github.com/campus-market/backend/internal/storage"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// ProductService manages seller listings.
type ProductService struct {
	tx       repository.TxManager
	users    repository.UserRepository
	products repository.ProductRepository
	images   repository.ProductImageRepository
	storage  storage.Storage
	events   publisher
	logger   *zap.Logger
}

// ProductDependencies bundles repositories.
type ProductDependencies struct {
	TxManager        repository.TxManager
	UserRepo         repository.UserRepository
	ProductRepo      repository.ProductRepository
	ProductImageRepo repository.ProductImageRepository
	Storage          storage.Storage
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// CreateProductInput is a new listing.
type CreateProductInput struct {
	SellerID    string
	Name        string
	Description string
	Price       float64
	Stock       int
	Images      []*Upload
}

// NewProductService creates the service.
func NewProductService(deps ProductDependencies) *ProductService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		tx:       deps.TxManager,
		users:    deps.UserRepo,
		products: deps.ProductRepo,
		images:   deps.ProductImageRepo,
		storage:  deps.Storage,
		events:   newPublisher(deps.Dispatcher, logger),
		logger:   logger,
	}
}

// Create stores the images and inserts the product with its image rows.
func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	in.SellerID = strings.TrimSpace(in.SellerID)
	in.Name = strings.TrimSpace(in.Name)
	if err := requireFields(map[string]string{"userid": in.SellerID, "name": in.Name}); err != nil {
		return nil, err
	}
	if in.Price <= 0 {
		return nil, apperrors.NewValidationError("price must be positive", map[string]any{"price": in.Price})
	}
	if in.Stock < 0 {
		return nil, apperrors.NewValidationError("stock must not be negative", map[string]any{"stock": in.Stock})
	}
	if _, err := s.users.GetByID(ctx, in.SellerID); err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userid": in.SellerID})
	}

	keys, err := storeUploads(ctx, s.storage, storage.FolderProductImages, in.Images...)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		SellerID:    in.SellerID,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		Status:      stockStatus(in.Stock),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.products.Create(ctx, product); err != nil {
			return err
		}
		for i, up := range in.Images {
			image := domain.ProductImage{
				ProductID:  product.ID,
				StorageKey: keys[i],
				FileName:   storage.SanitizeName(up.FileName),
				MimeType:   up.ContentType,
				SizeBytes:  up.Size,
			}
			if err := s.images.Create(ctx, &image); err != nil {
				return err
			}
			product.Images = append(product.Images, image)
		}
		return nil
	})
	if err != nil {
		discardUploads(ctx, s.storage, s.logger, keys...)
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, in.SellerID, product.ID)
	return product, nil
}

// Get returns a listing with its images.
func (s *ProductService) Get(ctx context.Context, productID string) (*domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if err := requireFields(map[string]string{"productid": productID}); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product", map[string]any{"productid": productID})
	}
	product.Images, err = s.images.ListByProduct(ctx, productID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return product, nil
}

// UpdateStock sets the stock level. Without an explicit status the listing
// is marked SOLD_OUT at zero and ACTIVE otherwise; archived listings stay archived.
func (s *ProductService) UpdateStock(ctx context.Context, actorID, productID string, stock int, rawStatus *string) (*domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if err := requireFields(map[string]string{"productid": productID}); err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, apperrors.NewValidationError("stock must not be negative", map[string]any{"stock": stock})
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product", map[string]any{"productid": productID})
	}

	status := stockStatus(stock)
	if product.Status == domain.ProductStatusArchived {
		status = domain.ProductStatusArchived
	}
	if rawStatus != nil && strings.TrimSpace(*rawStatus) != "" {
		parsed, ok := domain.ParseProductStatus(*rawStatus)
		if !ok {
			return nil, apperrors.NewValidationError("unknown product status", map[string]any{"status": *rawStatus})
		}
		status = parsed
	}

	if err := s.products.UpdateStock(ctx, productID, stock, status); err != nil {
		return nil, notFoundOr(err, "product", map[string]any{"productid": productID})
	}
	product.Stock = stock
	product.Status = status

	if actorID == "" {
		actorID = product.SellerID
	}
	s.publish(ctx, actorID, product.ID)
	return product, nil
}

func (s *ProductService) publish(ctx context.Context, actorID, productID string) {
	s.events.publishEvent(ctx, events.Event{
		Type:     events.EventProductUpdated,
		EntityID: productID,
		Actor:    userActor(actorID),
		Payload:  events.ProductUpdatedPayload{ProductID: productID},
	})
}

func stockStatus(stock int) domain.ProductStatus {
	if stock == 0 {
		return domain.ProductStatusSoldOut
	}
	return domain.ProductStatusActive
}
