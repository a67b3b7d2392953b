package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

type productFixture struct {
	store      *memStore
	files      *memStorage
	dispatcher *recordingDispatcher
	svc        *ProductService
	seller     *domain.User
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	f := &productFixture{store: newMemStore(), files: newMemStorage(), dispatcher: &recordingDispatcher{}}
	f.svc = NewProductService(ProductDependencies{
		TxManager:        &fakeTx{},
		UserRepo:         memUsers{f.store},
		ProductRepo:      memProducts{f.store},
		ProductImageRepo: memImages{f.store},
		Storage:          f.files,
		Dispatcher:       f.dispatcher,
	})
	f.seller = &domain.User{FirstName: "Sam", Email: "sam@campus.test"}
	require.NoError(t, memUsers{f.store}.Create(context.Background(), f.seller))
	return f
}

func TestCreateProductStoresImages(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	product, err := f.svc.Create(ctx, CreateProductInput{
		SellerID: f.seller.ID,
		Name:     "Lab gown",
		Price:    300,
		Stock:    2,
		Images:   []*Upload{upload("front view.jpg", "a"), upload("back.jpg", "b")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusActive, product.Status)
	require.Len(t, product.Images, 2)
	assert.Equal(t, "front_view.jpg", product.Images[0].FileName)
	assert.Len(t, f.files.keys(), 2)
	assert.Len(t, f.dispatcher.ofType(events.EventProductUpdated), 1)

	loaded, err := f.svc.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Images, 2)
}

func TestCreateProductValidation(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateProductInput{SellerID: f.seller.ID, Name: "x", Price: 0})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateProductInput{SellerID: "user-404", Name: "x", Price: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Empty(t, f.files.keys())
}

func TestUpdateStockDerivesStatus(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	product, err := f.svc.Create(ctx, CreateProductInput{SellerID: f.seller.ID, Name: "Book", Price: 100, Stock: 1})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStock(ctx, "", product.ID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusSoldOut, updated.Status)

	archived := "archived"
	updated, err = f.svc.UpdateStock(ctx, "", product.ID, 5, &archived)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusArchived, updated.Status)

	updated, err = f.svc.UpdateStock(ctx, "", product.ID, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusArchived, updated.Status)

	bad := "DELETED"
	_, err = f.svc.UpdateStock(ctx, "", product.ID, 1, &bad)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.svc.UpdateStock(ctx, "", product.ID, -1, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.svc.UpdateStock(ctx, "", "product-404", 1, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	assert.Len(t, f.dispatcher.ofType(events.EventProductUpdated), 4)
}

func TestAddressService(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	user := &domain.User{Email: "a@campus.test"}
	require.NoError(t, memUsers{store}.Create(ctx, user))
	svc := NewAddressService(memUsers{store}, memAddresses{store})

	_, err := svc.Create(ctx, domain.Address{UserID: user.ID, Line1: "Dorm 1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.Create(ctx, domain.Address{UserID: "user-404", Line1: "a", City: "b", ContactNumber: "c"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	created, err := svc.Create(ctx, domain.Address{UserID: user.ID, Label: "Dorm", Line1: "Dorm 1", City: "Diliman", ContactNumber: "0917"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Dorm", list[0].Label)
}
