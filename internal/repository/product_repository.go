package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/campus-market/backend/internal/domain"
)

// ProductRepository encapsulates listing persistence.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateStock(ctx context.Context, id string, stock int, status domain.ProductStatus) error
}

type productRepository struct {
	db DBTX
}

// NewProductRepository instantiates repository.
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
        INSERT INTO products (seller_id, name, description, price, stock, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		product.SellerID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Status,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `
        SELECT id, seller_id, name, description, price, stock, status, created_at, updated_at
        FROM products WHERE id=$1`
	var product domain.Product
	if err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.SellerID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Status,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id string, stock int, status domain.ProductStatus) error {
	const query = `
        UPDATE products SET stock=$1, status=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, stock, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ProductImageRepository persists listing image metadata.
type ProductImageRepository interface {
	Create(ctx context.Context, image *domain.ProductImage) error
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error)
}

type productImageRepository struct {
	db DBTX
}

// NewProductImageRepository constructs repository.
func NewProductImageRepository(db DBTX) ProductImageRepository {
	return &productImageRepository{db: db}
}

func (r *productImageRepository) Create(ctx context.Context, image *domain.ProductImage) error {
	const query = `
        INSERT INTO product_images (product_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		image.ProductID,
		image.StorageKey,
		image.FileName,
		image.MimeType,
		image.SizeBytes,
	).Scan(&image.ID, &image.CreatedAt)
}

func (r *productImageRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	const query = `
        SELECT id, product_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM product_images WHERE product_id=$1 ORDER BY created_at ASC`
	rows, err := conn(ctx, r.db).Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProductImage
	for rows.Next() {
		var image domain.ProductImage
		if err := rows.Scan(
			&image.ID,
			&image.ProductID,
			&image.StorageKey,
			&image.FileName,
			&image.MimeType,
			&image.SizeBytes,
			&image.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, image)
	}
	return result, rows.Err()
}
