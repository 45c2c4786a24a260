package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"freshcart/internal/domain"

	"github.com/jmoiron/sqlx"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

const productColumns = `id, name, description, price, stock, image_url, category, created_at`

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
}

type productRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product and fills in the generated id and timestamp
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, image_url, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := conn(ctx, r.db).QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.ImageURL,
		product.Category,
	).Scan(&product.ID, &product.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces every mutable field of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5,
		    image_url = $6, category = $7
		WHERE id = $1
		RETURNING created_at
	`

	err := conn(ctx, r.db).QueryRowxContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.ImageURL,
		product.Category,
	).Scan(&product.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete hard-deletes a product. Orders referencing it are left untouched.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product := &domain.Product{}
	if err := conn(ctx, r.db).GetContext(ctx, product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves the whole catalog ordered by id
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id ASC`

	products := []*domain.Product{}
	if err := conn(ctx, r.db).SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}
