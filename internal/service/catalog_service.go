package service

import (
	"context"
	"fmt"
	"strings"

	"freshcart/internal/domain"
	"freshcart/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductInput carries the full set of writable product fields. Price and
// Stock are pointers so that a missing value can be told apart from zero.
type ProductInput struct {
	Name        string
	Description string
	Price       *decimal.Decimal
	Stock       *int
	ImageURL    string
	Category    string
}

// CatalogService defines the interface for catalog management
type CatalogService interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type catalogService struct {
	productRepo repository.ProductRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository) CatalogService {
	return &catalogService{productRepo: productRepo}
}

func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	product, err := in.toProduct()
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct replaces every field of an existing product. Input is
// validated before the product is looked up.
func (s *catalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	product, err := in.toProduct()
	if err != nil {
		return nil, err
	}
	product.ID = id

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct hard-deletes a product without checking for orders that
// reference it.
func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	return s.productRepo.Delete(ctx, id)
}

func (in ProductInput) toProduct() (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	imageURL := strings.TrimSpace(in.ImageURL)
	category := strings.TrimSpace(in.Category)

	if name == "" || description == "" || imageURL == "" || category == "" || in.Price == nil || in.Stock == nil {
		return nil, newValidationError("All fields are required")
	}
	if in.Price.IsNegative() {
		return nil, newValidationError("Price must not be negative")
	}
	if *in.Stock < 0 {
		return nil, newValidationError("Stock must not be negative")
	}

	return &domain.Product{
		Name:        name,
		Description: description,
		Price:       in.Price.Round(2),
		Stock:       *in.Stock,
		ImageURL:    imageURL,
		Category:    category,
	}, nil
}
