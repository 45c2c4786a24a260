package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog. Stock is informational only;
// placing an order never decrements it.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	Category    string          `json:"category" db:"category"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
