package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a single order line.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every recognized status.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the recognized statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderSource records which checkout flow produced an order group.
type OrderSource string

const (
	OrderSourceCart OrderSource = "cart"
	OrderSourceBulk OrderSource = "bulk"
)

// Buyer holds the contact details captured at order time. They are copies,
// not references to the user record.
type Buyer struct {
	Name    string `json:"name" db:"name"`
	Address string `json:"address" db:"address"`
	Phone   string `json:"phone" db:"phone"`
	Email   string `json:"email" db:"email"`
}

// Order is one persisted product line. A checkout produces one Order per line
// item, all sharing a GroupID.
type Order struct {
	ID         int64           `json:"id" db:"id"`
	GroupID    *uuid.UUID      `json:"group_id,omitempty" db:"group_id"`
	UserID     *int64          `json:"user_id" db:"user_id"`
	Buyer                      // name, address, phone, email
	ProductID  int64           `json:"product_id" db:"product_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
	Status     OrderStatus     `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty" db:"updated_at"`
}

// OrderLine is an order joined with the product display data used by the
// storefront and the admin views.
type OrderLine struct {
	Order
	ProductName string `json:"product_name" db:"product_name"`
	ImageURL    string `json:"image_url,omitempty" db:"image_url"`
}

// OrderGroup is the parent record of one checkout submission.
type OrderGroup struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	UserID    *int64      `json:"user_id" db:"user_id"`
	Buyer                 // name, address, phone, email
	Source    OrderSource `json:"source" db:"source"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// OrderGroupDetail is a group together with its lines and grand total.
type OrderGroupDetail struct {
	OrderGroup
	Lines      []*OrderLine    `json:"lines"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// MaxQuantity is the largest quantity an INTEGER column holds.
const MaxQuantity = math.MaxInt32

// MaxLineTotal is the largest total_price a DECIMAL(12,2) column holds.
var MaxLineTotal = decimal.RequireFromString("9999999999.99")

// LineTotal computes the frozen total price of a line.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
