package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"freshcart/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderGroupNotFound = errors.New("order group not found")
)

// Orders are left-joined so that lines for deleted products stay visible.
const orderLineSelect = `
	SELECT o.id, o.group_id, o.user_id, o.name, o.address, o.phone, o.email,
	       o.product_id, o.quantity, o.total_price, o.status, o.created_at, o.updated_at,
	       COALESCE(p.name, '') AS product_name,
	       COALESCE(p.image_url, '') AS image_url
	FROM orders o
	LEFT JOIN products p ON p.id = o.product_id
`

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	CreateGroup(ctx context.Context, group *domain.OrderGroup) error
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.OrderLine, error)
	FindGroupByID(ctx context.Context, id uuid.UUID) (*domain.OrderGroup, error)
	List(ctx context.Context) ([]*domain.OrderLine, error)
	ListByUserID(ctx context.Context, userID int64) ([]*domain.OrderLine, error)
	ListByGroupID(ctx context.Context, groupID uuid.UUID) ([]*domain.OrderLine, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus, updatedAt time.Time) error
}

type orderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateGroup inserts the parent record of a checkout submission
func (r *orderRepository) CreateGroup(ctx context.Context, group *domain.OrderGroup) error {
	query := `
		INSERT INTO order_groups (id, user_id, name, address, phone, email, source, created_at)
		VALUES (:id, :user_id, :name, :address, :phone, :email, :source, :created_at)
	`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, group); err != nil {
		return fmt.Errorf("failed to create order group: %w", err)
	}

	return nil
}

// Create inserts one order line and fills in its generated id
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (group_id, user_id, name, address, phone, email,
		                    product_id, quantity, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := conn(ctx, r.db).QueryRowxContext(
		ctx,
		query,
		order.GroupID,
		order.UserID,
		order.Name,
		order.Address,
		order.Phone,
		order.Email,
		order.ProductID,
		order.Quantity,
		order.TotalPrice,
		order.Status,
		order.CreatedAt,
	).Scan(&order.ID)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// FindByID retrieves one order with its product display name
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.OrderLine, error) {
	query := orderLineSelect + `WHERE o.id = $1`

	line := &domain.OrderLine{}
	if err := conn(ctx, r.db).GetContext(ctx, line, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	return line, nil
}

// FindGroupByID retrieves the parent record of a checkout submission
func (r *orderRepository) FindGroupByID(ctx context.Context, id uuid.UUID) (*domain.OrderGroup, error) {
	query := `
		SELECT id, user_id, name, address, phone, email, source, created_at
		FROM order_groups
		WHERE id = $1
	`

	group := &domain.OrderGroup{}
	if err := conn(ctx, r.db).GetContext(ctx, group, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderGroupNotFound
		}
		return nil, fmt.Errorf("failed to find order group by ID: %w", err)
	}

	return group, nil
}

// List returns every order, newest first
func (r *orderRepository) List(ctx context.Context) ([]*domain.OrderLine, error) {
	query := orderLineSelect + `ORDER BY o.created_at DESC, o.id DESC`

	return r.selectLines(ctx, query)
}

// ListByUserID returns the orders placed for one user, newest first
func (r *orderRepository) ListByUserID(ctx context.Context, userID int64) ([]*domain.OrderLine, error) {
	query := orderLineSelect + `WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`

	return r.selectLines(ctx, query, userID)
}

// ListByGroupID returns the lines of one checkout submission in insertion order
func (r *orderRepository) ListByGroupID(ctx context.Context, groupID uuid.UUID) ([]*domain.OrderLine, error) {
	query := orderLineSelect + `WHERE o.group_id = $1 ORDER BY o.id ASC`

	return r.selectLines(ctx, query, groupID)
}

// UpdateStatus overwrites the status of one order
func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus, updatedAt time.Time) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) selectLines(ctx context.Context, query string, args ...interface{}) ([]*domain.OrderLine, error) {
	lines := []*domain.OrderLine{}
	if err := conn(ctx, r.db).SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return lines, nil
}
