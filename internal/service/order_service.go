package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"freshcart/internal/domain"
	"freshcart/internal/events"
	"freshcart/internal/report"
	"freshcart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// priceLookupConcurrency bounds the product lookups issued for one cart.
	priceLookupConcurrency = 4
	publishTimeout         = 5 * time.Second
)

// CartItem is one line of a storefront cart. Price is the unit price the
// client saw and is only used when client prices are trusted.
type CartItem struct {
	ProductID int64
	Quantity  int
	Price     *decimal.Decimal
}

// CartCheckout is a storefront checkout submission.
type CartCheckout struct {
	UserID int64
	Buyer  domain.Buyer
	Items  []CartItem
}

// BulkItem is one line of a bulk order.
type BulkItem struct {
	ProductID int64
	Quantity  int
}

// BulkOrder is a bulk order submission. Buyer is nil when the client sent
// no buyer details at all.
type BulkOrder struct {
	UserID *int64
	Buyer  *domain.Buyer
	Items  []BulkItem
}

// PlacedOrder is the result of a committed checkout.
type PlacedOrder struct {
	Group      *domain.OrderGroup
	Orders     []*domain.Order
	GrandTotal decimal.Decimal
}

// OrderOptions tunes checkout behavior.
type OrderOptions struct {
	// TrustClientPrice makes cart checkout use the submitted unit prices
	// instead of the catalog prices.
	TrustClientPrice bool
}

// OrderService defines the interface for order placement and management
type OrderService interface {
	PlaceOrder(ctx context.Context, checkout CartCheckout) (*PlacedOrder, error)
	PlaceBulkOrder(ctx context.Context, order BulkOrder) (*PlacedOrder, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.OrderLine, error)
	GetAllOrders(ctx context.Context) ([]*domain.OrderLine, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*domain.OrderLine, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
	GetOrderGroup(ctx context.Context, id uuid.UUID) (*domain.OrderGroupDetail, error)
	ExportOrders(ctx context.Context, w io.Writer) error
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	transactor  repository.Transactor
	publisher   events.Publisher
	logger      *zap.Logger
	opts        OrderOptions
	now         func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	transactor repository.Transactor,
	publisher events.Publisher,
	logger *zap.Logger,
	opts OrderOptions,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		transactor:  transactor,
		publisher:   publisher,
		logger:      logger,
		opts:        opts,
		now:         time.Now,
	}
}

type pricedLine struct {
	productID int64
	quantity  int
	unitPrice decimal.Decimal
}

// PlaceOrder persists a storefront cart as one order group. Either every
// line is stored or none is.
func (s *orderService) PlaceOrder(ctx context.Context, checkout CartCheckout) (*PlacedOrder, error) {
	if err := validateCart(checkout, s.opts.TrustClientPrice); err != nil {
		return nil, err
	}

	lines, err := s.priceCart(ctx, checkout.Items)
	if err != nil {
		return nil, err
	}

	userID := checkout.UserID
	group := s.newGroup(&userID, checkout.Buyer, domain.OrderSourceCart)

	placed := &PlacedOrder{Group: group, GrandTotal: decimal.Zero}
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.CreateGroup(ctx, group); err != nil {
			return err
		}
		for _, line := range lines {
			order, err := s.persistLine(ctx, group, line)
			if err != nil {
				return err
			}
			placed.Orders = append(placed.Orders, order)
			placed.GrandTotal = placed.GrandTotal.Add(order.TotalPrice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPlaced(ctx, placed)
	return placed, nil
}

// PlaceBulkOrder persists a bulk order using catalog prices only. Lines are
// processed in submission order and the first bad line aborts the whole
// submission.
func (s *orderService) PlaceBulkOrder(ctx context.Context, order BulkOrder) (*PlacedOrder, error) {
	if order.Buyer == nil || !buyerComplete(*order.Buyer) {
		return nil, newValidationError("Missing buyer details")
	}
	if len(order.Items) == 0 {
		return nil, newValidationError("No order details provided")
	}

	group := s.newGroup(order.UserID, *order.Buyer, domain.OrderSourceBulk)

	placed := &PlacedOrder{Group: group, GrandTotal: decimal.Zero}
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.CreateGroup(ctx, group); err != nil {
			return err
		}
		for _, item := range order.Items {
			if item.ProductID <= 0 || !validQuantity(item.Quantity) {
				return newValidationError("Invalid product or quantity")
			}

			unitPrice, err := s.catalogPrice(ctx, item.ProductID)
			if err != nil {
				return err
			}

			line, err := s.persistLine(ctx, group, pricedLine{
				productID: item.ProductID,
				quantity:  item.Quantity,
				unitPrice: unitPrice,
			})
			if err != nil {
				return err
			}
			placed.Orders = append(placed.Orders, line)
			placed.GrandTotal = placed.GrandTotal.Add(line.TotalPrice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPlaced(ctx, placed)
	return placed, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id int64) (*domain.OrderLine, error) {
	return s.orderRepo.FindByID(ctx, id)
}

func (s *orderService) GetAllOrders(ctx context.Context) ([]*domain.OrderLine, error) {
	return s.orderRepo.List(ctx)
}

func (s *orderService) GetOrdersByUserID(ctx context.Context, userID int64) ([]*domain.OrderLine, error) {
	return s.orderRepo.ListByUserID(ctx, userID)
}

// UpdateOrderStatus sets the status of one order. Any recognized status may
// replace any other.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	next := domain.OrderStatus(strings.TrimSpace(status))
	if next == "" {
		return newValidationError("Status is required")
	}
	if !next.Valid() {
		return newValidationError("Invalid order status: %s", status)
	}

	return s.orderRepo.UpdateStatus(ctx, id, next, s.now().UTC())
}

// GetOrderGroup returns a checkout submission with all of its lines.
func (s *orderService) GetOrderGroup(ctx context.Context, id uuid.UUID) (*domain.OrderGroupDetail, error) {
	group, err := s.orderRepo.FindGroupByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, err := s.orderRepo.ListByGroupID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.OrderGroupDetail{
		OrderGroup: *group,
		Lines:      lines,
		GrandTotal: decimal.Zero,
	}
	for _, line := range lines {
		detail.GrandTotal = detail.GrandTotal.Add(line.TotalPrice)
	}
	return detail, nil
}

// ExportOrders writes every order as an xlsx workbook.
func (s *orderService) ExportOrders(ctx context.Context, w io.Writer) error {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return err
	}
	return report.WriteOrders(w, orders)
}

func (s *orderService) newGroup(userID *int64, buyer domain.Buyer, source domain.OrderSource) *domain.OrderGroup {
	return &domain.OrderGroup{
		ID:        uuid.New(),
		UserID:    userID,
		Buyer:     buyer,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
}

// persistLine stores one priced line under group. Lines of a group share the
// group's timestamp.
func (s *orderService) persistLine(ctx context.Context, group *domain.OrderGroup, line pricedLine) (*domain.Order, error) {
	total := domain.LineTotal(line.unitPrice, line.quantity)
	if total.Round(2).GreaterThan(domain.MaxLineTotal) {
		return nil, newValidationError("Order total too large for product with id %d", line.productID)
	}

	groupID := group.ID
	order := &domain.Order{
		GroupID:    &groupID,
		UserID:     group.UserID,
		Buyer:      group.Buyer,
		ProductID:  line.productID,
		Quantity:   line.quantity,
		TotalPrice: total,
		Status:     domain.OrderStatusPending,
		CreatedAt:  group.CreatedAt,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// catalogPrice resolves the current unit price of a product.
func (s *orderService) catalogPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return decimal.Zero, newValidationError("Product with id %d not found", productID)
		}
		return decimal.Zero, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	if product.Price.IsNegative() {
		return decimal.Zero, newValidationError("Invalid price for product with id %d", productID)
	}
	return product.Price, nil
}

// priceCart resolves unit prices for every cart line. Catalog lookups run
// concurrently; results keep the cart order.
func (s *orderService) priceCart(ctx context.Context, items []CartItem) ([]pricedLine, error) {
	lines := make([]pricedLine, len(items))
	for i, item := range items {
		lines[i] = pricedLine{productID: item.ProductID, quantity: item.Quantity}
		if s.opts.TrustClientPrice {
			lines[i].unitPrice = *item.Price
		}
	}
	if s.opts.TrustClientPrice {
		return lines, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceLookupConcurrency)
	for i := range lines {
		i := i
		g.Go(func() error {
			price, err := s.catalogPrice(gctx, lines[i].productID)
			if err != nil {
				return err
			}
			lines[i].unitPrice = price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *orderService) publishPlaced(ctx context.Context, placed *PlacedOrder) {
	event := events.OrderPlaced{
		GroupID:    placed.Group.ID,
		UserID:     placed.Group.UserID,
		Source:     placed.Group.Source,
		LineCount:  len(placed.Orders),
		GrandTotal: placed.GrandTotal,
		PlacedAt:   placed.Group.CreatedAt,
	}

	// The orders are committed; a client disconnect must not drop the event.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, events.OrderPlacedKey, event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("group_id", placed.Group.ID.String()),
			zap.Error(err),
		)
	}
}

func validateCart(checkout CartCheckout, trustClientPrice bool) error {
	if checkout.UserID <= 0 || !buyerComplete(checkout.Buyer) || len(checkout.Items) == 0 {
		return newValidationError("Missing required fields")
	}
	for _, item := range checkout.Items {
		if item.ProductID <= 0 || !validQuantity(item.Quantity) {
			return newValidationError("Invalid product or quantity")
		}
		if trustClientPrice {
			if item.Price == nil {
				return newValidationError("Missing price for product with id %d", item.ProductID)
			}
			if item.Price.IsNegative() {
				return newValidationError("Invalid price for product with id %d", item.ProductID)
			}
		}
	}
	return nil
}

func validQuantity(q int) bool {
	return q > 0 && q <= domain.MaxQuantity
}

func buyerComplete(b domain.Buyer) bool {
	return strings.TrimSpace(b.Name) != "" &&
		strings.TrimSpace(b.Address) != "" &&
		strings.TrimSpace(b.Phone) != "" &&
		strings.TrimSpace(b.Email) != ""
}
