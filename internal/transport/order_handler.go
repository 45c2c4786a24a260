package transport

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"freshcart/internal/domain"
	"freshcart/internal/middleware"
	"freshcart/internal/report"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartItemRequest is one storefront cart line. Older clients send the
// product id as "id".
type CartItemRequest struct {
	ProductID int64            `json:"productId"`
	ID        int64            `json:"id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

// PlaceOrderRequest represents a cart checkout
type PlaceOrderRequest struct {
	UserID    flexID            `json:"userId"`
	Name      string            `json:"name"`
	Address   string            `json:"address"`
	Phone     string            `json:"phone"`
	Email     string            `json:"email"`
	CartItems []CartItemRequest `json:"cartItems"`
}

func (req PlaceOrderRequest) checkout() service.CartCheckout {
	items := make([]service.CartItem, len(req.CartItems))
	for i, item := range req.CartItems {
		productID := item.ProductID
		if productID == 0 {
			productID = item.ID
		}
		items[i] = service.CartItem{ProductID: productID, Quantity: item.Quantity, Price: item.Price}
	}

	return service.CartCheckout{
		UserID: int64(req.UserID),
		Buyer: domain.Buyer{
			Name:    req.Name,
			Address: req.Address,
			Phone:   req.Phone,
			Email:   req.Email,
		},
		Items: items,
	}
}

// BulkOrderRequest represents a bulk order submission
type BulkOrderRequest struct {
	Buyer  *domain.Buyer     `json:"buyer"`
	Order  []BulkLineRequest `json:"order"`
	UserID *flexID           `json:"user_id"`
}

// BulkLineRequest is one bulk order line
type BulkLineRequest struct {
	Product struct {
		ID int64 `json:"id"`
	} `json:"product"`
	Quantity int `json:"quantity"`
}

func (req BulkOrderRequest) bulkOrder() service.BulkOrder {
	items := make([]service.BulkItem, len(req.Order))
	for i, line := range req.Order {
		items[i] = service.BulkItem{ProductID: line.Product.ID, Quantity: line.Quantity}
	}
	return service.BulkOrder{UserID: req.UserID.optional(), Buyer: req.Buyer, Items: items}
}

// UpdateStatusRequest represents an order status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// PlaceOrderResponse describes a committed checkout
type PlaceOrderResponse struct {
	Message      string          `json:"message"`
	OrderGroupID uuid.UUID       `json:"order_group_id"`
	Orders       []*domain.Order `json:"orders"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// OrderHandler handles order placement and management endpoints
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes mounts the order routes. limiter guards order placement
// and may be nil.
func (h *OrderHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	if limiter == nil {
		limiter = passThrough
	}

	r.Route("/orders", func(r chi.Router) {
		r.With(limiter).Post("/", h.PlaceOrder)
		r.With(limiter).Post("/bulk-order", h.PlaceBulkOrder)
		r.Get("/", h.GetAllOrders)
		r.Get("/export", h.ExportOrders)
		r.Get("/user/{userId}", h.GetOrdersByUserID)
		r.Get("/{id}", h.GetOrderByID)
		r.Put("/{id}", h.UpdateOrderStatus)
	})

	r.Get("/order-groups/{id}", h.GetOrderGroup)
}

// PlaceOrder handles storefront cart checkout
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	placed, err := h.orderService.PlaceOrder(r.Context(), req.checkout())
	if err != nil {
		respondWithServiceError(w, h.logger, "Place order", err)
		return
	}

	h.respondPlaced(w, "Order placed successfully!", placed)
}

// PlaceBulkOrder handles bulk order submissions
func (h *OrderHandler) PlaceBulkOrder(w http.ResponseWriter, r *http.Request) {
	var req BulkOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	placed, err := h.orderService.PlaceBulkOrder(r.Context(), req.bulkOrder())
	if err != nil {
		respondWithServiceError(w, h.logger, "Place bulk order", err)
		return
	}

	h.respondPlaced(w, "Bulk order placed successfully!", placed)
}

func (h *OrderHandler) respondPlaced(w http.ResponseWriter, message string, placed *service.PlacedOrder) {
	h.logger.Info("Order placed",
		zap.String("order_group_id", placed.Group.ID.String()),
		zap.String("source", string(placed.Group.Source)),
		zap.Int("lines", len(placed.Orders)),
	)

	middleware.RespondWithJSON(w, http.StatusCreated, PlaceOrderResponse{
		Message:      message,
		OrderGroupID: placed.Group.ID,
		Orders:       placed.Orders,
		GrandTotal:   placed.GrandTotal,
	})
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := h.orderService.GetOrderByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, "Get order", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.GetAllOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "List orders", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrdersByUserID(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	orders, err := h.orderService.GetOrdersByUserID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, "List user orders", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	if err := h.orderService.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
		respondWithServiceError(w, h.logger, "Update order status", err)
		return
	}

	h.logger.Info("Order status updated", zap.Int64("order_id", id), zap.String("status", req.Status))
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Order status updated successfully"})
}

func (h *OrderHandler) GetOrderGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid order group id")
		return
	}

	group, err := h.orderService.GetOrderGroup(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, "Get order group", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, group)
}

// ExportOrders streams every order as an xlsx attachment. The workbook is
// buffered so a failure can still produce a JSON error.
func (h *OrderHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.orderService.ExportOrders(r.Context(), &buf); err != nil {
		respondWithServiceError(w, h.logger, "Export orders", err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
