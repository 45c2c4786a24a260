package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"freshcart/internal/domain"
	"freshcart/internal/middleware"
	"freshcart/internal/repository"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserService struct {
	signup     func(ctx context.Context, name, email, password string) (*domain.User, error)
	login      func(ctx context.Context, email, password string) (*domain.User, error)
	addUser    func(ctx context.Context, username, email, password string) (*domain.User, error)
	listUsers  func(ctx context.Context) ([]*domain.User, error)
	adminLogin func(username, password string) error
}

func (f *fakeUserService) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	return f.signup(ctx, name, email, password)
}

func (f *fakeUserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return f.login(ctx, email, password)
}

func (f *fakeUserService) AddUser(ctx context.Context, username, email, password string) (*domain.User, error) {
	return f.addUser(ctx, username, email, password)
}

func (f *fakeUserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return f.listUsers(ctx)
}

func (f *fakeUserService) AdminLogin(username, password string) error {
	return f.adminLogin(username, password)
}

type fakeOrderService struct {
	placeOrder     func(ctx context.Context, checkout service.CartCheckout) (*service.PlacedOrder, error)
	placeBulkOrder func(ctx context.Context, order service.BulkOrder) (*service.PlacedOrder, error)
	getOrderByID   func(ctx context.Context, id int64) (*domain.OrderLine, error)
	getAllOrders   func(ctx context.Context) ([]*domain.OrderLine, error)
	getByUserID    func(ctx context.Context, userID int64) ([]*domain.OrderLine, error)
	updateStatus   func(ctx context.Context, id int64, status string) error
	getOrderGroup  func(ctx context.Context, id uuid.UUID) (*domain.OrderGroupDetail, error)
	exportOrders   func(ctx context.Context, w io.Writer) error
}

func (f *fakeOrderService) PlaceOrder(ctx context.Context, checkout service.CartCheckout) (*service.PlacedOrder, error) {
	return f.placeOrder(ctx, checkout)
}

func (f *fakeOrderService) PlaceBulkOrder(ctx context.Context, order service.BulkOrder) (*service.PlacedOrder, error) {
	return f.placeBulkOrder(ctx, order)
}

func (f *fakeOrderService) GetOrderByID(ctx context.Context, id int64) (*domain.OrderLine, error) {
	return f.getOrderByID(ctx, id)
}

func (f *fakeOrderService) GetAllOrders(ctx context.Context) ([]*domain.OrderLine, error) {
	return f.getAllOrders(ctx)
}

func (f *fakeOrderService) GetOrdersByUserID(ctx context.Context, userID int64) ([]*domain.OrderLine, error) {
	return f.getByUserID(ctx, userID)
}

func (f *fakeOrderService) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	return f.updateStatus(ctx, id, status)
}

func (f *fakeOrderService) GetOrderGroup(ctx context.Context, id uuid.UUID) (*domain.OrderGroupDetail, error) {
	return f.getOrderGroup(ctx, id)
}

func (f *fakeOrderService) ExportOrders(ctx context.Context, w io.Writer) error {
	return f.exportOrders(ctx, w)
}

// memoryProductRepository backs a real CatalogService in handler tests.
type memoryProductRepository struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	nextID   int64
}

func newMemoryProductRepository() *memoryProductRepository {
	return &memoryProductRepository{products: make(map[int64]*domain.Product)}
}

func (m *memoryProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	product.ID = m.nextID
	product.CreatedAt = time.Now().UTC()
	m.products[product.ID] = product
	return nil
}

func (m *memoryProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.CreatedAt = existing.CreatedAt
	m.products[product.ID] = product
	return nil
}

func (m *memoryProductRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *memoryProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// newTestRouter mounts handlers under /api the way the server does.
func newTestRouter(mount func(r chi.Router)) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.ErrorHandlingMiddleware(zap.NewNop()))
	router.Route("/api", mount)
	return router
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response.Error.Message
}

func int64Ptr(v int64) *int64 {
	return &v
}
