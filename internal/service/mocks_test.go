package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"freshcart/internal/domain"
	"freshcart/internal/repository"

	"github.com/google/uuid"
)

// txStore is a mock store whose state can be restored when a transaction
// rolls back.
type txStore interface {
	snapshot() (restore func())
}

type mockTransactor struct {
	stores []txStore
	calls  int
}

func newMockTransactor(stores ...txStore) *mockTransactor {
	return &mockTransactor{stores: stores}
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type mockUserRepository struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[string]*domain.User, len(m.users))
	for k, v := range m.users {
		saved[k] = v
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.users = saved
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type mockProductRepository struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	nextID   int64
	findErr  error
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[int64]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	product.ID = m.nextID
	product.CreatedAt = time.Now()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
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

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	products := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

type mockOrderRepository struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*domain.OrderGroup
	orders []*domain.Order
	nextID int64
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{groups: make(map[uuid.UUID]*domain.OrderGroup)}
}

func (m *mockOrderRepository) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	groups := make(map[uuid.UUID]*domain.OrderGroup, len(m.groups))
	for k, v := range m.groups {
		groups[k] = v
	}
	orders := append([]*domain.Order(nil), m.orders...)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.groups = groups
		m.orders = orders
	}
}

func (m *mockOrderRepository) CreateGroup(ctx context.Context, group *domain.OrderGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = group
	return nil
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.GroupID == nil || m.groups[*order.GroupID] == nil {
		return errors.New("order group does not exist")
	}
	m.nextID++
	order.ID = m.nextID
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return &domain.OrderLine{Order: *o}, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) FindGroupByID(ctx context.Context, id uuid.UUID) (*domain.OrderGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.groups[id]
	if !ok {
		return nil, repository.ErrOrderGroupNotFound
	}
	return group, nil
}

func (m *mockOrderRepository) List(ctx context.Context) ([]*domain.OrderLine, error) {
	return m.filter(func(*domain.Order) bool { return true }, true), nil
}

func (m *mockOrderRepository) ListByUserID(ctx context.Context, userID int64) ([]*domain.OrderLine, error) {
	return m.filter(func(o *domain.Order) bool {
		return o.UserID != nil && *o.UserID == userID
	}, true), nil
}

func (m *mockOrderRepository) ListByGroupID(ctx context.Context, groupID uuid.UUID) ([]*domain.OrderLine, error) {
	return m.filter(func(o *domain.Order) bool {
		return o.GroupID != nil && *o.GroupID == groupID
	}, false), nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			o.Status = status
			o.UpdatedAt = &updatedAt
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockOrderRepository) filter(keep func(*domain.Order) bool, newestFirst bool) []*domain.OrderLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := []*domain.OrderLine{}
	for _, o := range m.orders {
		if keep(o) {
			lines = append(lines, &domain.OrderLine{Order: *o})
		}
	}
	if newestFirst {
		sort.SliceStable(lines, func(i, j int) bool {
			if lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
				return lines[i].ID > lines[j].ID
			}
			return lines[i].CreatedAt.After(lines[j].CreatedAt)
		})
	}
	return lines
}

func (m *mockOrderRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *mockOrderRepository) groupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.groups)
}

type publishedEvent struct {
	routingKey string
	payload    interface{}
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{routingKey: routingKey, payload: payload})
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}
