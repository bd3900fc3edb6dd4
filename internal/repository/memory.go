package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

// MemoryCartRepository keeps carts in process memory. Values are copied on the
// way in and out so callers never share line item slices with the store.
type MemoryCartRepository struct {
	mu      sync.RWMutex
	byUser  map[uuid.UUID]Cart
	userIDs map[uuid.UUID]uuid.UUID
	now     func() time.Time
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		byUser:  map[uuid.UUID]Cart{},
		userIDs: map[uuid.UUID]uuid.UUID{},
		now:     time.Now,
	}
}

func (m *MemoryCartRepository) FindCartByUserId(_ context.Context, userID uuid.UUID) (Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cart, ok := m.byUser[userID]
	if !ok {
		return Cart{}, inErrors.ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (m *MemoryCartRepository) CreateCart(_ context.Context, userID uuid.UUID) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cart, ok := m.byUser[userID]; ok {
		return cart.Clone(), nil
	}
	now := m.now()
	cart := Cart{
		ID:        uuid.New(),
		UserID:    userID,
		LineItems: []LineItem{},
		Status:    CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.byUser[userID] = cart
	m.userIDs[cart.ID] = userID
	return cart.Clone(), nil
}

func (m *MemoryCartRepository) SaveCart(_ context.Context, cart Cart) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.userIDs[cart.ID]
	if !ok {
		return Cart{}, inErrors.ErrCartNotFound
	}
	stored := m.byUser[userID]
	if stored.Revision != cart.Revision {
		return Cart{}, inErrors.ErrRevisionConflict
	}

	saved := cart.Clone()
	saved.UserID = userID
	saved.CreatedAt = stored.CreatedAt
	saved.Revision = stored.Revision + 1
	saved.UpdatedAt = m.now()
	m.byUser[userID] = saved
	return saved.Clone(), nil
}

func (m *MemoryCartRepository) DeleteCart(_ context.Context, cartID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.userIDs[cartID]
	if !ok {
		return nil
	}
	delete(m.userIDs, cartID)
	delete(m.byUser, userID)
	return nil
}

type MemoryCatalogRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
	now      func() time.Time
}

func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{products: map[uuid.UUID]Product{}, now: time.Now}
}

func (m *MemoryCatalogRepository) FindProductById(_ context.Context, id uuid.UUID) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return Product{}, inErrors.ErrProductNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryCatalogRepository) FindProducts(_ context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p.Clone())
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID.String() < products[j].ID.String()
		}
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, nil
}

func (m *MemoryCatalogRepository) SaveProduct(_ context.Context, p Product) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.products[p.ID]; ok && p.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}
	saved, err := prepareProduct(p, m.now())
	if err != nil {
		return Product{}, err
	}
	m.products[saved.ID] = saved
	return saved.Clone(), nil
}

func (m *MemoryCatalogRepository) DeleteProduct(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return inErrors.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}
