package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in process memory. A single lock makes every operation atomic,
// which gives ToggleFavorite the same guarantees as the PostgreSQL implementation.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[uuid.UUID]Product
	users     map[uuid.UUID]User
	emails    map[string]uuid.UUID
	favorites map[uuid.UUID][]uuid.UUID
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[uuid.UUID]Product),
		users:     make(map[uuid.UUID]User),
		emails:    make(map[string]uuid.UUID),
		favorites: make(map[uuid.UUID][]uuid.UUID),
		now:       time.Now,
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) FindProductByID(_ context.Context, id uuid.UUID) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, marketerrors.ErrProductNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ProductExists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.products[id]
	return ok, nil
}

func (m *MemoryStore) ListProducts(_ context.Context, filter ProductFilter) ([]Product, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		if search == "" || strings.Contains(strings.ToLower(p.Title), search) {
			matched = append(matched, p)
		}
	}
	slices.SortFunc(matched, compareProducts)

	total := int64(len(matched))
	start := total
	if filter.Offset >= 0 && filter.Offset < total {
		start = filter.Offset
	}
	end := min(start+int64(max(filter.Limit, 0)), total)
	return matched[start:end], total, nil
}

// compareProducts orders by creation time, then id, matching the SQL ORDER BY.
func compareProducts(a, b Product) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

func (m *MemoryStore) CreateProduct(_ context.Context, product Product) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := m.now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	m.products[product.ID] = product
	return &product, nil
}

func (m *MemoryStore) UpdateProduct(_ context.Context, id uuid.UUID, patch ProductPatch) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, marketerrors.ErrProductNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	p.UpdatedAt = m.now().UTC()
	m.products[id] = p
	return &p, nil
}

func (m *MemoryStore) DeleteProduct(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return marketerrors.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[user.Email]; taken {
		return nil, marketerrors.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = m.now().UTC()
	m.users[user.ID] = user
	m.emails[user.Email] = user.ID
	m.favorites[user.ID] = nil
	return &user, nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return nil, marketerrors.ErrUserNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, marketerrors.ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryStore) ToggleFavorite(_ context.Context, userID, productID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return false, marketerrors.ErrUserNotFound
	}
	if m.removeLocked(userID, productID) {
		return false, nil
	}
	m.addLocked(userID, productID)
	return true, nil
}

func (m *MemoryStore) Favorites(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.users[userID]; !ok {
		return nil, marketerrors.ErrUserNotFound
	}
	set := m.favorites[userID]
	out := make([]uuid.UUID, len(set))
	copy(out, set)
	return out, nil
}

func (m *MemoryStore) removeLocked(userID, productID uuid.UUID) bool {
	set := m.favorites[userID]
	i := slices.Index(set, productID)
	if i < 0 {
		return false
	}
	m.favorites[userID] = slices.Delete(set, i, i+1)
	return true
}

func (m *MemoryStore) addLocked(userID, productID uuid.UUID) {
	if !slices.Contains(m.favorites[userID], productID) {
		m.favorites[userID] = append(m.favorites[userID], productID)
	}
}
