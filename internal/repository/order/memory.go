package order

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harvest-finance/harvest/internal/entity"
)

// MemoryStore keeps orders in process memory for the lifetime of the
// service. All operations copy on the way in and out so callers never
// alias stored records, and the mutex is held across check and write in
// TransitionStatus.
type MemoryStore struct {
	mu    sync.RWMutex
	items []*entity.Order
	index map[string]int
}

// NewMemoryStore constructs an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// Create assigns identity and lifecycle defaults, then stores the order.
func (s *MemoryStore) Create(_ context.Context, order *entity.Order) error {
	now := time.Now().UTC()
	order.ID = uuid.NewString()
	order.Status = entity.StatusPending
	order.EscrowReference = ""
	order.CreatedAt = now
	order.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *order
	s.index[stored.ID] = len(s.items)
	s.items = append(s.items, &stored)
	return nil
}

// GetByID fetches a copy of the order or returns ErrNotFound.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := *s.items[idx]
	return &found, nil
}

// Save upserts by id and refreshes UpdatedAt.
func (s *MemoryStore) Save(_ context.Context, order *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.UpdatedAt = time.Now().UTC()
	stored := *order
	if idx, ok := s.index[stored.ID]; ok {
		s.items[idx] = &stored
		return nil
	}
	s.index[stored.ID] = len(s.items)
	s.items = append(s.items, &stored)
	return nil
}

// TransitionStatus performs the conditional status update under the lock.
func (s *MemoryStore) TransitionStatus(_ context.Context, id string, from, to entity.OrderStatus) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	current := s.items[idx]
	if current.Status != from {
		return nil, ErrStatusConflict
	}

	updated := *current
	updated.Status = to
	updated.UpdatedAt = time.Now().UTC()
	s.items[idx] = &updated

	found := updated
	return &found, nil
}

// List filters, sorts by CreatedAt descending (insertion order on ties)
// and paginates. The total reflects the filtered count before pagination.
func (s *MemoryStore) List(_ context.Context, f Filter) ([]entity.Order, int, error) {
	s.mu.RLock()
	matched := make([]entity.Order, 0, len(s.items))
	for _, item := range s.items {
		if matches(item, f) {
			matched = append(matched, *item)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset, limit := f.Bounds()
	if offset >= total {
		return []entity.Order{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matches(o *entity.Order, f Filter) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.CropType != "" && o.CropType != f.CropType {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(string(o.CropType)), needle) &&
			!strings.Contains(strings.ToLower(o.BuyerName), needle) {
			return false
		}
	}
	if !f.StartDate.IsZero() && o.CreatedAt.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && o.CreatedAt.After(f.EndDate) {
		return false
	}
	if f.Role == entity.RoleFarmer && o.Status != entity.StatusPending {
		return false
	}
	if f.Role == entity.RoleBuyer && f.UserID != "" && o.BuyerID != f.UserID {
		return false
	}
	return true
}
