package order

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"

	"github.com/harvest-finance/harvest/internal/config"
	"github.com/harvest-finance/harvest/internal/database"
	"github.com/harvest-finance/harvest/internal/entity"
)

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrStatusConflict is returned by TransitionStatus when the order exists
// but is no longer in the expected status.
var ErrStatusConflict = errors.New("order status conflict")

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Filter narrows List results. Zero values mean "no constraint"; set
// fields combine with logical AND.
type Filter struct {
	Status   entity.OrderStatus
	CropType entity.CropType
	// Search matches case-insensitively against crop type or buyer name.
	Search string
	// StartDate and EndDate bound CreatedAt inclusively.
	StartDate time.Time
	EndDate   time.Time
	// Role and UserID apply listing visibility: farmers only see PENDING
	// orders, buyers only see their own.
	Role   entity.Role
	UserID string
	Page   int
	Limit  int
}

// Bounds resolves pagination defaults and returns the slice offset and
// limit for the filtered result set.
func (f Filter) Bounds() (offset, limit int) {
	page := f.Page
	if page < 1 {
		page = defaultPage
	}
	limit = f.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	return (page - 1) * limit, limit
}

// Store keeps order records. Implementations must refresh UpdatedAt on
// every mutation and make TransitionStatus atomic with respect to
// concurrent callers, so two accepts on the same order cannot both pass
// the status check.
type Store interface {
	// Create assigns a fresh id, sets status PENDING and timestamps, and
	// persists the order.
	Create(ctx context.Context, order *entity.Order) error
	// GetByID fetches an order or returns ErrNotFound.
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	// Save upserts by id, refreshing UpdatedAt as a side effect.
	Save(ctx context.Context, order *entity.Order) error
	// TransitionStatus moves the order from one status to another only if
	// it is still in the expected status, returning the updated order.
	// Returns ErrNotFound or ErrStatusConflict otherwise.
	TransitionStatus(ctx context.Context, id string, from, to entity.OrderStatus) (*entity.Order, error)
	// List returns one page of matching orders plus the total match count
	// before pagination, sorted by CreatedAt descending.
	List(ctx context.Context, f Filter) ([]entity.Order, int, error)
}

// Module provides the order store to Fx.
var Module = fx.Provide(NewStore)

// NewStore selects the store backing from configuration: the in-memory
// store for the memory driver, the SQL store otherwise.
func NewStore(cfg config.Config, conns *database.Connections) (Store, error) {
	if cfg.Database.InMemory() {
		return NewMemoryStore(), nil
	}
	if !conns.SQL() {
		return nil, errors.New("sql order store requires database connections")
	}
	return NewSQLStore(conns), nil
}
