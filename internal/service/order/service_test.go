package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/auth"
	"github.com/harvest-finance/harvest/internal/config"
	"github.com/harvest-finance/harvest/internal/entity"
	repo "github.com/harvest-finance/harvest/internal/repository/order"
	"github.com/harvest-finance/harvest/pkg/errorbank"
)

// stubProvider lets each test script the escrow outcome.
type stubProvider struct {
	fn    func(ctx context.Context, buyerID, farmerKey, amount string) (string, error)
	calls int
	mu    sync.Mutex
}

func (s *stubProvider) CreateEscrow(ctx context.Context, buyerID, farmerKey, amount string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(ctx, buyerID, farmerKey, amount)
}

func newTestService(store repo.Store, provider *stubProvider) *Service {
	cfg, _ := config.New()
	cfg.Messaging.Enabled = false
	cfg.Escrow.Timeout = 100 * time.Millisecond

	return NewService(Params{
		Store:    store,
		Provider: provider,
		Cache:    nil,
		Config:   cfg,
		Logger:   zap.NewNop(),
	})
}

var (
	buyer  = auth.Identity{ID: "B1", Name: "Buyer One", Role: entity.RoleBuyer}
	farmer = auth.Identity{ID: "F1", Name: "Farmer One", PublicKey: "GFARMERKEY", Role: entity.RoleFarmer}
)

func createWheatOrder(t *testing.T, svc *Service) *entity.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), buyer, CreateInput{
		CropType: entity.CropWheat,
		Quantity: decimal.NewFromInt(10),
		Price:    decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	return order
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(repo.NewMemoryStore(), &stubProvider{})

	order := createWheatOrder(t, svc)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "B1", order.BuyerID)
	assert.Equal(t, entity.StatusPending, order.Status)
	assert.Empty(t, order.EscrowReference)
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(repo.NewMemoryStore(), &stubProvider{})

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestAcceptSuccess(t *testing.T) {
	store := repo.NewMemoryStore()
	provider := &stubProvider{fn: func(ctx context.Context, buyerID, farmerKey, amount string) (string, error) {
		assert.Equal(t, "B1", buyerID)
		assert.Equal(t, "GFARMERKEY", farmerKey)
		assert.Equal(t, "20", amount)
		return "tx-1", nil
	}}
	svc := newTestService(store, provider)

	order := createWheatOrder(t, svc)

	accepted, err := svc.Accept(context.Background(), order.ID, farmer)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInEscrow, accepted.Status)
	assert.Equal(t, "tx-1", accepted.EscrowReference)

	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInEscrow, stored.Status)
	assert.Equal(t, "tx-1", stored.EscrowReference)
}

func TestAcceptTwiceConflicts(t *testing.T) {
	store := repo.NewMemoryStore()
	provider := &stubProvider{fn: func(context.Context, string, string, string) (string, error) {
		return "tx-1", nil
	}}
	svc := newTestService(store, provider)

	order := createWheatOrder(t, svc)

	_, err := svc.Accept(context.Background(), order.ID, farmer)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), order.ID, farmer)
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))

	// The stored order is untouched by the failed second accept.
	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInEscrow, stored.Status)
	assert.Equal(t, "tx-1", stored.EscrowReference)
}

func TestAcceptNotFound(t *testing.T) {
	svc := newTestService(repo.NewMemoryStore(), &stubProvider{})

	_, err := svc.Accept(context.Background(), "missing", farmer)
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestAcceptEscrowFailureRollsBack(t *testing.T) {
	store := repo.NewMemoryStore()
	provider := &stubProvider{fn: func(context.Context, string, string, string) (string, error) {
		return "", errors.New("horizon unreachable")
	}}
	svc := newTestService(store, provider)

	order := createWheatOrder(t, svc)

	_, err := svc.Accept(context.Background(), order.ID, farmer)
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindUnprocessableEntity))
	// The provider error never leaks into the caller-facing message.
	assert.NotContains(t, err.Error(), "horizon unreachable")

	stored, getErr := store.GetByID(context.Background(), order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusPending, stored.Status)
	assert.Empty(t, stored.EscrowReference)
}

func TestAcceptEscrowTimeoutRollsBack(t *testing.T) {
	store := repo.NewMemoryStore()
	provider := &stubProvider{fn: func(ctx context.Context, _, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := newTestService(store, provider)

	order := createWheatOrder(t, svc)

	_, err := svc.Accept(context.Background(), order.ID, farmer)
	assert.True(t, errorbank.IsKind(err, errorbank.KindUnprocessableEntity))

	stored, getErr := store.GetByID(context.Background(), order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusPending, stored.Status)
	assert.Empty(t, stored.EscrowReference)
}

func TestAcceptRetriesAfterRollback(t *testing.T) {
	store := repo.NewMemoryStore()
	fail := true
	provider := &stubProvider{fn: func(context.Context, string, string, string) (string, error) {
		if fail {
			return "", errors.New("transient")
		}
		return "tx-2", nil
	}}
	svc := newTestService(store, provider)

	order := createWheatOrder(t, svc)

	_, err := svc.Accept(context.Background(), order.ID, farmer)
	require.Error(t, err)

	// The rollback returned the order to PENDING, so a later accept works.
	fail = false
	accepted, err := svc.Accept(context.Background(), order.ID, farmer)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInEscrow, accepted.Status)
	assert.Equal(t, "tx-2", accepted.EscrowReference)
}

func TestAcceptConcurrentSingleWinner(t *testing.T) {
	store := repo.NewMemoryStore()
	provider := &stubProvider{fn: func(context.Context, string, string, string) (string, error) {
		return "tx-1", nil
	}}
	svc := newTestService(store, provider)

	order := createWheatOrder(t, svc)

	const attempts = 12
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Accept(context.Background(), order.ID, farmer)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if errorbank.IsKind(err, errorbank.KindConflict) {
			conflicts++
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, provider.calls)
}

func TestListDelegatesFilter(t *testing.T) {
	store := repo.NewMemoryStore()
	svc := newTestService(store, &stubProvider{})

	for i := 0; i < 3; i++ {
		createWheatOrder(t, svc)
	}

	orders, total, err := svc.List(context.Background(), repo.Filter{Status: entity.StatusPending, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, orders, 2)
}
