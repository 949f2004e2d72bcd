package escrow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/config"
)

func testConfig(driver, horizonURL string) config.Config {
	cfg, _ := config.New()
	cfg.Escrow.Driver = driver
	cfg.Escrow.HorizonURL = horizonURL
	return cfg
}

func TestSimulatedProviderFabricatesReference(t *testing.T) {
	provider, err := NewProvider(testConfig("simulated", ""), zap.NewNop())
	require.NoError(t, err)

	ref, err := provider.CreateEscrow(context.Background(), "B1", "GFARMERKEY", "25.00")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "simulated-tx-"), "got %q", ref)
}

func TestHorizonProviderStillSimulates(t *testing.T) {
	provider, err := NewProvider(testConfig("horizon", "https://horizon.example"), zap.NewNop())
	require.NoError(t, err)

	ref, err := provider.CreateEscrow(context.Background(), "B1", "GFARMERKEY", "25.00")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "stellar-simulated-"), "got %q", ref)
}

func TestProviderReferencesAreUnique(t *testing.T) {
	provider, err := NewProvider(testConfig("simulated", ""), zap.NewNop())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		ref, err := provider.CreateEscrow(context.Background(), "B1", "GFARMERKEY", "1")
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %q", ref)
		seen[ref] = true
	}
}

func TestCreateEscrowHonoursCancelledContext(t *testing.T) {
	provider, err := NewProvider(testConfig("simulated", ""), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = provider.CreateEscrow(ctx, "B1", "GFARMERKEY", "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProviderRejectsUnknownDriver(t *testing.T) {
	_, err := NewProvider(testConfig("lightning", ""), zap.NewNop())
	assert.Error(t, err)
}
