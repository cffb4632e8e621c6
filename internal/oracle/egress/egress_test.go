package egress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostEstimator_CanAffordRespectsLimit(t *testing.T) {
	est := NewCostEstimator(100) // 1 dollar ceiling
	ok, cents := est.CanAfford("gpt-4o-mini", 1_000_000, 0)
	require.True(t, ok)
	assert.InDelta(t, 15.0, cents, 0.01)

	est.Record("gpt-4o-mini", 1_000_000, 0)
	ok, _ = est.CanAfford("gpt-4o-mini", 1_000_000, 2_000_000) // 15 recorded + 15 + 120 cents > 100
	assert.False(t, ok)
}

func TestCostEstimator_UnknownModelFallsBackConservatively(t *testing.T) {
	est := NewCostEstimator(0)
	_, cents := est.CanAfford("some-brand-new-model", 1_000_000, 1_000_000)
	assert.InDelta(t, 2000.0, cents, 0.01) // ($5 + $15) for 1M/1M = 2000 cents
}

func TestTokenBudget_CanSpend(t *testing.T) {
	b := NewTokenBudget(1000)
	ok, remaining := b.CanSpend(400)
	require.True(t, ok)
	assert.Equal(t, 600, remaining)

	b.Record(400)
	ok, _ = b.CanSpend(700)
	assert.False(t, ok)
	assert.Equal(t, 600, b.Remaining())
}

func TestTokenBudget_UnlimitedWhenZero(t *testing.T) {
	b := NewTokenBudget(0)
	ok, _ := b.CanSpend(1_000_000_000)
	assert.True(t, ok)
	assert.Equal(t, -1, b.Remaining())
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"openai": 2})

	ok, _ := rl.Allow("openai")
	assert.True(t, ok)
	ok, _ = rl.Allow("openai")
	assert.True(t, ok)
	ok, wait := rl.Allow("openai")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}

func TestRateLimiter_UnconfiguredProviderNeverLimited(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"openai": 1})
	for i := 0; i < 5; i++ {
		ok, _ := rl.Allow("local")
		assert.True(t, ok)
	}
}

func TestGuard_PreFlightBlocksOnExhaustedBudget(t *testing.T) {
	g := NewGuard("openai", nil, NewTokenBudget(100), nil)
	_, err := g.PreFlight(context.Background(), "gpt-4o-mini", 50, 40)
	require.NoError(t, err)
	// PreFlight does not consume budget; Record does.
	g.Record("gpt-4o-mini", 50, 40, time.Millisecond)

	_, err = g.PreFlight(context.Background(), "gpt-4o-mini", 50, 40)
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
}

func TestGuard_PreFlightBlocksOnCostCeiling(t *testing.T) {
	g := NewGuard("openai", nil, nil, NewCostEstimator(1)) // 1 cent ceiling
	_, err := g.PreFlight(context.Background(), "gpt-4o", 1_000_000, 1_000_000)
	assert.True(t, errors.Is(err, ErrCostExceeded))
}

func TestGuard_RecordUpdatesMetrics(t *testing.T) {
	g := NewGuard("openai", nil, NewTokenBudget(0), NewCostEstimator(0))
	_, err := g.PreFlight(context.Background(), "gpt-4o-mini", 10, 10)
	require.NoError(t, err)
	g.Record("gpt-4o-mini", 10, 10, 5*time.Millisecond)

	assert.Equal(t, 1, g.Metrics().TotalCalls)
	assert.Equal(t, 10, g.Metrics().InputTokens)
}
