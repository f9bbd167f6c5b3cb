package economy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/vintner/internal/config"
)

func newMarket() (*Market, *config.Config) {
	cfg := config.Default()
	m := NewMarket(cfg, cfg.Seed)
	m.InitNewGame()
	return m, cfg
}

func TestNewGameState(t *testing.T) {
	m, cfg := newMarket()
	s := m.State()
	assert.True(t, s.Cash.Equal(decimal.NewFromInt(cfg.Economy.StartingCash)))
	assert.InDelta(t, (cfg.Market.IndexMin+cfg.Market.IndexMax)/2, s.MarketIndex, 1e-12)
	assert.Equal(t, 1.0, s.BrandLevel)
}

func TestTickStaysInBoundsAndReplays(t *testing.T) {
	a, cfg := newMarket()
	b, _ := newMarket()
	for day := 0; day < 2000; day++ {
		before := a.State().MarketIndex
		a.Tick(day)
		b.Tick(day)
		idx := a.State().MarketIndex
		assert.GreaterOrEqual(t, idx, cfg.Market.IndexMin)
		assert.LessOrEqual(t, idx, cfg.Market.IndexMax)
		assert.LessOrEqual(t, idx-before, cfg.Market.StepMax+1e-12)
		assert.GreaterOrEqual(t, idx-before, -cfg.Market.StepMax-1e-12)
	}
	assert.Equal(t, a.State().MarketIndex, b.State().MarketIndex)
}

func TestPriceForWine(t *testing.T) {
	m, _ := newMarket()
	// Index 1.0, brand 1.0: base × lerp(0.9, 1.3, 0.5) = base × 1.1.
	m.Restore(State{Cash: decimal.Zero, MarketIndex: 1, BrandLevel: 1})

	assert.True(t, m.PriceForWine(10, "Chardonnay", false).Equal(decimal.NewFromInt(18)))   // 16.5×1.1
	assert.True(t, m.PriceForWine(100, "Chardonnay", false).Equal(decimal.NewFromInt(132))) // 120×1.1
	// 62.5 × 1.1 × 1.1 × 1.05 = 79.40...
	assert.True(t, m.PriceForWine(50, "Pinot Noir", true).Equal(decimal.NewFromInt(79)))

	low := m.PriceForWine(40, "Chardonnay", false)
	high := m.PriceForWine(80, "Chardonnay", false)
	assert.True(t, high.GreaterThan(low))
}

func TestApplyReviewMovesBrandWithinBounds(t *testing.T) {
	m, cfg := newMarket()
	m.ApplyReview(95)
	assert.InDelta(t, 1.025, m.State().BrandLevel, 1e-12)
	m.ApplyReview(60)
	assert.InDelta(t, 1.015, m.State().BrandLevel, 1e-12)
	m.ApplyReview(0)
	assert.InDelta(t, 0.995, m.State().BrandLevel, 1e-12)

	for i := 0; i < 1000; i++ {
		m.ApplyReview(100)
	}
	assert.Equal(t, cfg.Market.BrandMax, m.State().BrandLevel)
	for i := 0; i < 1000; i++ {
		m.ApplyReview(0)
	}
	assert.Equal(t, cfg.Market.BrandMin, m.State().BrandLevel)
}

func TestSpendAndEarn(t *testing.T) {
	m, _ := newMarket()
	m.Restore(State{Cash: decimal.NewFromInt(100), MarketIndex: 1, BrandLevel: 1})

	require.True(t, m.TrySpend(60))
	assert.False(t, m.TrySpend(41))
	assert.False(t, m.TrySpend(-5))
	assert.True(t, m.Cash().Equal(decimal.NewFromInt(40)))

	m.Earn(decimal.NewFromInt(15))
	m.Earn(decimal.NewFromInt(-100))
	assert.True(t, m.Cash().Equal(decimal.NewFromInt(55)))
	assert.True(t, m.TrySpend(55))
	assert.True(t, m.Cash().IsZero())
}
