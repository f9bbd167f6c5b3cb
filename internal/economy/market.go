// Package economy holds the winery's money and the wine market: cash, a
// bounded market index that drifts day to day, and a brand level moved by
// reviews.
package economy

import (
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/entropy"
	"github.com/talgya/vintner/internal/mathx"
)

// State is the persisted market. Cash is kept in whole euros.
type State struct {
	Cash        decimal.Decimal `json:"cash"`
	MarketIndex float64         `json:"market_index"`
	BrandLevel  float64         `json:"brand_level"`
}

// Market is the cash account and price model.
type Market struct {
	cfg   *config.Config
	seed  int64
	state State
}

// NewMarket creates a market whose daily walk is keyed by seed.
func NewMarket(cfg *config.Config, seed int64) *Market {
	return &Market{cfg: cfg, seed: seed}
}

// InitNewGame sets starting cash, the index midway between its bounds and a
// neutral brand.
func (m *Market) InitNewGame() {
	m.state = State{
		Cash:        decimal.NewFromInt(m.cfg.Economy.StartingCash),
		MarketIndex: mathx.Lerp(m.cfg.Market.IndexMin, m.cfg.Market.IndexMax, 0.5),
		BrandLevel:  1,
	}
}

// Restore loads saved state as is.
func (m *Market) Restore(s State) { m.state = s }

// State returns the current state.
func (m *Market) State() State { return m.state }

// Cash is the current balance.
func (m *Market) Cash() decimal.Decimal { return m.state.Cash }

// Tick moves the index by a uniform step within ±StepMax and clamps it. The
// step for a given day is the same on every replay.
func (m *Market) Tick(day int) {
	c := m.cfg.Market
	r := entropy.DayStream(m.seed, "market", day)
	m.state.MarketIndex = mathx.Clamp(m.state.MarketIndex+entropy.Signed(r)*c.StepMax, c.IndexMin, c.IndexMax)
}

// PriceForWine is the unit price of a bottle in whole euros.
func (m *Market) PriceForWine(quality float64, variety string, isRed bool) decimal.Decimal {
	c := m.cfg.Market
	base := mathx.Lerp(c.PriceLow, c.PriceHigh, quality/100)
	brand := mathx.Lerp(0.9, 1.3, m.state.BrandLevel-0.5)
	price := base * m.state.MarketIndex * brand
	if slices.Contains(c.PremiumVarieties, variety) {
		price *= c.PremiumMultiplier
	}
	if isRed {
		price *= c.RedMultiplier
	}
	return decimal.NewFromFloat(price).Round(0)
}

// ApplyReview nudges the brand by the score's distance from neutral, at most
// -0.02 or +0.06 per review.
func (m *Market) ApplyReview(score int) {
	c := m.cfg.Market
	delta := mathx.Clamp((float64(score)-c.ReviewNeutral)/1000, -0.02, 0.06)
	m.state.BrandLevel = mathx.Clamp(m.state.BrandLevel+delta, c.BrandMin, c.BrandMax)
	slog.Debug("brand moved", "score", score, "brand", m.state.BrandLevel)
}

// TrySpend debits amount if the balance covers it.
func (m *Market) TrySpend(amount int) bool {
	if amount < 0 {
		return false
	}
	d := decimal.NewFromInt(int64(amount))
	if m.state.Cash.LessThan(d) {
		return false
	}
	m.state.Cash = m.state.Cash.Sub(d)
	return true
}

// Earn credits amount. Negative amounts are ignored.
func (m *Market) Earn(amount decimal.Decimal) {
	if amount.IsNegative() {
		return
	}
	m.state.Cash = m.state.Cash.Add(amount)
}
