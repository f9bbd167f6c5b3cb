package engine

import (
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// StatsHistoryDays is how many daily snapshots are kept.
const StatsHistoryDays = 370

// DayStats is one day's snapshot. Revenue and expenses are proxies taken from
// the cash delta, so a day with both shows only the net.
type DayStats struct {
	Day         int             `json:"day"`
	Cash        decimal.Decimal `json:"cash"`
	Revenue     decimal.Decimal `json:"revenue"`
	Expenses    decimal.Decimal `json:"expenses"`
	Bottles     int             `json:"bottles"`
	MarketIndex float64         `json:"market_index"`
	BrandLevel  float64         `json:"brand_level"`
}

// Stats is a bounded daily history, most recent last.
type Stats struct {
	limit    int
	prevCash decimal.Decimal
	days     []DayStats
}

// NewStats keeps up to limit days.
func NewStats(limit int) *Stats {
	return &Stats{limit: max(1, limit)}
}

// Reset drops the history and takes cash as the baseline for the next delta.
func (st *Stats) Reset(cash decimal.Decimal) {
	st.prevCash = cash
	st.days = st.days[:0]
}

// Restore replaces the history with saved days, keeping the most recent
// limit, and takes cash as the baseline for the next delta.
func (st *Stats) Restore(days []DayStats, cash decimal.Decimal) {
	st.prevCash = cash
	if len(days) > st.limit {
		days = days[len(days)-st.limit:]
	}
	st.days = append(st.days[:0], days...)
}

// Record appends a snapshot, filling in revenue and expenses from the change
// in cash since the previous one.
func (st *Stats) Record(d DayStats) DayStats {
	delta := d.Cash.Sub(st.prevCash)
	d.Revenue, d.Expenses = decimal.Zero, decimal.Zero
	if delta.IsPositive() {
		d.Revenue = delta
	} else {
		d.Expenses = delta.Neg()
	}
	st.prevCash = d.Cash

	st.days = append(st.days, d)
	if len(st.days) > st.limit {
		st.days = append(st.days[:0], st.days[len(st.days)-st.limit:]...)
	}
	return d
}

// Last returns up to n of the most recent days.
func (st *Stats) Last(n int) []DayStats {
	n = min(max(0, n), len(st.days))
	out := make([]DayStats, n)
	copy(out, st.days[len(st.days)-n:])
	return out
}

// Len is the number of days held.
func (st *Stats) Len() int { return len(st.days) }

func (s *Simulation) resetStats() {
	if s.Stats == nil {
		return
	}
	cash := decimal.Zero
	if s.Market != nil {
		cash = s.Market.Cash()
	}
	s.Stats.Reset(cash)
}

func (s *Simulation) recordStats() {
	if s.Stats == nil {
		return
	}
	d := DayStats{Day: s.Day}
	if s.Market != nil {
		st := s.Market.State()
		d.Cash, d.MarketIndex, d.BrandLevel = st.Cash, st.MarketIndex, st.BrandLevel
	}
	if s.Inventory != nil {
		d.Bottles = s.Inventory.Bottles()
	}
	d = s.Stats.Record(d)

	slog.Info("daily report",
		"day", s.Day,
		"time", SimTime(s.Day, s.daysPerYear()),
		"cash", "€"+humanize.Comma(d.Cash.IntPart()),
		"revenue", "€"+humanize.Comma(d.Revenue.IntPart()),
		"expenses", "€"+humanize.Comma(d.Expenses.IntPart()),
		"bottles", humanize.Comma(int64(d.Bottles)),
		"market_index", humanize.FtoaWithDigits(d.MarketIndex, 3),
		"brand", humanize.FtoaWithDigits(d.BrandLevel, 3),
	)
}
