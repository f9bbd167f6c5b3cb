// Package inventory keeps the finished-bottle stock, one entry per variety
// and vintage, ages it in bottle and sells it through the market.
package inventory

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/mathx"
	"github.com/talgya/vintner/internal/production"
)

// Entry is one stock line.
type Entry struct {
	Key         string  `json:"key"` // "variety|vintage"
	Variety     string  `json:"variety"`
	VintageYear int     `json:"vintage_year"`
	IsRed       bool    `json:"is_red"`
	Bottles     int     `json:"bottles"`
	Quality     float64 `json:"quality"`
	HasReview   bool    `json:"has_review"`
	ReviewScore int     `json:"review_score"`
	BottledDay  int     `json:"bottled_day"`
}

// Market prices wine and takes the proceeds of a sale.
type Market interface {
	PriceForWine(quality float64, variety string, isRed bool) decimal.Decimal
	ApplyReview(score int)
	Earn(amount decimal.Decimal)
}

// Key builds the canonical stock key.
func Key(variety string, vintage int) string {
	return fmt.Sprintf("%s|%d", variety, vintage)
}

// Ledger is the bottle stock.
type Ledger struct {
	cfg    *config.Config
	market Market
	stock  map[string]*Entry
}

// NewLedger creates an empty ledger selling through market.
func NewLedger(cfg *config.Config, market Market) *Ledger {
	return &Ledger{cfg: cfg, market: market, stock: make(map[string]*Entry)}
}

// InitNewGame clears all stock.
func (l *Ledger) InitNewGame() { clear(l.stock) }

// AddBottles books a bottling run, merging into an existing line with a
// bottle-weighted average quality.
func (l *Ledger) AddBottles(w production.BottledWine) {
	if w.Variety == "" || w.Bottles <= 0 {
		return
	}
	k := Key(w.Variety, w.VintageYear)
	e, ok := l.stock[k]
	if !ok {
		l.stock[k] = &Entry{
			Key:         k,
			Variety:     w.Variety,
			VintageYear: w.VintageYear,
			IsRed:       w.IsRed,
			Bottles:     w.Bottles,
			Quality:     mathx.Clamp(w.InitialQuality, 0, 100),
			BottledDay:  w.BottledDay,
		}
		return
	}
	e.Quality = MergeQuality(e.Quality, e.Bottles, w.InitialQuality, w.Bottles)
	e.Bottles += w.Bottles
}

// MergeQuality is the bottle-weighted mean of two lots, clamped to [0, 100].
// An empty total divides by one.
func MergeQuality(q1 float64, n1 int, q2 float64, n2 int) float64 {
	total := n1 + n2
	if total <= 0 {
		total = 1
	}
	return mathx.Clamp((q1*float64(n1)+q2*float64(n2))/float64(total), 0, 100)
}

// Tick applies in-bottle drift: reds improve until their variety's improve
// window closes, whites fade once past their degrade age.
func (l *Ledger) Tick(day int) {
	b := l.cfg.Bottling
	for _, e := range l.stock {
		v, ok := l.cfg.Variety(e.Variety)
		if !ok {
			continue
		}
		age := float64(day - e.BottledDay)
		if e.IsRed {
			if age < v.BottleImproveDays {
				e.Quality += b.ImprovementPerDay
			}
		} else if age > v.BottleWhiteDegradeStart {
			e.Quality -= b.WhiteDegradePerDay
		}
		e.Quality = mathx.Clamp(e.Quality, 0, 100)
	}
}

// Sell sells qty bottles of a line. Anything but a positive quantity within
// stock of an existing line sells nothing. The first sale of a line earns it a
// review that moves the brand.
func (l *Ledger) Sell(variety string, vintage, qty int) (int, decimal.Decimal) {
	k := Key(variety, vintage)
	e, ok := l.stock[k]
	if !ok || qty <= 0 || qty > e.Bottles || l.market == nil {
		return 0, decimal.Zero
	}

	if !e.HasReview {
		e.ReviewScore = mathx.RoundInt(mathx.Lerp(60, 95, e.Quality/100))
		e.HasReview = true
		l.market.ApplyReview(e.ReviewScore)
		slog.Info("wine reviewed", "wine", k, "score", e.ReviewScore, "quality", e.Quality)
	}

	unit := l.market.PriceForWine(e.Quality, e.Variety, e.IsRed)
	revenue := unit.Mul(decimal.NewFromInt(int64(qty)))
	e.Bottles -= qty
	if e.Bottles <= 0 {
		delete(l.stock, k)
	}
	l.market.Earn(revenue)
	return qty, revenue
}

// Count is the bottles in stock for a line.
func (l *Ledger) Count(variety string, vintage int) int {
	if e, ok := l.stock[Key(variety, vintage)]; ok {
		return e.Bottles
	}
	return 0
}

// Bottles is the total stock across all lines.
func (l *Ledger) Bottles() int {
	n := 0
	for _, e := range l.stock {
		n += e.Bottles
	}
	return n
}

// Entries returns copies of every line sorted by key.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.stock))
	for _, e := range l.stock {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Restore replaces the stock with saved lines. Older saves keyed lines as
// "variety_vintage" or left the variety fields empty; those are rebuilt from
// the key and filed under the canonical one. Lines that collide are merged.
func (l *Ledger) Restore(entries []Entry) {
	clear(l.stock)
	for _, e := range entries {
		if e.Variety == "" {
			v, y, ok := parseKey(e.Key)
			if !ok {
				slog.Warn("dropping unreadable stock line", "key", e.Key)
				continue
			}
			e.Variety, e.VintageYear = v, y
		}
		e.Key = Key(e.Variety, e.VintageYear)
		e.Quality = mathx.Clamp(e.Quality, 0, 100)

		if prev, ok := l.stock[e.Key]; ok {
			prev.Quality = MergeQuality(prev.Quality, prev.Bottles, e.Quality, e.Bottles)
			prev.Bottles += e.Bottles
			prev.HasReview = prev.HasReview || e.HasReview
			prev.ReviewScore = max(prev.ReviewScore, e.ReviewScore)
			prev.BottledDay = min(prev.BottledDay, e.BottledDay)
			continue
		}
		cp := e
		l.stock[e.Key] = &cp
	}
}

// parseKey reads "variety|vintage" or the older "variety_vintage".
func parseKey(k string) (string, int, bool) {
	i := strings.LastIndex(k, "|")
	if i < 0 {
		i = strings.LastIndex(k, "_")
	}
	if i <= 0 {
		return "", 0, false
	}
	y, err := strconv.Atoi(k[i+1:])
	if err != nil {
		return "", 0, false
	}
	return k[:i], y, true
}
