package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/talgya/vintner/internal/production"
	"github.com/talgya/vintner/internal/vineyard"
)

// Disposition says where a harvest ended up.
type Disposition string

const (
	DispositionNone      Disposition = ""
	DispositionTank      Disposition = "tank"
	DispositionWholesale Disposition = "wholesale"
	DispositionDiscarded Disposition = "discarded"
)

// Fallback disposes of a harvest the cellar could not take and reports what
// it earned.
type Fallback func(s *Simulation, b vineyard.GrapeBatch) (Disposition, decimal.Decimal)

// Wholesale sells the grapes at the configured price per kilogram, rounded to
// whole euros.
func Wholesale(s *Simulation, b vineyard.GrapeBatch) (Disposition, decimal.Decimal) {
	revenue := decimal.NewFromFloat(float64(b.Kg) * s.Cfg.Economy.GrapeWholesalePerKg).Round(0)
	if s.Market != nil {
		s.Market.Earn(revenue)
	}
	return DispositionWholesale, revenue
}

// HarvestResult reports a harvest command. Batch is only meaningful when
// Harvested is true.
type HarvestResult struct {
	Harvested   bool                `json:"harvested"`
	Batch       vineyard.GrapeBatch `json:"batch"`
	Disposition Disposition         `json:"disposition"`
	TankID      string              `json:"tank_id,omitempty"`
	Revenue     decimal.Decimal     `json:"revenue"`
}

// BuyPlot buys a locked plot.
func (s *Simulation) BuyPlot(index int) bool {
	if s.Vineyard == nil || s.Market == nil {
		return false
	}
	ok := s.Vineyard.BuyPlot(index, s.Market)
	slog.Debug("buy plot", "plot", index, "ok", ok)
	return ok
}

// Plant plants a variety on an owned empty plot.
func (s *Simulation) Plant(index int, variety string) bool {
	if s.Vineyard == nil || s.Market == nil {
		return false
	}
	ok := s.Vineyard.Plant(index, variety, s.Year(), s.Market)
	slog.Debug("plant", "plot", index, "variety", variety, "ok", ok)
	return ok
}

// Harvest picks a ready plot and sends the grapes to a tank with the given
// yeast. An unknown yeast refuses the harvest and leaves the plot as it was.
// When no tank fits, fallback decides what happens to the grapes; a nil
// fallback throws them away.
func (s *Simulation) Harvest(index int, yeast string, fallback Fallback) HarvestResult {
	if s.Vineyard == nil {
		return HarvestResult{}
	}
	if _, ok := s.Cfg.Yeast(yeast); !ok {
		slog.Debug("harvest refused: unknown yeast", "plot", index, "yeast", yeast)
		return HarvestResult{}
	}
	batch, ok := s.Vineyard.Harvest(index, s.Year())
	if !ok {
		return HarvestResult{}
	}
	res := HarvestResult{Harvested: true, Batch: batch, Revenue: decimal.Zero}

	if s.Production != nil {
		if r, ok := s.Production.Receive(batch, yeast); ok {
			res.Disposition, res.TankID = DispositionTank, r.TankID
			slog.Info("harvest received", "plot", index, "variety", batch.Variety, "kg", batch.Kg, "tank", r.TankID, "liters", r.Liters)
			return res
		}
	}

	if fallback == nil {
		res.Disposition = DispositionDiscarded
	} else {
		res.Disposition, res.Revenue = fallback(s, batch)
	}
	slog.Info("harvest not received", "plot", index, "variety", batch.Variety, "kg", batch.Kg, "disposition", res.Disposition, "revenue", res.Revenue.String())
	return res
}

// BuyTank buys a tank of one of the stocked sizes.
func (s *Simulation) BuyTank(capacityL int) (string, bool) {
	if s.Production == nil || s.Market == nil {
		return "", false
	}
	return s.Production.BuyTank(capacityL, s.Market)
}

// BuyBarrel buys a barrel.
func (s *Simulation) BuyBarrel() (string, bool) {
	if s.Production == nil || s.Market == nil {
		return "", false
	}
	return s.Production.BuyBarrel(s.Market)
}

// BuyBottlingMachine buys the bottling machine.
func (s *Simulation) BuyBottlingMachine() bool {
	if s.Production == nil || s.Market == nil {
		return false
	}
	return s.Production.BuyBottlingMachine(s.Market)
}

// RackToBarrel moves a finished tank into a barrel.
func (s *Simulation) RackToBarrel(tankID string) bool {
	if s.Production == nil {
		return false
	}
	_, ok := s.Production.Rack(tankID)
	return ok
}

// Bottle bottles a barrel into the inventory.
func (s *Simulation) Bottle(barrelID string) (production.BottledWine, bool) {
	if s.Production == nil {
		return production.BottledWine{}, false
	}
	w, ok := s.Production.Bottle(barrelID, s.Day)
	if ok {
		slog.Info("bottled", "barrel", barrelID, "variety", w.Variety, "vintage", w.VintageYear, "bottles", w.Bottles, "quality", w.InitialQuality)
	}
	return w, ok
}

// Sell sells bottles from stock and returns units sold and revenue.
func (s *Simulation) Sell(variety string, vintage, qty int) (int, decimal.Decimal) {
	if s.Inventory == nil {
		return 0, decimal.Zero
	}
	return s.Inventory.Sell(variety, vintage, qty)
}
