package production

import (
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/mathx"
	"github.com/talgya/vintner/internal/vineyard"
)

// fallbackToleranceABV applies to batches whose yeast left the catalog.
const fallbackToleranceABV = 16.0

// Pipeline owns the cellar: tanks, barrels and the bottling machine.
type Pipeline struct {
	cfg   *config.Config
	sink  BottleSink
	newID func() string

	tanks      []Tank
	barrels    []Barrel
	hasMachine bool
}

// NewPipeline creates an empty cellar. sink may be nil; bottled wine is then
// only returned to the caller.
func NewPipeline(cfg *config.Config, sink BottleSink) *Pipeline {
	return &Pipeline{cfg: cfg, sink: sink, newID: uuid.NewString}
}

// SetSink rewires where bottled wine goes.
func (p *Pipeline) SetSink(sink BottleSink) { p.sink = sink }

// InitNewGame empties the cellar.
func (p *Pipeline) InitNewGame() {
	p.tanks, p.barrels, p.hasMachine = nil, nil, false
}

// Restore replaces the cellar with saved state. Containers saved without an
// id get a fresh one.
func (p *Pipeline) Restore(tanks []Tank, barrels []Barrel, hasMachine bool) {
	p.tanks = make([]Tank, 0, len(tanks))
	for _, t := range tanks {
		t = t.clone()
		if t.ID == "" {
			t.ID = p.newID()
		}
		if t.Ferment != nil && t.Ferment.Liters > t.CapacityL {
			slog.Warn("restored tank over capacity", "tank", t.ID, "liters", t.Ferment.Liters, "capacity", t.CapacityL)
		}
		p.tanks = append(p.tanks, t)
	}
	p.barrels = make([]Barrel, 0, len(barrels))
	for _, b := range barrels {
		b = b.clone()
		if b.ID == "" {
			b.ID = p.newID()
		}
		p.barrels = append(p.barrels, b)
	}
	p.hasMachine = hasMachine
}

// Tanks returns deep copies of every tank.
func (p *Pipeline) Tanks() []Tank {
	out := make([]Tank, len(p.tanks))
	for i, t := range p.tanks {
		out[i] = t.clone()
	}
	return out
}

// Barrels returns deep copies of every barrel.
func (p *Pipeline) Barrels() []Barrel {
	out := make([]Barrel, len(p.barrels))
	for i, b := range p.barrels {
		out[i] = b.clone()
	}
	return out
}

// HasBottlingMachine reports whether bottling is possible.
func (p *Pipeline) HasBottlingMachine() bool { return p.hasMachine }

// BuyTank buys one of the stocked tank sizes.
func (p *Pipeline) BuyTank(capacityL int, wallet Wallet) (string, bool) {
	price, ok := p.cfg.TankPrice(capacityL)
	if !ok || wallet == nil || !wallet.TrySpend(price) {
		return "", false
	}
	id := p.newID()
	p.tanks = append(p.tanks, Tank{ID: id, CapacityL: capacityL})
	return id, true
}

// BuyBarrel buys a barrel of the configured volume.
func (p *Pipeline) BuyBarrel(wallet Wallet) (string, bool) {
	if wallet == nil || !wallet.TrySpend(p.cfg.Economy.BarrelPrice) {
		return "", false
	}
	id := p.newID()
	p.barrels = append(p.barrels, Barrel{ID: id, CapacityL: p.cfg.Aging.BarrelVolumeL})
	return id, true
}

// BuyBottlingMachine buys the single bottling machine.
func (p *Pipeline) BuyBottlingMachine(wallet Wallet) bool {
	if p.hasMachine || wallet == nil || !wallet.TrySpend(p.cfg.Economy.BottlingMachinePrice) {
		return false
	}
	p.hasMachine = true
	return true
}

// Receive starts fermenting a harvest in the smallest empty tank that holds
// it. It reports false, touching nothing, when no tank fits or the yeast is
// unknown. An empty yeast name picks the first catalog strain.
func (p *Pipeline) Receive(batch vineyard.GrapeBatch, yeastName string) (Receipt, bool) {
	yeast, ok := p.cfg.Yeast(yeastName)
	if !ok {
		return Receipt{}, false
	}
	liters := mathx.RoundInt(batch.Liters())
	if liters <= 0 {
		return Receipt{}, false
	}

	best := -1
	for i, t := range p.tanks {
		if !t.Empty() || t.CapacityL < liters {
			continue
		}
		if best < 0 || t.CapacityL < p.tanks[best].CapacityL {
			best = i
		}
	}
	if best < 0 {
		return Receipt{}, false
	}

	target := p.targetDays(batch.Brix, yeast.Speed)
	tank := &p.tanks[best]
	tank.Ferment = &Fermentation{
		Variety:     batch.Variety,
		VintageYear: batch.VintageYear,
		StartBrix:   batch.Brix,
		CurrentBrix: batch.Brix,
		PH:          batch.PH,
		Phenolic:    batch.Phenolic,
		Yeast:       yeast.Name,
		TargetDays:  target,
		Liters:      liters,
	}
	return Receipt{TankID: tank.ID, TankCapacityL: tank.CapacityL, Liters: liters, TargetDays: target}, true
}

// targetDays shortens with riper must and faster yeast, within the configured
// bounds.
func (p *Pipeline) targetDays(brix, speed float64) int {
	c := p.cfg.Fermentation
	days := mathx.Lerp(float64(c.MinDays), float64(c.MaxDays), 1-mathx.Clamp01(brix/26)) / math.Max(0.5, speed)
	return min(max(mathx.RoundInt(days), c.MinDays), c.MaxDays)
}

// Tick advances fermentation in every tank, then aging in every barrel.
func (p *Pipeline) Tick() {
	for i := range p.tanks {
		if f := p.tanks[i].Ferment; f != nil {
			p.ferment(f)
		}
	}
	for i := range p.barrels {
		if a := p.barrels[i].Aging; a != nil {
			p.age(a)
		}
	}
}

func (p *Pipeline) ferment(f *Fermentation) {
	c := p.cfg.Fermentation
	f.DaysFermenting++

	tolerance := fallbackToleranceABV
	if y, ok := p.cfg.Yeast(f.Yeast); ok && f.Yeast != "" {
		tolerance = y.ToleranceABV
	}

	prev := f.CurrentBrix
	step := f.StartBrix / float64(max(1, f.TargetDays))
	f.CurrentBrix = math.Max(0, f.CurrentBrix-step)
	f.AlcoholABV = math.Min((f.StartBrix-f.CurrentBrix)*c.BrixToAlcohol, tolerance)

	if f.AlcoholABV >= tolerance {
		f.Stuck = true
	}
	// A stuck ferment keeps its residual sugar at the floor.
	if f.Stuck {
		f.CurrentBrix = math.Max(f.CurrentBrix, math.Min(prev, c.StuckBrixFloor))
	}
}

func (p *Pipeline) age(a *Aging) {
	c := p.cfg.Aging
	a.DaysInBarrel++
	a.CraftQuality += c.OakGainPerDay * p.sweetSpot(a.DaysInBarrel)
	if a.DaysInBarrel < c.SweetSpotDaysMin || a.DaysInBarrel > c.SweetSpotDaysMax {
		a.CraftQuality -= c.OverUnderPenaltyPerDay * 0.25
	}
	a.CraftQuality = math.Max(0, a.CraftQuality)
}

// sweetSpot scales the daily oak gain: up to 1+CenterBonus at the window's
// centre, 1 at its edges, falling linearly to 0.5 one window-width outside.
func (p *Pipeline) sweetSpot(days int) float64 {
	c := p.cfg.Aging
	lo, hi := float64(c.SweetSpotDaysMin), float64(c.SweetSpotDaysMax)
	if hi <= lo {
		return 1
	}
	d := float64(days)
	width := hi - lo
	switch {
	case d < lo:
		return mathx.Lerp(1, 0.5, (lo-d)/width)
	case d > hi:
		return mathx.Lerp(1, 0.5, (d-hi)/width)
	default:
		center, half := (lo+hi)/2, width/2
		return 1 + c.CenterBonus*(1-math.Abs(d-center)/half)
	}
}

// CanRack reports whether a tank has finished fermenting.
func (p *Pipeline) CanRack(tankID string) bool {
	i := p.tankIndex(tankID)
	return i >= 0 && p.rackable(p.tanks[i].Ferment)
}

func (p *Pipeline) rackable(f *Fermentation) bool {
	return f != nil && (f.DaysFermenting >= f.TargetDays || f.CurrentBrix <= p.cfg.Fermentation.DoneBrix)
}

// Rack moves a finished batch whole into the smallest empty barrel that holds
// it. Partial racking is not supported.
func (p *Pipeline) Rack(tankID string) (string, bool) {
	ti := p.tankIndex(tankID)
	if ti < 0 {
		return "", false
	}
	f := p.tanks[ti].Ferment
	if !p.rackable(f) {
		return "", false
	}

	best := -1
	for i, b := range p.barrels {
		if !b.Empty() || b.CapacityL < f.Liters {
			continue
		}
		if best < 0 || b.CapacityL < p.barrels[best].CapacityL {
			best = i
		}
	}
	if best < 0 {
		slog.Debug("no barrel fits batch", "tank", tankID, "liters", f.Liters)
		return "", false
	}

	craft := p.cfg.Fermentation.CraftBaseline
	if y, ok := p.cfg.Yeast(f.Yeast); ok && f.Yeast != "" {
		craft += y.Aroma
	}
	barrel := &p.barrels[best]
	barrel.Aging = &Aging{
		Variety:      f.Variety,
		VintageYear:  f.VintageYear,
		Liters:       f.Liters,
		CraftQuality: craft,
	}
	p.tanks[ti].Ferment = nil
	return barrel.ID, true
}

// CanBottle reports whether a barrel can be bottled now.
func (p *Pipeline) CanBottle(barrelID string) bool {
	i := p.barrelIndex(barrelID)
	return i >= 0 && p.hasMachine && p.barrels[i].Aging != nil && p.barrels[i].Aging.Liters > 0
}

// Bottle empties a barrel into bottles and hands them to the sink.
func (p *Pipeline) Bottle(barrelID string, day int) (BottledWine, bool) {
	if !p.CanBottle(barrelID) {
		return BottledWine{}, false
	}
	b := &p.barrels[p.barrelIndex(barrelID)]
	a := b.Aging

	v, known := p.cfg.Variety(a.Variety)
	lo, hi := p.cfg.Aging.SweetSpotDaysMin, p.cfg.Aging.SweetSpotDaysMax
	if known && v.SweetSpotEnd > v.SweetSpotStart {
		lo, hi = v.SweetSpotStart, v.SweetSpotEnd
	}
	curve := bottlingCurve(a.DaysInBarrel, lo, hi, p.cfg.Aging.OverUnderPenaltyPerDay)

	quality := (p.cfg.Aging.BaseQuality + a.CraftQuality + v.TerroirBonus) * curve
	ml := max(1, p.cfg.Bottling.BottleSizeMl)

	wine := BottledWine{
		Variety:        a.Variety,
		VintageYear:    a.VintageYear,
		IsRed:          v.IsRed,
		InitialQuality: mathx.Clamp(quality, 0, 100),
		Bottles:        a.Liters * 1000 / ml,
		BottledDay:     day,
	}
	b.Aging = nil

	if p.sink != nil {
		p.sink.AddBottles(wine)
	}
	return wine, true
}

// bottlingCurve is 1.1 inside the window and loses penalty% per day outside
// it, bounded to [0.6, 1.2].
func bottlingCurve(days, lo, hi int, penaltyPerDay float64) float64 {
	curve := 1.1
	switch {
	case days < lo:
		curve = 1 - float64(lo-days)*penaltyPerDay/100
	case days > hi:
		curve = 1 - float64(days-hi)*penaltyPerDay/100
	}
	return mathx.Clamp(curve, 0.6, 1.2)
}

func (p *Pipeline) tankIndex(id string) int {
	for i, t := range p.tanks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (p *Pipeline) barrelIndex(id string) int {
	for i, b := range p.barrels {
		if b.ID == id {
			return i
		}
	}
	return -1
}
