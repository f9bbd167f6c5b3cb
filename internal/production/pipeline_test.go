package production

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/vineyard"
)

type purse struct{ cash int }

func (p *purse) TrySpend(amount int) bool {
	if amount > p.cash {
		return false
	}
	p.cash -= amount
	return true
}

type collector struct{ got []BottledWine }

func (c *collector) AddBottles(w BottledWine) { c.got = append(c.got, w) }

func newPipeline(t *testing.T) (*Pipeline, *config.Config, *collector) {
	t.Helper()
	cfg := config.Default()
	cfg.Aging.BarrelVolumeL = 1000
	sink := &collector{}
	return NewPipeline(cfg, sink), cfg, sink
}

func batch(kg int, brix float64) vineyard.GrapeBatch {
	return vineyard.GrapeBatch{
		Variety: "Cabernet Sauvignon", VintageYear: 1,
		Kg: kg, Brix: brix, PH: 3.6, Phenolic: 80, LitersPerKg: 0.7,
	}
}

func TestBuyEquipment(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	w := &purse{cash: 1_000_000}

	_, ok := p.BuyTank(1234, w)
	assert.False(t, ok, "unstocked size")

	for _, size := range []int{config.TankSmallL, config.TankMediumL, config.TankLargeL} {
		id, ok := p.BuyTank(size, w)
		require.True(t, ok)
		assert.NotEmpty(t, id)
	}
	_, ok = p.BuyBarrel(w)
	require.True(t, ok)
	require.True(t, p.BuyBottlingMachine(w))
	assert.False(t, p.BuyBottlingMachine(w), "only one machine")

	spent := cfg.Economy.SmallTankPrice + cfg.Economy.MediumTankPrice + cfg.Economy.LargeTankPrice +
		cfg.Economy.BarrelPrice + cfg.Economy.BottlingMachinePrice
	assert.Equal(t, 1_000_000-spent, w.cash)
	assert.Len(t, p.Tanks(), 3)
	require.Len(t, p.Barrels(), 1)
	assert.Equal(t, 1000, p.Barrels()[0].CapacityL)

	broke := &purse{}
	_, ok = p.BuyBarrel(broke)
	assert.False(t, ok)
	assert.Len(t, p.Barrels(), 1)
}

func TestReceivePicksSmallestFittingTank(t *testing.T) {
	p, _, _ := newPipeline(t)
	w := &purse{cash: 1_000_000}
	large, _ := p.BuyTank(config.TankLargeL, w)
	small, _ := p.BuyTank(config.TankSmallL, w)
	medium, _ := p.BuyTank(config.TankMediumL, w)

	r, ok := p.Receive(batch(2000, 24), "") // 1400 L
	require.True(t, ok)
	assert.Equal(t, medium, r.TankID)
	assert.Equal(t, 1400, r.Liters)

	r, ok = p.Receive(batch(1200, 24), "") // 840 L
	require.True(t, ok)
	assert.Equal(t, small, r.TankID)

	r, ok = p.Receive(batch(1200, 24), "")
	require.True(t, ok)
	assert.Equal(t, large, r.TankID)

	for _, tank := range p.Tanks() {
		require.NotNil(t, tank.Ferment)
		assert.LessOrEqual(t, tank.Ferment.Liters, tank.CapacityL)
	}
}

func TestReceiveRejectsWhenNothingFits(t *testing.T) {
	p, _, _ := newPipeline(t)
	w := &purse{cash: 1_000_000}
	p.BuyTank(config.TankSmallL, w)
	p.BuyTank(config.TankMediumL, w)
	before := p.Tanks()

	_, ok := p.Receive(batch(10_000, 24), "") // 7000 L
	assert.False(t, ok)
	assert.Equal(t, before, p.Tanks())
}

func TestReceiveRejectsUnknownYeast(t *testing.T) {
	p, _, _ := newPipeline(t)
	p.BuyTank(config.TankSmallL, &purse{cash: 100_000})
	_, ok := p.Receive(batch(100, 24), "Mystery")
	assert.False(t, ok)
	assert.True(t, p.Tanks()[0].Empty())
}

func TestTargetDaysWithinBounds(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	for _, brix := range []float64{0, 10, 22, 26, 40} {
		for _, speed := range []float64{0.1, 0.9, 1, 1.2, 3} {
			d := p.targetDays(brix, speed)
			assert.GreaterOrEqual(t, d, cfg.Fermentation.MinDays)
			assert.LessOrEqual(t, d, cfg.Fermentation.MaxDays)
		}
	}
	assert.Greater(t, p.targetDays(10, 1), p.targetDays(26, 1))
}

func TestFermentationSugarMonotonicAndAlcoholCapped(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	p.BuyTank(config.TankSmallL, &purse{cash: 100_000})
	// Aromatic tolerates 14% and very sweet must outruns it.
	_, ok := p.Receive(batch(1000, 30), "Aromatic")
	require.True(t, ok)

	prev := 30.0
	for day := 0; day < 40; day++ {
		p.Tick()
		f := p.Tanks()[0].Ferment
		require.NotNil(t, f)
		assert.LessOrEqual(t, f.CurrentBrix, prev)
		assert.LessOrEqual(t, f.AlcoholABV, 14.0)
		prev = f.CurrentBrix
	}
	f := p.Tanks()[0].Ferment
	assert.True(t, f.Stuck)
	assert.Equal(t, cfg.Fermentation.StuckBrixFloor, f.CurrentBrix)
	assert.Equal(t, 14.0, f.AlcoholABV)
}

func TestFermentationRunsDry(t *testing.T) {
	p, _, _ := newPipeline(t)
	tankID, _ := p.BuyTank(config.TankSmallL, &purse{cash: 100_000})
	r, ok := p.Receive(batch(1000, 22), "Robust")
	require.True(t, ok)

	assert.False(t, p.CanRack(tankID))
	for i := 0; i < r.TargetDays; i++ {
		p.Tick()
	}
	f := p.Tanks()[0].Ferment
	assert.InDelta(t, 0, f.CurrentBrix, 1e-9)
	assert.False(t, f.Stuck)
	assert.InDelta(t, 22*0.55, f.AlcoholABV, 1e-9)
	assert.True(t, p.CanRack(tankID))
}

func TestRackWholeBatchIntoSmallestBarrel(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	w := &purse{cash: 1_000_000}
	tankID, _ := p.BuyTank(config.TankSmallL, w)
	cfg.Aging.BarrelVolumeL = 225
	tiny, _ := p.BuyBarrel(w)
	cfg.Aging.BarrelVolumeL = 2000
	big, _ := p.BuyBarrel(w)
	cfg.Aging.BarrelVolumeL = 1000
	fits, _ := p.BuyBarrel(w)

	r, ok := p.Receive(batch(1000, 22), "Aromatic")
	require.True(t, ok)
	_, ok = p.Rack(tankID)
	assert.False(t, ok, "still fermenting")

	for i := 0; i < r.TargetDays; i++ {
		p.Tick()
	}
	barrelID, ok := p.Rack(tankID)
	require.True(t, ok)
	assert.Equal(t, fits, barrelID)
	assert.NotEqual(t, tiny, barrelID)
	assert.NotEqual(t, big, barrelID)
	assert.True(t, p.Tanks()[0].Empty())

	for _, b := range p.Barrels() {
		if b.ID != barrelID {
			continue
		}
		require.NotNil(t, b.Aging)
		assert.Equal(t, 700, b.Aging.Liters)
		assert.Equal(t, cfg.Fermentation.CraftBaseline+3, b.Aging.CraftQuality)
	}
}

func TestRackFailsWithoutRoom(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	w := &purse{cash: 1_000_000}
	tankID, _ := p.BuyTank(config.TankSmallL, w)
	cfg.Aging.BarrelVolumeL = 225
	p.BuyBarrel(w)

	r, _ := p.Receive(batch(1000, 22), "")
	for i := 0; i < r.TargetDays; i++ {
		p.Tick()
	}
	_, ok := p.Rack(tankID)
	assert.False(t, ok)
	assert.NotNil(t, p.Tanks()[0].Ferment)
	_, ok = p.Rack("missing")
	assert.False(t, ok)
}

func TestCraftNonDecreasingInsideWindow(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	p.Restore(nil, []Barrel{{ID: "b1", CapacityL: 1000, Aging: &Aging{
		Variety: "Pinot Noir", Liters: 500, DaysInBarrel: cfg.Aging.SweetSpotDaysMin, CraftQuality: 10,
	}}}, false)

	prev := 10.0
	for d := cfg.Aging.SweetSpotDaysMin; d < cfg.Aging.SweetSpotDaysMax; d++ {
		p.Tick()
		a := p.Barrels()[0].Aging
		assert.GreaterOrEqual(t, a.CraftQuality, prev)
		prev = a.CraftQuality
	}
}

func TestSweetSpotPeaksAtCenter(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	center := (cfg.Aging.SweetSpotDaysMin + cfg.Aging.SweetSpotDaysMax) / 2
	assert.InDelta(t, 1+cfg.Aging.CenterBonus, p.sweetSpot(center), 1e-9)
	assert.InDelta(t, 1, p.sweetSpot(cfg.Aging.SweetSpotDaysMin), 1e-9)
	assert.Less(t, p.sweetSpot(1), 1.0)
	assert.Less(t, p.sweetSpot(cfg.Aging.SweetSpotDaysMax+60), 1.0)
}

func TestBottleNeedsMachineAndWine(t *testing.T) {
	p, cfg, sink := newPipeline(t)
	p.Restore(nil, []Barrel{
		{ID: "full", CapacityL: 1000, Aging: &Aging{Variety: "Pinot Noir", VintageYear: 2, Liters: 225, DaysInBarrel: 120, CraftQuality: 20}},
		{ID: "empty", CapacityL: 1000},
	}, false)

	_, ok := p.Bottle("full", 400)
	assert.False(t, ok, "no machine")
	require.NotNil(t, p.Barrels()[0].Aging)

	require.True(t, p.BuyBottlingMachine(&purse{cash: cfg.Economy.BottlingMachinePrice}))
	_, ok = p.Bottle("empty", 400)
	assert.False(t, ok)

	wine, ok := p.Bottle("full", 400)
	require.True(t, ok)
	assert.Equal(t, 300, wine.Bottles) // 225 L / 0.75 L
	assert.True(t, wine.IsRed)
	assert.Equal(t, 2, wine.VintageYear)
	assert.Equal(t, 400, wine.BottledDay)
	// Pinot window 90..150 so the in-window 1.1 multiplier applies.
	assert.InDelta(t, (50+20+3)*1.1, wine.InitialQuality, 1e-9)
	assert.True(t, p.Barrels()[0].Empty())
	assert.Equal(t, []BottledWine{wine}, sink.got)
}

func TestBottlingCurveBounds(t *testing.T) {
	assert.Equal(t, 1.1, bottlingCurve(100, 90, 150, 0.2))
	assert.InDelta(t, 1-10*0.2/100, bottlingCurve(80, 90, 150, 0.2), 1e-12)
	assert.Equal(t, 0.6, bottlingCurve(5000, 90, 150, 0.2))
}

func TestQualityClampedTo100(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	p.Restore(nil, []Barrel{{ID: "b", CapacityL: 1000, Aging: &Aging{Variety: "Cabernet Sauvignon", Liters: 100, DaysInBarrel: 150, CraftQuality: 90}}}, true)
	wine, ok := p.Bottle("b", 1)
	require.True(t, ok)
	assert.Equal(t, 100.0, wine.InitialQuality)
	assert.Equal(t, 100*1000/cfg.Bottling.BottleSizeMl, wine.Bottles)
}

func TestRestoreAssignsMissingIDsAndCopies(t *testing.T) {
	p, _, _ := newPipeline(t)
	f := &Fermentation{Variety: "Chardonnay", Liters: 100, StartBrix: 20, CurrentBrix: 20, TargetDays: 10}
	p.Restore([]Tank{{CapacityL: 1000, Ferment: f}}, nil, false)

	tanks := p.Tanks()
	require.Len(t, tanks, 1)
	assert.NotEmpty(t, tanks[0].ID)
	f.Liters = 999
	tanks[0].Ferment.Liters = 5
	assert.Equal(t, 100, p.Tanks()[0].Ferment.Liters)
}
