package vineyard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/weather"
)

type purse struct{ cash int }

func (p *purse) TrySpend(amount int) bool {
	if amount < 0 || amount > p.cash {
		return false
	}
	p.cash -= amount
	return true
}

func newModel(t *testing.T) (*Model, *config.Config) {
	t.Helper()
	cfg := config.Default()
	m := NewModel(cfg)
	m.InitNewGame()
	return m, cfg
}

func ripeTile(variety string) Tile {
	return Tile{
		Owned: true, Variety: variety,
		Brix: 24, PH: 3.6, Phenolic: 95, TA: 6,
		SoilMoisture: 0.4, LitersPerKg: 0.7, YieldKg: 1200,
	}
}

func TestNewGameOwnsFirstTwoPlots(t *testing.T) {
	m, cfg := newModel(t)
	tiles := m.Tiles()
	require.Len(t, tiles, cfg.PlotCount())
	for i, tile := range tiles {
		assert.Equal(t, i < 2, tile.Owned, "plot %d", i)
		assert.False(t, tile.Planted())
	}
}

func TestBuyPlot(t *testing.T) {
	m, cfg := newModel(t)
	p := &purse{cash: cfg.Economy.LandBasePrice}

	assert.False(t, m.BuyPlot(0, p), "already owned")
	assert.False(t, m.BuyPlot(99, p), "out of range")
	assert.True(t, m.BuyPlot(5, p))
	assert.Equal(t, 0, p.cash)
	assert.False(t, m.BuyPlot(6, p), "insufficient funds")

	tile, ok := m.Tile(6)
	require.True(t, ok)
	assert.False(t, tile.Owned)
}

func TestPlantResetsToBaseline(t *testing.T) {
	m, cfg := newModel(t)
	p := &purse{cash: 10_000}

	require.True(t, m.Plant(0, "Pinot Noir", 3, p))
	assert.Equal(t, 10_000-cfg.Economy.PlantCostPerPlot, p.cash)

	tile, _ := m.Tile(0)
	assert.Equal(t, "Pinot Noir", tile.Variety)
	assert.Equal(t, 12.0, tile.Brix)
	assert.Equal(t, 3.2, tile.PH)
	assert.Equal(t, 10.0, tile.Phenolic)
	assert.Equal(t, 3, tile.VintageYear)
	assert.Equal(t, cfg.Vineyard.YieldPerPlotKg, tile.YieldKg)
}

func TestPlantRefusals(t *testing.T) {
	m, _ := newModel(t)
	p := &purse{cash: 10_000}

	assert.False(t, m.Plant(4, "Pinot Noir", 0, p), "not owned")
	assert.False(t, m.Plant(0, "Merlot", 0, p), "unknown variety")
	assert.Equal(t, 10_000, p.cash, "unknown variety must not cost money")

	require.True(t, m.Plant(0, "Chardonnay", 0, p))
	assert.False(t, m.Plant(0, "Chardonnay", 0, p), "already planted")

	broke := &purse{}
	assert.False(t, m.Plant(1, "Chardonnay", 0, broke))
	tile, _ := m.Tile(1)
	assert.False(t, tile.Planted())
}

func TestReadinessUnplantedIsZero(t *testing.T) {
	m, _ := newModel(t)
	assert.Equal(t, 0.0, m.Readiness(0))
	assert.Equal(t, 0.0, m.Readiness(-1))
	assert.Equal(t, 0.0, m.Readiness(1000))
}

func TestReadinessClampedForExtremes(t *testing.T) {
	v, _ := config.Default().Variety("Cabernet Sauvignon")
	for _, tile := range []Tile{
		{Variety: v.Name, Brix: -500, PH: -10, Phenolic: -1000},
		{Variety: v.Name, Brix: 500, PH: 40, Phenolic: 1000},
		{Variety: v.Name, Brix: 24, PH: 3.6, Phenolic: 100},
	} {
		r := readiness(tile, v)
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
	assert.InDelta(t, 1.0, readiness(Tile{Brix: 27, PH: 3.6, Phenolic: 100}, v), 1e-9)
	assert.InDelta(t, 0.75, readiness(Tile{Brix: 24, PH: 3.6, Phenolic: 100}, v), 1e-9)
}

func TestOverripeSugarKeepsFullScore(t *testing.T) {
	v, _ := config.Default().Variety("Cabernet Sauvignon")
	base := Tile{Variety: v.Name, PH: 3.6, Phenolic: 80}

	var prev float64
	for _, brix := range []float64{20, 22, 24, 26, 27, 30, 40} {
		tile := base
		tile.Brix = brix
		r := readiness(tile, v)
		assert.GreaterOrEqual(t, r, prev, "brix %.0f", brix)
		prev = r
	}
	over := base
	over.Brix = 40
	at := base
	at.Brix = v.TargetHarvestBrix + 3
	assert.InDelta(t, readiness(at, v), readiness(over, v), 1e-12)
	assert.GreaterOrEqual(t, readiness(over, v), HarvestThreshold)
}

func TestHarvestBelowThresholdLeavesTileUntouched(t *testing.T) {
	m, _ := newModel(t)
	p := &purse{cash: 10_000}
	require.True(t, m.Plant(0, "Cabernet Sauvignon", 0, p))

	before, _ := m.Tile(0)
	ok, r := m.CanHarvest(0)
	require.False(t, ok)
	assert.Less(t, r, HarvestThreshold)

	_, harvested := m.Harvest(0, 0)
	assert.False(t, harvested)
	after, _ := m.Tile(0)
	assert.Equal(t, before, after)
}

func TestHarvestEmitsBatchAndResets(t *testing.T) {
	m, _ := newModel(t)
	tiles := m.Tiles()
	tiles[0] = ripeTile("Cabernet Sauvignon")
	m.Restore(tiles)

	ok, _ := m.CanHarvest(0)
	require.True(t, ok)

	b, ok := m.Harvest(0, 2)
	require.True(t, ok)
	assert.Equal(t, "Cabernet Sauvignon", b.Variety)
	assert.Equal(t, 2, b.VintageYear)
	assert.Equal(t, 1200, b.Kg)
	assert.Equal(t, 24.0, b.Brix)
	assert.InDelta(t, 840, b.Liters(), 1e-9)
	assert.Equal(t, 18.0, b.MustTempC)

	tile, _ := m.Tile(0)
	assert.True(t, tile.Owned)
	assert.Equal(t, "Cabernet Sauvignon", tile.Variety)
	assert.Equal(t, 12.0, tile.Brix)
	assert.Equal(t, 0, tile.DaysSincePlanting)
	assert.Equal(t, 3, tile.VintageYear)
}

func TestTickGrowsPlantedTiles(t *testing.T) {
	m, _ := newModel(t)
	p := &purse{cash: 10_000}
	require.True(t, m.Plant(0, "Cabernet Sauvignon", 0, p))

	w := weather.DailyWeather{TAvgC: 24, SunHours: 12, ET0Mm: 3, VPDKPa: 1.2, MildewIndex: 20}
	for d := 150; d < 180; d++ {
		m.Tick(w, d)
	}
	tile, _ := m.Tile(0)
	assert.Equal(t, 30, tile.DaysSincePlanting)
	assert.Greater(t, tile.Brix, 12.0)
	assert.Greater(t, tile.Phenolic, 10.0)
	assert.Greater(t, tile.Color, 0.0)
	assert.Less(t, tile.TA, 7.0)
	assert.InDelta(t, 3.6, tile.PH, 0.3)

	unplanted, _ := m.Tile(1)
	assert.Equal(t, 0, unplanted.DaysSincePlanting)
	assert.Equal(t, 12.0, unplanted.Brix)
}

func TestRainSlowsSugar(t *testing.T) {
	dry, _ := newModel(t)
	wet, _ := newModel(t)
	for _, m := range []*Model{dry, wet} {
		require.True(t, m.Plant(0, "Chardonnay", 0, &purse{cash: 1000}))
	}
	dry.Tick(weather.DailyWeather{TAvgC: 20}, 180)
	wet.Tick(weather.DailyWeather{TAvgC: 20, RainMm: 10}, 180)

	d, _ := dry.Tile(0)
	w, _ := wet.Tile(0)
	assert.Greater(t, d.Brix, w.Brix)
	assert.Greater(t, w.SoilMoisture, d.SoilMoisture)
}

func TestHailAndSpringFrostCutYield(t *testing.T) {
	m, cfg := newModel(t)
	require.True(t, m.Plant(0, "Chardonnay", 0, &purse{cash: 1000}))

	m.Tick(weather.DailyWeather{Hail: true, Storm: true}, 180)
	tile, _ := m.Tile(0)
	assert.InDelta(t, cfg.Vineyard.YieldPerPlotKg*(1-cfg.Vineyard.HailYieldLoss), tile.YieldKg, 1e-9)

	m.Tick(weather.DailyWeather{Frost: true}, 0) // winter frost does no damage
	again, _ := m.Tile(0)
	assert.Equal(t, tile.YieldKg, again.YieldKg)

	m.Tick(weather.DailyWeather{Frost: true}, 90)
	spring, _ := m.Tile(0)
	assert.Less(t, spring.YieldKg, again.YieldKg)
}

func TestRestorePadsToGrid(t *testing.T) {
	m, cfg := newModel(t)
	m.Restore([]Tile{ripeTile("Pinot Noir")})
	tiles := m.Tiles()
	require.Len(t, tiles, cfg.PlotCount())
	assert.Equal(t, "Pinot Noir", tiles[0].Variety)
	assert.False(t, tiles[1].Owned)
}

func TestTilesAreCopies(t *testing.T) {
	m, _ := newModel(t)
	tiles := m.Tiles()
	tiles[0].Owned = false
	tile, _ := m.Tile(0)
	assert.True(t, tile.Owned)
}
