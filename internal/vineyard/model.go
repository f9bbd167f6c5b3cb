package vineyard

import (
	"log/slog"
	"math"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/mathx"
	"github.com/talgya/vintner/internal/weather"
)

// Model owns every plot of the vineyard.
type Model struct {
	cfg   *config.Config
	tiles []Tile

	// Last weather seen by Tick; harvest reads the must temperature from it.
	last    weather.DailyWeather
	hasLast bool
}

// NewModel creates a model with no plots. Call InitNewGame or Restore.
func NewModel(cfg *config.Config) *Model {
	return &Model{cfg: cfg}
}

// InitNewGame lays out a fresh grid with the starting plots owned.
func (m *Model) InitNewGame() {
	m.tiles = make([]Tile, m.cfg.PlotCount())
	for i := range m.tiles {
		m.tiles[i] = m.freshTile()
	}
	owned := m.cfg.World.StartOwned
	for i := 0; i < owned && i < len(m.tiles); i++ {
		m.tiles[i].Owned = true
	}
	m.hasLast = false
}

// Restore replaces all plots with saved state. A save with a different plot
// count is padded with locked plots or truncated to the configured grid.
func (m *Model) Restore(tiles []Tile) {
	if len(tiles) == 0 {
		m.InitNewGame()
		return
	}
	n := m.cfg.PlotCount()
	m.tiles = make([]Tile, n)
	for i := range m.tiles {
		if i < len(tiles) {
			m.tiles[i] = tiles[i]
			continue
		}
		m.tiles[i] = m.freshTile()
	}
	if len(tiles) != n {
		slog.Warn("vineyard save resized to grid", "saved", len(tiles), "plots", n)
	}
	m.hasLast = false
}

// Tiles returns a copy of every plot.
func (m *Model) Tiles() []Tile {
	out := make([]Tile, len(m.tiles))
	copy(out, m.tiles)
	return out
}

// Tile returns a copy of one plot.
func (m *Model) Tile(i int) (Tile, bool) {
	if !m.inRange(i) {
		return Tile{}, false
	}
	return m.tiles[i], true
}

// BuyPlot purchases a locked plot at the land price.
func (m *Model) BuyPlot(i int, wallet Wallet) bool {
	if !m.inRange(i) || wallet == nil {
		return false
	}
	t := &m.tiles[i]
	if t.Owned {
		return false
	}
	if !wallet.TrySpend(m.cfg.Economy.LandBasePrice) {
		return false
	}
	t.Owned = true
	return true
}

// Plant puts a variety on an owned, empty plot. The variety is checked before
// any money is spent.
func (m *Model) Plant(i int, variety string, year int, wallet Wallet) bool {
	if !m.inRange(i) || wallet == nil {
		return false
	}
	t := &m.tiles[i]
	if !t.Owned || t.Planted() {
		return false
	}
	if _, ok := m.cfg.Variety(variety); !ok {
		return false
	}
	if !wallet.TrySpend(m.cfg.Economy.PlantCostPerPlot) {
		return false
	}

	owned := t.Owned
	*t = m.freshTile()
	t.Owned = owned
	t.Variety = variety
	t.VintageYear = year
	return true
}

// Tick advances every planted plot by one day of weather.
func (m *Model) Tick(w weather.DailyWeather, dayOfYear int) {
	m.last, m.hasLast = w, true

	dpy := max(1, m.cfg.Time.DaysPerYear)
	t01 := float64(dayOfYear) / float64(dpy)
	season01 := weather.Season01(t01)
	spring := weather.SeasonAt(t01) == weather.Spring

	for i := range m.tiles {
		t := &m.tiles[i]
		if !t.Planted() {
			continue
		}
		t.DaysSincePlanting++
		v, ok := m.cfg.Variety(t.Variety)
		if !ok {
			continue
		}
		m.grow(t, v, w, season01, spring)
	}
}

func (m *Model) grow(t *Tile, v config.Variety, w weather.DailyWeather, season01 float64, spring bool) {
	c := m.cfg.Vineyard

	// Water balance.
	capMm := math.Max(1, c.SoilWaterCapacityMm)
	t.SoilMoisture = mathx.Clamp01(t.SoilMoisture + (w.RainMm-w.ET0Mm)/capMm)

	stressTarget := 0.6*mathx.Clamp01(w.VPDKPa/3) + 0.4*mathx.Clamp01((0.5-t.SoilMoisture)/0.5)
	t.WaterStress = mathx.Clamp01(mathx.Lerp(t.WaterStress, stressTarget, 0.2))

	t.DiseasePressure += (w.MildewIndex/100 - t.DiseasePressure) * 0.15
	t.DiseasePressure = mathx.Clamp01(t.DiseasePressure * 0.98)

	taLoss := c.AcidLossPerDay * math.Max(0, w.TAvgC-10) / 10
	if w.Heatwave {
		taLoss *= 2
	}
	t.TA = math.Max(3, t.TA-taLoss)

	t.LitersPerKg = mathx.Lerp(0.62, 0.78, t.SoilMoisture)

	// Sugar follows the seasonal sine, loses ground on rainy days and slows
	// once it nears the target as berries take on water.
	gain := mathx.Lerp(c.SummerBrixPerDayMin, c.SummerBrixPerDayMax, season01)
	if w.RainMm > c.RainThresholdMm {
		gain -= c.RainBrixPenalty
	}
	if t.Brix >= v.TargetHarvestBrix-2 {
		gain *= mathx.Lerp(0.6, 0.3, dilution(t.SoilMoisture))
	}
	gain = math.Max(0.01, gain)
	t.Brix = mathx.Clamp(t.Brix+gain, 0, 40)

	t.PH = mathx.Lerp(t.PH, v.TargetPH, mathx.Clamp01(c.PHDailyDeltaTowardTarget)) + taLoss*0.01

	tempFactor := mathx.Clamp01((w.TAvgC - 10) / 20)
	sun01 := mathx.Clamp01(w.SunHours / 12)
	boost := (1 + 0.5*t.WaterStress) * (1 - 0.6*t.DiseasePressure)
	t.Phenolic = mathx.Clamp(t.Phenolic+c.PhenolicDailyGain*tempFactor*sun01*boost, 0, 100)

	if v.IsRed {
		t.Color = mathx.Clamp(t.Color+c.ColorDailyGain*tempFactor*sun01*(1+0.3*t.WaterStress), 0, 100)
	}
	coolFactor := 1 - mathx.Clamp01((w.TAvgC-24)/10)
	t.Aroma = mathx.Clamp(t.Aroma+c.AromaDailyGain*coolFactor*sun01*(1-0.5*t.DiseasePressure), 0, 100)

	if w.Hail {
		t.YieldKg *= 1 - mathx.Clamp01(c.HailYieldLoss)
	}
	if w.Frost && spring {
		t.YieldKg *= 1 - mathx.Clamp01(c.FrostYieldLoss)
	}
}

// Readiness scores a plot 0..1 for harvest: half sugar ramping from three
// below target to three above (overripe fruit keeps full marks), three tenths
// phenolic ripeness from ten below the variety minimum up to 100, and one fifth
// pH proximity (zero at ±0.6).
func (m *Model) Readiness(i int) float64 {
	if !m.inRange(i) {
		return 0
	}
	t := m.tiles[i]
	if !t.Planted() {
		return 0
	}
	v, ok := m.cfg.Variety(t.Variety)
	if !ok {
		return 0
	}
	return readiness(t, v)
}

func readiness(t Tile, v config.Variety) float64 {
	brix := mathx.InverseLerp(v.TargetHarvestBrix-3, v.TargetHarvestBrix+3, t.Brix)
	phen := mathx.InverseLerp(v.MinHarvestPhenolic-10, 100, t.Phenolic)
	ph := 1 - mathx.Clamp01(math.Abs(t.PH-v.TargetPH)/0.6)
	r := 0.5*brix + 0.3*phen + 0.2*ph
	if math.IsNaN(r) {
		return 0
	}
	return mathx.Clamp01(r)
}

// CanHarvest reports whether the plot meets the harvest threshold, along with
// its readiness.
func (m *Model) CanHarvest(i int) (bool, float64) {
	r := m.Readiness(i)
	return r >= HarvestThreshold, r
}

// Harvest picks a ready plot. The batch is stamped with the harvest year and
// the plot's season counters reset; ownership and variety stay.
func (m *Model) Harvest(i int, year int) (GrapeBatch, bool) {
	ok, r := m.CanHarvest(i)
	if !ok {
		if m.inRange(i) && m.tiles[i].Planted() {
			slog.Debug("harvest refused", "plot", i, "readiness", r)
		}
		return GrapeBatch{}, false
	}
	t := &m.tiles[i]

	mustTemp := 18.0
	if m.hasLast {
		mustTemp = m.last.TAvgC
	}
	b := GrapeBatch{
		Variety:         t.Variety,
		VintageYear:     year,
		Kg:              mathx.RoundInt(t.YieldKg),
		Brix:            t.Brix,
		PH:              t.PH,
		Phenolic:        t.Phenolic,
		TA:              t.TA,
		YAN:             mathx.Clamp(220-120*t.WaterStress-40*t.DiseasePressure, 60, 300),
		WaterStress:     t.WaterStress,
		DiseasePressure: t.DiseasePressure,
		Color:           t.Color,
		Aroma:           t.Aroma,
		MustTempC:       mustTemp,
		Dilution:        dilution(t.SoilMoisture),
		LitersPerKg:     t.LitersPerKg,
	}

	moisture := t.SoilMoisture
	owned, variety := t.Owned, t.Variety
	*t = m.freshTile()
	t.Owned, t.Variety = owned, variety
	t.SoilMoisture = moisture
	t.VintageYear = year + 1
	return b, true
}

func (m *Model) freshTile() Tile {
	lpk := m.cfg.Vineyard.DefaultLitersPerKg
	if lpk <= 0 {
		lpk = 0.70
	}
	return Tile{
		Brix:         baselineBrix,
		PH:           baselinePH,
		TA:           baselineTA,
		Phenolic:     baselinePhenolic,
		SoilMoisture: baselineMoisture,
		LitersPerKg:  lpk,
		YieldKg:      m.cfg.Vineyard.YieldPerPlotKg,
	}
}

func (m *Model) inRange(i int) bool { return i >= 0 && i < len(m.tiles) }

// dilution is the hydration proxy: zero up to 60% soil moisture, one when
// saturated.
func dilution(moisture float64) float64 {
	return mathx.Clamp01((moisture - 0.6) / 0.4)
}
