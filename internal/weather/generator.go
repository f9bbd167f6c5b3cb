package weather

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/curve"
	"github.com/talgya/vintner/internal/entropy"
	"github.com/talgya/vintner/internal/mathx"
)

// Generator produces and caches one YearWeather per year for a session seed.
// It is safe to query from outside the daily tick.
type Generator struct {
	cfg         config.Weather
	seed        int64
	daysPerYear int

	temp, rain, hum, solar, wind *curve.Curve
	mildew                       *curve.Curve // nil when no monthly baseline

	mu    sync.RWMutex
	years map[int]YearWeather

	subMu   sync.Mutex
	subs    map[int]func(dayOfYear int, w DailyWeather)
	nextSub int
}

// NewGenerator builds a generator. Baselines come from the monthly tables when
// present, else the year curves, else built-in smooth defaults.
func NewGenerator(cfg config.Weather, seed int64, daysPerYear int) *Generator {
	if daysPerYear < 1 {
		daysPerYear = 1
	}
	g := &Generator{
		cfg:         cfg,
		seed:        seed,
		daysPerYear: daysPerYear,
		years:       make(map[int]YearWeather),
		subs:        make(map[int]func(int, DailyWeather)),
	}
	g.temp = baseline("temp", cfg.TempMonthly, cfg.TempYear, sineYear(-2, 22))
	g.rain = baseline("rain", cfg.RainMonthly, cfg.RainYear, curve.Flat(2.5))
	g.hum = baseline("humidity", cfg.HumMonthly, cfg.HumYear, curve.Flat(65))
	g.solar = baseline("solar", cfg.SolarMonthly, cfg.SolarYear, sineYear(6, 18))
	g.wind = baseline("wind", cfg.WindMonthly, cfg.WindYear, curve.Flat(10))
	if len(cfg.MildewMonthly) == 12 {
		g.mildew = baseline("mildew", cfg.MildewMonthly, nil, nil)
	}
	return g
}

// DaysPerYear is the length of every generated year.
func (g *Generator) DaysPerYear() int { return g.daysPerYear }

// ForDay returns the weather for a day of a year, generating the year on first
// access. The day index is clamped into the year.
func (g *Generator) ForDay(year, dayOfYear int) DailyWeather {
	days := g.ensure(year).Days
	if dayOfYear < 0 {
		dayOfYear = 0
	}
	if dayOfYear >= len(days) {
		dayOfYear = len(days) - 1
	}
	return days[dayOfYear]
}

// Year returns a copy of the full series for a year.
func (g *Generator) Year(year int) YearWeather {
	yw := g.ensure(year)
	days := make([]DailyWeather, len(yw.Days))
	copy(days, yw.Days)
	return YearWeather{Year: yw.Year, Days: days}
}

// Subscribe registers a per-day callback invoked by Tick. The returned func
// removes it.
func (g *Generator) Subscribe(fn func(dayOfYear int, w DailyWeather)) (unsubscribe func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.subs, id)
	}
}

// Tick is the weather slice of the daily tick: it makes sure the year exists
// and announces today's record to subscribers.
func (g *Generator) Tick(year, dayOfYear int) DailyWeather {
	w := g.ForDay(year, dayOfYear)

	g.subMu.Lock()
	ids := make([]int, 0, len(g.subs))
	for id := range g.subs {
		ids = append(ids, id)
	}
	fns := make([]func(int, DailyWeather), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, g.subs[id])
	}
	g.subMu.Unlock()

	for _, fn := range fns {
		fn(w.DayOfYear, w)
	}
	return w
}

func (g *Generator) ensure(year int) YearWeather {
	g.mu.RLock()
	yw, ok := g.years[year]
	g.mu.RUnlock()
	if ok {
		return yw
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if yw, ok := g.years[year]; ok {
		return yw
	}
	yw = g.generate(year)
	g.years[year] = yw
	slog.Debug("weather year generated", "year", year, "days", len(yw.Days))
	return yw
}

// generate is a pure function of (seed, year, config).
func (g *Generator) generate(year int) YearWeather {
	ys := entropy.YearSeed(g.seed, year)
	rng := entropy.Stream(ys, "weather")
	fast := opensimplex.NewNormalized(ys)
	slow := opensimplex.NewNormalized(ys + 1)

	days := make([]DailyWeather, g.daysPerYear)
	for d := range days {
		t := float64(d) / float64(g.daysPerYear)
		days[d] = g.day(d, t, rng, fast, slow)
	}
	return YearWeather{Year: year, Days: days}
}

func (g *Generator) day(d int, t float64, rng *rand.Rand, fast, slow opensimplex.Noise) DailyWeather {
	c := g.cfg
	w := DailyWeather{DayOfYear: d}

	baseT := g.temp.At(t)
	baseRain := math.Max(0, g.rain.At(t))
	baseHum := g.hum.At(t)
	baseSolar := g.solar.At(t)
	baseWind := g.wind.At(t)

	// Two smooth signals plus one uniform jitter per day.
	dn := fast.Eval2(t*6, 0.123) - 0.5
	wn := slow.Eval2(t*1.2, 0.789) - 0.5
	rj := rng.Float64() - 0.5
	noise := mathx.Clamp01(c.DayNoise)

	w.TAvgC = baseT + noise*5*dn + 0.8*rj
	w.TMinC = w.TAvgC - (6 + 2*dn)
	w.TMaxC = w.TAvgC + (8 + 2*dn)

	w.HumidityPct = mathx.Clamp(baseHum+10*dn+5*rj, 25, 100)
	w.WindKph = math.Max(0, baseWind+6*wn+2*rj)
	w.WindDirDeg = rng.Float64() * 360

	// Wet/dry day: the wet probability is the baseline rain over the mean
	// event intensity, so the expected daily total tracks the baseline while
	// wet-day amounts keep an exponential tail.
	season01 := Season01(t)
	intensity := math.Max(0.5, c.RainIntensityMm*(1+c.RainIntensitySeasonality*(2*season01-1)))
	pWet := mathx.Clamp(baseRain/intensity, 0.02, 0.95)
	wetRoll := rng.Float64()
	amount := rng.ExpFloat64() * intensity
	if wetRoll < pWet {
		w.RainMm = amount
	}

	season := SeasonAt(t)
	frostRoll, heatRoll, hailRoll, stormRoll, stormAmt := rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()

	frostP := 0.0
	switch season {
	case Spring:
		frostP = mathx.Clamp01(c.FrostProbSpring)
	case Autumn:
		frostP = mathx.Clamp01(c.FrostProbAutumn)
	}
	if frostP > 0 && frostRoll < frostP {
		w.TMinC = math.Min(w.TMinC, -0.5-2*(frostRoll/frostP))
	}
	w.Frost = w.TMinC <= 0

	if heatP := mathx.Clamp01(c.HeatwaveProbSummer); season == Summer && heatP > 0 && heatRoll < heatP {
		w.TMaxC = math.Max(w.TMaxC, 34+4*(heatRoll/heatP))
	}
	w.Heatwave = w.TMaxC >= 34

	if (season == Spring || season == Summer) && hailRoll < mathx.Clamp01(c.HailProb) {
		w.Hail = true
		w.Storm = true
	} else if stormRoll < mathx.Clamp01(c.StormProb*(0.5+season01)) {
		w.Storm = true
	}
	if w.Storm {
		w.RainMm += c.StormRainMm * (0.5 + stormAmt)
	}

	w.CloudFrac = mathx.Clamp01(0.35 + 0.4*(0.5-dn) + 0.25*(1-mathx.InverseLerp(0, 24, baseSolar)))
	if w.RainMm > 0 {
		w.CloudFrac = mathx.Clamp01(w.CloudFrac + 0.15)
	}
	w.SunHours = mathx.Clamp(12*(1-w.CloudFrac)+2*dn, 0, 14.5)
	w.SolarMJm2 = math.Max(1, baseSolar*mathx.Lerp(0.6, 1.1, 1-w.CloudFrac))

	et0Coef := math.Max(0.1, c.ET0Coef)
	w.ET0Mm = math.Max(0, et0Coef*(w.SolarMJm2/5)*mathx.Lerp(0.5, 1.3, mathx.InverseLerp(5, 30, w.TAvgC)))
	w.VPDKPa = math.Max(0, SaturationVaporPressure(w.TAvgC)*(1-w.HumidityPct/100))
	w.GDDBase10 = math.Max(0, w.TAvgC-10)

	humTerm := mathx.InverseLerp(mathx.Clamp(c.MildewHumThresh, 0, 100), 100, w.HumidityPct)
	tempTerm := band(c.MildewTempBand[0], c.MildewTempBand[1], w.TAvgC)
	vpdTerm := 1 - mathx.Clamp01(w.VPDKPa/2)
	w.MildewIndex = mathx.Clamp01(0.4*humTerm+0.4*tempTerm+0.2*vpdTerm) * 100
	if g.mildew != nil {
		wgt := mathx.Clamp01(c.MildewBaselineWeight)
		w.MildewIndex = mathx.Clamp((1-wgt)*w.MildewIndex+wgt*g.mildew.At(t), 0, 100)
	}

	return w
}

// band is 1 inside [lo, hi] and falls off linearly over 6 °C outside it.
func band(lo, hi, v float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	switch {
	case v < lo:
		return mathx.Clamp01(1 - (lo-v)/6)
	case v > hi:
		return mathx.Clamp01(1 - (v-hi)/6)
	default:
		return 1
	}
}

func baseline(name string, monthly []float64, year []curve.Point, fallback *curve.Curve) *curve.Curve {
	if len(monthly) == 12 {
		c, err := curve.Monthly(monthly)
		if err == nil {
			return c
		}
		slog.Warn("monthly weather table rejected", "signal", name, "error", err)
	}
	if len(year) > 0 {
		c, err := curve.New(year, curve.Smooth)
		if err == nil {
			return c
		}
		slog.Warn("weather year curve rejected", "signal", name, "error", err)
	}
	return fallback
}

// sineYear is a five-key curve following Season01: lo at new year, hi at
// mid-summer.
func sineYear(lo, hi float64) *curve.Curve {
	mid := (lo + hi) / 2
	c, _ := curve.New([]curve.Point{{T: 0, V: lo}, {T: 0.25, V: mid}, {T: 0.5, V: hi}, {T: 0.75, V: mid}, {T: 1, V: lo}}, curve.Smooth)
	return c
}
