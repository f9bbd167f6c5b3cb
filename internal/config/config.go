// Package config holds the immutable session configuration consumed by every
// simulation subsystem: world size, prices, market bounds, time scale, growth,
// fermentation, aging and bottling tuning, weather parameters, and the grape
// variety and yeast catalogs.
package config

import (
	"errors"
	"fmt"

	"github.com/talgya/vintner/internal/curve"
)

// ErrInvalid is wrapped by Validate for any out-of-range setting.
var ErrInvalid = errors.New("invalid config")

// Config is the full session configuration. Treat it as read-only once a
// simulation has been built from it.
type Config struct {
	Seed         int64        `yaml:"seed"`
	ResetOnPlay  bool         `yaml:"reset_on_play"`
	World        World        `yaml:"world"`
	Economy      Economy      `yaml:"economy"`
	Market       Market       `yaml:"market"`
	Time         Time         `yaml:"time"`
	Vineyard     Vineyard     `yaml:"vineyard"`
	Fermentation Fermentation `yaml:"fermentation"`
	Aging        Aging        `yaml:"aging"`
	Bottling     Bottling     `yaml:"bottling"`
	Weather      Weather      `yaml:"weather"`
	Varieties    []Variety    `yaml:"varieties"`
	Yeasts       []Yeast      `yaml:"yeasts"`
}

// World dimensions.
type World struct {
	VineyardCols int `yaml:"vineyard_cols"`
	VineyardRows int `yaml:"vineyard_rows"`
	StartOwned   int `yaml:"start_owned"` // plots owned at game start (indices 0..n-1)
}

// Economy holds starting cash and per-item prices in whole euros.
type Economy struct {
	StartingCash         int64   `yaml:"starting_cash"`
	LandBasePrice        int     `yaml:"land_base_price"`
	PlantCostPerPlot     int     `yaml:"plant_cost_per_plot"`
	SmallTankPrice       int     `yaml:"small_tank_price"`
	MediumTankPrice      int     `yaml:"medium_tank_price"`
	LargeTankPrice       int     `yaml:"large_tank_price"`
	BarrelPrice          int     `yaml:"barrel_price"`
	BottlingMachinePrice int     `yaml:"bottling_machine_price"`
	GrapeWholesalePerKg  float64 `yaml:"grape_wholesale_per_kg"`
}

// Market bounds the random-walk index, the brand level and the price curve.
type Market struct {
	IndexMin          float64  `yaml:"index_min"`
	IndexMax          float64  `yaml:"index_max"`
	StepMax           float64  `yaml:"step_max"`
	BrandMin          float64  `yaml:"brand_min"`
	BrandMax          float64  `yaml:"brand_max"`
	ReviewNeutral     float64  `yaml:"review_neutral"`
	PriceLow          float64  `yaml:"price_low"`
	PriceHigh         float64  `yaml:"price_high"`
	PremiumVarieties  []string `yaml:"premium_varieties"`
	PremiumMultiplier float64  `yaml:"premium_multiplier"`
	RedMultiplier     float64  `yaml:"red_multiplier"`
}

// Time scale of the session.
type Time struct {
	SecondsPerDay         float64 `yaml:"seconds_per_day"`
	DaysPerYear           int     `yaml:"days_per_year"`
	OfflineCatchupCapDays int     `yaml:"offline_catchup_cap_days"`
}

// Vineyard growth tuning.
type Vineyard struct {
	SummerBrixPerDayMin      float64 `yaml:"summer_brix_per_day_min"`
	SummerBrixPerDayMax      float64 `yaml:"summer_brix_per_day_max"`
	RainBrixPenalty          float64 `yaml:"rain_brix_penalty"`
	RainThresholdMm          float64 `yaml:"rain_threshold_mm"`
	YieldPerPlotKg           float64 `yaml:"yield_per_plot_kg"`
	PHDailyDeltaTowardTarget float64 `yaml:"ph_daily_delta_toward_target"`
	PhenolicDailyGain        float64 `yaml:"phenolic_daily_gain"`
	ColorDailyGain           float64 `yaml:"color_daily_gain"`
	AromaDailyGain           float64 `yaml:"aroma_daily_gain"`
	SoilWaterCapacityMm      float64 `yaml:"soil_water_capacity_mm"`
	AcidLossPerDay           float64 `yaml:"acid_loss_per_day"`
	HailYieldLoss            float64 `yaml:"hail_yield_loss"`
	FrostYieldLoss           float64 `yaml:"frost_yield_loss"`
	DefaultLitersPerKg       float64 `yaml:"default_liters_per_kg"`
}

// Fermentation tuning.
type Fermentation struct {
	MinDays        int     `yaml:"min_days"`
	MaxDays        int     `yaml:"max_days"`
	BrixToAlcohol  float64 `yaml:"brix_to_alcohol"`
	StuckBrixFloor float64 `yaml:"stuck_brix_floor"`
	DoneBrix       float64 `yaml:"done_brix"`
	CraftBaseline  float64 `yaml:"craft_baseline"`
}

// Aging tuning. The sweet-spot window is the global fallback used when a
// variety carries none of its own.
type Aging struct {
	BarrelVolumeL          int     `yaml:"barrel_volume_l"`
	OakGainPerDay          float64 `yaml:"oak_gain_per_day"`
	OverUnderPenaltyPerDay float64 `yaml:"over_under_penalty_per_day"`
	SweetSpotDaysMin       int     `yaml:"sweet_spot_days_min"`
	SweetSpotDaysMax       int     `yaml:"sweet_spot_days_max"`
	CenterBonus            float64 `yaml:"center_bonus"`
	BaseQuality            float64 `yaml:"base_quality"`
}

// Bottling and in-bottle drift.
type Bottling struct {
	BottleSizeMl       int     `yaml:"bottle_size_ml"`
	ImprovementPerDay  float64 `yaml:"improvement_per_day"`
	WhiteDegradePerDay float64 `yaml:"white_degrade_per_day"`
}

// Weather generation parameters. Monthly arrays, when they hold 12 values,
// take precedence over the matching year curve.
type Weather struct {
	TempYear  []curve.Point `yaml:"temp_year"`
	RainYear  []curve.Point `yaml:"rain_year"`
	HumYear   []curve.Point `yaml:"hum_year"`
	SolarYear []curve.Point `yaml:"solar_year"`
	WindYear  []curve.Point `yaml:"wind_year"`

	TempMonthly   []float64 `yaml:"temp_monthly"`
	RainMonthly   []float64 `yaml:"rain_monthly"`
	HumMonthly    []float64 `yaml:"hum_monthly"`
	SolarMonthly  []float64 `yaml:"solar_monthly"`
	WindMonthly   []float64 `yaml:"wind_monthly"`
	MildewMonthly []float64 `yaml:"mildew_monthly"`

	DayNoise                 float64    `yaml:"day_noise"`
	ET0Coef                  float64    `yaml:"et0_coef"`
	FrostProbSpring          float64    `yaml:"frost_prob_spring"`
	FrostProbAutumn          float64    `yaml:"frost_prob_autumn"`
	HeatwaveProbSummer       float64    `yaml:"heatwave_prob_summer"`
	HailProb                 float64    `yaml:"hail_prob"`
	StormProb                float64    `yaml:"storm_prob"`
	RainIntensityMm          float64    `yaml:"rain_intensity_mm"`
	RainIntensitySeasonality float64    `yaml:"rain_intensity_seasonality"`
	StormRainMm              float64    `yaml:"storm_rain_mm"`
	MildewHumThresh          float64    `yaml:"mildew_hum_thresh"`
	MildewTempBand           [2]float64 `yaml:"mildew_temp_band"`
	MildewBaselineWeight     float64    `yaml:"mildew_baseline_weight"`
}

// Variety is one plantable grape.
type Variety struct {
	Name                    string  `yaml:"name"`
	IsRed                   bool    `yaml:"is_red"`
	TargetHarvestBrix       float64 `yaml:"target_harvest_brix"`
	TargetPH                float64 `yaml:"target_ph"`
	MinHarvestPhenolic      float64 `yaml:"min_harvest_phenolic"`
	SweetSpotStart          int     `yaml:"sweet_spot_start"`
	SweetSpotEnd            int     `yaml:"sweet_spot_end"`
	BottleImproveDays       float64 `yaml:"bottle_improve_days"`
	BottleWhiteDegradeStart float64 `yaml:"bottle_white_degrade_start"`
	TerroirBonus            float64 `yaml:"terroir_bonus"`
}

// Yeast is one fermentation strain.
type Yeast struct {
	Name         string  `yaml:"name"`
	Speed        float64 `yaml:"speed"`         // 0.5..1.5, scales fermentation length
	Aroma        float64 `yaml:"aroma"`         // flat craft bonus at racking
	ToleranceABV float64 `yaml:"tolerance_abv"` // fermentation stalls at this alcohol
}

// Variety looks up a variety by name.
func (c *Config) Variety(name string) (Variety, bool) {
	for _, v := range c.Varieties {
		if v.Name == name {
			return v, true
		}
	}
	return Variety{}, false
}

// Yeast looks up a yeast by name. An empty name selects the first catalog
// entry.
func (c *Config) Yeast(name string) (Yeast, bool) {
	if name == "" {
		if len(c.Yeasts) == 0 {
			return Yeast{}, false
		}
		return c.Yeasts[0], true
	}
	for _, y := range c.Yeasts {
		if y.Name == name {
			return y, true
		}
	}
	return Yeast{}, false
}

// PlotCount is the number of vineyard plots in the world.
func (c *Config) PlotCount() int {
	n := c.World.VineyardCols * c.World.VineyardRows
	if n < 1 {
		return 1
	}
	return n
}

// TankPrice returns the price of a tank of the given capacity. Only the three
// stocked sizes can be bought.
func (c *Config) TankPrice(capacityL int) (int, bool) {
	switch capacityL {
	case TankSmallL:
		return c.Economy.SmallTankPrice, true
	case TankMediumL:
		return c.Economy.MediumTankPrice, true
	case TankLargeL:
		return c.Economy.LargeTankPrice, true
	default:
		return 0, false
	}
}

// Stocked tank sizes in liters.
const (
	TankSmallL  = 1000
	TankMediumL = 3000
	TankLargeL  = 6000
)

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Time.SecondsPerDay <= 0:
		return fmt.Errorf("%w: seconds_per_day must be positive", ErrInvalid)
	case c.Time.DaysPerYear < 30 || c.Time.DaysPerYear > 400:
		return fmt.Errorf("%w: days_per_year must be within 30..400, got %d", ErrInvalid, c.Time.DaysPerYear)
	case c.Time.OfflineCatchupCapDays < 0:
		return fmt.Errorf("%w: offline_catchup_cap_days must not be negative", ErrInvalid)
	case c.Market.IndexMin > c.Market.IndexMax:
		return fmt.Errorf("%w: market index_min %.3f above index_max %.3f", ErrInvalid, c.Market.IndexMin, c.Market.IndexMax)
	case c.Market.BrandMin > c.Market.BrandMax:
		return fmt.Errorf("%w: brand_min above brand_max", ErrInvalid)
	case c.Fermentation.MinDays < 1 || c.Fermentation.MaxDays < c.Fermentation.MinDays:
		return fmt.Errorf("%w: fermentation days %d..%d", ErrInvalid, c.Fermentation.MinDays, c.Fermentation.MaxDays)
	case c.Bottling.BottleSizeMl <= 0:
		return fmt.Errorf("%w: bottle_size_ml must be positive", ErrInvalid)
	case c.World.VineyardCols < 1 || c.World.VineyardRows < 1:
		return fmt.Errorf("%w: vineyard dimensions must be positive", ErrInvalid)
	case len(c.Yeasts) == 0:
		return fmt.Errorf("%w: at least one yeast is required", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Varieties))
	for _, v := range c.Varieties {
		if v.Name == "" {
			return fmt.Errorf("%w: variety without a name", ErrInvalid)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate variety %q", ErrInvalid, v.Name)
		}
		seen[v.Name] = true
	}
	for _, m := range [][]float64{c.Weather.TempMonthly, c.Weather.RainMonthly, c.Weather.HumMonthly,
		c.Weather.SolarMonthly, c.Weather.WindMonthly, c.Weather.MildewMonthly} {
		if len(m) != 0 && len(m) != 12 {
			return fmt.Errorf("%w: monthly weather arrays need 12 values, got %d", ErrInvalid, len(m))
		}
	}
	return nil
}
