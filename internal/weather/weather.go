// Package weather generates the procedural daily weather that drives the
// vineyard. One YearWeather is produced per (seed, year) from seasonal
// baselines, smooth noise and seeded event rolls, then cached.
package weather

import "math"

// DailyWeather is the immutable record for one simulated day.
type DailyWeather struct {
	DayOfYear int `json:"day_of_year"`

	TMinC float64 `json:"t_min_c"`
	TAvgC float64 `json:"t_avg_c"`
	TMaxC float64 `json:"t_max_c"`

	RainMm      float64 `json:"rain_mm"`
	HumidityPct float64 `json:"humidity_pct"`
	WindKph     float64 `json:"wind_kph"`
	WindDirDeg  float64 `json:"wind_dir_deg"`

	SolarMJm2 float64 `json:"solar_mj_m2"` // MJ/m² per day
	SunHours  float64 `json:"sun_hours"`
	CloudFrac float64 `json:"cloud_frac"` // 0..1

	ET0Mm     float64 `json:"et0_mm"`  // reference evapotranspiration
	VPDKPa    float64 `json:"vpd_kpa"` // vapor-pressure deficit
	GDDBase10 float64 `json:"gdd_base10"`

	Frost    bool `json:"frost"`
	Heatwave bool `json:"heatwave"`
	Hail     bool `json:"hail"`
	Storm    bool `json:"storm"`

	MildewIndex float64 `json:"mildew_index"` // 0..100
}

// YearWeather is the full generated series for one year.
type YearWeather struct {
	Year int            `json:"year"`
	Days []DailyWeather `json:"days"`
}

// Season of the arcade year. The year fraction t starts in mid-winter and
// peaks in summer at t = 0.5.
type Season uint8

const (
	Winter Season = iota
	Spring
	Summer
	Autumn
)

// String returns the season name.
func (s Season) String() string {
	switch s {
	case Winter:
		return "Winter"
	case Spring:
		return "Spring"
	case Summer:
		return "Summer"
	case Autumn:
		return "Autumn"
	default:
		return "Unknown"
	}
}

// SeasonAt maps a year fraction to its season. Each season is a quarter
// centred on its peak: spring at 0.25, summer at 0.5, autumn at 0.75.
func SeasonAt(t float64) Season {
	t = t - math.Floor(t)
	switch {
	case t >= 0.125 && t < 0.375:
		return Spring
	case t >= 0.375 && t < 0.625:
		return Summer
	case t >= 0.625 && t < 0.875:
		return Autumn
	default:
		return Winter
	}
}

// Season01 is a smooth 0..1 seasonal signal: 0 at new year, 1 at mid-summer.
func Season01(t float64) float64 {
	return math.Sin(t*2*math.Pi-math.Pi/2)*0.5 + 0.5
}

// SaturationVaporPressure returns es in kPa for a temperature in °C (Tetens).
func SaturationVaporPressure(tempC float64) float64 {
	return 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
}
