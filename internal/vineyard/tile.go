// Package vineyard models the owned plots: purchase, planting, daily vine
// physiology driven by the weather, harvest readiness and the grape batches
// a harvest emits.
package vineyard

// Seasonal baselines a plot returns to when planted or harvested.
const (
	baselineBrix     = 12.0
	baselinePH       = 3.2
	baselinePhenolic = 10.0
	baselineTA       = 7.0
	baselineMoisture = 0.5

	// HarvestThreshold is the minimum readiness a plot needs to be picked.
	HarvestThreshold = 0.65
)

// Tile is the mutable state of one vineyard plot. Only the Model mutates it;
// accessors hand out copies.
type Tile struct {
	Owned             bool    `json:"owned"`
	Variety           string  `json:"variety,omitempty"` // empty when nothing is planted
	DaysSincePlanting int     `json:"days_since_planting"`
	Brix              float64 `json:"brix"`
	PH                float64 `json:"ph"`
	TA                float64 `json:"ta"` // titratable acidity, g/L
	Phenolic          float64 `json:"phenolic"`
	SoilMoisture      float64 `json:"soil_moisture"`
	WaterStress       float64 `json:"water_stress"`
	DiseasePressure   float64 `json:"disease_pressure"`
	Color             float64 `json:"color"`
	Aroma             float64 `json:"aroma"`
	LitersPerKg       float64 `json:"liters_per_kg"`
	YieldKg           float64 `json:"yield_kg"`
	VintageYear       int     `json:"vintage_year"`
}

// Planted reports whether a variety grows on the plot.
func (t Tile) Planted() bool { return t.Variety != "" }

// GrapeBatch is the immutable snapshot a harvest hands to production.
type GrapeBatch struct {
	Variety         string  `json:"variety"`
	VintageYear     int     `json:"vintage_year"`
	Kg              int     `json:"kg"`
	Brix            float64 `json:"brix"`
	PH              float64 `json:"ph"`
	Phenolic        float64 `json:"phenolic"`
	TA              float64 `json:"ta"`
	YAN             float64 `json:"yan"` // yeast assimilable nitrogen, mg N/L
	WaterStress     float64 `json:"water_stress"`
	DiseasePressure float64 `json:"disease_pressure"`
	Color           float64 `json:"color"`
	Aroma           float64 `json:"aroma"`
	MustTempC       float64 `json:"must_temp_c"`
	Dilution        float64 `json:"dilution"`
	LitersPerKg     float64 `json:"liters_per_kg"`
}

// Liters is the juice volume the batch converts to.
func (b GrapeBatch) Liters() float64 {
	return float64(b.Kg) * b.LitersPerKg
}

// Wallet is the slice of the market the vineyard spends from.
type Wallet interface {
	TrySpend(amount int) bool
}
