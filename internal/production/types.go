// Package production turns harvested grapes into bottled wine: fermentation
// in tanks, aging in barrels and bottling, with best-fit container
// allocation between the stages.
package production

// Tank holds at most one fermenting batch. A nil Ferment is an empty tank.
type Tank struct {
	ID        string        `json:"id"`
	CapacityL int           `json:"capacity_l"`
	Ferment   *Fermentation `json:"ferment,omitempty"`
}

// Empty reports whether the tank can receive a batch.
func (t Tank) Empty() bool { return t.Ferment == nil }

// Fermentation is a batch of must turning into wine.
type Fermentation struct {
	Variety        string  `json:"variety"`
	VintageYear    int     `json:"vintage_year"`
	StartBrix      float64 `json:"start_brix"`
	CurrentBrix    float64 `json:"current_brix"`
	PH             float64 `json:"ph"`
	Phenolic       float64 `json:"phenolic"`
	AlcoholABV     float64 `json:"alcohol_abv"`
	Yeast          string  `json:"yeast"`
	DaysFermenting int     `json:"days_fermenting"`
	TargetDays     int     `json:"target_days"`
	Liters         int     `json:"liters"`
	Stuck          bool    `json:"stuck,omitempty"` // yeast hit its alcohol tolerance
}

// Barrel holds at most one aging batch. A nil Aging is an empty barrel.
type Barrel struct {
	ID        string `json:"id"`
	CapacityL int    `json:"capacity_l"`
	Aging     *Aging `json:"aging,omitempty"`
}

// Empty reports whether the barrel can be racked into.
func (b Barrel) Empty() bool { return b.Aging == nil }

// Aging is wine resting in oak.
type Aging struct {
	Variety      string  `json:"variety"`
	VintageYear  int     `json:"vintage_year"`
	Liters       int     `json:"liters"`
	DaysInBarrel int     `json:"days_in_barrel"`
	CraftQuality float64 `json:"craft_quality"`
}

// BottledWine is the immutable output of one bottling run.
type BottledWine struct {
	Variety        string  `json:"variety"`
	VintageYear    int     `json:"vintage_year"`
	IsRed          bool    `json:"is_red"`
	InitialQuality float64 `json:"initial_quality"`
	Bottles        int     `json:"bottles"`
	BottledDay     int     `json:"bottled_day"`
}

// Receipt describes where a received batch went.
type Receipt struct {
	TankID        string `json:"tank_id"`
	TankCapacityL int    `json:"tank_capacity_l"`
	Liters        int    `json:"liters"`
	TargetDays    int    `json:"target_days"`
}

// BottleSink receives every bottling run. The inventory ledger implements it.
type BottleSink interface {
	AddBottles(w BottledWine)
}

// Wallet pays for equipment.
type Wallet interface {
	TrySpend(amount int) bool
}

func (t Tank) clone() Tank {
	if t.Ferment != nil {
		f := *t.Ferment
		t.Ferment = &f
	}
	return t
}

func (b Barrel) clone() Barrel {
	if b.Aging != nil {
		a := *b.Aging
		b.Aging = &a
	}
	return b
}
