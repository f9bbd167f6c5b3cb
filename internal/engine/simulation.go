package engine

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/economy"
	"github.com/talgya/vintner/internal/inventory"
	"github.com/talgya/vintner/internal/production"
	"github.com/talgya/vintner/internal/vineyard"
	"github.com/talgya/vintner/internal/weather"
)

// Simulation is the explicit context every subsystem is ticked through. A nil
// subsystem skips its slice of the day.
type Simulation struct {
	Cfg *config.Config
	Day int // days completed since the game began

	Weather    *weather.Generator
	Vineyard   *vineyard.Model
	Production *production.Pipeline
	Inventory  *inventory.Ledger
	Market     *economy.Market
	Stats      *Stats

	today   weather.DailyWeather
	obsMu   sync.Mutex
	obs     map[int]func()
	nextObs int
}

// NewSimulation builds every subsystem from cfg without any game state. Call
// InitNewGame or use Restore.
func NewSimulation(cfg *config.Config) *Simulation {
	market := economy.NewMarket(cfg, cfg.Seed)
	ledger := inventory.NewLedger(cfg, market)
	return &Simulation{
		Cfg:        cfg,
		Weather:    weather.NewGenerator(cfg.Weather, cfg.Seed, cfg.Time.DaysPerYear),
		Vineyard:   vineyard.NewModel(cfg),
		Production: production.NewPipeline(cfg, ledger),
		Inventory:  ledger,
		Market:     market,
		Stats:      NewStats(StatsHistoryDays),
		obs:        make(map[int]func()),
	}
}

// NewGame creates a fresh game on day zero.
func NewGame(cfg *config.Config) *Simulation {
	s := NewSimulation(cfg)
	s.InitNewGame()
	return s
}

// InitNewGame resets every subsystem to its starting state.
func (s *Simulation) InitNewGame() {
	s.Day = 0
	if s.Market != nil {
		s.Market.InitNewGame()
	}
	if s.Vineyard != nil {
		s.Vineyard.InitNewGame()
	}
	if s.Production != nil {
		s.Production.InitNewGame()
	}
	if s.Inventory != nil {
		s.Inventory.InitNewGame()
	}
	s.resetStats()
}

// Year is the current in-game year, from zero.
func (s *Simulation) Year() int { return s.Day / s.daysPerYear() }

// DayOfYear is the current day within the year.
func (s *Simulation) DayOfYear() int { return s.Day % s.daysPerYear() }

// Today is the weather of the current day.
func (s *Simulation) Today() weather.DailyWeather {
	if s.Weather == nil {
		return weather.DailyWeather{}
	}
	return s.Weather.ForDay(s.Year(), s.DayOfYear())
}

func (s *Simulation) daysPerYear() int {
	return max(1, s.Cfg.Time.DaysPerYear)
}

// OnDayChanged registers fn to run once after every completed day. The
// returned func unsubscribes it.
func (s *Simulation) OnDayChanged(fn func()) (unsubscribe func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	if s.obs == nil {
		s.obs = make(map[int]func())
	}
	id := s.nextObs
	s.nextObs++
	s.obs[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.obs, id)
	}
}

// SimulateOneDay runs Weather, Vineyard, Production, Inventory and Market in
// that order, advances the day and notifies observers once.
func (s *Simulation) SimulateOneDay() {
	year, doy := s.Year(), s.DayOfYear()
	hasWeather := false

	if s.Weather != nil {
		s.slice("weather", func() {
			s.today = s.Weather.Tick(year, doy)
			hasWeather = true
		})
	}
	if s.Vineyard != nil && hasWeather {
		s.slice("vineyard", func() { s.Vineyard.Tick(s.today, doy) })
	}
	if s.Production != nil {
		s.slice("production", s.Production.Tick)
	}
	if s.Inventory != nil {
		s.slice("inventory", func() { s.Inventory.Tick(s.Day) })
	}
	if s.Market != nil {
		s.slice("market", func() { s.Market.Tick(s.Day) })
	}

	s.Day++
	s.recordStats()
	s.notify()
}

// slice runs one subsystem's share of the day. A panic is logged and the rest
// of the day carries on.
func (s *Simulation) slice(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tick slice panicked", "slice", name, "day", s.Day, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (s *Simulation) notify() {
	s.obsMu.Lock()
	ids := make([]int, 0, len(s.obs))
	for id := range s.obs {
		ids = append(ids, id)
	}
	s.obsMu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		s.obsMu.Lock()
		fn, ok := s.obs[id]
		s.obsMu.Unlock()
		if ok {
			s.slice("observer", fn)
		}
	}
}
