package engine

import (
	"log/slog"
	"time"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/economy"
	"github.com/talgya/vintner/internal/inventory"
	"github.com/talgya/vintner/internal/production"
	"github.com/talgya/vintner/internal/vineyard"
)

// PersistedState is everything needed to bring a game back. Restoring it and
// simulating no further days reproduces the saved state.
type PersistedState struct {
	Day                int                 `json:"day"`
	SavedAt            time.Time           `json:"saved_at"`
	Market             economy.State       `json:"market"`
	Tiles              []vineyard.Tile     `json:"tiles"`
	Tanks              []production.Tank   `json:"tanks"`
	Barrels            []production.Barrel `json:"barrels"`
	HasBottlingMachine bool                `json:"has_bottling_machine"`
	Inventory          []inventory.Entry   `json:"inventory"`
	Stats              []DayStats          `json:"stats,omitempty"`
}

// Snapshot captures the game at now (stored as UTC).
func (s *Simulation) Snapshot(now time.Time) PersistedState {
	st := PersistedState{Day: s.Day, SavedAt: now.UTC()}
	if s.Market != nil {
		st.Market = s.Market.State()
	}
	if s.Vineyard != nil {
		st.Tiles = s.Vineyard.Tiles()
	}
	if s.Production != nil {
		st.Tanks = s.Production.Tanks()
		st.Barrels = s.Production.Barrels()
		st.HasBottlingMachine = s.Production.HasBottlingMachine()
	}
	if s.Inventory != nil {
		st.Inventory = s.Inventory.Entries()
	}
	if s.Stats != nil && s.Stats.Len() > 0 {
		st.Stats = s.Stats.Last(s.Stats.Len())
	}
	return st
}

// Restore builds a simulation from saved state without simulating anything.
func Restore(cfg *config.Config, st PersistedState) *Simulation {
	s := NewSimulation(cfg)
	s.Day = max(0, st.Day)
	s.Market.Restore(st.Market)
	s.Vineyard.Restore(st.Tiles)
	s.Production.Restore(st.Tanks, st.Barrels, st.HasBottlingMachine)
	s.Inventory.Restore(st.Inventory)
	s.resetStats()
	if len(st.Stats) > 0 {
		s.Stats.Restore(st.Stats, s.Market.Cash())
	}
	return s
}

// OfflineDays is how many days passed between the save and now, capped by
// the configured catch-up limit. Days beyond the cap are dropped.
func OfflineDays(cfg *config.Config, savedAt, now time.Time) int {
	spd := cfg.Time.SecondsPerDay
	if spd <= 0 || savedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(savedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	days := int(elapsed / spd)
	return min(days, max(0, cfg.Time.OfflineCatchupCapDays))
}

// Resume restores saved state and replays the days missed while offline. It
// returns the simulation and the number of days replayed.
func Resume(cfg *config.Config, st PersistedState, now time.Time) (*Simulation, int) {
	s := Restore(cfg, st)
	n := OfflineDays(cfg, st.SavedAt, now)
	for range n {
		s.SimulateOneDay()
	}
	if n > 0 {
		slog.Info("offline catch-up", "days", n, "day", s.Day)
	}
	return s, n
}
