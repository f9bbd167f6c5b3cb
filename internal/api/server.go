// Package api serves the winery over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token and issue player commands.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/talgya/vintner/internal/engine"
	"github.com/talgya/vintner/internal/inventory"
	"github.com/talgya/vintner/internal/production"
	"github.com/talgya/vintner/internal/vineyard"
	"github.com/talgya/vintner/internal/weather"
)

// Saver persists a snapshot of the game.
type Saver interface {
	SaveState(ctx context.Context, st engine.PersistedState) error
}

// Server serves the game state over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       Saver // nil disables /snapshot
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	snapshotLimiter := NewRateLimiter(6, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/vineyard", s.handleVineyard)
	mux.HandleFunc("/api/v1/cellar", s.handleCellar)
	mux.HandleFunc("/api/v1/inventory", s.handleInventory)
	mux.HandleFunc("/api/v1/weather", s.handleWeather)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	mux.HandleFunc("/api/v1/plot/buy", s.command(s.handleBuyPlot))
	mux.HandleFunc("/api/v1/plot/plant", s.command(s.handlePlant))
	mux.HandleFunc("/api/v1/plot/harvest", s.command(s.handleHarvest))
	mux.HandleFunc("/api/v1/tank", s.command(s.handleBuyTank))
	mux.HandleFunc("/api/v1/barrel", s.command(s.handleBuyBarrel))
	mux.HandleFunc("/api/v1/bottler", s.command(s.handleBuyBottler))
	mux.HandleFunc("/api/v1/rack", s.command(s.handleRack))
	mux.HandleFunc("/api/v1/bottle", s.command(s.handleBottle))
	mux.HandleFunc("/api/v1/sell", s.command(s.handleSell))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.command(RateLimitMiddleware(snapshotLimiter, s.handleSnapshot)))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. Shut the returned server
// down to stop it.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set VINTNER_CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range strings.Split(os.Getenv("VINTNER_CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no VINTNER_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// command is adminOnly for POST-only endpoints.
func (s *Server) command(next http.HandlerFunc) http.HandlerFunc {
	return s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":         "Vintner",
		"speed":        s.Eng.Speed(),
		"day_progress": s.Eng.DayProgress(),
	}
	s.Eng.Do(func(sim *engine.Simulation) {
		today := sim.Today()
		status["day"] = sim.Day
		status["year"] = sim.Year()
		status["day_of_year"] = sim.DayOfYear()
		status["sim_time"] = engine.SimTime(sim.Day, sim.Cfg.Time.DaysPerYear)
		status["weather"] = today
		if sim.Market != nil {
			st := sim.Market.State()
			status["cash"] = st.Cash
			status["market_index"] = st.MarketIndex
			status["brand_level"] = st.BrandLevel
		}
		if sim.Production != nil {
			status["has_bottling_machine"] = sim.Production.HasBottlingMachine()
		}
		if sim.Inventory != nil {
			status["bottles"] = sim.Inventory.Bottles()
		}
	})
	writeJSON(w, status)
}

func (s *Server) handleVineyard(w http.ResponseWriter, r *http.Request) {
	type plotView struct {
		Index      int           `json:"index"`
		Tile       vineyard.Tile `json:"tile"`
		Readiness  float64       `json:"readiness"`
		CanHarvest bool          `json:"can_harvest"`
	}
	plots := []plotView{}
	s.Eng.Do(func(sim *engine.Simulation) {
		if sim.Vineyard == nil {
			return
		}
		for i, t := range sim.Vineyard.Tiles() {
			ok, ready := sim.Vineyard.CanHarvest(i)
			plots = append(plots, plotView{Index: i, Tile: t, Readiness: ready, CanHarvest: ok})
		}
	})
	writeJSON(w, plots)
}

func (s *Server) handleCellar(w http.ResponseWriter, r *http.Request) {
	type tankView struct {
		production.Tank
		CanRack bool `json:"can_rack"`
	}
	type barrelView struct {
		production.Barrel
		CanBottle bool `json:"can_bottle"`
	}
	resp := struct {
		Tanks              []tankView   `json:"tanks"`
		Barrels            []barrelView `json:"barrels"`
		HasBottlingMachine bool         `json:"has_bottling_machine"`
	}{Tanks: []tankView{}, Barrels: []barrelView{}}

	s.Eng.Do(func(sim *engine.Simulation) {
		if sim.Production == nil {
			return
		}
		for _, t := range sim.Production.Tanks() {
			resp.Tanks = append(resp.Tanks, tankView{Tank: t, CanRack: sim.Production.CanRack(t.ID)})
		}
		for _, b := range sim.Production.Barrels() {
			resp.Barrels = append(resp.Barrels, barrelView{Barrel: b, CanBottle: sim.Production.CanBottle(b.ID)})
		}
		resp.HasBottlingMachine = sim.Production.HasBottlingMachine()
	})
	writeJSON(w, resp)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	type stockView struct {
		inventory.Entry
		Price decimal.Decimal `json:"price"`
	}
	stock := []stockView{}
	s.Eng.Do(func(sim *engine.Simulation) {
		if sim.Inventory == nil {
			return
		}
		for _, e := range sim.Inventory.Entries() {
			v := stockView{Entry: e, Price: decimal.Zero}
			if sim.Market != nil {
				v.Price = sim.Market.PriceForWine(e.Quality, e.Variety, e.IsRed)
			}
			stock = append(stock, v)
		}
	})
	writeJSON(w, stock)
}

// handleWeather returns the weather for ?day=N, or today.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	day := -1
	if d := r.URL.Query().Get("day"); d != "" {
		v, err := strconv.Atoi(d)
		if err != nil || v < 0 {
			http.Error(w, "day must be a non-negative integer", http.StatusBadRequest)
			return
		}
		day = v
	}

	var resp map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		if day < 0 {
			day = sim.Day
		}
		if sim.Weather == nil {
			return
		}
		dpy := sim.Weather.DaysPerYear()
		wx := sim.Weather.ForDay(day/dpy, day%dpy)
		resp = map[string]any{
			"day":     day,
			"season":  weather.SeasonAt(float64(day%dpy) / float64(dpy)).String(),
			"weather": wx,
		}
	})
	if resp == nil {
		http.Error(w, "weather not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n := 30
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 && v <= engine.StatsHistoryDays {
			n = v
		}
	}
	days := []engine.DayStats{}
	s.Eng.Do(func(sim *engine.Simulation) {
		if sim.Stats != nil {
			days = sim.Stats.Last(n)
		}
	})
	writeJSON(w, days)
}

func (s *Server) handleBuyPlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plot int `json:"plot"`
	}
	if !decode(w, r, &req) {
		return
	}
	var ok bool
	s.Eng.Do(func(sim *engine.Simulation) { ok = sim.BuyPlot(req.Plot) })
	writeResult(w, ok, map[string]any{"plot": req.Plot})
}

func (s *Server) handlePlant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plot    int    `json:"plot"`
		Variety string `json:"variety"`
	}
	if !decode(w, r, &req) {
		return
	}
	var ok bool
	s.Eng.Do(func(sim *engine.Simulation) { ok = sim.Plant(req.Plot, req.Variety) })
	writeResult(w, ok, map[string]any{"plot": req.Plot, "variety": req.Variety})
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plot     int    `json:"plot"`
		Yeast    string `json:"yeast"`
		Fallback string `json:"fallback"` // "wholesale" (default) or "discard"
	}
	if !decode(w, r, &req) {
		return
	}
	var fallback engine.Fallback
	switch req.Fallback {
	case "", "wholesale":
		fallback = engine.Wholesale
	case "discard":
	default:
		http.Error(w, "fallback must be wholesale or discard", http.StatusBadRequest)
		return
	}

	var res engine.HarvestResult
	s.Eng.Do(func(sim *engine.Simulation) { res = sim.Harvest(req.Plot, req.Yeast, fallback) })
	writeResult(w, res.Harvested, map[string]any{"harvest": res})
}

func (s *Server) handleBuyTank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CapacityL int `json:"capacity_l"`
	}
	if !decode(w, r, &req) {
		return
	}
	var id string
	var ok bool
	s.Eng.Do(func(sim *engine.Simulation) { id, ok = sim.BuyTank(req.CapacityL) })
	writeResult(w, ok, map[string]any{"tank_id": id})
}

func (s *Server) handleBuyBarrel(w http.ResponseWriter, r *http.Request) {
	var id string
	var ok bool
	s.Eng.Do(func(sim *engine.Simulation) { id, ok = sim.BuyBarrel() })
	writeResult(w, ok, map[string]any{"barrel_id": id})
}

func (s *Server) handleBuyBottler(w http.ResponseWriter, r *http.Request) {
	var ok bool
	s.Eng.Do(func(sim *engine.Simulation) { ok = sim.BuyBottlingMachine() })
	writeResult(w, ok, nil)
}

func (s *Server) handleRack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TankID string `json:"tank_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	var ok bool
	s.Eng.Do(func(sim *engine.Simulation) { ok = sim.RackToBarrel(req.TankID) })
	writeResult(w, ok, map[string]any{"tank_id": req.TankID})
}

func (s *Server) handleBottle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BarrelID string `json:"barrel_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	var wine production.BottledWine
	var ok bool
	s.Eng.Do(func(sim *engine.Simulation) { wine, ok = sim.Bottle(req.BarrelID) })
	writeResult(w, ok, map[string]any{"wine": wine})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variety string `json:"variety"`
		Vintage int    `json:"vintage"`
		Qty     int    `json:"qty"`
	}
	if !decode(w, r, &req) {
		return
	}
	var sold int
	var revenue decimal.Decimal
	s.Eng.Do(func(sim *engine.Simulation) { sold, revenue = sim.Sell(req.Variety, req.Vintage, req.Qty) })
	writeResult(w, sold > 0, map[string]any{"sold": sold, "revenue": revenue})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var st engine.PersistedState
	s.Eng.Do(func(sim *engine.Simulation) { st = sim.Snapshot(time.Now()) })
	if err := s.DB.SaveState(r.Context(), st); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"day":     st.Day,
		"message": "snapshot saved",
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeResult reports a command outcome. Refused commands get 409 so clients
// can tell them from malformed requests.
func writeResult(w http.ResponseWriter, ok bool, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["ok"] = ok
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(data)
		return
	}
	writeJSON(w, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
