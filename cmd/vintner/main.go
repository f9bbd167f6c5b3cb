// Command vintner runs the winery simulation with its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/talgya/vintner/internal/api"
	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/engine"
	"github.com/talgya/vintner/internal/persistence"
)

// runtimeEnv holds process settings that are not part of the game config.
type runtimeEnv struct {
	ConfigPath string `env:"VINTNER_CONFIG" envDefault:"vintner.yaml"`
	DBPath     string `env:"VINTNER_DB" envDefault:"data/vintner.db"`
	Port       int    `env:"VINTNER_PORT" envDefault:"8080"`
	AdminKey   string `env:"VINTNER_ADMIN_KEY"`
	Debug      bool   `env:"VINTNER_DEBUG"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}

	var rt runtimeEnv
	if err := env.Parse(&rt); err != nil {
		fmt.Fprintln(os.Stderr, "env:", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if rt.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(rt.ConfigPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded", "path", rt.ConfigPath, "seed", cfg.Seed,
		"seconds_per_day", cfg.Time.SecondsPerDay, "days_per_year", cfg.Time.DaysPerYear)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(rt.DBPath), 0755)
	db, err := persistence.Open(rt.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", rt.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ResetOnPlay {
		if err := db.Delete(ctx); err != nil {
			slog.Error("reset failed", "error", err)
		}
	}

	// ── Load or start a game ─────────────────────────────────────────
	sim := loadOrNew(ctx, cfg, db)

	// Autosave after every day. Snapshots are taken under the tick lock and
	// written by a separate goroutine; only the newest pending one is kept.
	saves := make(chan engine.PersistedState, 1)
	sim.OnDayChanged(func() {
		st := sim.Snapshot(time.Now())
		select {
		case saves <- st:
		default:
			select {
			case <-saves:
			default:
			}
			saves <- st
		}
	})
	saverDone := make(chan struct{})
	go func() {
		defer close(saverDone)
		for st := range saves {
			if err := db.SaveState(context.Background(), st); err != nil {
				slog.Error("daily save failed", "day", st.Day, "error", err)
			}
		}
	}()

	eng := engine.NewEngine(sim)

	// ── HTTP API ──────────────────────────────────────────────────────
	if rt.AdminKey == "" {
		slog.Warn("VINTNER_ADMIN_KEY not set, command endpoints will be disabled")
	}
	apiServer := &api.Server{Eng: eng, DB: db, Port: rt.Port, AdminKey: rt.AdminKey}
	httpSrv := apiServer.Start()

	fmt.Printf("\nVintner is open: %s.\n", engine.SimTime(sim.Day, cfg.Time.DaysPerYear))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", rt.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	// Final save on shutdown, after any pending autosave.
	var final engine.PersistedState
	eng.Do(func(s *engine.Simulation) { final = s.Snapshot(time.Now()) })
	close(saves)
	<-saverDone
	slog.Info("final save...")
	if err := db.SaveState(context.Background(), final); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Winery saved.")
}

// loadOrNew resumes the saved game, replaying the days missed offline, or
// starts a fresh one when nothing usable is saved.
func loadOrNew(ctx context.Context, cfg *config.Config, db *persistence.DB) *engine.Simulation {
	st, err := db.LoadState(ctx)
	switch {
	case errors.Is(err, persistence.ErrNoSave):
		slog.Info("no saved game found, starting a new one")
	case err != nil:
		slog.Error("failed to load saved game, starting a new one", "error", err)
	default:
		sim, caught := engine.Resume(cfg, st, time.Now())
		slog.Info("game restored",
			"day", sim.Day,
			"sim_time", engine.SimTime(sim.Day, cfg.Time.DaysPerYear),
			"offline_days", caught,
			"cash", sim.Market.Cash().String(),
		)
		return sim
	}

	sim := engine.NewGame(cfg)
	if err := db.SaveState(ctx, sim.Snapshot(time.Now())); err != nil {
		slog.Error("initial save failed", "error", err)
	}
	return sim
}
