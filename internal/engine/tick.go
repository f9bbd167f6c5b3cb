// Package engine provides the day-tick loop and the simulation context that
// wires the subsystems together.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/talgya/vintner/internal/weather"
)

// Engine drives a Simulation forward in real time. Every access to the
// simulation goes through the engine's lock so that external commands never
// land in the middle of a day.
type Engine struct {
	Interval time.Duration // wake-up period of Run (default 100ms)

	mu      sync.Mutex
	sim     *Simulation
	speed   float64 // 1.0 = real time, 0 = paused
	pending float64 // real seconds not yet turned into a day
	cancel  context.CancelFunc
}

// NewEngine creates an engine at normal speed.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Interval: 100 * time.Millisecond,
		sim:      sim,
		speed:    1.0,
	}
}

// Speed returns the current multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the multiplier. Zero or less pauses the clock.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	e.speed = v
}

// AdvanceBy banks elapsed real time and simulates every whole day it covers.
// It returns the number of days simulated.
func (e *Engine) AdvanceBy(elapsed time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advance(elapsed.Seconds())
}

func (e *Engine) advance(seconds float64) int {
	spd := e.sim.Cfg.Time.SecondsPerDay
	if spd <= 0 || seconds <= 0 {
		return 0
	}
	e.pending += seconds
	days := 0
	for e.pending >= spd {
		e.pending -= spd
		e.sim.SimulateOneDay()
		days++
	}
	return days
}

// DayProgress is how far the current day has run, 0..1.
func (e *Engine) DayProgress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	spd := e.sim.Cfg.Time.SecondsPerDay
	if spd <= 0 {
		return 0
	}
	return math.Min(1, math.Max(0, e.pending/spd))
}

// Do runs fn against the simulation with the tick lock held.
func (e *Engine) Do(fn func(s *Simulation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sim)
}

// Run advances the simulation with the wall clock, scaled by speed, until ctx
// is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	day := e.sim.Day
	e.mu.Unlock()
	defer cancel()

	interval := e.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("simulation engine started", "day", day, "speed", e.Speed())
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			day = e.sim.Day
			e.mu.Unlock()
			slog.Info("simulation engine stopped", "day", day)
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			e.mu.Lock()
			if e.speed > 0 {
				e.advance(elapsed.Seconds() * e.speed)
			}
			e.mu.Unlock()
		}
	}
}

// Stop halts a running Run loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// SimTime renders a day counter as "Summer Day 12, Year 3".
func SimTime(day, daysPerYear int) string {
	if daysPerYear < 1 {
		daysPerYear = 1
	}
	year := day / daysPerYear
	doy := day % daysPerYear
	season := weather.SeasonAt(float64(doy) / float64(daysPerYear))
	return fmt.Sprintf("%s Day %d, Year %d", season, doy+1, year+1)
}
