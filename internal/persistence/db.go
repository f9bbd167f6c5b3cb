// Package persistence stores saved games in SQLite. It sits outside the
// simulation core: failures come back as errors for the caller to log, and
// nothing here touches live simulation state.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/talgya/vintner/internal/economy"
	"github.com/talgya/vintner/internal/engine"
	"github.com/talgya/vintner/internal/inventory"
	"github.com/talgya/vintner/internal/production"
	"github.com/talgya/vintner/internal/vineyard"
)

// ErrNoSave is returned by LoadState when the database holds no game.
var ErrNoSave = errors.New("no saved game")

const schemaVersion = "1"

// DB wraps a SQLite connection for saved games.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plots (
		idx INTEGER PRIMARY KEY,
		owned INTEGER NOT NULL,
		variety TEXT NOT NULL,
		days_since_planting INTEGER NOT NULL,
		brix REAL NOT NULL,
		ph REAL NOT NULL,
		ta REAL NOT NULL,
		phenolic REAL NOT NULL,
		soil_moisture REAL NOT NULL,
		water_stress REAL NOT NULL,
		disease_pressure REAL NOT NULL,
		color REAL NOT NULL,
		aroma REAL NOT NULL,
		liters_per_kg REAL NOT NULL,
		yield_kg REAL NOT NULL,
		vintage_year INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tanks (
		id TEXT PRIMARY KEY,
		ord INTEGER NOT NULL,
		capacity_l INTEGER NOT NULL,
		ferment_json TEXT
	);

	CREATE TABLE IF NOT EXISTS barrels (
		id TEXT PRIMARY KEY,
		ord INTEGER NOT NULL,
		capacity_l INTEGER NOT NULL,
		aging_json TEXT
	);

	CREATE TABLE IF NOT EXISTS bottles (
		key TEXT PRIMARY KEY,
		variety TEXT NOT NULL,
		vintage_year INTEGER NOT NULL,
		is_red INTEGER NOT NULL,
		bottles INTEGER NOT NULL,
		quality REAL NOT NULL,
		has_review INTEGER NOT NULL,
		review_score INTEGER NOT NULL,
		bottled_day INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type plotRow struct {
	Idx               int     `db:"idx"`
	Owned             bool    `db:"owned"`
	Variety           string  `db:"variety"`
	DaysSincePlanting int     `db:"days_since_planting"`
	Brix              float64 `db:"brix"`
	PH                float64 `db:"ph"`
	TA                float64 `db:"ta"`
	Phenolic          float64 `db:"phenolic"`
	SoilMoisture      float64 `db:"soil_moisture"`
	WaterStress       float64 `db:"water_stress"`
	DiseasePressure   float64 `db:"disease_pressure"`
	Color             float64 `db:"color"`
	Aroma             float64 `db:"aroma"`
	LitersPerKg       float64 `db:"liters_per_kg"`
	YieldKg           float64 `db:"yield_kg"`
	VintageYear       int     `db:"vintage_year"`
}

type containerRow struct {
	ID        string         `db:"id"`
	Ord       int            `db:"ord"`
	CapacityL int            `db:"capacity_l"`
	Batch     sql.NullString `db:"batch"`
}

type bottleRow struct {
	Key         string  `db:"key"`
	Variety     string  `db:"variety"`
	VintageYear int     `db:"vintage_year"`
	IsRed       bool    `db:"is_red"`
	Bottles     int     `db:"bottles"`
	Quality     float64 `db:"quality"`
	HasReview   bool    `db:"has_review"`
	ReviewScore int     `db:"review_score"`
	BottledDay  int     `db:"bottled_day"`
}

// SaveState writes a full game in one transaction, replacing whatever was
// saved before.
func (db *DB) SaveState(ctx context.Context, st engine.PersistedState) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	for i, t := range st.Tiles {
		row := plotRow{
			Idx: i, Owned: t.Owned, Variety: t.Variety, DaysSincePlanting: t.DaysSincePlanting,
			Brix: t.Brix, PH: t.PH, TA: t.TA, Phenolic: t.Phenolic,
			SoilMoisture: t.SoilMoisture, WaterStress: t.WaterStress, DiseasePressure: t.DiseasePressure,
			Color: t.Color, Aroma: t.Aroma, LitersPerKg: t.LitersPerKg, YieldKg: t.YieldKg,
			VintageYear: t.VintageYear,
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO plots
			(idx, owned, variety, days_since_planting, brix, ph, ta, phenolic,
			 soil_moisture, water_stress, disease_pressure, color, aroma,
			 liters_per_kg, yield_kg, vintage_year)
			VALUES (:idx, :owned, :variety, :days_since_planting, :brix, :ph, :ta, :phenolic,
			 :soil_moisture, :water_stress, :disease_pressure, :color, :aroma,
			 :liters_per_kg, :yield_kg, :vintage_year)`, row); err != nil {
			return fmt.Errorf("insert plot %d: %w", i, err)
		}
	}

	for i, t := range st.Tanks {
		batch, err := nullJSON(t.Ferment)
		if err != nil {
			return fmt.Errorf("encode tank %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tanks (id, ord, capacity_l, ferment_json) VALUES (?, ?, ?, ?)",
			t.ID, i, t.CapacityL, batch,
		); err != nil {
			return fmt.Errorf("insert tank %s: %w", t.ID, err)
		}
	}

	for i, b := range st.Barrels {
		batch, err := nullJSON(b.Aging)
		if err != nil {
			return fmt.Errorf("encode barrel %s: %w", b.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO barrels (id, ord, capacity_l, aging_json) VALUES (?, ?, ?, ?)",
			b.ID, i, b.CapacityL, batch,
		); err != nil {
			return fmt.Errorf("insert barrel %s: %w", b.ID, err)
		}
	}

	for _, e := range st.Inventory {
		row := bottleRow{
			Key: e.Key, Variety: e.Variety, VintageYear: e.VintageYear, IsRed: e.IsRed,
			Bottles: e.Bottles, Quality: e.Quality, HasReview: e.HasReview,
			ReviewScore: e.ReviewScore, BottledDay: e.BottledDay,
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO bottles
			(key, variety, vintage_year, is_red, bottles, quality, has_review, review_score, bottled_day)
			VALUES (:key, :variety, :vintage_year, :is_red, :bottles, :quality, :has_review, :review_score, :bottled_day)`,
			row); err != nil {
			return fmt.Errorf("insert bottles %s: %w", e.Key, err)
		}
	}

	history, err := json.Marshal(st.Stats)
	if err != nil {
		return fmt.Errorf("encode stats history: %w", err)
	}
	meta := map[string]string{
		"stats_history":        string(history),
		"schema_version":       schemaVersion,
		"day":                  strconv.Itoa(st.Day),
		"saved_at":             st.SavedAt.UTC().Format(time.RFC3339Nano),
		"cash":                 st.Market.Cash.String(),
		"market_index":         strconv.FormatFloat(st.Market.MarketIndex, 'g', -1, 64),
		"brand_level":          strconv.FormatFloat(st.Market.BrandLevel, 'g', -1, 64),
		"has_bottling_machine": strconv.FormatBool(st.HasBottlingMachine),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("game saved", "day", st.Day, "plots", len(st.Tiles), "tanks", len(st.Tanks),
		"barrels", len(st.Barrels), "stock_lines", len(st.Inventory))
	return nil
}

// HasState reports whether a game has been saved.
func (db *DB) HasState(ctx context.Context) bool {
	_, err := db.getMeta(ctx, "day")
	return err == nil
}

// LoadState reads the saved game. It returns ErrNoSave when there is none.
func (db *DB) LoadState(ctx context.Context) (engine.PersistedState, error) {
	var st engine.PersistedState

	dayStr, err := db.getMeta(ctx, "day")
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrNoSave
	}
	if err != nil {
		return st, fmt.Errorf("read day: %w", err)
	}
	if st.Day, err = strconv.Atoi(dayStr); err != nil {
		return st, fmt.Errorf("parse day %q: %w", dayStr, err)
	}

	if st.Market, err = db.loadMarket(ctx); err != nil {
		return st, err
	}
	if v, err := db.getMeta(ctx, "saved_at"); err == nil {
		if st.SavedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return st, fmt.Errorf("parse saved_at %q: %w", v, err)
		}
	}
	if v, err := db.getMeta(ctx, "has_bottling_machine"); err == nil {
		st.HasBottlingMachine, _ = strconv.ParseBool(v)
	}
	if v, err := db.getMeta(ctx, "stats_history"); err == nil {
		if err := json.Unmarshal([]byte(v), &st.Stats); err != nil {
			return st, fmt.Errorf("decode stats history: %w", err)
		}
	}

	var plots []plotRow
	if err := db.conn.SelectContext(ctx, &plots, "SELECT * FROM plots ORDER BY idx"); err != nil {
		return st, fmt.Errorf("load plots: %w", err)
	}
	st.Tiles = make([]vineyard.Tile, 0, len(plots))
	for _, p := range plots {
		st.Tiles = append(st.Tiles, vineyard.Tile{
			Owned: p.Owned, Variety: p.Variety, DaysSincePlanting: p.DaysSincePlanting,
			Brix: p.Brix, PH: p.PH, TA: p.TA, Phenolic: p.Phenolic,
			SoilMoisture: p.SoilMoisture, WaterStress: p.WaterStress, DiseasePressure: p.DiseasePressure,
			Color: p.Color, Aroma: p.Aroma, LitersPerKg: p.LitersPerKg, YieldKg: p.YieldKg,
			VintageYear: p.VintageYear,
		})
	}

	var tanks []containerRow
	if err := db.conn.SelectContext(ctx, &tanks,
		"SELECT id, ord, capacity_l, ferment_json AS batch FROM tanks ORDER BY ord"); err != nil {
		return st, fmt.Errorf("load tanks: %w", err)
	}
	st.Tanks = make([]production.Tank, 0, len(tanks))
	for _, r := range tanks {
		t := production.Tank{ID: r.ID, CapacityL: r.CapacityL}
		if r.Batch.Valid {
			t.Ferment = &production.Fermentation{}
			if err := json.Unmarshal([]byte(r.Batch.String), t.Ferment); err != nil {
				return st, fmt.Errorf("decode tank %s: %w", r.ID, err)
			}
		}
		st.Tanks = append(st.Tanks, t)
	}

	var barrels []containerRow
	if err := db.conn.SelectContext(ctx, &barrels,
		"SELECT id, ord, capacity_l, aging_json AS batch FROM barrels ORDER BY ord"); err != nil {
		return st, fmt.Errorf("load barrels: %w", err)
	}
	st.Barrels = make([]production.Barrel, 0, len(barrels))
	for _, r := range barrels {
		b := production.Barrel{ID: r.ID, CapacityL: r.CapacityL}
		if r.Batch.Valid {
			b.Aging = &production.Aging{}
			if err := json.Unmarshal([]byte(r.Batch.String), b.Aging); err != nil {
				return st, fmt.Errorf("decode barrel %s: %w", r.ID, err)
			}
		}
		st.Barrels = append(st.Barrels, b)
	}

	var bottles []bottleRow
	if err := db.conn.SelectContext(ctx, &bottles, "SELECT * FROM bottles ORDER BY key"); err != nil {
		return st, fmt.Errorf("load bottles: %w", err)
	}
	st.Inventory = make([]inventory.Entry, 0, len(bottles))
	for _, b := range bottles {
		st.Inventory = append(st.Inventory, inventory.Entry{
			Key: b.Key, Variety: b.Variety, VintageYear: b.VintageYear, IsRed: b.IsRed,
			Bottles: b.Bottles, Quality: b.Quality, HasReview: b.HasReview,
			ReviewScore: b.ReviewScore, BottledDay: b.BottledDay,
		})
	}
	return st, nil
}

func (db *DB) loadMarket(ctx context.Context) (economy.State, error) {
	var m economy.State
	cash, err := db.getMeta(ctx, "cash")
	if err != nil {
		return m, fmt.Errorf("read cash: %w", err)
	}
	if m.Cash, err = decimal.NewFromString(cash); err != nil {
		return m, fmt.Errorf("parse cash %q: %w", cash, err)
	}
	for key, dst := range map[string]*float64{"market_index": &m.MarketIndex, "brand_level": &m.BrandLevel} {
		v, err := db.getMeta(ctx, key)
		if err != nil {
			return m, fmt.Errorf("read %s: %w", key, err)
		}
		if *dst, err = strconv.ParseFloat(v, 64); err != nil {
			return m, fmt.Errorf("parse %s %q: %w", key, v, err)
		}
	}
	return m, nil
}

// Delete removes the saved game.
func (db *DB) Delete(ctx context.Context) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sim_meta"); err != nil {
		return fmt.Errorf("clear sim_meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("saved game deleted")
	return nil
}

func clearTables(ctx context.Context, tx *sqlx.Tx) error {
	for _, table := range []string{"plots", "tanks", "barrels", "bottles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (db *DB) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM sim_meta WHERE key = ?", key)
	return value, err
}

// nullJSON encodes v, or NULL when v is a nil pointer.
func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
