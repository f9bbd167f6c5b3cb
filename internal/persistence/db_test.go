package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/vintner/internal/config"
	"github.com/talgya/vintner/internal/engine"
	"github.com/talgya/vintner/internal/vineyard"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "vintner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func playedGame(t *testing.T, cfg *config.Config) *engine.Simulation {
	t.Helper()
	s := engine.NewGame(cfg)
	require.True(t, s.Plant(0, "Pinot Noir"))
	_, ok := s.BuyTank(config.TankLargeL)
	require.True(t, ok)
	_, ok = s.BuyBarrel()
	require.True(t, ok)
	require.True(t, s.BuyBottlingMachine())

	tiles := s.Vineyard.Tiles()
	tiles[1] = vineyard.Tile{
		Owned: true, Variety: "Cabernet Sauvignon",
		Brix: 24, PH: 3.6, Phenolic: 95, TA: 6,
		SoilMoisture: 0.4, LitersPerKg: 0.7, YieldKg: 1200,
	}
	s.Vineyard.Restore(tiles)
	require.True(t, s.Harvest(1, "Robust", nil).Harvested)
	for range 30 {
		s.SimulateOneDay()
	}
	return s
}

func canonical(t *testing.T, cfg *config.Config, st engine.PersistedState, now time.Time) string {
	t.Helper()
	raw, err := json.Marshal(engine.Restore(cfg, st).Snapshot(now))
	require.NoError(t, err)
	return string(raw)
}

func TestLoadStateEmpty(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	assert.False(t, db.HasState(ctx))
	_, err := db.LoadState(ctx)
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Aging.BarrelVolumeL = 1000
	db := openTemp(t)
	ctx := context.Background()

	s := playedGame(t, cfg)
	now := time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC)
	before := s.Snapshot(now)
	require.NoError(t, db.SaveState(ctx, before))
	assert.True(t, db.HasState(ctx))

	loaded, err := db.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Day, loaded.Day)
	assert.True(t, before.SavedAt.Equal(loaded.SavedAt))
	assert.True(t, before.Market.Cash.Equal(loaded.Market.Cash))
	assert.Equal(t, before.Market.MarketIndex, loaded.Market.MarketIndex)
	assert.Equal(t, before.Tiles, loaded.Tiles)
	assert.Equal(t, before.Tanks, loaded.Tanks)
	assert.Equal(t, before.Barrels, loaded.Barrels)
	assert.True(t, loaded.HasBottlingMachine)
	require.NotEmpty(t, before.Stats)
	require.Len(t, loaded.Stats, len(before.Stats))
	assert.Equal(t, before.Stats[len(before.Stats)-1].Day, loaded.Stats[len(loaded.Stats)-1].Day)

	assert.JSONEq(t, canonical(t, cfg, before, now), canonical(t, cfg, loaded, now))
}

func TestSaveReplacesPreviousGame(t *testing.T) {
	cfg := config.Default()
	cfg.Aging.BarrelVolumeL = 1000
	db := openTemp(t)
	ctx := context.Background()

	require.NoError(t, db.SaveState(ctx, playedGame(t, cfg).Snapshot(time.Now())))

	fresh := engine.NewGame(cfg).Snapshot(time.Now())
	require.NoError(t, db.SaveState(ctx, fresh))

	loaded, err := db.LoadState(ctx)
	require.NoError(t, err)
	assert.Zero(t, loaded.Day)
	assert.Empty(t, loaded.Tanks)
	assert.Empty(t, loaded.Barrels)
	assert.False(t, loaded.HasBottlingMachine)
	assert.Empty(t, loaded.Stats)
	assert.Len(t, loaded.Tiles, cfg.PlotCount())
}

func TestDeleteClearsSave(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	require.NoError(t, db.SaveState(ctx, engine.NewGame(config.Default()).Snapshot(time.Now())))
	require.True(t, db.HasState(ctx))

	require.NoError(t, db.Delete(ctx))
	assert.False(t, db.HasState(ctx))
	_, err := db.LoadState(ctx)
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestLegacyStockKeysAreMigratedOnRestore(t *testing.T) {
	cfg := config.Default()
	db := openTemp(t)
	ctx := context.Background()
	require.NoError(t, db.SaveState(ctx, engine.NewGame(cfg).Snapshot(time.Now())))

	_, err := db.conn.Exec(`INSERT INTO bottles
		(key, variety, vintage_year, is_red, bottles, quality, has_review, review_score, bottled_day)
		VALUES ('Pinot Noir_3', '', 0, 1, 40, 70, 0, 0, 1100)`)
	require.NoError(t, err)

	loaded, err := db.LoadState(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Inventory, 1)

	s := engine.Restore(cfg, loaded)
	assert.Equal(t, 40, s.Inventory.Count("Pinot Noir", 3))
}
