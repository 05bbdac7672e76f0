package database

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mroshb/cockpit/internal/config"
	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

var seedTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		DBPath:          filepath.Join(t.TempDir(), "arena.sqlite3"),
		DBBusyTimeoutMS: 5000,
		DBMaxOpenConns:  4,
		AppEnv:          "test",
	}
	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, SeedFightStructures(db, seedTime))
	return db
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("/data/arena.sqlite3", 5000)
	assert.Contains(t, dsn, "file:/data/arena.sqlite3?")
	assert.Contains(t, dsn, "busy_timeout%285000%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")
	assert.Contains(t, dsn, "synchronous%28FULL%29")
	assert.Contains(t, dsn, "foreign_keys%281%29")
}

func TestConnect_Pragmas(t *testing.T) {
	db := openTestStore(t)

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestConnect_RecordNotFoundIsQuiet(t *testing.T) {
	db := openTestStore(t)
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	err := db.First(&models.User{}, 9999).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, logs.FilterField(zap.String("component", "store")).Len())

	assert.Error(t, db.Exec("UPDATE fight_structures SET default_rounds = 0").Error)
	assert.Equal(t, 1, logs.FilterField(zap.String("component", "store")).Len())
}

func TestAutoMigrate_Idempotent(t *testing.T) {
	db := openTestStore(t)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, SeedFightStructures(db, seedTime.Add(time.Hour)))

	var count int64
	require.NoError(t, db.Model(&models.FightStructure{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.DefaultStructures)), count)
}

func insertUser(t *testing.T, db *gorm.DB, username string) uint {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x", IsActive: true, CreatedAt: seedTime, UpdatedAt: seedTime}
	require.NoError(t, db.Create(u).Error)
	return u.ID
}

func TestRules_AuditLogAppendOnly(t *testing.T) {
	db := openTestStore(t)

	entry := &models.AuditLog{ActorDeviceID: "T", Action: "X", EntityType: "t", CreatedAt: seedTime}
	require.NoError(t, db.Create(entry).Error)

	assert.Error(t, db.Exec("UPDATE audit_log SET action = 'Y' WHERE id = ?", entry.ID).Error)
	assert.Error(t, db.Exec("DELETE FROM audit_log WHERE id = ?", entry.ID).Error)

	var got models.AuditLog
	require.NoError(t, db.First(&got, entry.ID).Error)
	assert.Equal(t, "X", got.Action)
}

func TestRules_OneActiveSessionPerUser(t *testing.T) {
	db := openTestStore(t)
	userID := insertUser(t, db, "cashier")

	require.NoError(t, db.Exec("INSERT INTO sessions(user_id, device_id, logged_in_at) VALUES (?, 'A', ?)", userID, seedTime).Error)
	assert.Error(t, db.Exec("INSERT INTO sessions(user_id, device_id, logged_in_at) VALUES (?, 'B', ?)", userID, seedTime).Error)

	require.NoError(t, db.Exec("UPDATE sessions SET logged_out_at = ? WHERE user_id = ?", seedTime, userID).Error)
	assert.NoError(t, db.Exec("INSERT INTO sessions(user_id, device_id, logged_in_at) VALUES (?, 'B', ?)", userID, seedTime).Error)
}

func TestRules_FirstBetLocksMatch(t *testing.T) {
	db := openTestStore(t)

	match := &models.FightMatch{MatchNumber: "M1", StructureCode: "SINGLE", Rounds: 1, State: models.MatchDraft, CreatedAt: seedTime}
	require.NoError(t, db.Create(match).Error)
	entry := &models.FightEntry{MatchID: match.ID, Side: models.SideWala, EntryName: "Red", NumCocks: 1, WeightPerCock: 2, CreatedAt: seedTime, UpdatedAt: seedTime}
	require.NoError(t, db.Omit("Match").Create(entry).Error)

	require.NoError(t, db.Exec(`INSERT INTO bet_slips(slip_number, match_id, side, amount, odds_snapshot, status, encoded_at, qr_payload)
		VALUES ('S1', ?, 'WALA', 10, '{}', 'ENCODED', ?, 'qr-1')`, match.ID, seedTime).Error)

	var got models.FightMatch
	require.NoError(t, db.First(&got, match.ID).Error)
	require.NotNil(t, got.LockedAt)
	assert.Equal(t, models.MatchLocked, got.State)

	assert.Error(t, db.Exec("UPDATE fight_entries SET entry_name = 'X' WHERE id = ?", entry.ID).Error)
	assert.Error(t, db.Exec("DELETE FROM fight_entries WHERE id = ?", entry.ID).Error)
	assert.Error(t, db.Exec(`INSERT INTO fight_entries(match_id, side, entry_name, num_cocks, weight_per_cock, created_at, updated_at)
		VALUES (?, 'MERON', 'Blue', 1, 2, ?, ?)`, match.ID, seedTime, seedTime).Error)
	assert.Error(t, db.Exec("UPDATE fight_matches SET locked_at = NULL WHERE id = ?", match.ID).Error)
}

func TestRules_ClosedMatchRejectsBets(t *testing.T) {
	db := openTestStore(t)

	match := &models.FightMatch{MatchNumber: "M2", StructureCode: "SINGLE", Rounds: 1, State: models.MatchFinished, CreatedAt: seedTime}
	require.NoError(t, db.Create(match).Error)

	err := db.Exec(`INSERT INTO bet_slips(slip_number, match_id, side, amount, odds_snapshot, status, encoded_at, qr_payload)
		VALUES ('S2', ?, 'MERON', 10, '{}', 'ENCODED', ?, 'qr-2')`, match.ID, seedTime).Error
	assert.Error(t, err)
}

func TestRules_DrawerFamilies(t *testing.T) {
	db := openTestStore(t)

	canteen := &models.CashDrawer{DrawerType: models.DrawerCanteen, Name: "C", OpenedAt: seedTime}
	require.NoError(t, db.Create(canteen).Error)

	insert := func(drawerID uint, movement string) error {
		return db.Exec(`INSERT INTO cash_movements(drawer_id, movement_type, amount, created_at) VALUES (?, ?, 10, ?)`,
			drawerID, movement, seedTime).Error
	}
	assert.Error(t, insert(canteen.ID, "BET_IN"))
	assert.Error(t, insert(canteen.ID, "PAYOUT_OUT"))
	assert.NoError(t, insert(canteen.ID, "CANTEEN_SALE_IN"))

	assert.Error(t, db.Exec("UPDATE cash_movements SET amount = 1").Error)
	assert.Error(t, db.Exec("DELETE FROM cash_movements").Error)

	require.NoError(t, db.Exec("UPDATE cash_drawers SET closed_at = ? WHERE id = ?", seedTime, canteen.ID).Error)
	assert.Error(t, insert(canteen.ID, "ADJUSTMENT_IN"))
}

func TestImmediate_RollsBack(t *testing.T) {
	db := openTestStore(t)
	boom := stderrors.New("boom")

	err := Immediate(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.User{Username: "ghost", PasswordHash: "x", CreatedAt: seedTime, UpdatedAt: seedTime}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "ghost").Count(&count).Error)
	assert.Zero(t, count)

	err = Immediate(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Create(&models.User{Username: "kept", PasswordHash: "x", CreatedAt: seedTime, UpdatedAt: seedTime}).Error
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "kept").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
