package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mroshb/cockpit/internal/config"
	"github.com/mroshb/cockpit/internal/database"
	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/notify"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testDevice   = "TEST"
	testPassword = "arena-pass-1"
	testSecret   = "this_is_a_test_session_secret_with_32_chars"
)

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	clock  *clock.Fixed
	alerts *notify.Recorder
	ledger *Ledger
	system Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		DBPath:          filepath.Join(t.TempDir(), "arena.sqlite3"),
		DBBusyTimeoutMS: 5000,
		DBMaxOpenConns:  4,
		AppEnv:          "test",
	}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	fixed := clock.NewFixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedFightStructures(db, fixed.Now()))

	alerts := &notify.Recorder{}
	f := &fixture{
		t:      t,
		db:     db,
		clock:  fixed,
		alerts: alerts,
		system: SystemActor(testDevice),
		ledger: NewLedger(db, Options{
			Clock:         fixed.Now,
			SessionSecret: testSecret,
			PasswordCost:  bcrypt.MinCost,
			Notifier:      alerts,
		}),
	}
	f.mustRun(func(s *Services) error { return s.Access.SeedDefaults() })
	return f
}

func (f *fixture) run(fn func(s *Services) error) error {
	return f.ledger.Run(context.Background(), fn)
}

func (f *fixture) mustRun(fn func(s *Services) error) {
	f.t.Helper()
	require.NoError(f.t, f.run(fn))
}

func (f *fixture) view() *Services {
	return f.ledger.View(context.Background())
}

func (f *fixture) createUser(username string, roles ...string) uint {
	f.t.Helper()
	var id uint
	f.mustRun(func(s *Services) error {
		var err error
		id, err = s.Auth.CreateUser(f.system, NewUser{Username: username, Password: testPassword, FullName: username, RoleNames: roles})
		return err
	})
	return id
}

func (f *fixture) createMatch(number string) uint {
	f.t.Helper()
	var id uint
	f.mustRun(func(s *Services) error {
		var err error
		id, err = s.Fights.CreateMatch(f.system, NewMatch{MatchNumber: number, StructureCode: "SINGLE", Rounds: 1})
		return err
	})
	return id
}

func (f *fixture) addEntry(matchID uint, side models.Side, name string) (uint, error) {
	var id uint
	err := f.run(func(s *Services) error {
		var err error
		id, err = s.Fights.AddEntry(f.system, NewEntry{MatchID: matchID, Side: side, EntryName: name, Owner: "Owner", NumCocks: 1, WeightPerCock: 2.1, Color: "Red"})
		return err
	})
	return id, err
}

// placePrintedBet encodes a bet with its cash-in and prints the slip.
func (f *fixture) placePrintedBet(cashierID, matchID uint, side models.Side, amount int64) *EncodedBet {
	f.t.Helper()
	bet, err := f.ledger.EncodeBetWithCash(context.Background(), UserActor(cashierID, testDevice), cashierID, testDevice, matchID, side, amount)
	require.NoError(f.t, err)
	f.mustRun(func(s *Services) error { return s.Betting.MarkPrinted(UserActor(cashierID, testDevice), bet.ID) })
	return bet
}

func (f *fixture) setResult(matchID uint, result models.ResultType) {
	f.t.Helper()
	f.mustRun(func(s *Services) error { return s.Fights.SetResult(f.system, matchID, result, "", false) })
}

func (f *fixture) countAudit(action string) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func (f *fixture) match(id uint) models.FightMatch {
	f.t.Helper()
	var m models.FightMatch
	require.NoError(f.t, f.db.First(&m, id).Error)
	return m
}
