package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mroshb/cockpit/internal/config"
	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the shared arena store. Every connection runs in WAL mode
// with full fsync on commit, enforced foreign keys, and a bounded wait for
// the writer lock.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var logLevel gormlogger.LogLevel
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(sqlite.Open(buildDSN(cfg.DBPath, cfg.DBBusyTimeoutMS)), &gorm.Config{
		Logger: gormlogger.New(logger.StoreWriter{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: clock.System,
		// Units of work issue their own BEGIN IMMEDIATE on a pinned
		// connection; GORM must not open nested transactions.
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	logger.Info("Store opened", "path", cfg.DBPath, "max_open_conns", cfg.DBMaxOpenConns)
	return db, nil
}

func buildDSN(path string, busyTimeoutMS int) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
		&models.FightStructure{},
		&models.FightMatch{},
		&models.FightEntry{},
		&models.FightResult{},
		&models.BetSlip{},
		&models.CashDrawer{},
		&models.CashMovement{},
		&models.CanteenItem{},
		&models.StockMovement{},
		&models.Sale{},
		&models.SaleLine{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	for _, stmt := range storageRules {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration failed applying storage rule: %w", err)
		}
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// SeedFightStructures inserts the fixed match templates if absent.
func SeedFightStructures(db *gorm.DB, now time.Time) error {
	structures := make([]models.FightStructure, len(models.DefaultStructures))
	copy(structures, models.DefaultStructures)
	for i := range structures {
		structures[i].CreatedAt = now
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&structures).Error; err != nil {
		return fmt.Errorf("failed to seed fight structures: %w", err)
	}
	return nil
}
