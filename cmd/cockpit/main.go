package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/cockpit/internal/config"
	"github.com/mroshb/cockpit/internal/database"
	"github.com/mroshb/cockpit/internal/middleware"
	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/notify"
	"github.com/mroshb/cockpit/internal/reports"
	"github.com/mroshb/cockpit/internal/repositories"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/internal/services"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/logger"
	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

func main() {
	exportPath := pflag.StringP("export", "e", "", "write the reports workbook to this .xlsx path and exit")
	pflag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.AppEnv)
	defer logger.Sync()

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	deviceID := security.DeviceID(cfg.DeviceID)
	logger.Bind("device_id", deviceID)
	logger.Info("Starting cockpit ledger")

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := database.SeedFightStructures(db, clock.System()); err != nil {
		logger.Fatal("Failed to seed fight structures", err)
	}

	if *exportPath != "" {
		if err := exportReports(db, *exportPath); err != nil {
			logger.Fatal("Failed to export reports", err)
		}
		logger.Info("Reports exported", "path", *exportPath)
		return
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.AlertsEnabled() {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramAlertChatID)
		if err != nil {
			logger.Warn("Supervisor alerts disabled", "error", err)
		} else {
			notifier = tg
		}
	}

	ledger := services.NewLedger(db, services.Options{
		Clock:          clock.System,
		MinBet:         cfg.MinBet,
		DrawMultiplier: cfg.DrawPayoutMultiplier,
		StaleAfter:     cfg.StaleAfter(),
		SessionSecret:  cfg.SessionSecret,
		LoginLimiter:   middleware.NewLoginLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow(), clock.System),
		Notifier:       notifier,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system := services.SystemActor(deviceID)
	err = ledger.Run(ctx, func(s *services.Services) error {
		if err := s.Access.SeedDefaults(); err != nil {
			return err
		}
		_, err := s.Auth.ReapStale(system)
		return err
	})
	if err != nil {
		logger.Fatal("Failed to prepare ledger", err)
	}

	if err := bootstrapAdmin(ctx, ledger, cfg, system); err != nil {
		logger.Fatal("Failed to bootstrap admin", err)
	}

	logger.Info("Ledger ready", "stale_after", cfg.StaleAfter().String())

	// Sessions of terminals that stopped sending heartbeats are closed on
	// the heartbeat cadence.
	ticker := time.NewTicker(time.Duration(cfg.HeartbeatSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down gracefully...")
			return
		case <-ticker.C:
			err := ledger.Run(ctx, func(s *services.Services) error {
				_, err := s.Auth.ReapStale(system)
				return err
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Failed to reap stale sessions", "error", err)
			}
		}
	}
}

// bootstrapAdmin creates the first Admin account from config when the
// store has no users.
func bootstrapAdmin(ctx context.Context, ledger *services.Ledger, cfg *config.Config, actor services.Actor) error {
	return ledger.Run(ctx, func(s *services.Services) error {
		need, err := s.Auth.NeedsBootstrap()
		if err != nil || !need {
			return err
		}
		if cfg.BootstrapAdminUsername == "" {
			logger.Warn("No users exist; set BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD to create the first admin")
			return nil
		}
		id, err := s.Auth.CreateUser(actor, services.NewUser{
			Username:  cfg.BootstrapAdminUsername,
			Password:  cfg.BootstrapAdminPassword,
			FullName:  "Administrator",
			RoleNames: []string{models.RoleAdmin},
		})
		if err != nil {
			return err
		}
		logger.Info("Bootstrap admin created", "user_id", id, "username", cfg.BootstrapAdminUsername)
		return nil
	})
}

func exportReports(db *gorm.DB, path string) error {
	data, err := reports.Collect(repositories.NewReportRepository(db))
	if err != nil {
		return err
	}
	return reports.SaveWorkbook(path, data)
}
