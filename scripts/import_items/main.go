package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mroshb/cockpit/internal/config"
	"github.com/mroshb/cockpit/internal/database"
	"github.com/mroshb/cockpit/internal/reports"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/internal/services"
	"github.com/spf13/pflag"
)

// Imports a canteen catalog workbook (SKU, Name, Unit Price, Opening Qty)
// into the store.
func main() {
	path := pflag.StringP("file", "f", "", "catalog .xlsx to import")
	pflag.Parse()
	if *path == "" {
		log.Fatal("usage: import_items --file catalog.xlsx")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to open store: ", err)
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate: ", err)
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	rows, skipped, err := reports.ReadCatalog(f)
	if err != nil {
		log.Fatal(err)
	}
	for _, line := range skipped {
		fmt.Printf("Skipping invalid row %d\n", line)
	}

	ledger := services.NewLedger(db, services.Options{SessionSecret: cfg.SessionSecret})
	actor := services.SystemActor(security.DeviceID(cfg.DeviceID))
	if err := reports.ApplyCatalog(context.Background(), ledger, actor, rows); err != nil {
		log.Fatal("import failed: ", err)
	}
	fmt.Printf("Successfully imported %d items.\n", len(rows))
}
