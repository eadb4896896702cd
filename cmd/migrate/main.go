package main

import (
	"log"
	"log/slog"

	"spacehub/internal/config"
	"spacehub/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database migration...", "driver", cfg.Database.Driver)

	// Open runs the schema migration
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	defer sqlDB.Close()

	tables, err := db.Migrator().GetTables()
	if err != nil {
		log.Fatal("Failed to list tables:", err)
	}
	slog.Info("Database migration completed successfully", "tables", tables)
}
