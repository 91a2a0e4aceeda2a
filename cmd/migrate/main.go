package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"labadmin/internal/app/migrate"
)

func main() {
	_ = godotenv.Load()

	cfg := migrate.Config{
		LegacyDatabaseURL: os.Getenv("LEGACY_DATABASE_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}
	if cfg.LegacyDatabaseURL == "" || cfg.DatabaseURL == "" {
		slog.Error("LEGACY_DATABASE_URL and DATABASE_URL are required")
		os.Exit(1)
	}

	if err := migrate.Run(context.Background(), cfg); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}
	slog.Info("migration completed")
}
