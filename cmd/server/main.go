package main

import (
	"context"
	"log/slog"
	"os"

	"labadmin/internal/app/server"
	"labadmin/internal/platform/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
