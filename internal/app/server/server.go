// Package server wires stores, services and handlers into the HTTP app.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"labadmin/internal/db"
	"labadmin/internal/domain/affectation"
	"labadmin/internal/domain/emploi"
	"labadmin/internal/domain/fiche"
	"labadmin/internal/domain/laboratoire"
	"labadmin/internal/domain/personne"
	"labadmin/internal/domain/referentiel"
	"labadmin/internal/platform/backup"
	"labadmin/internal/platform/config"
	backuphandler "labadmin/internal/transport/http/handlers/backup"
	laboratoireshandler "labadmin/internal/transport/http/handlers/laboratoires"
	personneshandler "labadmin/internal/transport/http/handlers/personnes"
	referentielhandler "labadmin/internal/transport/http/handlers/referentiel"
	structureshandler "labadmin/internal/transport/http/handlers/structures"
	"labadmin/internal/transport/http/api"
	"labadmin/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router chi.Router
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	personnes := personne.NewStore(pool)
	affectations := affectation.NewStore(pool)
	laboratoires := laboratoire.NewStore(pool)
	referentiels := referentiel.NewStore(pool)
	emplois := emploi.NewService(emploi.NewStore(pool), emploi.NewProber(pool))
	fiches := fiche.NewService(personnes, affectations, emplois)
	runner := backup.NewRunner(cfg.DatabaseURL)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			api.Fail(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		api.Success(w, map[string]string{"status": "ok"})
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
		personneshandler.NewHandler(personnes, affectations, emplois, fiches).RegisterRoutes(r)
		laboratoireshandler.NewHandler(laboratoires, affectations).RegisterRoutes(r)
		structureshandler.NewHandler(laboratoires, affectations).RegisterRoutes(r)
		referentielhandler.NewHandler(referentiels).RegisterRoutes(r)
	})

	// Restore uploads carry whole dumps, so they bypass the body limit.
	backuphandler.NewHandler(runner, pool, cfg.BackupTmpDir).RegisterRoutes(router)

	return &App{Config: cfg, DB: pool, Router: router}, nil
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
	return srv.ListenAndServe()
}

func (a *App) Close() {
	a.DB.Close()
}
