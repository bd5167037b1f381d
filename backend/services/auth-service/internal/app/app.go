package app

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/config"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
}

func NewApp(cfg *config.Config) (*App, error) {
	dbPool, err := repositories.OpenPool(cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	return &App{
		Config: cfg,
		DB:     dbPool,
	}, nil
}

// Ping satisfies controllers.Pinger for the health endpoint.
func (a *App) Ping(ctx context.Context) error {
	return a.DB.Ping(ctx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Info("Database connection closed.")
	}
}
