package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/config"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/services"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// App holds references to config, the pool & services.
type App struct {
	Config      *config.Config
	DB          *pgxpool.Pool
	ChatService services.ChatService
}

func NewApp(cfg *config.Config) (*App, error) {
	utils.Logger.Info("Initializing chat-service App")

	persona, err := services.LoadPersona(cfg.PersonaFile)
	if err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}

	dbPool, err := repositories.OpenPool(cfg.DBUrl)
	if err != nil {
		return nil, err
	}

	var completer services.ChatCompleter
	if cfg.OpenAIAPIKey != "" {
		completer = services.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIReqTimeout)
	}

	chatSvc := services.NewChatService(
		completer,
		repositories.NewChatSessionRepository(dbPool),
		services.ChatOptions{
			Model:           cfg.OpenAIModel,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			HistoryTurns:    cfg.HistoryTurns,
			StampSessionEnd: cfg.StampSessionEnd,
			StampTimeout:    cfg.StampTimeout,
			Persona:         persona,
		},
	)

	return &App{
		Config:      cfg,
		DB:          dbPool,
		ChatService: chatSvc,
	}, nil
}

func (a *App) Ping(ctx context.Context) error {
	return a.DB.Ping(ctx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	utils.Logger.Info("chat-service app shutting down.")
}
