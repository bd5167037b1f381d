package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/app"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/config"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/controllers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

func main() {
	utils.InitLogger(config.AppName)

	// 1) Config
	cfg := config.LoadConfig()
	defer cfg.Close()

	// 2) Core application (pool, services)
	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	// 3) Controllers
	healthCtrl := controllers.NewHealthController(application)
	chatCtrl := controllers.NewChatController(application.ChatService)

	// 4) Router + CORS
	handler := app.NewHandler(chatCtrl, healthCtrl, cfg.RSAPublicKey, cfg.CORSAllowOrigin)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Must outlast the upstream completion timeout.
		WriteTimeout: cfg.OpenAIReqTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Logger.Infof("Starting %s on :%s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("Server error:", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.WithError(err).Error("Graceful shutdown failed")
	}
}
