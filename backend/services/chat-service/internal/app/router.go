package app

import (
	"crypto/rsa"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/controllers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/routes"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-middleware"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// NewHandler wires routes, optional bearer auth and CORS.
func NewHandler(
	chatCtrl *controllers.ChatController,
	healthCtrl *controllers.HealthController,
	pub *rsa.PublicKey,
	allowedOrigins []string,
) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(routes.Health, healthCtrl.HealthCheckHandler).Methods(http.MethodGet)

	optionalAuth := middleware.OptionalAuthMiddleware(pub)
	router.Handle(routes.ChatMessage, optionalAuth(http.HandlerFunc(chatCtrl.SendMessage))).Methods(http.MethodPost)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{utils.CORSAllowedOriginAny}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "apikey"},
	})
	return c.Handler(router)
}
