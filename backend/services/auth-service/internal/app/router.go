package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/controllers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// Controllers groups everything the router dispatches to.
type Controllers struct {
	OTP    *controllers.OTPController
	Token  *controllers.TokenController
	Health *controllers.HealthController
}

// NewHandler builds the mux router wrapped in CORS.
func NewHandler(c Controllers, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()

	// Health
	router.HandleFunc("/health", c.Health.HealthCheckHandler).Methods(http.MethodGet)

	// /auth/v1
	v1Router := router.PathPrefix("/auth/v1").Subrouter()
	v1Router.HandleFunc("/otp/send", c.OTP.SendOTP).Methods(http.MethodPost)
	v1Router.HandleFunc("/otp/verify", c.OTP.VerifyOTP).Methods(http.MethodPost)
	v1Router.HandleFunc("/token", c.Token.ExchangePassword).Methods(http.MethodPost)

	return WithCORS(router, allowedOrigins)
}

// WithCORS answers preflights and decorates responses for browser clients.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{utils.CORSAllowedOriginAny}
	}
	co := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "apikey"},
	})
	return co.Handler(h)
}
