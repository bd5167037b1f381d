package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-dtos"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

const defaultTargets = "http://localhost:8082/health,http://localhost:8083/health"

func main() {
	utils.InitLogger("meta-service")
	if err := utils.LoadDotEnv(); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load .env file")
	}

	targets := splitTargets(utils.EnvOr("META_HEALTH_TARGETS", defaultTargets))
	port := utils.EnvOr("APP_PORT", "8081")

	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler(targets, &http.Client{})).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	utils.Logger.Infof("Starting health check service on port %s (%d targets)", port, len(targets))
	utils.Logger.Fatal(srv.ListenAndServe())
}

// healthHandler fans out to every target concurrently and reports OK only
// when all of them answer 200 within the probe timeout.
func healthHandler(targets []string, client *http.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), utils.HealthProbeTimeout)
		defer cancel()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			unhealthy []string
		)
		for _, target := range targets {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				if err := probe(ctx, client, u); err != nil {
					utils.Logger.WithError(err).Warnf("[meta-service] (Health Check) Service unhealthy: %s", u)
					mu.Lock()
					unhealthy = append(unhealthy, u)
					mu.Unlock()
				}
			}(target)
		}
		wg.Wait()

		if len(unhealthy) > 0 {
			utils.RespondErrorWithCode(
				w, http.StatusServiceUnavailable, utils.ErrCodeExternalServiceFailure,
				"Unhealthy", map[string][]string{"unhealthy": unhealthy},
			)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, dtos.HealthCheckResponse{Status: "OK"})
	}
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return "unexpected status " + http.StatusText(e.code) }

func splitTargets(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
