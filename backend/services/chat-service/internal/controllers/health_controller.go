package controllers

import (
	"context"
	"net/http"

	shared_dtos "github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-dtos"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// Pinger reports whether the session store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db Pinger
}

func NewHealthController(db Pinger) *HealthController {
	return &HealthController{db: db}
}

func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), utils.HealthProbeTimeout)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		utils.Logger.WithError(err).Error("chat-service unhealthy")
		utils.RespondErrorWithCode(
			w,
			http.StatusServiceUnavailable,
			utils.ErrCodeInternal,
			"Service unhealthy",
			err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, shared_dtos.HealthCheckResponse{Status: "OK"})
}
