package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	auth_dtos "github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/dtos"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/services"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

type TokenController struct {
	jwtService services.JWTService
}

func NewTokenController(jwtService services.JWTService) *TokenController {
	return &TokenController{jwtService: jwtService}
}

// ---------------------------------------------------------------------
// POST /auth/v1/token
// ---------------------------------------------------------------------
func (c *TokenController) ExchangePassword(w http.ResponseWriter, r *http.Request) {
	var req auth_dtos.TokenRequest
	if !decodeAndValidate(w, r, &req, func() { req.Email = strings.TrimSpace(req.Email) }) {
		return
	}

	res, err := c.jwtService.ExchangePassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) {
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid credentials", nil,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to issue token", err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, auth_dtos.TokenResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   int64(time.Until(res.ExpiresAt).Round(time.Second) / time.Second),
		UserID:      res.UserID.String(),
	})
}
