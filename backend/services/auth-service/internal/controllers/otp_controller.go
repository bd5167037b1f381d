package controllers

import (
	"errors"
	"net/http"
	"strings"

	auth_dtos "github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/dtos"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/services"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

type OTPController struct {
	otpService services.OTPService
}

func NewOTPController(otpService services.OTPService) *OTPController {
	return &OTPController{otpService: otpService}
}

// ---------------------------------------------------------------------
// POST /auth/v1/otp/send
// ---------------------------------------------------------------------
func (c *OTPController) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth_dtos.SendOTPRequest
	if !decodeAndValidate(w, r, &req, func() { req.Phone = utils.NormalizePhone(req.Phone) }) {
		return
	}

	err := c.otpService.RequestCode(r.Context(), req.Phone, utils.ClientIP(r))
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, auth_dtos.SendOTPResponse{
			Success: true,
			Message: "Verification code sent",
		})
	case errors.Is(err, utils.ErrInvalidPhone):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid phone number", nil,
		)
	case errors.Is(err, utils.ErrRateLimitExceeded):
		utils.RespondErrorWithCode(
			w, http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded,
			"Too many requests. Please try again later.", nil,
		)
	case errors.Is(err, utils.ErrSMSDeliveryFailed):
		utils.RespondErrorWithCode(
			w, http.StatusBadGateway, utils.ErrCodeSMSDeliveryFailed, err.Error(), nil, err,
		)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(
			w, http.StatusBadGateway, utils.ErrCodeExternalServiceFailure,
			"Phone validation is temporarily unavailable", err,
		)
	default:
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Failed to send verification code", err,
		)
	}
}

// ---------------------------------------------------------------------
// POST /auth/v1/otp/verify
// ---------------------------------------------------------------------
func (c *OTPController) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth_dtos.VerifyOTPRequest
	normalize := func() {
		req.Phone = utils.NormalizePhone(req.Phone)
		req.Code = strings.TrimSpace(req.Code)
		req.FullName = strings.TrimSpace(req.FullName)
	}
	if !decodeAndValidate(w, r, &req, normalize) {
		return
	}

	res, err := c.otpService.VerifyCode(r.Context(), req.Phone, req.Code, req.FullName)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, auth_dtos.VerifyOTPResponse{
			Success:      true,
			UserID:       res.UserID.String(),
			Email:        res.Email,
			TempPassword: res.TempPassword,
			Message:      "Phone verified",
		})
	case errors.Is(err, utils.ErrInvalidOrExpiredCode):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidCode, "Invalid or expired code", nil,
		)
	case errors.Is(err, utils.ErrInvalidPhone):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid phone number", nil,
		)
	default:
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Failed to verify code", err,
		)
	}
}
