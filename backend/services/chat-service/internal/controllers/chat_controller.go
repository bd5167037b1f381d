package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/dtos"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/services"
	shared_dtos "github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-dtos"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-middleware"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

const maxChatBodyBytes = 1 << 18

type ChatController struct {
	svc services.ChatService
}

func NewChatController(s services.ChatService) *ChatController {
	return &ChatController{svc: s}
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// -----------------------------------------------------------------------------
// POST /chat/v1/message
// -----------------------------------------------------------------------------
func (c *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	if !c.svc.Configured() {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeNotConfigured,
			utils.ErrLLMNotConfigured.Error(), nil,
		)
		return
	}

	var req dtos.ChatMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", err,
		)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation,
			"message, sessionId and userId are required",
			shared_dtos.ValidationDetails(err), err,
		)
		return
	}

	if sub, ok := middleware.UserIDFromContext(r.Context()); ok && sub != req.UserID {
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeForbidden, "Token does not belong to userId", nil,
		)
		return
	}

	history := make([]services.ChatTurn, 0, len(req.History))
	for _, h := range req.History {
		history = append(history, services.ChatTurn{Role: services.Role(h.Role), Content: h.Content})
	}

	reply, err := c.svc.Reply(r.Context(), services.ChatInput{
		Message:   req.Message,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		History:   history,
	})
	if err != nil {
		code := utils.ErrCodeInternal
		switch {
		case errors.Is(err, utils.ErrLLMNotConfigured):
			code = utils.ErrCodeNotConfigured
		case errors.Is(err, utils.ErrExternalServiceFailure):
			code = utils.ErrCodeExternalServiceFailure
		}
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, code, err.Error(), nil, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.ChatMessageResponse{
		Response:  reply.Response,
		SessionID: reply.SessionID,
	})
}
