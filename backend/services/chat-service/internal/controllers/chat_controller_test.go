package controllers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/app"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/controllers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/dtos"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/chat-service/internal/services"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-testhelpers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

type stubCompleter struct {
	calls atomic.Int32
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, services.CompletionRequest) (string, error) {
	s.calls.Add(1)
	return s.reply, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type chatHarness struct {
	handler   http.Handler
	completer *stubCompleter
	sessions  *testhelpers.MemChatSessionStore
	signToken func(sub string) string
}

func newChatHarness(t *testing.T, configured bool) *chatHarness {
	t.Helper()
	key := testhelpers.NewRSAKey(t)
	h := &chatHarness{
		completer: &stubCompleter{reply: "Gracias por contarme."},
		sessions:  testhelpers.NewMemChatSessionStore(),
		signToken: func(sub string) string {
			return testhelpers.CreateJWT(t, key, sub, time.Minute)
		},
	}

	var completer services.ChatCompleter
	if configured {
		completer = h.completer
	}
	svc := services.NewChatService(completer, h.sessions, services.ChatOptions{StampSessionEnd: true})
	h.handler = app.NewHandler(
		controllers.NewChatController(svc),
		controllers.NewHealthController(stubPinger{}),
		&key.PublicKey,
		[]string{utils.CORSAllowedOriginAny},
	)
	return h
}

func (h *chatHarness) post(t *testing.T, body any, headers map[string]string) *httptest.ResponseRecorder {
	return testhelpers.DoJSON(t, h.handler, http.MethodPost, "/chat/v1/message", body, headers)
}

func TestSendMessage_Success(t *testing.T) {
	h := newChatHarness(t, true)
	sessionID, userID := uuid.New(), uuid.New()
	h.sessions.Add(sessionID, userID)

	rec := h.post(t, dtos.ChatMessageRequest{
		Message:   "¿Dónde puedo encontrar ayuda?",
		SessionID: sessionID.String(),
		UserID:    userID.String(),
		History:   []dtos.HistoryTurn{{Role: "assistant", Content: "Hola, ¿cómo estás?"}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := testhelpers.DecodeJSON[dtos.ChatMessageResponse](t, rec)
	require.Equal(t, "Gracias por contarme.", resp.Response)
	require.Equal(t, sessionID.String(), resp.SessionID)

	select {
	case id := <-h.sessions.Stamped():
		require.Equal(t, sessionID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("session end was never stamped")
	}
}

func TestSendMessage_Validation(t *testing.T) {
	h := newChatHarness(t, true)

	cases := map[string]any{
		"missing message": map[string]string{"sessionId": "s", "userId": "u"},
		"blank message":   map[string]string{"message": "   ", "sessionId": "s", "userId": "u"},
		"missing session": map[string]string{"message": "hi", "userId": "u"},
		"missing user":    map[string]string{"message": "hi", "sessionId": "s"},
		"bad role": map[string]any{
			"message": "hi", "sessionId": "s", "userId": "u",
			"history": []map[string]string{{"role": "system", "content": "x"}},
		},
		"malformed json": `{"message":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := h.post(t, body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotEmpty(t, testhelpers.DecodeJSON[utils.ErrorResponse](t, rec).Error)
		})
	}
	require.Zero(t, h.completer.calls.Load())
}

func TestSendMessage_NotConfigured(t *testing.T) {
	h := newChatHarness(t, false)

	rec := h.post(t, map[string]string{"message": "hi", "sessionId": "s", "userId": "u"}, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := testhelpers.DecodeJSON[utils.ErrorResponse](t, rec)
	require.Equal(t, utils.ErrLLMNotConfigured.Error(), resp.Error)
	require.Equal(t, utils.ErrCodeNotConfigured, resp.Code)
	require.Zero(t, h.completer.calls.Load())
}

func TestSendMessage_UpstreamError(t *testing.T) {
	h := newChatHarness(t, true)
	h.completer.err = errors.New("model overloaded")

	rec := h.post(t, map[string]string{"message": "hi", "sessionId": uuid.NewString(), "userId": "u"}, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, testhelpers.DecodeJSON[utils.ErrorResponse](t, rec).Error, "model overloaded")
}

func TestSendMessage_BearerToken(t *testing.T) {
	h := newChatHarness(t, true)
	userID := uuid.NewString()
	body := map[string]string{"message": "hi", "sessionId": "s", "userId": userID}

	t.Run("matching subject", func(t *testing.T) {
		rec := h.post(t, body, map[string]string{"Authorization": "Bearer " + h.signToken(userID)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("other user's token", func(t *testing.T) {
		rec := h.post(t, body, map[string]string{"Authorization": "Bearer " + h.signToken(uuid.NewString())})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := h.post(t, body, map[string]string{"Authorization": "Bearer not.a.jwt"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestChatPreflight(t *testing.T) {
	h := newChatHarness(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/chat/v1/message", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization, apikey, content-type, x-client-info")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatHealth(t *testing.T) {
	rec := testhelpers.DoJSON(t, newChatHarness(t, true).handler, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
