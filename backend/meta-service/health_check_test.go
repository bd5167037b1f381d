package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-testhelpers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

func statusServer(t *testing.T, status int, delay time.Duration) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/health"
}

func TestHealthHandler(t *testing.T) {
	ok := statusServer(t, http.StatusOK, 0)
	down := statusServer(t, http.StatusServiceUnavailable, 0)

	t.Run("all healthy", func(t *testing.T) {
		h := healthHandler([]string{ok, ok}, http.DefaultClient)
		rec := testhelpers.DoJSON(t, h, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("one unhealthy", func(t *testing.T) {
		h := healthHandler([]string{ok, down}, http.DefaultClient)
		rec := testhelpers.DoJSON(t, h, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		resp := testhelpers.DecodeJSON[struct {
			Details struct {
				Unhealthy []string `json:"unhealthy"`
			} `json:"details"`
		}](t, rec)
		require.Equal(t, []string{down}, resp.Details.Unhealthy)
	})

	t.Run("slow target times out", func(t *testing.T) {
		slow := statusServer(t, http.StatusOK, utils.HealthProbeTimeout+time.Second)
		h := healthHandler([]string{slow}, http.DefaultClient)

		start := time.Now()
		rec := testhelpers.DoJSON(t, h, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Less(t, time.Since(start), utils.HealthProbeTimeout+time.Second)
	})
}

func TestSplitTargets(t *testing.T) {
	require.Equal(t, []string{"http://a/health", "http://b/health"}, splitTargets(" http://a/health, ,http://b/health "))
	require.Empty(t, splitTargets(""))
}
