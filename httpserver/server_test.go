package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nitrosim/nsm-simulator/api/nsmhandler"
	"github.com/nitrosim/nsm-simulator/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engineClient, err := client.NewWithSession()
	require.NoError(t, err)

	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      logger,
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, nsmhandler.NewHandler(engineClient, logger))
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	assert.Equal(t, http.StatusOK, get(t, router, "/livez").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
}

func TestDrainTogglesReadiness(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	assert.Equal(t, http.StatusOK, get(t, router, "/drain").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code)

	assert.Equal(t, http.StatusOK, get(t, router, "/undrain").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
}

func TestNSMRoutesAreMounted(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	rec := get(t, router, "/api/nsm/describe")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "module_id")
}
