package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/scheduler"
)

type idleController struct{}

func (idleController) Snapshot() models.IntersectionSnapshot { return models.IntersectionSnapshot{} }
func (idleController) Start() (bool, error)                  { return true, nil }
func (idleController) Stop()                                 {}
func (idleController) SubscriberStats() map[string]scheduler.SubscriberStats {
	return nil
}

func TestServerRoutes(t *testing.T) {
	srv := NewServer(&config.Config{WorkerID: "junction-7", Version: "1.0.0", Port: 8000}, Deps{
		Controller: idleController{},
	})
	require.NoError(t, srv.Setup())
	assert.Equal(t, ":8000", srv.GetServer().Addr)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/intersection", http.StatusOK},
		{http.MethodPost, "/intersection/start", http.StatusOK},
		{http.MethodPost, "/intersection/stop", http.StatusOK},
		{http.MethodGet, "/intersection/stats", http.StatusOK},
		{http.MethodGet, "/stream", http.StatusServiceUnavailable},
		{http.MethodGet, "/system/stats", http.StatusOK},
		{http.MethodGet, "/api/info", http.StatusOK},
		{http.MethodGet, "/docs", http.StatusMovedPermanently},
		{http.MethodGet, "/docs/doc.json", http.StatusOK},
		{http.MethodGet, "/cameras", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}
