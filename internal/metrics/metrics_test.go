package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IsolatedRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	a := NewMetrics(nil)
	b := NewMetrics(nil)

	a.CacheHits.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheHits))
}

func TestHandler_Exposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RequestsTotal.WithLabelValues("overlay", "200").Add(3)
	m.WSClients.Set(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `indicatord_requests_total{endpoint="overlay",status="200"} 3`)
	assert.Contains(t, string(body), "indicatord_ws_clients 2")
}

func TestHealthStatus(t *testing.T) {
	cases := []struct {
		name      string
		cache     bool
		connected bool
		want      string
	}{
		{"cache off", false, false, "healthy"},
		{"cache up", true, true, "healthy"},
		{"cache down", true, false, "degraded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthStatus(tc.cache)
			h.SetRedisConnected(tc.connected)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

			var body struct {
				Status         string `json:"status"`
				RedisConnected bool   `json:"redis_connected"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.want, body.Status)
			assert.Equal(t, tc.connected, body.RedisConnected)
		})
	}
}
