package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indicator service.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec // labels: endpoint, status
	ComputeDur    prometheus.Histogram
	SeriesLen     prometheus.Histogram

	// Overlay cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Circuit breaker
	CircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CircuitBreakerTrips prometheus.Counter

	WSClients prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers all metrics on reg. A nil reg uses a fresh registry,
// which keeps tests and multiple instances from colliding on the default one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indicatord_requests_total",
			Help: "Overlay requests by endpoint and HTTP status",
		}, []string{"endpoint", "status"}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indicatord_compute_duration_seconds",
			Help:    "Overlay computation latency per request",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		SeriesLen: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indicatord_series_length",
			Help:    "Number of closes per overlay request",
			Buckets: []float64{10, 50, 100, 200, 300, 400, 500},
		}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_cache_hits_total",
			Help: "Overlay requests served from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_cache_misses_total",
			Help: "Overlay requests that had to be computed",
		}),

		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indicatord_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indicatord_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),

		gatherer: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.ComputeDur,
		m.SeriesLen,
		m.CacheHits,
		m.CacheMisses,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
		m.WSClients,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// HealthStatus represents the service health.
type HealthStatus struct {
	mu sync.RWMutex

	CacheEnabled   bool      `json:"cache_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	RedisLatencyMs float64   `json:"redis_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"-"`
}

// NewHealthStatus creates a health tracker.
func NewHealthStatus(cacheEnabled bool) *HealthStatus {
	return &HealthStatus{CacheEnabled: cacheEnabled, StartedAt: time.Now()}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb goredis.UniversalClient) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker pings Redis every interval until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb goredis.UniversalClient, interval time.Duration) {
	if rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckRedis(probeCtx, rdb)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. The service computes without Redis,
// so a lost cache only degrades it.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	if h.CacheEnabled && !h.RedisConnected {
		overallStatus = "degraded"
	}

	lastCheck := ""
	if !h.LastCheckAt.IsZero() {
		lastCheck = h.LastCheckAt.Format(time.RFC3339)
	}

	status := struct {
		Status         string  `json:"status"`
		Uptime         string  `json:"uptime"`
		CacheEnabled   bool    `json:"cache_enabled"`
		RedisConnected bool    `json:"redis_connected"`
		RedisLatencyMs float64 `json:"redis_latency_ms"`
		LastCheckAt    string  `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		CacheEnabled:   h.CacheEnabled,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		LastCheckAt:    lastCheck,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	slog.Info("metrics server listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
