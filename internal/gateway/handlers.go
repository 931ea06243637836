package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"indicator-overlay/internal/logger"
	"indicator-overlay/internal/metrics"
)

const maxBodyBytes = 4 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, svc *Service, hub *Hub, m *metrics.Metrics, health http.Handler) {
	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}
		hub.HandleWSRequest(conn)
	})

	// REST: compute an overlay
	mux.Handle("/api/indicators", instrument(m, "overlay", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var req OverlayRequest
		if !decode(w, r, &req) {
			return
		}
		o, err := svc.Overlay(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}))

	// REST: latest-bar digest
	mux.Handle("/api/indicators/summary", instrument(m, "summary", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var req SummaryRequest
		if !decode(w, r, &req) {
			return
		}
		sum, err := svc.Summary(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}))

	// REST: configured indicator set
	mux.Handle("/api/indicators/defaults", instrument(m, "defaults", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, svc.Defaults())
	}))

	// REST: compute latency percentiles
	mux.Handle("/api/stats", instrument(m, "stats", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		p50, p95, p99 := svc.Latency().Percentiles()
		writeJSON(w, http.StatusOK, StatsResponse{
			ComputeP50Ms: p50,
			ComputeP95Ms: p95,
			ComputeP99Ms: p99,
			Samples:      svc.Latency().Count(),
			WSClients:    hub.ClientCount(),
		})
	}))

	if health != nil {
		mux.Handle("/healthz", health)
	}
}

// allow applies CORS, answers preflight requests and rejects other methods.
// It reports whether the handler should continue.
func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	SetCORS(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return false
	case method:
		return true
	}
	w.Header().Set("Allow", method+", "+http.MethodOptions)
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	return false
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	slog.Error("request failed", append([]any{"path", r.URL.Path, "error", err}, logger.LogWithTrace(r.Context())...)...)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// writeJSON encodes v before committing status. An unencodable value is
// answered with a 500 ErrorResponse.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("response encode failed", "status", status, "error", err, "trace_id", w.Header().Get("X-Trace-Id"))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "internal error: response could not be encoded"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// statusRecorder captures the response code for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags the request with a trace id and counts it by status.
func instrument(m *metrics.Metrics, endpoint string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := logger.GenerateTraceID(endpoint, time.Now())
		w.Header().Set("X-Trace-Id", traceID)
		r = r.WithContext(logger.WithTraceID(r.Context(), traceID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
	})
}
