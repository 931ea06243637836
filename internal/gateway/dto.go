package gateway

import "indicator-overlay/internal/indicator"

// OverlayRequest is the body of POST /api/indicators and of every /ws frame.
// Window nil means the configured display window; 0 returns the full history.
// An empty Indicators string selects the configured indicator set.
type OverlayRequest struct {
	Closes     []float64 `json:"closes"`
	Window     *int      `json:"window,omitempty"`
	Indicators string    `json:"indicators,omitempty"`
}

// SummaryRequest is the body of POST /api/indicators/summary.
type SummaryRequest struct {
	Closes     []float64 `json:"closes"`
	Indicators string    `json:"indicators,omitempty"`
}

// DefaultsResponse is the REST response type for /api/indicators/defaults.
type DefaultsResponse struct {
	Params        indicator.Params `json:"params"`
	Spec          string           `json:"spec"`
	DisplayWindow int              `json:"display_window"`
	MaxHistory    int              `json:"max_history"`
}

// StatsResponse is the REST response type for /api/stats.
type StatsResponse struct {
	ComputeP50Ms float64 `json:"compute_p50_ms"`
	ComputeP95Ms float64 `json:"compute_p95_ms"`
	ComputeP99Ms float64 `json:"compute_p99_ms"`
	Samples      int     `json:"samples"`
	WSClients    int     `json:"ws_clients"`
}

// WSFrame answers one /ws request frame. Seq counts frames per connection,
// starting at 1.
type WSFrame struct {
	Seq   int64              `json:"seq"`
	Data  *indicator.Overlay `json:"data,omitempty"`
	Error string             `json:"error,omitempty"`
}

// ErrorResponse is the JSON body of every 4xx/5xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
