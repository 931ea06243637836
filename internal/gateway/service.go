package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"indicator-overlay/internal/cache"
	"indicator-overlay/internal/indicator"
	"indicator-overlay/internal/logger"
	"indicator-overlay/internal/metrics"
)

// ErrInvalidRequest marks errors caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid request")

var errOverflow = fmt.Errorf("%w: closes overflow the indicator range", ErrInvalidRequest)

// quietCacheErr reports cache errors that need no per-request log line.
// An open breaker is already logged once by its state-change callback.
func quietCacheErr(err error) bool {
	return errors.Is(err, cache.ErrCacheMiss) || errors.Is(err, cache.ErrCircuitOpen)
}

// Service computes overlays and summaries for the REST and WebSocket
// endpoints, memoizing overlays in the cache.
type Service struct {
	cache   cache.Cache
	metrics *metrics.Metrics
	latency *LatencyTracker

	params        indicator.Params
	displayWindow int
}

// NewService creates a Service. params and displayWindow apply to requests
// that do not carry their own.
func NewService(c cache.Cache, m *metrics.Metrics, params indicator.Params, displayWindow int) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		cache:         c,
		metrics:       m,
		latency:       NewLatencyTracker(10000),
		params:        params,
		displayWindow: displayWindow,
	}
}

// Overlay computes (or loads from cache) the overlay for req.
func (s *Service) Overlay(ctx context.Context, req OverlayRequest) (*indicator.Overlay, error) {
	if err := ValidateCloses(req.Closes); err != nil {
		return nil, err
	}
	p, err := s.resolveParams(req.Indicators)
	if err != nil {
		return nil, err
	}
	window := s.displayWindow
	if req.Window != nil {
		if *req.Window < 0 {
			return nil, fmt.Errorf("%w: window=%d must not be negative", ErrInvalidRequest, *req.Window)
		}
		window = *req.Window
	}

	if len(req.Closes) == 0 {
		o := indicator.ComputeOverlay([]float64{}, p, window)
		return &o, nil
	}

	key := cache.Key(req.Closes, p, window)
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		s.metrics.CacheHits.Inc()
		return cached, nil
	}
	if !quietCacheErr(err) {
		slog.Warn("overlay cache read failed", append([]any{"error", err}, logger.LogWithTrace(ctx)...)...)
	}
	s.metrics.CacheMisses.Inc()

	start := time.Now()
	o := indicator.ComputeOverlay(req.Closes, p, window)
	s.observe(time.Since(start), len(req.Closes))
	if !o.Finite() {
		return nil, errOverflow
	}

	if err := s.cache.Set(ctx, key, &o); err != nil && !quietCacheErr(err) {
		slog.Warn("overlay cache write failed", append([]any{"error", err}, logger.LogWithTrace(ctx)...)...)
	}

	slog.Debug("overlay computed", append([]any{
		"closes", len(req.Closes), "bars", o.Len(), "start", o.Start,
	}, logger.LogWithTrace(ctx)...)...)
	return &o, nil
}

// Summary digests the latest bar of req.Closes.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (indicator.Summary, error) {
	if err := ValidateCloses(req.Closes); err != nil {
		return indicator.Summary{}, err
	}
	p, err := s.resolveParams(req.Indicators)
	if err != nil {
		return indicator.Summary{}, err
	}

	start := time.Now()
	sum, err := indicator.SummarizeChecked(req.Closes, p)
	if err != nil {
		return indicator.Summary{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	s.observe(time.Since(start), len(req.Closes))
	if !sum.Finite() {
		return indicator.Summary{}, errOverflow
	}
	return sum, nil
}

// Defaults reports the configured indicator set.
func (s *Service) Defaults() DefaultsResponse {
	return DefaultsResponse{
		Params:        s.params,
		Spec:          s.params.String(),
		DisplayWindow: s.displayWindow,
		MaxHistory:    indicator.MaxHistory,
	}
}

// Latency exposes the compute latency tracker.
func (s *Service) Latency() *LatencyTracker { return s.latency }

func (s *Service) resolveParams(spec string) (indicator.Params, error) {
	if strings.TrimSpace(spec) == "" {
		return s.params, nil
	}
	p, err := indicator.ParseParams(spec)
	if err != nil {
		return indicator.Params{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return p, nil
}

func (s *Service) observe(d time.Duration, n int) {
	s.metrics.ComputeDur.Observe(d.Seconds())
	s.metrics.SeriesLen.Observe(float64(n))
	s.latency.Record(float64(d.Microseconds()) / 1000.0)
}

// ValidateCloses rejects NaN and infinite prices; the calculators assume
// finite input.
func ValidateCloses(closes []float64) error {
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: closes[%d] is not a finite number", ErrInvalidRequest, i)
		}
	}
	return nil
}
