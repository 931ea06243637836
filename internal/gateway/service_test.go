package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indicator-overlay/internal/cache"
	"indicator-overlay/internal/indicator"
	"indicator-overlay/internal/metrics"
)

// memCache is an in-process cache.Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string]*indicator.Overlay
	err  error // returned by Get and Set when set
}

func newMemCache() *memCache { return &memCache{data: map[string]*indicator.Overlay{}} }

func (m *memCache) Get(_ context.Context, key string) (*indicator.Overlay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return o, nil
}

func (m *memCache) Set(_ context.Context, key string, o *indicator.Overlay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = o
	return nil
}

func (m *memCache) Close() error { return nil }

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func newTestService(c cache.Cache) (*Service, *metrics.Metrics) {
	m := metrics.NewMetrics(nil)
	return NewService(c, m, indicator.DefaultParams(), 120), m
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + math.Sin(float64(i)/5)*10
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestService_OverlayDefaultWindow(t *testing.T) {
	svc, _ := newTestService(nil)
	closes := ramp(300)

	o, err := svc.Overlay(context.Background(), OverlayRequest{Closes: closes})
	require.NoError(t, err)
	assert.Equal(t, 120, o.Len())
	assert.Equal(t, 180, o.Start)
	assert.Equal(t, indicator.ComputeOverlay(closes, indicator.DefaultParams(), 120), *o)
}

func TestService_OverlayExplicitWindowAndIndicators(t *testing.T) {
	svc, _ := newTestService(nil)
	closes := ramp(50)

	o, err := svc.Overlay(context.Background(), OverlayRequest{
		Closes:     closes,
		Window:     intPtr(0),
		Indicators: "RSI:14,MA:7",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, o.Len())
	assert.Contains(t, o.RSI, "rsi14")
	assert.Contains(t, o.MA, "ma7")
	assert.NotContains(t, o.RSI, "rsi6")
}

func TestService_OverlayCaches(t *testing.T) {
	mc := newMemCache()
	svc, m := newTestService(mc)
	req := OverlayRequest{Closes: ramp(200), Window: intPtr(60)}

	first, err := svc.Overlay(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Overlay(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mc.len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1, svc.Latency().Count())
}

func TestService_OverlayCacheFailureFallsBack(t *testing.T) {
	mc := newMemCache()
	mc.err = cache.ErrCircuitOpen
	svc, m := newTestService(mc)

	o, err := svc.Overlay(context.Background(), OverlayRequest{Closes: ramp(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, o.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
}

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestService_OverlayOpenBreakerIsQuiet(t *testing.T) {
	logs := captureLogs(t)
	mc := newMemCache()
	mc.err = fmt.Errorf("cache get: %w", cache.ErrCircuitOpen)
	svc, m := newTestService(mc)

	for i := 0; i < 3; i++ {
		_, err := svc.Overlay(context.Background(), OverlayRequest{Closes: ramp(30)})
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheMisses))
	assert.NotContains(t, logs.String(), "overlay cache read failed")
	assert.NotContains(t, logs.String(), "overlay cache write failed")
}

func TestService_OverlayCacheErrorIsLogged(t *testing.T) {
	logs := captureLogs(t)
	mc := newMemCache()
	mc.err = errors.New("cache decode: unexpected end of JSON input")
	svc, _ := newTestService(mc)

	_, err := svc.Overlay(context.Background(), OverlayRequest{Closes: ramp(30)})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "overlay cache read failed")
}

func TestService_OverflowingCloses(t *testing.T) {
	mc := newMemCache()
	svc, _ := newTestService(mc)
	closes := hugeCloses(6)
	require.NoError(t, ValidateCloses(closes))

	_, err := svc.Overlay(context.Background(), OverlayRequest{Closes: closes, Window: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, mc.len())

	_, err = svc.Summary(context.Background(), SummaryRequest{Closes: closes})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestService_OverlayEmpty(t *testing.T) {
	mc := newMemCache()
	svc, _ := newTestService(mc)

	o, err := svc.Overlay(context.Background(), OverlayRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, o.Len())
	assert.Empty(t, o.MACD.DIF)
	assert.Equal(t, 0, mc.len())
}

func TestService_OverlayInvalid(t *testing.T) {
	svc, _ := newTestService(nil)
	cases := map[string]OverlayRequest{
		"nan close":       {Closes: []float64{1, math.NaN(), 3}},
		"inf close":       {Closes: []float64{math.Inf(1)}},
		"negative window": {Closes: []float64{1, 2}, Window: intPtr(-1)},
		"bad indicators":  {Closes: []float64{1, 2}, Indicators: "RSI:x"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Overlay(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestService_Summary(t *testing.T) {
	svc, _ := newTestService(nil)

	sum, err := svc.Summary(context.Background(), SummaryRequest{Closes: []float64{1, 2, 3, 4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 6.0, sum.Last)
	assert.Equal(t, "overbought", sum.RSI["rsi6"].Zone)

	_, err = svc.Summary(context.Background(), SummaryRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, indicator.ErrNoData)
}

func TestService_Defaults(t *testing.T) {
	svc, _ := newTestService(nil)
	d := svc.Defaults()

	assert.Equal(t, indicator.DefaultParams(), d.Params)
	assert.Equal(t, indicator.DefaultParams().String(), d.Spec)
	assert.Equal(t, 120, d.DisplayWindow)
	assert.Equal(t, indicator.MaxHistory, d.MaxHistory)
}

func TestValidateCloses(t *testing.T) {
	assert.NoError(t, ValidateCloses(nil))
	assert.NoError(t, ValidateCloses([]float64{0, -1, 1e300}))

	err := ValidateCloses([]float64{1, 2, math.Inf(-1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "closes[2]")
}
