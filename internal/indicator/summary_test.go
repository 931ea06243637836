package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeChecked_Empty(t *testing.T) {
	_, err := SummarizeChecked(nil, DefaultParams())
	require.ErrorIs(t, err, ErrNoData)

	assert.Equal(t, Summary{}, Summarize([]float64{}, DefaultParams()))
}

func TestSummarize_Rising(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := Summarize(closes, DefaultParams())

	assert.Equal(t, 139.0, s.Last)
	assert.InDelta(t, 137.0, s.MA["ma5"], 1e-9)
	assert.InDelta(t, 134.5, s.MA["ma10"], 1e-9)
	assert.InDelta(t, 129.5, s.MA["ma20"], 1e-9)
	assert.InDelta(t, 129.5, s.Support, 1e-9)
	assert.InDelta(t, 137.0, s.Resistance, 1e-9)

	for k, r := range s.RSI {
		assert.Equal(t, 100.0, r.Value, k)
		assert.Equal(t, "overbought", r.Zone, k)
	}

	assert.Greater(t, s.MACD.DIF, 0.0)
	assert.Equal(t, "red", s.MACD.Bar)
	assert.InDelta(t, s.MACD.DIF-s.MACD.DEA, s.MACD.Hist/2, 1e-9)
	assert.Greater(t, s.BOLL.PercentB, 0.5)
}

func TestSummarize_Falling(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	s := Summarize(closes, DefaultParams())

	for k, r := range s.RSI {
		assert.Equal(t, 0.0, r.Value, k)
		assert.Equal(t, "oversold", r.Zone, k)
	}
	assert.Equal(t, "green", s.MACD.Bar)
	assert.Less(t, s.BOLL.PercentB, 0.5)
	assert.Less(t, s.Last, s.Support)
}

func TestSummarize_MACDTrend(t *testing.T) {
	// A late acceleration widens the histogram on the last bar.
	closes := []float64{10, 10, 10, 10, 10, 10, 11, 13, 16, 20}
	p := DefaultParams()
	p.MACDFast, p.MACDSlow, p.MACDSignal = 2, 4, 3

	s := Summarize(closes, p)
	assert.Equal(t, "red", s.MACD.Bar)
	assert.Equal(t, "expanding", s.MACD.Trend)
	assert.Greater(t, s.MACD.Hist, s.MACD.PrevHist)

	// Reversal shrinks it.
	closes = append(closes, 19, 18)
	s = Summarize(closes, p)
	assert.Equal(t, "contracting", s.MACD.Trend)
	assert.Less(t, s.MACD.Hist, s.MACD.PrevHist)
}

func TestSummarize_FlatBand(t *testing.T) {
	closes := []float64{5, 5, 5, 5, 5}
	s := Summarize(closes, DefaultParams())

	assert.Equal(t, 0.5, s.BOLL.PercentB)
	assert.Equal(t, 5.0, s.BOLL.Upper)
	assert.Equal(t, 5.0, s.BOLL.Lower)
	assert.Equal(t, 0.0, s.MACD.PrevHist)
	assert.Equal(t, "contracting", s.MACD.Trend)
	assert.Equal(t, "green", s.MACD.Bar)
	for _, r := range s.RSI {
		assert.Equal(t, RSIPoint{Value: Neutral, Zone: "neutral"}, r)
	}
}

func TestSummarize_NoMovingAverages(t *testing.T) {
	p := DefaultParams()
	p.MAPeriods = nil

	s := Summarize([]float64{1, 2, 3}, p)
	assert.Empty(t, s.MA)
	assert.Equal(t, 3.0, s.Support)
	assert.Equal(t, 3.0, s.Resistance)
}

func TestSummarize_SingleClose(t *testing.T) {
	s, err := SummarizeChecked([]float64{42}, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 42.0, s.Last)
	assert.Equal(t, 42.0, s.Support)
	assert.Equal(t, 42.0, s.Resistance)
	assert.Equal(t, 0.0, s.MACD.Hist)
}

func TestRSIZone(t *testing.T) {
	cases := map[float64]string{
		0:    "oversold",
		19.9: "oversold",
		20:   "neutral",
		50:   "neutral",
		80:   "neutral",
		80.1: "overbought",
		100:  "overbought",
	}
	for v, want := range cases {
		assert.Equal(t, want, RSIZone(v), "value %v", v)
	}
}
