package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOverlay_DefaultKeys(t *testing.T) {
	closes := randomWalk(60, 11)
	o := ComputeOverlay(closes, DefaultParams(), 0)

	require.Equal(t, 60, o.Len())
	assert.Equal(t, 0, o.Start)
	assert.ElementsMatch(t, []string{"rsi6", "rsi12", "rsi24"}, keys(o.RSI))
	assert.ElementsMatch(t, []string{"ma5", "ma10", "ma20"}, keys(o.MA))

	for name, s := range allSeries(o) {
		assert.Len(t, s, 60, name)
	}
}

func TestComputeOverlay_WindowSlicesTail(t *testing.T) {
	closes := randomWalk(200, 12)
	full := ComputeOverlay(closes, DefaultParams(), 0)
	o := ComputeOverlay(closes, DefaultParams(), 120)

	require.Equal(t, 120, o.Len())
	assert.Equal(t, 80, o.Start)
	assert.Equal(t, closes[80:], o.Closes)

	// Values come from the full-history computation, not a recomputation
	// over the window.
	assert.Equal(t, full.MACD.DIF[80:], o.MACD.DIF)
	assert.Equal(t, full.RSI["rsi24"][80:], o.RSI["rsi24"])
	assert.Equal(t, full.BOLL.Upper[80:], o.BOLL.Upper)
	assert.Equal(t, full.MA["ma20"][80:], o.MA["ma20"])
	assert.NotEqual(t, RSI(closes[80:], 24)[1], o.RSI["rsi24"][1])

	for name, s := range allSeries(o) {
		assert.Len(t, s, 120, name)
	}
}

func TestComputeOverlay_WindowLargerThanHistory(t *testing.T) {
	closes := randomWalk(30, 13)
	for _, w := range []int{-1, 0, 30, 31, 1000} {
		o := ComputeOverlay(closes, DefaultParams(), w)
		assert.Equal(t, 30, o.Len(), "window %d", w)
		assert.Equal(t, 0, o.Start, "window %d", w)
	}
}

func TestComputeOverlay_CapsHistory(t *testing.T) {
	closes := randomWalk(MaxHistory+100, 14)
	o := ComputeOverlay(closes, DefaultParams(), 0)

	require.Equal(t, MaxHistory, o.Len())
	assert.Equal(t, closes[100:], o.Closes)
	// EMA seeds from the first retained close.
	assert.Equal(t, 0.0, o.MACD.DIF[0])
}

func TestComputeOverlay_CustomParams(t *testing.T) {
	p, err := ParseParams("MACD:5:10:3,RSI:14,BOLL:10:1.5,MA:7")
	require.NoError(t, err)

	closes := randomWalk(40, 15)
	o := ComputeOverlay(closes, p, 0)

	assert.Equal(t, MACD(closes, 5, 10, 3), o.MACD)
	assert.Equal(t, BOLL(closes, 10, 1.5), o.BOLL)
	assert.Equal(t, map[string][]float64{"rsi14": RSI(closes, 14)}, o.RSI)
	assert.Equal(t, map[string][]float64{"ma7": SMA(closes, 7)}, o.MA)
}

func TestComputeOverlay_SingleClose(t *testing.T) {
	o := ComputeOverlay([]float64{12.5}, DefaultParams(), 120)
	require.Equal(t, 1, o.Len())
	assert.Equal(t, []float64{Neutral}, o.RSI["rsi6"])
	assert.Equal(t, []float64{12.5}, o.BOLL.Mid)
	assert.Equal(t, []float64{0}, o.MACD.MACD)
}

func TestOverlay_Finite(t *testing.T) {
	assert.True(t, ComputeOverlay(randomWalk(80, 3), DefaultParams(), 40).Finite())
	assert.True(t, ComputeOverlay(nil, DefaultParams(), 0).Finite())

	huge := []float64{1.7e308, 1.7e308, 1.7e308, 1.7e308, 1.7e308, 1.7e308}
	o := ComputeOverlay(huge, DefaultParams(), 0)
	assert.False(t, o.Finite())
	assert.False(t, Summarize(huge, DefaultParams()).Finite())
}

func keys(m map[string][]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func allSeries(o Overlay) map[string][]float64 {
	out := map[string][]float64{
		"dif": o.MACD.DIF, "dea": o.MACD.DEA, "macd": o.MACD.MACD,
		"mid": o.BOLL.Mid, "upper": o.BOLL.Upper, "lower": o.BOLL.Lower,
	}
	for k, v := range o.RSI {
		out[k] = v
	}
	for k, v := range o.MA {
		out[k] = v
	}
	return out
}
