package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// BOLLResult holds Bollinger Band series aligned with the input closes.
type BOLLResult struct {
	Mid   []float64 `json:"mid"`
	Upper []float64 `json:"upper"`
	Lower []float64 `json:"lower"`
}

// BOLL calculates Bollinger Bands: mid is the trailing mean and the bands sit
// multiplier population standard deviations above and below it. Indices
// before the first full window set all three bands to the close.
func BOLL(closes []float64, period int, multiplier float64) BOLLResult {
	n := len(closes)
	res := BOLLResult{
		Mid:   make([]float64, n),
		Upper: make([]float64, n),
		Lower: make([]float64, n),
	}

	for i := 0; i < n; i++ {
		if i < period-1 {
			res.Mid[i] = closes[i]
			res.Upper[i] = closes[i]
			res.Lower[i] = closes[i]
			continue
		}

		mean, variance := stat.PopMeanVariance(closes[i-period+1:i+1], nil)
		if variance < 0 {
			// rounding on near-constant windows
			variance = 0
		}
		band := multiplier * math.Sqrt(variance)

		res.Mid[i] = mean
		res.Upper[i] = mean + band
		res.Lower[i] = mean - band
	}

	return res
}

// DefaultBOLL is BOLL with period 20 and a 2σ band.
func DefaultBOLL(closes []float64) BOLLResult {
	return BOLL(closes, DefaultBOLLPeriod, DefaultBOLLMultiplier)
}

func (r BOLLResult) slice(start int) BOLLResult {
	return BOLLResult{Mid: r.Mid[start:], Upper: r.Upper[start:], Lower: r.Lower[start:]}
}
