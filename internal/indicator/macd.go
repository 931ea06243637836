package indicator

// MACDResult holds the three MACD series, each aligned with the input closes.
type MACDResult struct {
	DIF  []float64 `json:"dif"`  // fast EMA - slow EMA
	DEA  []float64 `json:"dea"`  // signal line, EMA of DIF
	MACD []float64 `json:"macd"` // histogram, 2*(DIF-DEA)
}

// MACD calculates Moving Average Convergence Divergence over closes.
// It inherits EMA's warm-up behaviour, so every index is populated for any
// input length including lengths below slow.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	dif := make([]float64, len(closes))
	for i := range dif {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea := EMA(dif, signal)

	hist := make([]float64, len(closes))
	for i := range hist {
		hist[i] = (dif[i] - dea[i]) * 2
	}

	return MACDResult{DIF: dif, DEA: dea, MACD: hist}
}

// DefaultMACD is MACD with the conventional 12/26/9 periods.
func DefaultMACD(closes []float64) MACDResult {
	return MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
}

func (r MACDResult) slice(start int) MACDResult {
	return MACDResult{DIF: r.DIF[start:], DEA: r.DEA[start:], MACD: r.MACD[start:]}
}
