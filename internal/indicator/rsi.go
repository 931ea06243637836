package indicator

// Neutral is the RSI value reported where no ratio can be formed.
const Neutral = 50.0

// RSIResult holds RSI series for the three standard chart periods.
type RSIResult struct {
	RSI6  []float64 `json:"rsi6"`
	RSI12 []float64 `json:"rsi12"`
	RSI24 []float64 `json:"rsi24"`
}

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
//
// Index 0 is always Neutral. Index period is seeded from the simple average of
// the first period changes, and later indices follow Wilder's recursion
// avg = (avg*(period-1) + x) / period. Indices 1..period are then overwritten
// with a plain average over the changes available so far, which is neither
// the seed nor the recursion.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = Neutral
	}
	if n < 2 {
		return out
	}

	changes := make([]float64, n-1)
	for i := 1; i < n; i++ {
		changes[i-1] = closes[i] - closes[i-1]
	}

	// Seed with the simple average of the first period changes.
	var avgGain, avgLoss float64
	for i := 0; i < period && i < len(changes); i++ {
		if changes[i] > 0 {
			avgGain += changes[i]
		} else {
			avgLoss -= changes[i]
		}
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	if period < len(changes) {
		out[period] = rsiFromAverages(avgGain, avgLoss)
	}

	// Wilder's smoothing from the bar after the seed.
	for i := period + 1; i < n; i++ {
		change := changes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}

	// Back-fill the warm-up band from the prefix of changes seen so far.
	last := period
	if n-1 < last {
		last = n - 1
	}
	for i := 1; i <= last; i++ {
		var g, l float64
		for j := 0; j < i; j++ {
			if changes[j] > 0 {
				g += changes[j]
			} else {
				l -= changes[j]
			}
		}
		g /= float64(i)
		l /= float64(i)
		out[i] = rsiFromAverages(g, l)
	}

	return out
}

// MultiRSI calculates RSI for periods 6, 12 and 24 over the same closes.
func MultiRSI(closes []float64) RSIResult {
	return RSIResult{
		RSI6:  RSI(closes, 6),
		RSI12: RSI(closes, 12),
		RSI24: RSI(closes, 24),
	}
}

// rsiFromAverages maps smoothed gain/loss averages to [0,100].
// Zero loss gives 100 on any gain and Neutral on a flat market.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return Neutral
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
