package indicator

// EMA calculates the Exponential Moving Average of data.
//
// The first output is seeded with data[0] and every later value is
// data[i]*k + out[i-1]*(1-k) with k = 2/(period+1). There is no SMA seed and
// no NaN lookback: the first period-1 values are emitted as if the average had
// already converged. Period 1 yields the input unchanged.
func EMA(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}

	multiplier := 2.0 / float64(period+1)
	out[0] = data[0]
	for i := 1; i < len(data); i++ {
		out[i] = data[i]*multiplier + out[i-1]*(1-multiplier)
	}
	return out
}
