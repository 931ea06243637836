package indicator

import "gonum.org/v1/gonum/floats"

// SMA calculates the Simple Moving Average of data over a trailing window.
// Indices before the first full window pass the raw value through.
func SMA(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	for i := range data {
		if i < period-1 {
			out[i] = data[i]
			continue
		}
		out[i] = floats.Sum(data[i-period+1:i+1]) / float64(period)
	}
	return out
}
