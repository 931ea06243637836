package indicator

import "math"

// RSI zone thresholds used by the summary.
const (
	Overbought = 80.0
	Oversold   = 20.0
)

// MACDPoint is the latest MACD reading with the previous histogram bar.
type MACDPoint struct {
	DIF      float64 `json:"dif"`
	DEA      float64 `json:"dea"`
	Hist     float64 `json:"hist"`
	PrevHist float64 `json:"prev_hist"`
	Bar      string  `json:"bar"`   // "red" above zero, "green" otherwise
	Trend    string  `json:"trend"` // "expanding" or "contracting"
}

// RSIPoint is the latest RSI reading and its zone.
type RSIPoint struct {
	Value float64 `json:"value"`
	Zone  string  `json:"zone"` // "overbought", "oversold", "neutral"
}

// BOLLPoint is the latest band reading. PercentB places the last close inside
// the band: 0 at the lower band, 1 at the upper band.
type BOLLPoint struct {
	Mid      float64 `json:"mid"`
	Upper    float64 `json:"upper"`
	Lower    float64 `json:"lower"`
	PercentB float64 `json:"percent_b"`
}

// Summary is a latest-value digest of an overlay, used for text reports.
type Summary struct {
	Last       float64             `json:"last"`
	MA         map[string]float64  `json:"ma"`
	Support    float64             `json:"support"`
	Resistance float64             `json:"resistance"`
	MACD       MACDPoint           `json:"macd"`
	RSI        map[string]RSIPoint `json:"rsi"`
	BOLL       BOLLPoint           `json:"boll"`
}

// Summarize computes the overlay for closes and reduces it to the last bar.
// An empty series yields a zero Summary.
func Summarize(closes []float64, p Params) Summary {
	s, _ := SummarizeChecked(closes, p)
	return s
}

// SummarizeChecked is Summarize that reports ErrNoData for an empty series.
func SummarizeChecked(closes []float64, p Params) (Summary, error) {
	if len(closes) == 0 {
		return Summary{}, ErrNoData
	}

	o := ComputeOverlay(closes, p, 0)
	last := o.Len() - 1

	s := Summary{
		Last: o.Closes[last],
		MA:   make(map[string]float64, len(o.MA)),
		RSI:  make(map[string]RSIPoint, len(o.RSI)),
	}

	s.Support, s.Resistance = math.Inf(1), math.Inf(-1)
	for k, series := range o.MA {
		v := series[last]
		s.MA[k] = v
		s.Support = math.Min(s.Support, v)
		s.Resistance = math.Max(s.Resistance, v)
	}
	if len(o.MA) == 0 {
		s.Support, s.Resistance = s.Last, s.Last
	}

	s.MACD = MACDPoint{
		DIF:  o.MACD.DIF[last],
		DEA:  o.MACD.DEA[last],
		Hist: o.MACD.MACD[last],
	}
	if last > 0 {
		s.MACD.PrevHist = o.MACD.MACD[last-1]
	}
	s.MACD.Bar = "green"
	if s.MACD.Hist > 0 {
		s.MACD.Bar = "red"
	}
	s.MACD.Trend = "contracting"
	if s.MACD.Hist > s.MACD.PrevHist {
		s.MACD.Trend = "expanding"
	}

	for k, series := range o.RSI {
		s.RSI[k] = RSIPoint{Value: series[last], Zone: RSIZone(series[last])}
	}

	s.BOLL = BOLLPoint{
		Mid:      o.BOLL.Mid[last],
		Upper:    o.BOLL.Upper[last],
		Lower:    o.BOLL.Lower[last],
		PercentB: 0.5,
	}
	if width := s.BOLL.Upper - s.BOLL.Lower; width != 0 {
		s.BOLL.PercentB = (s.Last - s.BOLL.Lower) / width
	}

	return s, nil
}

// Finite reports whether every reading in s is a finite number.
func (s Summary) Finite() bool {
	if !allFinite(s.Last, s.Support, s.Resistance,
		s.MACD.DIF, s.MACD.DEA, s.MACD.Hist, s.MACD.PrevHist,
		s.BOLL.Mid, s.BOLL.Upper, s.BOLL.Lower, s.BOLL.PercentB) {
		return false
	}
	for _, v := range s.MA {
		if !allFinite(v) {
			return false
		}
	}
	for _, r := range s.RSI {
		if !allFinite(r.Value) {
			return false
		}
	}
	return true
}

// RSIZone classifies an RSI value against the 80/20 thresholds.
func RSIZone(v float64) string {
	switch {
	case v > Overbought:
		return "overbought"
	case v < Oversold:
		return "oversold"
	default:
		return "neutral"
	}
}
