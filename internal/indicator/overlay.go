package indicator

import "math"

// Overlay is the full set of chart series computed for one price window.
// Every series has the same length as Closes.
type Overlay struct {
	Closes []float64            `json:"closes"`
	MACD   MACDResult           `json:"macd"`
	RSI    map[string][]float64 `json:"rsi"` // "rsi6", "rsi12", ...
	BOLL   BOLLResult           `json:"boll"`
	MA     map[string][]float64 `json:"ma"`    // "ma5", "ma10", ...
	Start  int                  `json:"start"` // offset of Closes[0] in the computed history
}

// Len returns the number of bars in the overlay.
func (o Overlay) Len() int { return len(o.Closes) }

// ComputeOverlay computes every indicator in p over the full closes history
// and keeps only the trailing window bars. Computing over the longer history
// first means the visible range does not start inside a warm-up band.
//
// Histories longer than MaxHistory are truncated to their trailing
// MaxHistory closes. window <= 0 or window >= len(closes) keeps everything.
// p is assumed valid; see Params.Validate.
func ComputeOverlay(closes []float64, p Params, window int) Overlay {
	if len(closes) > MaxHistory {
		closes = closes[len(closes)-MaxHistory:]
	}

	o := Overlay{
		Closes: closes,
		MACD:   MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal),
		RSI:    make(map[string][]float64, len(p.RSIPeriods)),
		BOLL:   BOLL(closes, p.BOLLPeriod, p.BOLLMultiplier),
		MA:     make(map[string][]float64, len(p.MAPeriods)),
	}
	for _, period := range p.RSIPeriods {
		o.RSI[rsiKey(period)] = RSI(closes, period)
	}
	for _, period := range p.MAPeriods {
		o.MA[maKey(period)] = SMA(closes, period)
	}

	if window <= 0 || window >= len(closes) {
		return o
	}
	return o.slice(len(closes) - window)
}

// slice drops the first start bars from every series.
func (o Overlay) slice(start int) Overlay {
	out := Overlay{
		Closes: o.Closes[start:],
		MACD:   o.MACD.slice(start),
		RSI:    make(map[string][]float64, len(o.RSI)),
		BOLL:   o.BOLL.slice(start),
		MA:     make(map[string][]float64, len(o.MA)),
		Start:  o.Start + start,
	}
	for k, v := range o.RSI {
		out.RSI[k] = v[start:]
	}
	for k, v := range o.MA {
		out.MA[k] = v[start:]
	}
	return out
}

// Finite reports whether every value in every series is a finite number.
// Huge but finite closes can overflow a running sum or variance to ±Inf.
func (o Overlay) Finite() bool {
	series := [][]float64{
		o.Closes, o.MACD.DIF, o.MACD.DEA, o.MACD.MACD,
		o.BOLL.Mid, o.BOLL.Upper, o.BOLL.Lower,
	}
	for _, v := range o.RSI {
		series = append(series, v)
	}
	for _, v := range o.MA {
		series = append(series, v)
	}
	for _, vs := range series {
		if !allFinite(vs...) {
			return false
		}
	}
	return true
}

func allFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
