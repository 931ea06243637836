// Package indicator provides technical indicator calculations over closing prices.
//
// Every calculator takes a full price window and returns series that are
// index-aligned with it: output length always equals input length, so chart
// code can zip indicator values against candles without re-indexing. Warm-up
// regions are filled (passthrough, seeded or neutral values) instead of NaN.
// Calculators are pure functions and are safe for concurrent use.
package indicator

import (
	"errors"
	"fmt"
	"strconv"
)

// Default periods used by the chart overlay.
const (
	DefaultMACDFast       = 12
	DefaultMACDSlow       = 26
	DefaultMACDSignal     = 9
	DefaultBOLLPeriod     = 20
	DefaultBOLLMultiplier = 2.0

	// MaxHistory caps the number of closes an overlay is computed over.
	MaxHistory = 500
)

// ErrNoData is returned when a digest is requested over an empty series.
var ErrNoData = errors.New("indicator: no price data")

// Params selects which indicators an overlay carries and with which periods.
type Params struct {
	MACDFast       int     `json:"macd_fast"`
	MACDSlow       int     `json:"macd_slow"`
	MACDSignal     int     `json:"macd_signal"`
	RSIPeriods     []int   `json:"rsi_periods"`
	BOLLPeriod     int     `json:"boll_period"`
	BOLLMultiplier float64 `json:"boll_multiplier"`
	MAPeriods      []int   `json:"ma_periods"`
}

// DefaultParams returns MACD 12/26/9, RSI 6/12/24, BOLL 20/2 and MA 5/10/20.
func DefaultParams() Params {
	return Params{
		MACDFast:       DefaultMACDFast,
		MACDSlow:       DefaultMACDSlow,
		MACDSignal:     DefaultMACDSignal,
		RSIPeriods:     []int{6, 12, 24},
		BOLLPeriod:     DefaultBOLLPeriod,
		BOLLMultiplier: DefaultBOLLMultiplier,
		MAPeriods:      []int{5, 10, 20},
	}
}

// Validate checks that every period and the band multiplier are positive.
func (p Params) Validate() error {
	if p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 {
		return fmt.Errorf("invalid MACD periods %d/%d/%d: must be positive", p.MACDFast, p.MACDSlow, p.MACDSignal)
	}
	for _, period := range p.RSIPeriods {
		if period <= 0 {
			return fmt.Errorf("invalid RSI period=%d: must be positive", period)
		}
	}
	if p.BOLLPeriod <= 0 {
		return fmt.Errorf("invalid BOLL period=%d: must be positive", p.BOLLPeriod)
	}
	if p.BOLLMultiplier <= 0 {
		return fmt.Errorf("invalid BOLL multiplier=%g: must be positive", p.BOLLMultiplier)
	}
	for _, period := range p.MAPeriods {
		if period <= 0 {
			return fmt.Errorf("invalid MA period=%d: must be positive", period)
		}
	}
	return nil
}

func rsiKey(period int) string { return "rsi" + strconv.Itoa(period) }
func maKey(period int) string  { return "ma" + strconv.Itoa(period) }
