package indicator

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec is one parsed indicator entry, e.g. "RSI:6" or "BOLL:20:2".
type Spec struct {
	Type       string  `json:"type"` // "MACD", "RSI", "BOLL", "MA"
	Periods    []int   `json:"periods"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// ParseSpecs parses "TYPE:ARG:ARG,..." into specs.
// Example: "MACD:12:26:9,RSI:6,RSI:12,RSI:24,BOLL:20:2,MA:5,MA:10"
// MACD and BOLL may omit their arguments to take the defaults.
func ParseSpecs(s string) ([]Spec, error) {
	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spec, err := parseSpec(part)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseSpec(part string) (Spec, error) {
	tokens := strings.Split(part, ":")
	typ := strings.ToUpper(strings.TrimSpace(tokens[0]))
	args := tokens[1:]

	ints := func(want int) ([]int, error) {
		if len(args) != want {
			return nil, fmt.Errorf("indicator spec %q: %s takes %d argument(s), got %d", part, typ, want, len(args))
		}
		out := make([]int, want)
		for i, a := range args {
			n, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("indicator spec %q: invalid period %q", part, a)
			}
			out[i] = n
		}
		return out, nil
	}

	switch typ {
	case "MACD":
		if len(args) == 0 {
			return Spec{Type: typ, Periods: []int{DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal}}, nil
		}
		periods, err := ints(3)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Type: typ, Periods: periods}, nil

	case "RSI", "MA", "SMA":
		periods, err := ints(1)
		if err != nil {
			return Spec{}, err
		}
		if typ == "SMA" {
			typ = "MA"
		}
		return Spec{Type: typ, Periods: periods}, nil

	case "BOLL":
		switch len(args) {
		case 0:
			return Spec{Type: typ, Periods: []int{DefaultBOLLPeriod}, Multiplier: DefaultBOLLMultiplier}, nil
		case 1, 2:
			mult := DefaultBOLLMultiplier
			if len(args) == 2 {
				m, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
				if err != nil || m <= 0 {
					return Spec{}, fmt.Errorf("indicator spec %q: invalid multiplier %q", part, args[1])
				}
				mult = m
				args = args[:1]
			}
			periods, err := ints(1)
			if err != nil {
				return Spec{}, err
			}
			return Spec{Type: typ, Periods: periods, Multiplier: mult}, nil
		default:
			return Spec{}, fmt.Errorf("indicator spec %q: BOLL takes at most 2 arguments", part)
		}
	}

	return Spec{}, fmt.Errorf("unknown indicator type %q in spec %q", typ, part)
}

// ParamsFromSpecs folds specs into Params. Indicators that do not appear in
// specs keep their defaults; repeated RSI/MA periods are kept once.
func ParamsFromSpecs(specs []Spec) Params {
	p := DefaultParams()
	var rsi, ma []int
	for _, s := range specs {
		switch s.Type {
		case "MACD":
			p.MACDFast, p.MACDSlow, p.MACDSignal = s.Periods[0], s.Periods[1], s.Periods[2]
		case "RSI":
			rsi = appendUnique(rsi, s.Periods[0])
		case "MA":
			ma = appendUnique(ma, s.Periods[0])
		case "BOLL":
			p.BOLLPeriod, p.BOLLMultiplier = s.Periods[0], s.Multiplier
		}
	}
	if len(rsi) > 0 {
		p.RSIPeriods = rsi
	}
	if len(ma) > 0 {
		p.MAPeriods = ma
	}
	return p
}

// ParseParams is ParseSpecs followed by ParamsFromSpecs. An empty string
// returns DefaultParams.
func ParseParams(s string) (Params, error) {
	specs, err := ParseSpecs(s)
	if err != nil {
		return Params{}, err
	}
	p := ParamsFromSpecs(specs)
	return p, p.Validate()
}

// String formats p in the ParseSpecs syntax.
func (p Params) String() string {
	parts := []string{fmt.Sprintf("MACD:%d:%d:%d", p.MACDFast, p.MACDSlow, p.MACDSignal)}
	for _, period := range p.RSIPeriods {
		parts = append(parts, "RSI:"+strconv.Itoa(period))
	}
	parts = append(parts, "BOLL:"+strconv.Itoa(p.BOLLPeriod)+":"+strconv.FormatFloat(p.BOLLMultiplier, 'g', -1, 64))
	for _, period := range p.MAPeriods {
		parts = append(parts, "MA:"+strconv.Itoa(period))
	}
	return strings.Join(parts, ",")
}

func appendUnique(list []int, v int) []int {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
