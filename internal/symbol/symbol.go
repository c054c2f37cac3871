// Package symbol canonicalizes user-entered tickers into exchange-qualified symbols.
package symbol

import "strings"

// Exchange is the canonical suffix of a symbol. The zero value means "no
// suffix", which is how bare (presumed US) tickers are represented.
type Exchange string

const (
	Auto     Exchange = ""
	Shanghai Exchange = "SH"
	Shenzhen Exchange = "SZ"
	HongKong Exchange = "HK"
)

// Currency is the trading currency implied by a canonical suffix.
type Currency string

const (
	CNY Currency = "CNY"
	HKD Currency = "HKD"
	USD Currency = "USD"
)

// Shanghai and Shenzhen share overlapping numeric ranges; these lists only
// cover prefixes known to be unambiguous.
var (
	shanghaiPrefixes = []string{"600", "601", "603", "688", "689", "510", "511", "512", "513", "515", "516", "517", "518", "519"}
	shenzhenPrefixes = []string{"000", "001", "002", "003", "300", "159"}
)

// Normalize maps a raw ticker to its canonical form. It is pure, total and
// idempotent.
//
//	600000     -> 600000.SH
//	000001     -> 000001.SZ
//	700        -> 700 (too short to classify)
//	0700       -> 0700.HK
//	601398.ss  -> 601398.SH
//	aapl       -> AAPL
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		if s[i+1:] == "SS" {
			return s[:i] + "." + string(Shanghai)
		}
		return s
	}
	if !isDigits(s) {
		return s
	}
	switch len(s) {
	case 6:
		return s + "." + string(classify(s))
	case 4, 5:
		return s + "." + string(HongKong)
	}
	return s
}

// classify guesses the mainland exchange of a 6-digit code. Codes outside
// both prefix lists default to Shanghai.
func classify(code string) Exchange {
	p := code[:3]
	for _, sh := range shanghaiPrefixes {
		if p == sh {
			return Shanghai
		}
	}
	for _, sz := range shenzhenPrefixes {
		if p == sz {
			return Shenzhen
		}
	}
	return Shanghai
}

// Symbol is a canonical symbol split into its code and exchange suffix.
type Symbol struct {
	Code     string
	Exchange Exchange
}

// Parse canonicalizes raw and splits it on the last dot.
func Parse(raw string) Symbol {
	s := Normalize(raw)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return Symbol{Code: s[:i], Exchange: Exchange(s[i+1:])}
	}
	return Symbol{Code: s}
}

// String returns the canonical form.
func (s Symbol) String() string {
	if s.Exchange == Auto {
		return s.Code
	}
	return s.Code + "." + string(s.Exchange)
}

// IsUS reports whether s is a bare alphabetic ticker, which both upstreams
// route to their US market.
func (s Symbol) IsUS() bool {
	return s.Exchange == Auto && s.Code != "" && !isDigits(s.Code)
}

// IsNumeric reports whether the code is made only of digits.
func (s Symbol) IsNumeric() bool { return isDigits(s.Code) }

// Currency derives the quote currency from the suffix.
func (s Symbol) Currency() Currency {
	switch s.Exchange {
	case HongKong:
		return HKD
	case Shanghai, Shenzhen:
		return CNY
	}
	return USD
}

// IsAmbiguous reports whether raw is a bare 6-digit code, for which either
// mainland exchange is possible.
func IsAmbiguous(raw string) bool {
	s := strings.TrimSpace(raw)
	return len(s) == 6 && isDigits(s)
}

// Alternate returns the exchange to retry when the first guess for an
// ambiguous code misses: 159xxx ETFs are tried on Shanghai, everything else
// on Shenzhen.
func Alternate(raw string) Exchange {
	if strings.HasPrefix(strings.TrimSpace(raw), "159") {
		return Shanghai
	}
	return Shenzhen
}

// WithExchange forces ex onto the code of raw, replacing any suffix. Auto
// leaves raw untouched.
func WithExchange(raw string, ex Exchange) string {
	if ex == Auto {
		return raw
	}
	return Symbol{Code: Parse(raw).Code, Exchange: ex}.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
