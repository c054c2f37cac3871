package quotefeed

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"

	"stockticker/internal/provider"
	"stockticker/internal/symbol"
)

// DecodeGBK converts a GBK response body to UTF-8.
func DecodeGBK(b []byte) (string, error) {
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Payload returns the quoted value captured by re, whose last submatch must be
// the payload between the quotes. An empty payload is how the feeds answer
// unknown codes.
func Payload(re *regexp.Regexp, text string) (string, error) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", fmt.Errorf("payload wrapper not found: %w", provider.ErrDecode)
	}
	if m[len(m)-1] == "" {
		return "", fmt.Errorf("empty payload: %w", provider.ErrNoQuote)
	}
	return m[len(m)-1], nil
}

// Field returns fields[i], or "" when the payload is too short.
func Field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// Float parses fields[i] as a finite number.
func Float(fields []string, i int) (float64, bool) {
	return ParseFloat(Field(fields, i))
}

// ParseFloat parses s as a finite number.
func ParseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Percent returns change relative to prevClose, or 0 when prevClose is not
// positive.
func Percent(change, prevClose float64) float64 {
	if prevClose <= 0 {
		return 0
	}
	return change / prevClose * 100
}

// Imbalance sums the volumes at the given bid and ask offsets and returns
// (bid-ask)/(bid+ask)*100. Unparsable volumes count as zero. It returns nil
// when the total is not positive.
func Imbalance(fields []string, bids, asks []int) *float64 {
	var bidTotal, askTotal float64
	for _, i := range bids {
		if v, ok := Float(fields, i); ok && v > 0 {
			bidTotal += v
		}
	}
	for _, i := range asks {
		if v, ok := Float(fields, i); ok && v > 0 {
			askTotal += v
		}
	}
	total := bidTotal + askTotal
	if total <= 0 || math.IsInf(total, 0) {
		return nil
	}
	v := (bidTotal - askTotal) / total * 100
	return &v
}

// PositiveFloat returns a pointer to fields[i] when it parses and is > 0.
func PositiveFloat(fields []string, i int) *float64 {
	v, ok := Float(fields, i)
	if !ok || v <= 0 {
		return nil
	}
	return &v
}

// Timestamp normalizes an upstream time field. 14-digit YYYYMMDDHHMMSS values
// are reformatted, values carrying both '-' and ':' pass through, and
// anything else (a bare HHMMSS, say) is dropped.
func Timestamp(s string) *string {
	s = strings.TrimSpace(s)
	if len(s) == 14 && isDigits(s) {
		out := fmt.Sprintf("%s-%s-%s %s:%s:%s", s[0:4], s[4:6], s[6:8], s[8:10], s[10:12], s[12:14])
		return &out
	}
	if strings.Contains(s, "-") && strings.Contains(s, ":") {
		return &s
	}
	return nil
}

// WireCode builds the common market-prefixed code: sh/sz + code, hk + code
// zero-padded to 5 digits when numeric, and us(sym) for bare tickers.
// Any other symbol is unsupported.
func WireCode(sym symbol.Symbol, us func(code string) string) (string, error) {
	switch {
	case sym.Exchange == symbol.Shanghai:
		return "sh" + sym.Code, nil
	case sym.Exchange == symbol.Shenzhen:
		return "sz" + sym.Code, nil
	case sym.Exchange == symbol.HongKong:
		if sym.IsNumeric() && len(sym.Code) < 5 {
			return "hk" + strings.Repeat("0", 5-len(sym.Code)) + sym.Code, nil
		}
		return "hk" + sym.Code, nil
	case sym.IsUS():
		return us(sym.Code), nil
	}
	return "", fmt.Errorf("no wire code for %q: %w", sym.String(), provider.ErrUnsupported)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
