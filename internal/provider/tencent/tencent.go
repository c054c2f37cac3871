// Package tencent reads realtime quotes from the qt.gtimg.cn text feed.
package tencent

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"stockticker/internal/httpx"
	"stockticker/internal/provider"
	"stockticker/internal/provider/quotefeed"
	"stockticker/internal/symbol"
)

const DefaultEndpoint = "http://qt.gtimg.cn/q="

// Field offsets in the '~' separated payload.
const (
	fieldName      = 1
	fieldPrice     = 3
	fieldPrevClose = 4
	fieldTime      = 30
	fieldChange    = 31
	fieldPercent   = 32
	fieldVolRatio  = 49
)

var (
	bidVolumes = []int{10, 12, 14, 16, 18}
	askVolumes = []int{20, 22, 24, 26, 28}

	payloadRE = regexp.MustCompile(`v_\w+="([^"]*)"`)
)

// noMatch is what the feed returns for codes it does not know.
const noMatch = "v_pv_none_match"

type Config struct {
	Endpoint  string
	UserAgent string
}

// Dialect implements quotefeed.Dialect for the Tencent feed.
type Dialect struct {
	cfg Config
}

func NewDialect(cfg Config) *Dialect {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpx.BrowserUserAgent
	}
	return &Dialect{cfg: cfg}
}

// New returns a Provider backed by the Tencent feed.
func New(cfg Config, hc *httpx.Client, opts ...quotefeed.Option) *quotefeed.Provider {
	return quotefeed.New(NewDialect(cfg), hc, opts...)
}

func (d *Dialect) Source() provider.Source { return provider.SourceTencent }

// Code maps 600000.SH to sh600000, 700.HK to hk00700 and AAPL to usAAPL.
func (d *Dialect) Code(sym symbol.Symbol) (string, error) {
	return quotefeed.WireCode(sym, func(code string) string {
		return "us" + strings.ToUpper(code)
	})
}

func (d *Dialect) Endpoints(code string) []string {
	return []string{d.cfg.Endpoint + code}
}

func (d *Dialect) Header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", d.cfg.UserAgent)
	h.Set("Accept", "*/*")
	return h
}

func (d *Dialect) Parse(code, text string) (*provider.Quote, error) {
	if strings.Contains(text, noMatch) {
		return nil, fmt.Errorf("unknown code: %w", provider.ErrNoQuote)
	}
	payload, err := quotefeed.Payload(payloadRE, text)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(payload, "~")
	if len(fields) < fieldPrevClose {
		return nil, fmt.Errorf("%d fields: %w", len(fields), provider.ErrParse)
	}

	price, ok := quotefeed.Float(fields, fieldPrice)
	if !ok {
		return nil, fmt.Errorf("price %q: %w", quotefeed.Field(fields, fieldPrice), provider.ErrNoQuote)
	}
	prevClose, prevOK := quotefeed.Float(fields, fieldPrevClose)

	change, ok := quotefeed.Float(fields, fieldChange)
	if !ok {
		if !prevOK {
			return nil, fmt.Errorf("prev close %q: %w", quotefeed.Field(fields, fieldPrevClose), provider.ErrParse)
		}
		change = price - prevClose
	}
	if !prevOK {
		prevClose = price - change
	}

	pct, ok := quotefeed.ParseFloat(strings.ReplaceAll(quotefeed.Field(fields, fieldPercent), "%", ""))
	if !ok {
		pct = quotefeed.Percent(price-prevClose, prevClose)
	}

	q := &provider.Quote{
		Name:          quotefeed.Field(fields, fieldName),
		Price:         price,
		Change:        change,
		ChangePercent: pct,
		VolumeRatio:   quotefeed.PositiveFloat(fields, fieldVolRatio),
		UpdatedAt:     quotefeed.Timestamp(quotefeed.Field(fields, fieldTime)),
	}
	if len(fields) > askVolumes[len(askVolumes)-1] {
		q.BidAskImbalance = quotefeed.Imbalance(fields, bidVolumes, askVolumes)
	}
	return q, nil
}
