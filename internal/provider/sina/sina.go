// Package sina reads realtime quotes from the hq.sinajs.cn text feed.
package sina

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

const (
	DefaultEndpoint         = "https://hq.sinajs.cn/list="
	DefaultFallbackEndpoint = "http://hq.sinajs.cn/list="
	DefaultReferer          = "http://finance.sina.com.cn"
)

// usPrefix marks US tickers in wire codes; their payload has its own layout.
const usPrefix = "gb_"

var (
	bidVolumes = []int{9, 11, 13, 15, 17}
	askVolumes = []int{19, 21, 23, 25, 27}

	payloadRE = regexp.MustCompile(`var hq_str_\w+="([^"]*)"`)
)

type Config struct {
	Endpoint string
	// FallbackEndpoint is tried when Endpoint answers 403. Empty disables it.
	FallbackEndpoint string
	Referer          string
	UserAgent        string
}

// Dialect implements quotefeed.Dialect for the Sina feed.
type Dialect struct {
	cfg Config
}

func NewDialect(cfg Config) *Dialect {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpx.BrowserUserAgent
	}
	return &Dialect{cfg: cfg}
}

// New returns a Provider backed by the Sina feed.
func New(cfg Config, hc *httpx.Client, opts ...quotefeed.Option) *quotefeed.Provider {
	return quotefeed.New(NewDialect(cfg), hc, opts...)
}

func (d *Dialect) Source() provider.Source { return provider.SourceSina }

// Code maps 600000.SH to sh600000, 700.HK to hk00700 and AAPL to gb_aapl.
func (d *Dialect) Code(sym symbol.Symbol) (string, error) {
	return quotefeed.WireCode(sym, func(code string) string {
		return usPrefix + strings.ToLower(code)
	})
}

func (d *Dialect) Endpoints(code string) []string {
	urls := []string{d.cfg.Endpoint + code}
	if d.cfg.FallbackEndpoint != "" {
		urls = append(urls, d.cfg.FallbackEndpoint+code)
	}
	return urls
}

// Header carries the Referer the feed requires; requests without it are
// answered with 403.
func (d *Dialect) Header() http.Header {
	h := http.Header{}
	h.Set("Referer", d.cfg.Referer)
	h.Set("User-Agent", d.cfg.UserAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	return h
}

func (d *Dialect) Parse(code, text string) (*provider.Quote, error) {
	payload, err := quotefeed.Payload(payloadRE, text)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(payload, ",")
	if len(fields) < 4 {
		return nil, fmt.Errorf("%d fields: %w", len(fields), provider.ErrParse)
	}
	if strings.HasPrefix(code, usPrefix) {
		return parseUS(fields)
	}
	return parseLocal(fields)
}

// parseUS reads the gb_ layout: name, price, change, time, ... prev close.
func parseUS(fields []string) (*provider.Quote, error) {
	price, ok := quotefeed.Float(fields, 1)
	if !ok {
		return nil, fmt.Errorf("price %q: %w", quotefeed.Field(fields, 1), provider.ErrNoQuote)
	}
	change, _ := quotefeed.Float(fields, 2)
	prevClose, ok := quotefeed.Float(fields, len(fields)-1)
	if !ok || prevClose == 0 {
		prevClose = price - change
	}
	q := &provider.Quote{
		Name:          quotefeed.Field(fields, 0),
		Price:         price,
		Change:        change,
		ChangePercent: quotefeed.Percent(change, prevClose),
		UpdatedAt:     quotefeed.Timestamp(quotefeed.Field(fields, 3)),
	}
	if len(fields) > askVolumes[len(askVolumes)-1] {
		q.BidAskImbalance = quotefeed.Imbalance(fields, bidVolumes, askVolumes)
	}
	return q, nil
}

// parseLocal reads the A-share/HK layout: name, open, prev close, price, ...
// with date and time at 30 and 31.
func parseLocal(fields []string) (*provider.Quote, error) {
	price, ok := quotefeed.Float(fields, 3)
	if !ok {
		return nil, fmt.Errorf("price %q: %w", quotefeed.Field(fields, 3), provider.ErrNoQuote)
	}
	prevClose, ok := quotefeed.Float(fields, 2)
	if !ok {
		return nil, fmt.Errorf("prev close %q: %w", quotefeed.Field(fields, 2), provider.ErrParse)
	}
	change := price - prevClose
	q := &provider.Quote{
		Name:          quotefeed.Field(fields, 0),
		Price:         price,
		Change:        change,
		ChangePercent: quotefeed.Percent(change, prevClose),
	}
	if len(fields) > 31 {
		q.UpdatedAt = quotefeed.Timestamp(quotefeed.Field(fields, 30) + " " + quotefeed.Field(fields, 31))
	}
	if len(fields) > askVolumes[len(askVolumes)-1] {
		q.BidAskImbalance = quotefeed.Imbalance(fields, bidVolumes, askVolumes)
	}
	return q, nil
}
