// Package quotefeed runs the request/decode/validate cycle shared by the
// text-based realtime quote upstreams. Each upstream only contributes a
// Dialect: its wire codes, endpoints, headers and field layout.
package quotefeed

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"stockticker/internal/httpx"
	"stockticker/internal/provider"
	"stockticker/internal/symbol"
)

// Dialect describes one upstream.
type Dialect interface {
	Source() provider.Source
	// Code translates a canonical symbol into the upstream's wire code, or
	// returns an error wrapping provider.ErrUnsupported.
	Code(sym symbol.Symbol) (string, error)
	// Endpoints lists the URLs to try for code. A later URL is only used when
	// the previous one answered with a fallback status.
	Endpoints(code string) []string
	Header() http.Header
	// Parse extracts a partial quote (price, change, name and optional
	// metrics) from the decoded response text.
	Parse(code, text string) (*provider.Quote, error)
}

// Provider adapts a Dialect to provider.Provider.
type Provider struct {
	dialect    Dialect
	client     *httpx.Client
	log        zerolog.Logger
	fallbackOn map[int]bool
	now        func() time.Time
}

// Option is a configuration option for Provider.
type Option func(*Provider)

// WithLogger sets the logger used for per-request debug output.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// WithFallbackStatuses sets which HTTP statuses move on to the next endpoint.
// The default is 403.
func WithFallbackStatuses(statuses ...int) Option {
	return func(p *Provider) {
		p.fallbackOn = make(map[int]bool, len(statuses))
		for _, s := range statuses {
			p.fallbackOn[s] = true
		}
	}
}

// WithClock overrides the time source for Quote.ReceivedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

func New(d Dialect, hc *httpx.Client, opts ...Option) *Provider {
	p := &Provider{
		dialect:    d,
		client:     hc,
		log:        zerolog.Nop(),
		fallbackOn: map[int]bool{http.StatusForbidden: true},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return string(p.dialect.Source()) }

// Fetch looks up raw and returns a validated quote.
func (p *Provider) Fetch(ctx context.Context, raw string) (*provider.Quote, error) {
	sym := symbol.Parse(raw)
	code, err := p.dialect.Code(sym)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", p.Name(), sym, err)
	}
	text, err := p.fetchText(ctx, code)
	if err != nil {
		return nil, err
	}
	q, err := p.dialect.Parse(code, text)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", p.Name(), code, err)
	}
	if !ValidPrice(q.Price) {
		return nil, fmt.Errorf("%s %s: price %v: %w", p.Name(), code, q.Price, provider.ErrNoQuote)
	}
	q.Symbol = sym.String()
	q.Currency = sym.Currency()
	q.Source = p.dialect.Source()
	q.ReceivedAt = p.now().UTC()
	return q, nil
}

// Raw returns the decoded upstream response for raw without parsing it.
func (p *Provider) Raw(ctx context.Context, raw string) (string, error) {
	sym := symbol.Parse(raw)
	code, err := p.dialect.Code(sym)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", p.Name(), sym, err)
	}
	return p.fetchText(ctx, code)
}

func (p *Provider) fetchText(ctx context.Context, code string) (string, error) {
	endpoints := p.dialect.Endpoints(code)
	if len(endpoints) == 0 {
		return "", fmt.Errorf("%s %s: no endpoint configured: %w", p.Name(), code, provider.ErrTransport)
	}
	header := p.dialect.Header()
	for i, url := range endpoints {
		start := time.Now()
		status, body, err := p.client.Get(ctx, url, header)
		p.log.Debug().
			Str("provider", p.Name()).
			Str("url", url).
			Int("status", status).
			Int("bytes", len(body)).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("upstream request")
		if err != nil {
			return "", fmt.Errorf("%s %s: %v: %w", p.Name(), code, err, provider.ErrTransport)
		}
		if status >= 200 && status < 300 {
			text, err := DecodeGBK(body)
			if err != nil {
				return "", fmt.Errorf("%s %s: %v: %w", p.Name(), code, err, provider.ErrDecode)
			}
			return text, nil
		}
		if p.fallbackOn[status] && i < len(endpoints)-1 {
			continue
		}
		return "", fmt.Errorf("%s %s: status %d: %w", p.Name(), code, status, provider.ErrTransport)
	}
	// unreachable: the loop returns on its last endpoint
	return "", fmt.Errorf("%s %s: %w", p.Name(), code, provider.ErrTransport)
}

// ValidPrice reports whether v can be shown as a last price.
func ValidPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
