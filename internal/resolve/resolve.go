// Package resolve turns a raw ticker into a quote by walking an ordered list
// of provider/exchange attempts until one produces a valid quote.
package resolve

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stockticker/internal/provider"
	"stockticker/internal/symbol"
)

// DefaultAttemptTimeout bounds a single provider call.
const DefaultAttemptTimeout = 5 * time.Second

// Attempt is one step of a lookup plan. Exchange Auto means the symbol is
// passed through as entered; otherwise the code is forced onto Exchange.
type Attempt struct {
	Provider provider.Provider
	Exchange symbol.Exchange
}

// Symbol returns the symbol this attempt sends to its provider.
func (a Attempt) Symbol(raw string) string {
	return symbol.WithExchange(raw, a.Exchange)
}

type Resolver struct {
	providers []provider.Provider
	log       zerolog.Logger
	timeout   time.Duration
	limit     int
}

// Option is a configuration option for Resolver.
type Option func(*Resolver)

func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// WithAttemptTimeout sets the per-attempt deadline. Zero disables it.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithConcurrency caps how many symbols ResolveAll looks up at once. Zero
// or less means no cap.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.limit = n
	}
}

// New returns a Resolver that tries providers in the given priority order.
func New(providers []provider.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		log:       zerolog.Nop(),
		timeout:   DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan lists the attempts Resolve makes for raw, in order. A bare 6-digit
// code is tried on each provider first as classified, then on the alternate
// mainland exchange, before moving on to the next provider.
func (r *Resolver) Plan(raw string) []Attempt {
	ambiguous := symbol.IsAmbiguous(raw)
	plan := make([]Attempt, 0, 2*len(r.providers))
	for _, p := range r.providers {
		plan = append(plan, Attempt{Provider: p, Exchange: symbol.Auto})
		if ambiguous {
			plan = append(plan, Attempt{Provider: p, Exchange: symbol.Alternate(raw)})
		}
	}
	return plan
}

// Resolve returns the first quote produced by the plan for raw, or nil when
// every attempt misses. Failures are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, raw string) *provider.Quote {
	for i, a := range r.Plan(raw) {
		if ctx.Err() != nil {
			r.log.Debug().Str("symbol", raw).Err(ctx.Err()).Msg("lookup cancelled")
			return nil
		}
		sym := a.Symbol(raw)
		q, err := r.try(ctx, a.Provider, sym)
		if err == nil && q != nil {
			return q
		}
		r.log.Debug().
			Str("symbol", raw).
			Str("provider", a.Provider.Name()).
			Str("attempt_symbol", sym).
			Int("attempt", i+1).
			Err(err).
			Msg("attempt missed")
	}
	r.log.Debug().Str("symbol", raw).Msg("no provider returned a quote")
	return nil
}

func (r *Resolver) try(ctx context.Context, p provider.Provider, sym string) (*provider.Quote, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return p.Fetch(ctx, sym)
}

// ResolveAll resolves every symbol concurrently. The result is index-aligned
// with symbols; misses are nil.
func (r *Resolver) ResolveAll(ctx context.Context, symbols []string) []*provider.Quote {
	out := make([]*provider.Quote, len(symbols))
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, s := range symbols {
		g.Go(func() error {
			out[i] = r.Resolve(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
