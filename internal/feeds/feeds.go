// Package feeds builds the configured quote providers and the resolver over
// them, so the server and the CLI wire things the same way.
package feeds

import (
	"fmt"

	"github.com/rs/zerolog"

	"stockticker/internal/config"
	"stockticker/internal/httpx"
	"stockticker/internal/provider"
	"stockticker/internal/provider/quotefeed"
	"stockticker/internal/provider/sina"
	"stockticker/internal/provider/tencent"
	"stockticker/internal/resolve"
)

// Build returns the enabled feeds in priority order: Tencent, then Sina.
func Build(cfg config.Config, log zerolog.Logger) []*quotefeed.Provider {
	var out []*quotefeed.Provider
	if f := cfg.Tencent; f.Enabled {
		out = append(out, tencent.New(tencent.Config{
			Endpoint:  f.Endpoint,
			UserAgent: f.UserAgent,
		}, httpx.New(f.Timeout), options(f, log, provider.SourceTencent)...))
	}
	if f := cfg.Sina; f.Enabled {
		out = append(out, sina.New(sina.Config{
			Endpoint:         f.Endpoint,
			FallbackEndpoint: f.FallbackEndpoint,
			Referer:          f.Referer,
			UserAgent:        f.UserAgent,
		}, httpx.New(f.Timeout), options(f, log, provider.SourceSina)...))
	}
	return out
}

func options(f config.Feed, log zerolog.Logger, src provider.Source) []quotefeed.Option {
	opts := []quotefeed.Option{quotefeed.WithLogger(log.With().Str("feed", string(src)).Logger())}
	if len(f.FallbackStatuses) > 0 {
		opts = append(opts, quotefeed.WithFallbackStatuses(f.FallbackStatuses...))
	}
	return opts
}

// Find returns the feed called name.
func Find(all []*quotefeed.Provider, name string) (*quotefeed.Provider, error) {
	for _, p := range all {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("feed %q is not enabled", name)
}

// Resolver validates cfg and returns a resolver over the enabled feeds.
func Resolver(cfg config.Config, log zerolog.Logger) (*resolve.Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	built := Build(cfg, log)
	providers := make([]provider.Provider, len(built))
	for i, p := range built {
		providers[i] = p
	}
	return resolve.New(providers,
		resolve.WithLogger(log),
		resolve.WithAttemptTimeout(cfg.Resolver.AttemptTimeout),
		resolve.WithConcurrency(cfg.Resolver.MaxConcurrency),
	), nil
}
