package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stockticker/internal/config"
	"stockticker/internal/feeds"
	"stockticker/internal/logging"
	"stockticker/internal/provider"
	"stockticker/internal/provider/quotefeed"
	"stockticker/internal/watchlist"
)

type quoteResolver interface {
	Resolve(ctx context.Context, raw string) *provider.Quote
	ResolveAll(ctx context.Context, symbols []string) []*provider.Quote
}

// app carries flags and the lazily built dependencies shared by subcommands.
// Tests preset resolver to keep lookups offline.
type app struct {
	cfgPath string
	dbPath  string
	jsonOut bool
	noColor bool
	verbose bool

	cfg      config.Config
	log      zerolog.Logger
	feeds    []*quotefeed.Provider
	resolver quoteResolver
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ticker",
		Short:         "Realtime A-share, Hong Kong and US quotes in the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "config file (json, yaml or toml); defaults to $CONFIG_FILE or ./config.*")
	flags.StringVar(&a.dbPath, "db", "", "watch-list database path (overrides watch.db_path)")
	flags.BoolVar(&a.jsonOut, "json", false, "print JSON instead of a table")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newQuoteCmd(a),
		newWatchCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newMoveCmd(a),
		newRawCmd(a),
		newCopyCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Watch.DBPath = a.dbPath
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	a.log = logging.NewWithConsole(cfg.Log, cmd.ErrOrStderr())

	if a.resolver != nil {
		return nil
	}
	r, err := feeds.Resolver(cfg, a.log)
	if err != nil {
		return err
	}
	a.resolver = r
	a.feeds = feeds.Build(cfg, a.log)
	return nil
}

func (a *app) openStore() (*watchlist.Store, error) {
	return watchlist.Open(a.cfg.Watch.DBPath)
}

// colorize follows fatih/color's own stdout detection unless --no-color is set.
func (a *app) colorize() bool {
	return !a.noColor && !color.NoColor
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
