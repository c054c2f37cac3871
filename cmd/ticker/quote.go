package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stockticker/internal/board"
	"stockticker/internal/feeds"
	"stockticker/internal/provider"
)

func newQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "quote SYMBOL...",
		Short:   "Look up symbols once and print a board",
		Example: "  ticker quote 600000 159919 00700.HK AAPL",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := board.Rows(args, a.resolver.ResolveAll(cmd.Context(), args))
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"rows": rows})
			}
			return board.Render(cmd.OutOrStdout(), rows, a.colorize())
		},
	}
}

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy SYMBOL",
		Short: "Print the plain-text summary of one symbol, ready to paste",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row := board.Row{Symbol: args[0], Quote: a.resolver.Resolve(cmd.Context(), args[0])}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), row.CopyText())
			return err
		},
	}
}

func newRawCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "raw SYMBOL",
		Short: "Dump the decoded upstream payload for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, err := feeds.Find(a.feeds, source)
			if err != nil {
				return err
			}
			text, err := feed.Raw(cmd.Context(), args[0])
			if errors.Is(err, provider.ErrUnsupported) {
				return fmt.Errorf("%s cannot look up %q", source, args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringVarP(&source, "provider", "p", string(provider.SourceTencent), "feed to query: tencent or sina")
	return cmd
}
