package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the watch list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			symbols, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"symbols": symbols})
			}
			for i, s := range symbols {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, s)
			}
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add SYMBOL...",
		Short: "Add symbols to the top of the watch list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, raw := range args {
				sym, err := store.Add(cmd.Context(), raw)
				if err != nil {
					return err
				}
				a.log.Info().Str("symbol", sym).Msg("watch list add")
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", sym)
			}
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm SYMBOL...",
		Aliases: []string{"remove"},
		Short:   "Remove symbols from the watch list",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, raw := range args {
				if err := store.Remove(cmd.Context(), raw); err != nil {
					return err
				}
				a.log.Info().Str("symbol", raw).Msg("watch list remove")
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", raw)
			}
			return nil
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "mv FROM TO",
		Short:   "Move the entry at position FROM to position TO (0 is the top)",
		Example: "  ticker mv 3 0",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("FROM must be an integer: %w", err)
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("TO must be an integer: %w", err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Move(cmd.Context(), from, to); err != nil {
				return err
			}
			a.log.Info().Int("from", from).Int("to", to).Msg("watch list move")
			symbols, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for i, s := range symbols {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, s)
			}
			return nil
		},
	}
}
