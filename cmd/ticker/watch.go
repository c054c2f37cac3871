package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"stockticker/internal/board"
)

const clearScreen = "\033[H\033[2J"

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the watch list board until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				interval = a.cfg.Watch.Interval
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			w := &watcher{
				resolver: a.resolver,
				list:     store.List,
				board:    board.New(),
				out:      cmd.OutOrStdout(),
				clear:    !once && !a.jsonOut,
				color:    a.colorize(),
				jsonOut:  a.jsonOut,
			}
			if once {
				return w.tick(cmd.Context())
			}
			return w.run(cmd.Context(), interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default watch.interval)")
	cmd.Flags().BoolVar(&once, "once", false, "draw one board and exit")
	return cmd
}

type watcher struct {
	resolver quoteResolver
	list     func(context.Context) ([]string, error)
	board    *board.Board
	out      io.Writer
	clear    bool
	color    bool
	jsonOut  bool
}

// run draws immediately and then on every tick. Ticks are handled one at a
// time, so a slow refresh delays the next instead of overlapping it.
func (w *watcher) run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := w.tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (w *watcher) tick(ctx context.Context) error {
	symbols, err := w.list(ctx)
	if err != nil {
		return err
	}
	rows := w.board.Apply(board.Rows(symbols, w.resolver.ResolveAll(ctx, symbols)))
	if ctx.Err() != nil {
		return nil
	}

	if w.jsonOut {
		return writeJSON(w.out, map[string]any{"rows": rows})
	}
	if w.clear {
		fmt.Fprint(w.out, clearScreen)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w.out, "watch list is empty; add symbols with `ticker add`")
		return err
	}
	if err := board.Render(w.out, rows, w.color); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w.out, "\nupdated %s\n", time.Now().Format(time.TimeOnly))
	return err
}
