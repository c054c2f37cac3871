// Package board turns resolved quotes into display rows for the watch board,
// the HTTP API and the clipboard summary.
package board

import (
	"fmt"
	"strings"

	"stockticker/internal/provider"
)

// Row pairs a watch-list entry with its quote. A nil Quote means the lookup
// failed.
type Row struct {
	Symbol string          `json:"symbol"`
	Quote  *provider.Quote `json:"quote"`
}

// Rows zips symbols with index-aligned quotes.
func Rows(symbols []string, quotes []*provider.Quote) []Row {
	out := make([]Row, len(symbols))
	for i, s := range symbols {
		out[i] = Row{Symbol: s}
		if i < len(quotes) {
			out[i].Quote = quotes[i]
		}
	}
	return out
}

func (r Row) Failed() bool { return r.Quote == nil }

// Up reports whether the row should be drawn as a gain. Unchanged counts as up.
func (r Row) Up() bool { return r.Quote != nil && r.Quote.Change >= 0 }

// DisplayName is "Name (SYMBOL)", or just the symbol when there is no name.
func (r Row) DisplayName() string {
	if r.Quote == nil || r.Quote.Name == "" {
		return r.Symbol
	}
	return fmt.Sprintf("%s (%s)", r.Quote.Name, r.Symbol)
}

// CopyText is the plain-text summary put on the clipboard. A failed row
// copies just its symbol.
func (r Row) CopyText() string {
	q := r.Quote
	if q == nil {
		return r.Symbol
	}
	var b strings.Builder
	if q.Name != "" {
		b.WriteString(q.Name + " ")
	}
	b.WriteString(r.Symbol + "\n")
	fmt.Fprintf(&b, "Price: %.2f\n", q.Price)
	fmt.Fprintf(&b, "Change: %s%%\n", signed(q.ChangePercent, q.Change >= 0))
	if q.BidAskImbalance != nil {
		fmt.Fprintf(&b, "Bid ratio: %s%%\n", signed(*q.BidAskImbalance, *q.BidAskImbalance >= 0))
	}
	if q.VolumeRatio != nil {
		fmt.Fprintf(&b, "Volume ratio: %.2f\n", *q.VolumeRatio)
	}
	return strings.TrimSpace(b.String())
}

func signed(v float64, plus bool) string {
	if plus {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// Board keeps the latest row per symbol across refreshes. A quote older than
// the one already shown is ignored; a failed lookup replaces whatever was
// there.
type Board struct {
	latest map[string]Row
	order  []string
}

func New() *Board {
	return &Board{latest: map[string]Row{}}
}

// Apply merges a refresh into the board and returns the rows in the order of
// the refresh. Symbols absent from rows are dropped.
func (b *Board) Apply(rows []Row) []Row {
	next := make(map[string]Row, len(rows))
	b.order = b.order[:0]
	for _, r := range rows {
		b.order = append(b.order, r.Symbol)
		if cur, ok := b.latest[r.Symbol]; ok && newer(cur.Quote, r.Quote) {
			next[r.Symbol] = cur
			continue
		}
		next[r.Symbol] = r
	}
	b.latest = next
	return b.Rows()
}

// Rows returns the current rows.
func (b *Board) Rows() []Row {
	out := make([]Row, 0, len(b.order))
	for _, s := range b.order {
		out = append(out, b.latest[s])
	}
	return out
}

// newer reports whether cur should be kept over incoming. Equal timestamps
// favour incoming.
func newer(cur, incoming *provider.Quote) bool {
	if cur == nil || incoming == nil {
		return false
	}
	return cur.ReceivedAt.After(incoming.ReceivedAt)
}
