package board

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Render writes rows as an aligned table. Gains are red and losses green,
// following the mainland convention. With colorize false the output is plain
// text.
func Render(w io.Writer, rows []Row, colorize bool) error {
	up := color.New(color.FgRed, color.Bold)
	down := color.New(color.FgGreen, color.Bold)
	failed := color.New(color.FgYellow)
	faint := color.New(color.Faint)
	for _, c := range []*color.Color{up, down, failed, faint} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		if r.Failed() {
			fmt.Fprintf(tw, "%s\t%s\t\t\t\n", r.DisplayName(), failed.Sprint("lookup failed"))
			continue
		}
		q := r.Quote
		c := down
		if r.Up() {
			c = up
		}
		var br, vr string
		if q.BidAskImbalance != nil {
			br = "BR " + signed(*q.BidAskImbalance, *q.BidAskImbalance >= 0) + "%"
		}
		if q.VolumeRatio != nil {
			vr = fmt.Sprintf("VR %.2f", *q.VolumeRatio)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.DisplayName(),
			c.Sprintf("%.2f", q.Price),
			c.Sprint(signed(q.ChangePercent, q.Change >= 0)+"%"),
			br,
			faint.Sprint(vr),
		)
	}
	return tw.Flush()
}
