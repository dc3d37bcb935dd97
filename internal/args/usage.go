package args

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Usage は使い方とオプションの一覧を表示する。reason が空でなければ先頭に表示する
func Usage(w io.Writer, reason string) {
	if reason != "" {
		fmt.Fprintf(w, "error: %s\n\n", reason)
	}

	fmt.Fprintln(w, "Usage: quitbit --buttons=0+1+2 --exec=/path/to/program [options] [rr]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Launches the program and terminates it when the buttons are held on a game controller.")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "option\tshort\tdescription\trequired")
	for _, opt := range options {
		short := "-"
		if opt.short != "" {
			short = "--" + opt.short
		}
		required := "no"
		if opt.required {
			required = "yes"
		}
		fmt.Fprintf(tw, "--%s=%s\t%s\t%s\t%s\n", opt.long, opt.value, short, opt.usage, required)
	}
	fmt.Fprintf(tw, "%s\t-\t%s\t%s\n", RestoreFlag, "restore the display mode when the program is terminated (anywhere on the line)", "no")
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Words after --params= (including --rr and --help) are passed to the program.")
}
