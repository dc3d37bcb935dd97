package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/char5742/quitbit/internal/display"
)

func newModesCmd() *cobra.Command {
	var command string

	cmd := &cobra.Command{
		Use:   "modes",
		Short: "List the display modes that rr would restore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modes, err := display.NewXrandr(command).Modes(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "output\tmode\trate\tcurrent\tpreferred")
			for _, m := range modes {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%t\t%t\n", m.Output, m.Name, m.Rate, m.Current, m.Preferred)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&command, "command", display.DefaultCommand, "xrandr compatible command")

	return cmd
}
