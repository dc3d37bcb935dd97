package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/char5742/quitbit/internal/consts"
	"github.com/char5742/quitbit/internal/features"
	"github.com/char5742/quitbit/internal/logger"
	"github.com/char5742/quitbit/internal/types"
)

func newDevicesCmd() *cobra.Command {
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List connected game controllers with their button count and pressed buttons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return listDevices(ctx, cmd.OutOrStdout(), watch)
		},
	}
	cmd.Flags().DurationVar(&watch, "watch", 0, "refresh the list at this interval until interrupted")

	return cmd
}

func listDevices(ctx context.Context, w io.Writer, watch time.Duration) error {
	log := logger.WithComponent("devices")
	monitor := features.NewControllerMonitor(log)
	defer monitor.Close()

	source := features.NewEvdevSource(monitor, log)
	defer source.Close()

	for {
		if err := printDevices(w, source); err != nil {
			return err
		}
		if watch <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watch):
			fmt.Fprintln(w)
		}
	}
}

func printDevices(w io.Writer, source *features.EvdevSource) error {
	controllers, err := source.Controllers()
	if err != nil {
		return fmt.Errorf("コントローラの列挙に失敗しました: %w", err)
	}
	if len(controllers) == 0 {
		fmt.Fprintln(w, "no controllers found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "index\tname\tpath\tbuttons\tpressed\tpov")
	for i, c := range controllers {
		name, buttons, pressed, pov := c.Name, "-", "-", "-"

		if gp, err := source.Gamepad(c); err == nil {
			if gp.Name() != "" {
				name = gp.Name()
			}
			buttons = strconv.Itoa(gp.ButtonCount())
		}
		if r, err := source.Read(c); err == nil {
			pressed = formatPressed(r)
			pov = formatPOV(r.POV)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, name, c.Path, buttons, pressed, pov)
	}
	return tw.Flush()
}

func formatPressed(r types.Reading) string {
	pressed := r.Pressed()
	if len(pressed) == 0 {
		return "none"
	}
	parts := make([]string, len(pressed))
	for i, p := range pressed {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, "+")
}

func formatPOV(pov uint16) string {
	if pov == consts.POVCentered {
		return "centered"
	}
	return fmt.Sprintf("%.0f°", float64(pov)/100)
}
