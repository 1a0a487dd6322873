package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/rlxui/internal/poller"
)

var openOpts struct {
	format   string
	template string
}

var openCmd = &cobra.Command{
	Use:   "open <group|index>",
	Short: "Print a group's log and mark it seen",
	Long: `Open a group once: fetch its log, raise a notice for a fresh arousal
spike, print the log with the first unread alert marked, and record the
visit so the alert is not reported again.

The group may be given by id, by 1-based index, or as a line of
"rlxui groups -f dmenu" output.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

var watchOpts struct {
	format string
}

var watchCmd = &cobra.Command{
	Use:   "watch <group|index>",
	Short: "Open a group and stream its metrics",
	Long: `Open a group like "rlxui open", then poll its friction, arousal and
valence metrics at the configured interval until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(openCmd, watchCmd)

	openCmd.Flags().StringVarP(&openOpts.format, "format", "f", "", formatFlagHelp())
	openCmd.Flags().StringVar(&openOpts.template, "template", "",
		"Custom Go template for plain output")

	watchCmd.Flags().StringVarP(&watchOpts.format, "format", "f", "", formatFlagHelp())
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	display := &writerDisplay{
		w:         os.Stdout,
		errw:      os.Stderr,
		formatter: newFormatter(openOpts.format, openOpts.template),
	}
	a, err := newApp(appOptions{display: display, stderr: true, desktop: true})
	if err != nil {
		return err
	}
	defer a.Close()

	groupID, err := resolveGroup(ctx, a.session, args[0])
	if err != nil {
		return err
	}

	_, err = a.session.Open(ctx, groupID)
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := newFormatter(watchOpts.format, "")
	display := &writerDisplay{w: os.Stdout, errw: os.Stderr, formatter: formatter}

	a, err := newApp(appOptions{
		display: display,
		stderr:  true,
		desktop: true,
		poll:    true,
		onMetrics: func(v poller.MetricsView) {
			if err := formatter.FormatMetrics(os.Stdout, v); err != nil {
				logger.Warn("failed to write metrics", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	groupID, err := resolveGroup(ctx, a.session, args[0])
	if err != nil {
		return err
	}

	if _, err := a.session.Open(ctx, groupID); err != nil {
		return err
	}

	// Poll until interrupted
	<-ctx.Done()
	return nil
}
