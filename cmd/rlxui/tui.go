package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/tui"
)

var tuiOpts struct {
	group string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI",
	Long: `Launch the interactive terminal user interface.

The TUI provides:
  - Group list with unread alert markers
  - The open group's log, scrolled to the first unread alert
  - Live friction, arousal and valence metrics with a 24h arousal sparkline
  - Search within the log and copy to clipboard
  - Create, rename and delete groups, and send messages

Key bindings:
  tab         Switch between groups and log
  enter       Open group
  a           Jump to first unread alert
  /           Search log
  i           Send a message
  n, R, D     New, rename, delete group
  c, y, C     Copy text, entry as YAML, log as JSON
  r           Refresh
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVarP(&tuiOpts.group, "group", "g", "",
		"Open this group on start")
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := tui.NewBridge()
	a, err := newApp(appOptions{
		display:   bridge,
		sinks:     []notify.Sink{bridge},
		desktop:   true,
		poll:      true,
		onMetrics: bridge.OnMetrics,
		watch:     true,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(ctx, tui.RunOptions{
		Config:       getConfig(),
		Session:      a.session,
		Service:      a.client,
		Bridge:       bridge,
		InitialGroup: tuiOpts.group,
	})
}
