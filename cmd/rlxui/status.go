package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/session"
)

var statusOpts struct {
	since string
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the number of groups with unseen alerts in Waybar's custom
module JSON format.

A group counts when the service flags recent alerts and the group changed
after your last visit. Visiting the group (TUI or "rlxui open") clears it.

This is designed to be used with Waybar's custom module:

  "custom/rlx": {
    "exec": "rlxui status",
    "interval": 10,
    "return-type": "json",
    "on-click": "rlxui tui"
  }

The output includes:
  - text: Number of groups with unseen alerts
  - alt: Class (alerts, empty, error)
  - tooltip: The groups with unseen alerts
  - class: CSS class, same as alt`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusOpts.since, "since", "",
		"Only count groups modified within the duration (e.g., 1d)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	since, err := core.ParseDuration(statusOpts.since)
	if err != nil {
		return err
	}

	// No sinks: the bar polls this command and must not raise notices.
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.session.Groups(ctx, session.GroupQuery{
		Filter: core.GroupFilter{Since: since, AlertsOnly: true},
	})
	if err != nil {
		return outputStatus(WaybarStatus{
			Text:    "",
			Alt:     "error",
			Tooltip: api.Message(err),
			Class:   "error",
		})
	}

	return outputStatus(generateStatus(groups))
}

// generateStatus creates a WaybarStatus from decorated groups.
func generateStatus(groups []session.GroupStatus) WaybarStatus {
	var unseen []string
	for _, g := range groups {
		if g.Unseen {
			unseen = append(unseen, g.ID)
		}
	}

	if len(unseen) == 0 {
		return WaybarStatus{
			Text:  "",
			Alt:   "empty",
			Class: "empty",
		}
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", len(unseen)),
		Alt:        "alerts",
		Tooltip:    "Unseen alerts:\n" + strings.Join(unseen, "\n"),
		Class:      "alerts",
		Percentage: min(len(unseen), 100),
	}
}

// outputStatus writes the status as JSON.
func outputStatus(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}
