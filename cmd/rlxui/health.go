package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
)

var healthOpts struct {
	json bool
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the service is reachable",
	Long: `Check service liveness. Exits non-zero when the service is
unreachable or reports a status other than "ok".`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

var historyOpts struct {
	since  string
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history <group>",
	Short: "Show a group's arousal history",
	Long: `Show a group's arousal z-score samples with a sparkline.

Examples:
  rlxui history alpha --since 6h
  rlxui history alpha --since 7d -f json`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(healthCmd, historyCmd)

	healthCmd.Flags().BoolVar(&healthOpts.json, "json", false,
		"Output the raw status as JSON")

	historyCmd.Flags().StringVar(&historyOpts.since, "since", "24h",
		"History window (1h to 7d)")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "", formatFlagHelp())
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	client := newClient()
	status, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("%s: %s", client.BaseURL(), api.Message(err))
	}

	if healthOpts.json {
		encoder := json.NewEncoder(os.Stdout)
		if err := encoder.Encode(status); err != nil {
			return err
		}
	} else {
		fmt.Printf("%s: %s %s\n", client.BaseURL(), status.Status, status.Message)
	}

	if status.Status != "ok" {
		return fmt.Errorf("service reports %q", status.Status)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := model.ValidateGroupID(args[0]); err != nil {
		return err
	}
	d, err := core.ParseDuration(historyOpts.since)
	if err != nil {
		return err
	}
	hours, err := core.HistoryHours(d)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	points, err := newClient().AffectiveHistory(ctx, args[0], hours)
	if err != nil {
		return fmt.Errorf("failed to load history for %s: %s", args[0], api.Message(err))
	}

	return newFormatter(historyOpts.format, "").FormatHistory(os.Stdout, args[0], points)
}
