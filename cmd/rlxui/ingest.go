package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var ingestOpts struct {
	author string
	quiet  bool
	format string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <group|index> [text...]",
	Short: "Send a message to a group",
	Long: `Send a message to a group and print the updated log.

The message text is taken from the remaining arguments, or read from
stdin when none are given.

Examples:
  rlxui ingest alpha --author ana "ship it"
  echo "ship it" | rlxui ingest alpha --author ana`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestOpts.author, "author", "a", os.Getenv("USER"),
		"Message author")
	ingestCmd.Flags().BoolVarP(&ingestOpts.quiet, "quiet", "q", false,
		"Do not print the updated log")
	ingestCmd.Flags().StringVarP(&ingestOpts.format, "format", "f", "", formatFlagHelp())
}

func runIngest(cmd *cobra.Command, args []string) error {
	text := strings.Join(args[1:], " ")
	if len(args) == 1 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		text = string(data)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	opts := appOptions{stderr: true}
	if !ingestOpts.quiet {
		opts.display = &writerDisplay{
			w:         os.Stdout,
			errw:      os.Stderr,
			formatter: newFormatter(ingestOpts.format, ""),
		}
	}
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	groupID, err := resolveGroup(ctx, a.session, args[0])
	if err != nil {
		return err
	}

	_, err = a.session.Ingest(ctx, groupID, ingestOpts.author, text)
	return err
}
