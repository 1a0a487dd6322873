package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/rlxui/internal/store"
)

// Preference keys accepted by "prefs get" and "prefs set".
const (
	prefLanguage = "language"
	prefTheme    = "theme"
	prefLastSeen = "last-seen"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change client preferences",
	Long: `Show or change client preferences.

Preferences are stored in ~/.local/share/rlxui/prefs.json and shared with
running TUIs, which pick up changes immediately.

Examples:
  rlxui prefs get
  rlxui prefs get last-seen
  rlxui prefs set theme dark
  rlxui prefs set language es`,
}

var prefsGetCmd = &cobra.Command{
	Use:       "get [language|theme|last-seen]",
	Short:     "Print preferences",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{prefLanguage, prefTheme, prefLastSeen},
	RunE:      runPrefsGet,
}

var prefsSetCmd = &cobra.Command{
	Use:       "set <language|theme> <value>",
	Short:     "Change a preference",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{prefLanguage, prefTheme},
	RunE:      runPrefsSet,
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
}

func runPrefsGet(cmd *cobra.Command, args []string) error {
	prefs, err := store.OpenDefaultFilePrefs()
	if err != nil {
		return err
	}

	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	out := cmd.OutOrStdout()

	switch key {
	case prefLanguage:
		fmt.Fprintln(out, prefs.Language())
	case prefTheme:
		fmt.Fprintln(out, prefs.Theme())
	case prefLastSeen:
		printLastSeen(cmd, prefs.Snapshot().LastSeen, time.Now())
	default:
		fmt.Fprintf(out, "%s = %s\n", prefLanguage, prefs.Language())
		fmt.Fprintf(out, "%s = %s\n", prefTheme, prefs.Theme())
		fmt.Fprintf(out, "groups seen = %d\n", len(prefs.Snapshot().LastSeen))
	}
	return nil
}

func printLastSeen(cmd *cobra.Command, marks map[string]time.Time, now time.Time) {
	ids := make([]string, 0, len(marks))
	for id := range marks {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(%s)\n",
			id, marks[id].Format(time.RFC3339), humanize.RelTime(marks[id], now, "ago", "from now"))
	}
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	prefs, err := store.OpenDefaultFilePrefs()
	if err != nil {
		return err
	}

	switch key, value := args[0], args[1]; key {
	case prefLanguage:
		return prefs.SetLanguage(value)
	case prefTheme:
		theme, err := store.ParseTheme(value)
		if err != nil {
			return err
		}
		return prefs.SetTheme(theme)
	default:
		return fmt.Errorf("unknown preference %q (want %s or %s)", key, prefLanguage, prefTheme)
	}
}
