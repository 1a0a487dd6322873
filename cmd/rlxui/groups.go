package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/session"
)

// commandTimeout bounds one-shot commands.
const commandTimeout = 30 * time.Second

var groupsOpts struct {
	// Filter options
	since  string
	alerts bool
	limit  int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	template string

	// Create options
	createTemplate string
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List and manage conversation groups",
	Long: `List and manage conversation groups.

Without a subcommand, lists groups. Groups with alerts newer than your last
visit are marked.

Examples:
  # Groups modified in the last day, alerts only
  rlxui groups --since 1d --alerts

  # Pick a group with fuzzel and open it
  rlxui groups -f dmenu | fuzzel -d | xargs -0 rlxui open`,
	Args: cobra.NoArgs,
	RunE: runGroupsList,
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE:  runGroupsList,
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <group>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsCreate,
}

var groupsRenameCmd = &cobra.Command{
	Use:   "rename <group> <new-group>",
	Short: "Rename a group",
	Long: `Rename a group. The last-seen mark moves with the group, so
alerts you have already seen stay seen.`,
	Args: cobra.ExactArgs(2),
	RunE: runGroupsRename,
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <group>",
	Short: "Delete a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsDelete,
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsListCmd, groupsCreateCmd, groupsRenameCmd, groupsDeleteCmd)

	addListFlags(groupsCmd)
	addListFlags(groupsListCmd)

	groupsCreateCmd.Flags().StringVar(&groupsOpts.createTemplate, "template", "",
		"Template the service seeds the group from")
}

// addListFlags registers the filter and output flags shared by "groups"
// and "groups list".
func addListFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&groupsOpts.since, "since", "",
		"Only groups modified within the duration (e.g., 1h, 7d, 1w)")
	flags.BoolVar(&groupsOpts.alerts, "alerts", false,
		"Only groups with recent alerts")
	flags.IntVarP(&groupsOpts.limit, "limit", "n", 0,
		"Maximum number of groups to show (0=unlimited)")
	flags.StringVar(&groupsOpts.sortBy, "sort", "",
		"Sort by field (name, modified, alerts; default from config)")
	flags.StringVar(&groupsOpts.sortOrder, "order", "",
		"Sort order (asc, desc; default from config)")
	flags.StringVarP(&groupsOpts.format, "format", "f", "", formatFlagHelp())
	flags.StringVar(&groupsOpts.template, "template", "",
		"Custom Go template for plain output")
}

func runGroupsList(cmd *cobra.Command, args []string) error {
	query, err := groupQuery()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(appOptions{stderr: true})
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.session.Groups(ctx, query)
	if err != nil {
		return err
	}

	return newFormatter(groupsOpts.format, groupsOpts.template).FormatGroups(os.Stdout, groups)
}

// groupQuery builds the list query from flags over the configured order.
func groupQuery() (session.GroupQuery, error) {
	q := session.GroupQuery{
		Filter: core.GroupFilter{
			AlertsOnly: groupsOpts.alerts,
			Limit:      groupsOpts.limit,
		},
	}

	if groupsOpts.since != "" {
		d, err := core.ParseDuration(groupsOpts.since)
		if err != nil {
			return q, err
		}
		q.Filter.Since = d
	}

	opts := getConfig().SortOptions()
	if groupsOpts.sortBy != "" {
		field, err := core.ParseSortField(groupsOpts.sortBy)
		if err != nil {
			return q, err
		}
		opts.Field = field
	}
	if groupsOpts.sortOrder != "" {
		order, err := core.ParseSortOrder(groupsOpts.sortOrder)
		if err != nil {
			return q, err
		}
		opts.Order = order
	}
	q.Sort = &opts

	return q, nil
}

func runGroupsCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(appOptions{stderr: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.session.CreateGroup(ctx, args[0], groupsOpts.createTemplate)
}

func runGroupsRename(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(appOptions{stderr: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.session.RenameGroup(ctx, args[0], args[1])
}

func runGroupsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(appOptions{stderr: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.session.DeleteGroup(ctx, args[0])
}

// resolveGroup turns a group argument into a group id. The argument may be a
// group id, a 1-based index into the configured group order, or a line of
// dmenu output such as "2 | 3h | alpha !".
func resolveGroup(ctx context.Context, sess *session.Session, input string) (string, error) {
	input = parseDmenuSelection(input)
	if !isIndex(input) {
		return input, nil
	}

	opts := getConfig().SortOptions()
	statuses, err := sess.Groups(ctx, session.GroupQuery{Sort: &opts})
	if err != nil {
		return "", err
	}
	groups := make([]model.Group, len(statuses))
	for i, s := range statuses {
		groups[i] = s.Group
	}

	g := core.LookupGroup(groups, input)
	if g == nil {
		return "", fmt.Errorf("group %s not found", input)
	}
	return g.ID, nil
}

// parseDmenuSelection extracts the index from a dmenu line.
// Input could be the full line "1 | 5m | alpha !" or just an id or index.
func parseDmenuSelection(selection string) string {
	selection = strings.TrimSpace(selection)

	if !strings.Contains(selection, "|") {
		return selection
	}

	// Format: "index | time | group [!]"
	idx, _, _ := strings.Cut(selection, "|")
	idx = strings.TrimSpace(idx)
	if n, err := strconv.Atoi(idx); err == nil && n > 0 {
		return idx
	}
	return selection
}

func isIndex(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && strconv.Itoa(n) == s
}
