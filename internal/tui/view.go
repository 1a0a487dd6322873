package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/rlxui/internal/adapter/output"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
)

var (
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	alertStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	flagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	anchorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusedBorder = lipgloss.Color("12")
)

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.mode == ModeHelp {
		return m.viewHelp()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.groups.View(),
		dividerStyle.Render(strings.Repeat("│\n", max(0, m.viewport.Height-1))+"│"),
		m.viewport.View(),
	)

	return m.viewHeader() + "\n" + body + "\n" + m.viewMetrics() + "\n" + m.viewFooter()
}

func (m Model) viewHeader() string {
	health := alertStyle.Render("● " + m.health)
	if m.healthy {
		health = okStyle.Render("● " + m.health)
	}

	group := dimStyle.Render("no group open")
	if m.groupID != "" {
		group = m.groupID
		if m.focus == FocusLog {
			group = lipgloss.NewStyle().Bold(true).Foreground(focusedBorder).Render(group)
		}
		group += dimStyle.Render(fmt.Sprintf(" (%d entries)", len(m.view.Records)))
		if m.searchQuery != "" {
			group += dimStyle.Render(fmt.Sprintf(" matching %q: %d", m.searchQuery, len(m.records)))
		}
	}

	return titleStyle.Render("rlxui") + "  " + health + "  " + group
}

// viewMetrics renders the metrics panel with the arousal sparkline.
func (m Model) viewMetrics() string {
	if m.groupID == "" {
		return ""
	}
	if m.metrics == nil {
		return dimStyle.Render("metrics: waiting...")
	}

	v := m.metrics
	s := metricText("friction", v.Friction(), v.Flags.FrictionHigh, output.FlagHigh) + "  " +
		metricText("arousal", v.Arousal(), v.Flags.ArousalHigh, output.FlagHigh) + "  " +
		metricText("valence", v.Valence(), v.Flags.ValenceLow, output.FlagLow)

	if spark := output.Sparkline(m.history); spark != "" {
		s += "  " + dimStyle.Render("24h ") + spark
	}
	s += "  " + dimStyle.Render("updated "+humanize.RelTime(v.UpdatedAt, m.now(), "ago", "from now"))
	return s
}

func metricText(name, value string, flagged bool, label string) string {
	s := dimStyle.Render(name+" ") + value
	if flagged {
		s += " " + flagStyle.Render(label)
	}
	return s
}

func (m Model) viewFooter() string {
	switch m.mode {
	case ModeSearch:
		return "Search: " + m.input.View()
	case ModePrompt:
		return promptLabel(m.prompt, m.promptTarget) + m.input.View()
	}

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		return statusStyle.Render(m.statusMsg)
	}

	if m.focus == FocusLog {
		return m.buildKeybindBar(m.width, "log")
	}
	return m.buildKeybindBar(m.width, "groups")
}

func promptLabel(kind promptKind, target string) string {
	switch kind {
	case promptCreate:
		return "New group: "
	case promptRename:
		return "Rename " + target + " to: "
	case promptDelete:
		return "Delete " + target + "? "
	case promptIngest:
		return "Send to " + target + ": "
	default:
		return "> "
	}
}

func (m Model) viewHelp() string {
	s := titleStyle.MarginBottom(1).Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp())
	s += "\n\n" + dimStyle.Render("Press ? or esc to return")
	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// pane selects the keybinds shown: "groups" or "log".
func (m Model) buildKeybindBar(width int, pane string) string {
	var binds []keybind

	switch pane {
	case "groups":
		binds = []keybind{
			{"q", "quit", 1},
			{"enter", "open", 2},
			{"?", "help", 3},
			{"tab", "log", 4},
			{"n", "new", 5},
			{"R", "rename", 6},
			{"D", "delete", 7},
			{"r", "refresh", 8},
		}
	case "log":
		binds = []keybind{
			{"q", "quit", 1},
			{"tab", "groups", 2},
			{"?", "help", 3},
			{"a", "unread", 4},
			{"/", "search", 5},
			{"i", "send", 6},
			{"c", "copy", 7},
			{"y", "yaml", 8},
			{"C", "json", 9},
		}
	}

	// Add keybinds until we run out of space
	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		testLen := lipgloss.Width(result) + lipgloss.Width(b.key+" "+b.desc)
		if result != "" {
			testLen += len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return dimStyle.Render(result)
}

// renderLog renders records for the viewport and returns the first line of
// each record. When there are no records emptyText is shown instead.
func renderLog(records []core.Record, cursor, width int, emptyText string) (string, []int) {
	if len(records) == 0 {
		return dimStyle.Render(emptyText), nil
	}

	bodyStyle := lipgloss.NewStyle().PaddingLeft(4)
	if width > 4 {
		bodyStyle = bodyStyle.Width(width)
	}

	var sb strings.Builder
	offsets := make([]int, len(records))
	line := 0
	for i, r := range records {
		offsets[i] = line

		block := recordHeader(r, i == cursor)
		if r.Body != "" {
			block += "\n" + bodyStyle.Render(r.Body)
		}
		for _, sec := range r.Sections {
			block += "\n" + bodyStyle.Render(dimStyle.Render(sec.Title+":"))
			for _, item := range sec.Items {
				block += "\n" + bodyStyle.Render("  - "+item)
			}
		}

		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block)
		line += lipgloss.Height(block)
	}
	return sb.String(), offsets
}

func recordHeader(r core.Record, selected bool) string {
	marker := "  "
	if r.Anchor {
		marker = anchorStyle.Render(output.AnchorMarker) + " "
	}

	title := r.Title
	if r.Kind == model.KindAlert {
		title = alertStyle.Render(title)
	}
	if selected {
		title = cursorStyle.Render(r.Title)
	}

	return marker + dimStyle.Render(fmt.Sprintf("%-13s", r.Kind.String())) + " " + title +
		dimStyle.Render("  "+r.Timestamp.Local().Format("Jan 02 15:04"))
}
