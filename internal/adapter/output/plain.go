package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

// AnchorMarker prefixes the anchor record in plain output.
const AnchorMarker = "▶"

var (
	anchorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	alertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unseenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// PlainFormatter formats output as human-readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs(opts.now)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// FormatView writes each record, marking the anchor.
func (f *PlainFormatter) FormatView(w io.Writer, groupID string, v core.View) error {
	if v.Empty {
		_, err := fmt.Fprintf(w, "%s\n    %s\n", sectionStyle.Render(groupID), v.Placeholder)
		return err
	}

	if _, err := fmt.Fprintf(w, "%s (%d entries)\n", sectionStyle.Render(groupID), len(v.Records)); err != nil {
		return err
	}
	for i, r := range v.Records {
		if err := f.formatRecord(w, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

// formatRecord formats a single record.
func (f *PlainFormatter) formatRecord(w io.Writer, index int, r core.Record) error {
	// Use custom template if available
	if f.template != nil {
		data := templateData{
			Index:        index,
			Record:       r,
			RelativeTime: f.humanTime(r.Timestamp),
		}
		return f.template.Execute(w, data)
	}

	var sb strings.Builder

	if r.Anchor {
		sb.WriteString(anchorStyle.Render(AnchorMarker) + " ")
	} else {
		sb.WriteString("  ")
	}

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", index))
	}

	kind := r.Kind.String()
	if r.Kind == model.KindAlert {
		kind = alertStyle.Render(kind)
	}
	sb.WriteString(kind + " " + r.Title)

	if f.opts.ShowTime {
		sb.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", f.humanTime(r.Timestamp))))
	}

	sb.WriteString("\n")

	if r.Body != "" {
		body := sanitizeBody(r.Body, f.opts.BodyMaxLen, f.opts.IncludeNewline)
		sb.WriteString("    " + body + "\n")
	}

	for _, s := range r.Sections {
		sb.WriteString("    " + sectionStyle.Render(s.Title+":") + "\n")
		for _, item := range s.Items {
			sb.WriteString("      - " + item + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatGroups writes one group per line with its modification time and
// unseen alert marker.
func (f *PlainFormatter) FormatGroups(w io.Writer, groups []session.GroupStatus) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No groups.")
		return err
	}
	for i, g := range groups {
		var sb strings.Builder
		if f.opts.ShowIndex {
			sb.WriteString(fmt.Sprintf("[%d] ", i+1))
		}
		sb.WriteString(g.ID)
		if f.opts.ShowTime && !g.LastModified.IsZero() {
			sb.WriteString(dimStyle.Render(" (modified " + f.humanTime(g.LastModified) + ")"))
		}
		if g.Unseen {
			sb.WriteString(" " + unseenStyle.Render("[new alerts]"))
		}
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// FormatMetrics writes the metrics panel line.
func (f *PlainFormatter) FormatMetrics(w io.Writer, v poller.MetricsView) error {
	_, err := fmt.Fprintln(w, MetricsLine(v))
	return err
}

// FormatHistory writes a sparkline followed by one sample per line.
func (f *PlainFormatter) FormatHistory(w io.Writer, groupID string, points []model.AffectivePoint) error {
	if len(points) == 0 {
		_, err := fmt.Fprintf(w, "%s: no arousal samples\n", groupID)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s arousal %s\n", sectionStyle.Render(groupID), Sparkline(points)); err != nil {
		return err
	}
	for _, p := range points {
		line := fmt.Sprintf("  %s  %6s", p.TS.Local().Format(time.DateTime), model.FormatMetric(p.ArousalZ))
		if f.opts.ShowTime {
			line += dimStyle.Render("  " + f.humanTime(p.TS))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) humanTime(t time.Time) string {
	return humanize.RelTime(t, f.opts.now(), "ago", "from now")
}
