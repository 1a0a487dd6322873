package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

// DmenuFormatter formats one line per item for dmenu/rofi/fuzzel.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs(opts.now)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// FormatView writes each record on its own line.
func (f *DmenuFormatter) FormatView(w io.Writer, _ string, v core.View) error {
	for i, r := range v.Records {
		if _, err := fmt.Fprintln(w, f.recordLine(i+1, r)); err != nil {
			return err
		}
	}
	return nil
}

// recordLine formats a single record line.
func (f *DmenuFormatter) recordLine(index int, r core.Record) string {
	// Use custom template if available
	if f.template != nil {
		var buf strings.Builder
		data := templateData{
			Index:        index,
			Record:       r,
			RelativeTime: relativeTime(r.Timestamp, f.opts.now()),
		}
		if err := f.template.Execute(&buf, data); err == nil {
			return buf.String()
		}
	}

	// Default format: [index] [time] kind title: body
	var parts []string

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}

	if f.opts.ShowTime {
		parts = append(parts, relativeTime(r.Timestamp, f.opts.now()))
	}

	parts = append(parts, r.Kind.String())

	content := r.Title
	body := r.Body
	if body == "" && len(r.Sections) > 0 {
		body = sectionSummary(r.Sections)
	}
	if body != "" {
		body = sanitizeBody(body, f.opts.BodyMaxLen, f.opts.IncludeNewline)
		if body != "" {
			content += ": " + body
		}
	}
	if r.Anchor {
		content = AnchorMarker + " " + content
	}
	parts = append(parts, content)

	return strings.Join(parts, f.separator())
}

// FormatGroups writes one group per line.
func (f *DmenuFormatter) FormatGroups(w io.Writer, groups []session.GroupStatus) error {
	for i, g := range groups {
		var parts []string
		if f.opts.ShowIndex {
			parts = append(parts, fmt.Sprintf("%d", i+1))
		}
		if f.opts.ShowTime {
			parts = append(parts, relativeTime(g.LastModified, f.opts.now()))
		}
		name := g.ID
		if g.Unseen {
			name += " !"
		}
		parts = append(parts, name)
		if _, err := fmt.Fprintln(w, strings.Join(parts, f.separator())); err != nil {
			return err
		}
	}
	return nil
}

// FormatMetrics writes the metrics line.
func (f *DmenuFormatter) FormatMetrics(w io.Writer, v poller.MetricsView) error {
	_, err := fmt.Fprintln(w, MetricsLine(v))
	return err
}

// FormatHistory writes one sample per line.
func (f *DmenuFormatter) FormatHistory(w io.Writer, _ string, points []model.AffectivePoint) error {
	for _, p := range points {
		line := relativeTime(p.TS, f.opts.now()) + f.separator() + model.FormatMetric(p.ArousalZ)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) separator() string {
	if f.opts.Separator == "" {
		return " | "
	}
	return f.opts.Separator
}

func sectionSummary(sections []core.Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.Title+": "+strings.Join(s.Items, ", "))
	}
	return strings.Join(parts, "; ")
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Record       core.Record
	RelativeTime string
}

// templateFuncs returns template helper functions.
func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": func(t time.Time) string {
			return relativeTime(t, now())
		},
		"kindIcon": func(k model.Kind) string {
			switch k {
			case model.KindAlert:
				return "!"
			case model.KindSuggestion:
				return "?"
			case model.KindDailySummary:
				return "#"
			default:
				return "-"
			}
		},
	}
}

// relativeTime returns a compact relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := now.Sub(t)

	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("%dm", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("%dh", hours)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%dd", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		return fmt.Sprintf("%dw", weeks)
	}
}

// sanitizeBody cleans up body text for single-line display.
func sanitizeBody(body string, maxLen int, includeNewline bool) string {
	// Replace newlines with spaces unless explicitly included
	if !includeNewline {
		body = strings.ReplaceAll(body, "\n", " ")
		body = strings.ReplaceAll(body, "\r", "")
	}

	// Collapse multiple spaces
	for strings.Contains(body, "  ") {
		body = strings.ReplaceAll(body, "  ", " ")
	}

	body = strings.TrimSpace(body)

	// Truncate if needed
	if maxLen > 0 && len(body) > maxLen {
		if maxLen <= 3 {
			return body[:maxLen]
		}
		return body[:maxLen-3] + "..."
	}

	return body
}
