// Package output provides output formatters for group logs, group lists,
// metrics and affective history.
package output

import (
	"io"
	"time"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

// Formatter writes rlxui data for output.
type Formatter interface {
	// FormatView writes a rendered group log.
	FormatView(w io.Writer, groupID string, v core.View) error
	// FormatGroups writes a group list.
	FormatGroups(w io.Writer, groups []session.GroupStatus) error
	// FormatMetrics writes one metrics snapshot.
	FormatMetrics(w io.Writer, v poller.MetricsView) error
	// FormatHistory writes a group's arousal history.
	FormatHistory(w io.Writer, groupID string, points []model.AffectivePoint) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// FormatTypes lists the accepted format names.
var FormatTypes = []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}

// NewFormatter creates a formatter for the specified format type. Unknown
// types fall back to plain.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template       string           // Custom per-record template for plain/dmenu format
	ShowIndex      bool             // Show 1-based index prefix
	ShowTime       bool             // Show relative time
	BodyMaxLen     int              // Maximum body length (0 = unlimited)
	Separator      string           // Field separator for dmenu format
	IncludeNewline bool             // Include newlines in body (default: replace with space)
	Now            func() time.Time // Clock for relative times
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:      true,
		ShowTime:       true,
		BodyMaxLen:     0,
		Separator:      " | ",
		IncludeNewline: false,
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// viewDoc is the structured form of a rendered log.
type viewDoc struct {
	GroupID string `json:"group_id" yaml:"group_id"`
	core.View `yaml:",inline"`
}

// historyDoc is the structured form of an arousal history.
type historyDoc struct {
	GroupID string                 `json:"group_id" yaml:"group_id"`
	Points  []model.AffectivePoint `json:"points" yaml:"points"`
}

func newHistoryDoc(groupID string, points []model.AffectivePoint) historyDoc {
	if points == nil {
		points = []model.AffectivePoint{}
	}
	return historyDoc{GroupID: groupID, Points: points}
}

func nonNilGroups(groups []session.GroupStatus) []session.GroupStatus {
	if groups == nil {
		return []session.GroupStatus{}
	}
	return groups
}
