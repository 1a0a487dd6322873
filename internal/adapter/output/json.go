package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

// JSONFormatter formats output as indented JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// FormatView writes the view with its group id.
func (f *JSONFormatter) FormatView(w io.Writer, groupID string, v core.View) error {
	if v.Records == nil {
		v.Records = []core.Record{}
	}
	return f.encode(w, viewDoc{GroupID: groupID, View: v})
}

// FormatGroups writes the groups as a JSON array.
func (f *JSONFormatter) FormatGroups(w io.Writer, groups []session.GroupStatus) error {
	return f.encode(w, nonNilGroups(groups))
}

// FormatMetrics writes a single metrics snapshot.
func (f *JSONFormatter) FormatMetrics(w io.Writer, v poller.MetricsView) error {
	return f.encode(w, v)
}

// FormatHistory writes the history points.
func (f *JSONFormatter) FormatHistory(w io.Writer, groupID string, points []model.AffectivePoint) error {
	return f.encode(w, newHistoryDoc(groupID, points))
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
