package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

// YAMLFormatter formats output as YAML documents.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// FormatView writes the view with its group id.
func (f *YAMLFormatter) FormatView(w io.Writer, groupID string, v core.View) error {
	return f.encode(w, viewDoc{GroupID: groupID, View: v})
}

// FormatGroups writes the groups as a YAML sequence.
func (f *YAMLFormatter) FormatGroups(w io.Writer, groups []session.GroupStatus) error {
	return f.encode(w, nonNilGroups(groups))
}

// FormatMetrics writes a single metrics snapshot.
func (f *YAMLFormatter) FormatMetrics(w io.Writer, v poller.MetricsView) error {
	return f.encode(w, v)
}

// FormatHistory writes the history points.
func (f *YAMLFormatter) FormatHistory(w io.Writer, groupID string, points []model.AffectivePoint) error {
	return f.encode(w, newHistoryDoc(groupID, points))
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// MarshalRecord returns a record as a YAML document. The TUI uses it for
// copy-to-clipboard.
func MarshalRecord(r core.Record) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
