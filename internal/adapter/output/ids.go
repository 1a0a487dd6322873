package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

// IDsFormatter outputs bare identifiers, one per line: group ids for a
// group list, entry ids for a log. Useful for piping to other commands
// (e.g., xargs -n1 rlxui open).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// FormatView writes entry ids.
func (f *IDsFormatter) FormatView(w io.Writer, _ string, v core.View) error {
	for _, r := range v.Records {
		if _, err := fmt.Fprintln(w, r.Key); err != nil {
			return err
		}
	}
	return nil
}

// FormatGroups writes group ids.
func (f *IDsFormatter) FormatGroups(w io.Writer, groups []session.GroupStatus) error {
	for _, g := range groups {
		if _, err := fmt.Fprintln(w, g.ID); err != nil {
			return err
		}
	}
	return nil
}

// FormatMetrics writes the group id of the snapshot.
func (f *IDsFormatter) FormatMetrics(w io.Writer, v poller.MetricsView) error {
	_, err := fmt.Fprintln(w, v.GroupID)
	return err
}

// FormatHistory writes the group id.
func (f *IDsFormatter) FormatHistory(w io.Writer, groupID string, _ []model.AffectivePoint) error {
	_, err := fmt.Fprintln(w, groupID)
	return err
}
