package core

import (
	"time"

	"github.com/jmylchreest/rlxui/internal/model"
)

// DefaultFreshWindow is how old the newest entry may be and still trigger
// a notification on open.
const DefaultFreshWindow = 5 * time.Second

// Severity classifies a notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Notice is a transient notification about the newest entry of a log.
type Notice struct {
	Severity Severity
	GroupID  string
	EntryID  string
	Kind     model.Kind
	Title    string
	Body     string
}

// Evaluate inspects only the newest entry of the log. It returns nil when
// the log is empty, when the entry is older than window, or when its kind
// does not warrant a notification. At most one notice is produced per call.
func Evaluate(groupID string, log model.Log, now time.Time, window time.Duration) *Notice {
	last := log.Last()
	if last == nil {
		return nil
	}

	if now.Sub(last.Timestamp()) > window {
		return nil
	}

	switch e := last.(type) {
	case *model.Alert:
		if !e.IsArousalSpike() {
			return nil
		}
		return &Notice{
			Severity: SeverityWarning,
			GroupID:  groupID,
			EntryID:  e.ID(),
			Kind:     model.KindAlert,
			Title:    "Arousal spike detected in " + groupID,
			Body:     e.Rationale,
		}
	case *model.Suggestion:
		return &Notice{
			Severity: SeverityInfo,
			GroupID:  groupID,
			EntryID:  e.ID(),
			Kind:     model.KindSuggestion,
			Title:    "New suggestion for " + groupID,
			Body:     e.Text,
		}
	}
	return nil
}
