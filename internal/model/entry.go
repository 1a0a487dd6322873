// Package model defines the core data structures for rlxui.
package model

import (
	"fmt"
	"time"
)

// Kind identifies the variant of a log entry.
type Kind int

const (
	KindMessage Kind = iota
	KindAlert
	KindDailySummary
	KindSuggestion
)

// KindNames maps kinds to their wire names.
var KindNames = map[Kind]string{
	KindMessage:      "message",
	KindAlert:        "alert",
	KindDailySummary: "daily_summary",
	KindSuggestion:   "suggestion",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := KindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKind, string(text))
	}
	*k = parsed
	return nil
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range KindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// AlertTypeArousalSpike is the alert tag raised when a group's arousal
// z-score crosses the server's threshold.
const AlertTypeArousalSpike = "arousal_spike_detected"

// LogEntry is one immutable record in a group's timeline.
// The set of implementations is closed: Message, Alert, DailySummary and
// Suggestion. Code that needs to handle every kind should implement
// EntryVisitor rather than switching on Kind.
type LogEntry interface {
	ID() string
	Timestamp() time.Time
	Kind() Kind
	Accept(v EntryVisitor)

	isLogEntry()
}

// EntryVisitor receives exactly one call per visited entry. Adding a new
// entry kind adds a method here, so every visitor stops compiling until it
// handles it.
type EntryVisitor interface {
	VisitMessage(e *Message)
	VisitAlert(e *Alert)
	VisitDailySummary(e *DailySummary)
	VisitSuggestion(e *Suggestion)
}

// Header holds the fields shared by every entry kind.
type Header struct {
	MsgID string    // unique within a group
	TS    time.Time // server timestamp (UTC)
}

// ID returns the entry's message id.
func (h Header) ID() string { return h.MsgID }

// Timestamp returns the entry's timestamp.
func (h Header) Timestamp() time.Time { return h.TS }

func (Header) isLogEntry() {}

// Message is a chat message posted by a group member.
type Message struct {
	Header
	Author string
	Text   string
}

// Kind implements LogEntry.
func (*Message) Kind() Kind { return KindMessage }

// Accept implements LogEntry.
func (e *Message) Accept(v EntryVisitor) { v.VisitMessage(e) }

// Alert is a system alert raised by the service.
type Alert struct {
	Header
	AlertType string
	Rationale string
}

// Kind implements LogEntry.
func (*Alert) Kind() Kind { return KindAlert }

// Accept implements LogEntry.
func (e *Alert) Accept(v EntryVisitor) { v.VisitAlert(e) }

// IsArousalSpike reports whether the alert signals an arousal spike.
func (e *Alert) IsArousalSpike() bool {
	return e.AlertType == AlertTypeArousalSpike
}

// ActionItem is an assigned task inside a daily summary.
type ActionItem struct {
	Assignee string `json:"assignee" yaml:"assignee"`
	Task     string `json:"task" yaml:"task"`
}

// DailySummary is the service's digest of a day of conversation.
type DailySummary struct {
	Header
	Topics    []string
	Decisions []string
	Actions   []ActionItem
}

// Kind implements LogEntry.
func (*DailySummary) Kind() Kind { return KindDailySummary }

// Accept implements LogEntry.
func (e *DailySummary) Accept(v EntryVisitor) { v.VisitDailySummary(e) }

// Suggestion is an advisory note from the service.
type Suggestion struct {
	Header
	Text string
}

// Kind implements LogEntry.
func (*Suggestion) Kind() Kind { return KindSuggestion }

// Accept implements LogEntry.
func (e *Suggestion) Accept(v EntryVisitor) { v.VisitSuggestion(e) }

// Log is a group's ordered timeline, oldest entry first.
type Log []LogEntry

// Last returns the newest entry, or nil for an empty log.
func (l Log) Last() LogEntry {
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

// Alerts returns the alert entries in log order.
func (l Log) Alerts() []*Alert {
	var alerts []*Alert
	for _, e := range l {
		if a, ok := e.(*Alert); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}
