package core

import (
	"time"

	"github.com/jmylchreest/rlxui/internal/model"
)

// NoMessagesPlaceholder is shown in place of an empty log.
const NoMessagesPlaceholder = "No messages yet."

// Section titles used for daily summary records.
const (
	SectionTopics    = "Topics"
	SectionDecisions = "Decisions"
	SectionActions   = "Actions"
)

// Section is an ordered sublist inside a record.
type Section struct {
	Title string   `json:"title" yaml:"title"`
	Items []string `json:"items" yaml:"items"`
}

// Record is the display form of one log entry.
type Record struct {
	Key       string     `json:"key" yaml:"key"`
	Kind      model.Kind `json:"kind" yaml:"kind"`
	Timestamp time.Time  `json:"ts" yaml:"ts"`
	Anchor    bool       `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Title     string     `json:"title" yaml:"title"`
	Body      string     `json:"body,omitempty" yaml:"body,omitempty"`
	Sections  []Section  `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// View is the rendered log of a group.
type View struct {
	Records      []Record `json:"records" yaml:"records"`
	Empty        bool     `json:"empty" yaml:"empty"`
	Placeholder  string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	AnchorID     string   `json:"anchor_id,omitempty" yaml:"anchor_id,omitempty"`
	ScrollTarget string   `json:"scroll_target,omitempty" yaml:"scroll_target,omitempty"`
}

// Render maps the log to display records in the same order. The record
// whose key equals anchorID is marked as the anchor. Nothing is dropped,
// merged or reordered. Render is pure: equal inputs give equal views.
func Render(log model.Log, anchorID string) View {
	b := &recordBuilder{
		anchorID: anchorID,
		records:  make([]Record, 0, len(log)),
	}
	for _, e := range log {
		e.Accept(b)
	}

	v := View{
		Records: b.records,
	}
	if len(v.Records) == 0 {
		v.Empty = true
		v.Placeholder = NoMessagesPlaceholder
		return v
	}

	if b.anchorFound {
		v.AnchorID = anchorID
		v.ScrollTarget = anchorID
	} else {
		v.ScrollTarget = v.Records[len(v.Records)-1].Key
	}
	return v
}

// recordBuilder implements model.EntryVisitor, so a new entry kind cannot
// be added without teaching the renderer about it.
type recordBuilder struct {
	anchorID    string
	anchorFound bool
	records     []Record
}

func (b *recordBuilder) header(e model.LogEntry) Record {
	anchor := b.anchorID != "" && e.ID() == b.anchorID
	if anchor {
		b.anchorFound = true
	}
	return Record{
		Key:       e.ID(),
		Kind:      e.Kind(),
		Timestamp: e.Timestamp(),
		Anchor:    anchor,
	}
}

func (b *recordBuilder) VisitMessage(e *model.Message) {
	r := b.header(e)
	r.Title = e.Author
	r.Body = e.Text
	b.records = append(b.records, r)
}

func (b *recordBuilder) VisitAlert(e *model.Alert) {
	r := b.header(e)
	r.Title = e.AlertType
	r.Body = e.Rationale
	b.records = append(b.records, r)
}

func (b *recordBuilder) VisitDailySummary(e *model.DailySummary) {
	r := b.header(e)
	r.Title = "Daily summary"

	if len(e.Topics) > 0 {
		r.Sections = append(r.Sections, Section{Title: SectionTopics, Items: cloneStrings(e.Topics)})
	}
	if len(e.Decisions) > 0 {
		r.Sections = append(r.Sections, Section{Title: SectionDecisions, Items: cloneStrings(e.Decisions)})
	}
	if len(e.Actions) > 0 {
		items := make([]string, 0, len(e.Actions))
		for _, a := range e.Actions {
			items = append(items, formatAction(a))
		}
		r.Sections = append(r.Sections, Section{Title: SectionActions, Items: items})
	}
	b.records = append(b.records, r)
}

func (b *recordBuilder) VisitSuggestion(e *model.Suggestion) {
	r := b.header(e)
	r.Title = "Suggestion"
	r.Body = e.Text
	b.records = append(b.records, r)
}

func formatAction(a model.ActionItem) string {
	if a.Assignee == "" {
		return a.Task
	}
	return a.Assignee + ": " + a.Task
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
