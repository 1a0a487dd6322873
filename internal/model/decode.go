package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Decoding errors.
var (
	ErrUnknownKind      = errors.New("unknown log entry kind")
	ErrEmptyMsgID       = errors.New("msg_id cannot be empty")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// timestampLayouts are tried in order. The service emits naive ISO-8601
// strings for utcnow() values, which are treated as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp as delivered by the service.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// wireEntry is the server representation of a log entry.
type wireEntry struct {
	MsgID     string      `json:"msg_id"`
	Type      string      `json:"type"`
	Kind      string      `json:"kind"`
	TS        string      `json:"ts"`
	Timestamp string      `json:"timestamp"`
	Author    string      `json:"author"`
	Actor     string      `json:"actor"`
	Text      string      `json:"text"`
	AlertType string      `json:"alert_type"`
	Details   wireDetails `json:"details"`
}

type wireDetails struct {
	Rationale      string       `json:"rationale"`
	Topics         []string     `json:"topics"`
	Decisions      []string     `json:"decisions"`
	Actions        []ActionItem `json:"actions"`
	SuggestionText string       `json:"suggestion_text"`
}

// ParseEntry decodes a single log entry.
func ParseEntry(data []byte) (LogEntry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}

	if w.MsgID == "" {
		return nil, ErrEmptyMsgID
	}

	tsRaw := w.TS
	if tsRaw == "" {
		tsRaw = w.Timestamp
	}
	ts, err := ParseTimestamp(tsRaw)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", w.MsgID, err)
	}

	tag := w.Type
	if tag == "" {
		tag = w.Kind
	}
	kind, ok := ParseKind(tag)
	if !ok {
		return nil, fmt.Errorf("entry %s: %w %q", w.MsgID, ErrUnknownKind, tag)
	}

	h := Header{MsgID: w.MsgID, TS: ts}
	switch kind {
	case KindMessage:
		author := w.Author
		if author == "" {
			author = w.Actor
		}
		return &Message{Header: h, Author: author, Text: w.Text}, nil
	case KindAlert:
		return &Alert{Header: h, AlertType: w.AlertType, Rationale: w.Details.Rationale}, nil
	case KindDailySummary:
		return &DailySummary{
			Header:    h,
			Topics:    w.Details.Topics,
			Decisions: w.Details.Decisions,
			Actions:   w.Details.Actions,
		}, nil
	case KindSuggestion:
		return &Suggestion{Header: h, Text: w.Details.SuggestionText}, nil
	}
	return nil, fmt.Errorf("entry %s: %w %q", w.MsgID, ErrUnknownKind, tag)
}

// DecodeEntries decodes raw entries in order. Entries that cannot be decoded
// are skipped and reported in the returned error slice; the rest of the log
// is still usable.
func DecodeEntries(raw []json.RawMessage) (Log, []error) {
	log := make(Log, 0, len(raw))
	var errs []error
	for i, r := range raw {
		e, err := ParseEntry(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("log[%d]: %w", i, err))
			continue
		}
		log = append(log, e)
	}
	return log, errs
}

// DecodeLog decodes a JSON array of log entries. A malformed array is an
// error; malformed entries are skipped as in DecodeEntries.
func DecodeLog(data []byte) (Log, []error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, []error{fmt.Errorf("decode log: %w", err)}
	}
	return DecodeEntries(raw)
}
