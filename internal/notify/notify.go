// Package notify delivers transient notices to the user. A Notifier applies
// per-key rate limiting and fans each notice out to its sinks.
package notify

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/rlxui/internal/core"
)

// Level indicates the severity of a notice.
type Level int

const (
	// LevelInfo is for informational notices (new suggestion).
	LevelInfo Level = iota
	// LevelWarning is for warnings (arousal spike).
	LevelWarning
	// LevelError is for failures (network, validation, mutation).
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "info":
		return LevelInfo, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

// Notice is a single transient notification.
type Notice struct {
	ID      string    `json:"id"`
	Key     string    `json:"key"`
	Level   Level     `json:"level"`
	GroupID string    `json:"group_id,omitempty"`
	Title   string    `json:"title"`
	Body    string    `json:"body,omitempty"`
	Time    time.Time `json:"time"`
}

// Sink receives notices.
type Sink interface {
	Send(n Notice) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(n Notice) error

// Send calls f(n).
func (f SinkFunc) Send(n Notice) error { return f(n) }

// DefaultMinInterval is how long a notice key is suppressed after firing.
const DefaultMinInterval = 5 * time.Second

// Notifier sends notices to its sinks. The same key will not fire again
// within the minimum interval.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sinks  []Sink

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	now            func() time.Time

	enabled bool
}

// New creates a Notifier with the given sinks.
func New(logger *slog.Logger, sinks ...Sink) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		sinks:          sinks,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    DefaultMinInterval,
		now:            time.Now,
		enabled:        true,
	}
}

// AddSink registers another sink.
func (n *Notifier) AddSink(s Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, s)
}

// SetEnabled enables or disables all notices.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notices with the same key.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// SetClock replaces the time source.
func (n *Notifier) SetClock(now func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.now = now
}

// Notify sends a notice unless it is rate-limited. Notices with an empty key
// are never rate-limited. It reports whether the notice was handed to the
// sinks; sink errors are logged, never returned.
func (n *Notifier) Notify(notice Notice) bool {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return false
	}

	now := n.now()
	if notice.Key != "" {
		if last, ok := n.lastNotifyTime[notice.Key]; ok && now.Sub(last) < n.minInterval {
			n.mu.Unlock()
			n.logger.Debug("notice rate-limited", "key", notice.Key, "title", notice.Title)
			return false
		}
		n.lastNotifyTime[notice.Key] = now
	}

	if notice.ID == "" {
		notice.ID = newID(now)
	}
	if notice.Time.IsZero() {
		notice.Time = now
	}
	sinks := append([]Sink(nil), n.sinks...)
	n.mu.Unlock()

	n.logger.Debug("sending notice", "key", notice.Key, "title", notice.Title, "level", notice.Level)

	var errs []error
	for _, s := range sinks {
		if err := s.Send(notice); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		n.logger.Warn("notice delivery failed", "title", notice.Title, "error", err)
	}
	return true
}

// NotifyGate delivers the notice produced by the notification gate. A nil
// notice is ignored. Gate notices carry no key and are never rate-limited;
// the gate already emits at most one per open.
func (n *Notifier) NotifyGate(g *core.Notice) bool {
	if g == nil {
		return false
	}
	level := LevelInfo
	if g.Severity == core.SeverityWarning {
		level = LevelWarning
	}
	return n.Notify(Notice{
		Level:   level,
		GroupID: g.GroupID,
		Title:   g.Title,
		Body:    g.Body,
	})
}

// Info sends an informational notice.
func (n *Notifier) Info(key, title, body string) bool {
	return n.Notify(Notice{Key: key, Level: LevelInfo, Title: title, Body: body})
}

// Error sends an error notice.
func (n *Notifier) Error(key, title, body string) bool {
	return n.Notify(Notice{Key: key, Level: LevelError, Title: title, Body: body})
}

func newID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
