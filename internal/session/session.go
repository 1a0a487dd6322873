// Package session owns the group transition state: which group is open, its
// metrics poller, and the ordered open sequence that ties the store, the
// reconciler, the notification gate and the renderer together.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/store"
)

// Errors returned by session operations.
var (
	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("validation failure")
	// ErrSuperseded is returned by an Open that lost to a later Open or Close.
	ErrSuperseded = errors.New("group open superseded")
)

// API is the subset of the REST client the session uses.
type API interface {
	ListGroups(ctx context.Context) ([]model.Group, error)
	GroupState(ctx context.Context, groupID string) (*api.GroupState, error)
	CreateGroup(ctx context.Context, groupID, template string) error
	RenameGroup(ctx context.Context, groupID, newGroupID string) error
	DeleteGroup(ctx context.Context, groupID string) error
	Ingest(ctx context.Context, groupID, author, text string) error
}

// MetricsPoller is implemented by *poller.Poller.
type MetricsPoller interface {
	Open(ctx context.Context, groupID string)
	Stop()
	Snapshot() (poller.MetricsView, bool)
}

// Display receives rendered output.
type Display interface {
	// ShowLog replaces the log panel with a rendered view.
	ShowLog(groupID string, view core.View)
	// ShowError replaces the log panel with an error placeholder.
	ShowError(groupID string, message string)
	// ClearMetrics resets the metrics panel.
	ClearMetrics()
}

// NopDisplay discards everything.
type NopDisplay struct{}

func (NopDisplay) ShowLog(string, core.View) {}
func (NopDisplay) ShowError(string, string)  {}
func (NopDisplay) ClearMetrics()             {}

// Options configures a Session.
type Options struct {
	API         API
	Prefs       store.Prefs
	Poller      MetricsPoller
	Notifier    *notify.Notifier
	Display     Display
	Now         func() time.Time
	FreshWindow time.Duration
	Logger      *slog.Logger
}

// OpenResult describes a completed open.
type OpenResult struct {
	GroupID        string
	View           core.View
	Reconciliation core.Reconciliation
	Notice         *core.Notice
	LastSeen       time.Time // mark written after rendering
	Skipped        int       // entries that could not be decoded
}

// GroupStatus is a group decorated with client-side unread state.
type GroupStatus struct {
	model.Group `yaml:",inline"`
	LastSeen    time.Time `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
	Seen        bool      `json:"seen" yaml:"seen"`
	Unseen      bool      `json:"unseen_alerts" yaml:"unseen_alerts"`
}

// Session manages group transitions. All state lives here; there is no
// package-level mutable state.
type Session struct {
	mu      sync.Mutex
	current string
	seq     uint64

	api         API
	prefs       store.Prefs
	poller      MetricsPoller
	notifier    *notify.Notifier
	display     Display
	now         func() time.Time
	freshWindow time.Duration
	logger      *slog.Logger
}

// New creates a Session with no group open.
func New(opts Options) *Session {
	s := &Session{
		api:         opts.API,
		prefs:       opts.Prefs,
		poller:      opts.Poller,
		notifier:    opts.Notifier,
		display:     opts.Display,
		now:         opts.Now,
		freshWindow: opts.FreshWindow,
		logger:      opts.Logger,
	}
	if s.prefs == nil {
		s.prefs = store.NewMemoryPrefs()
	}
	if s.notifier == nil {
		s.notifier = notify.New(opts.Logger)
	}
	if s.display == nil {
		s.display = NopDisplay{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.freshWindow <= 0 {
		s.freshWindow = core.DefaultFreshWindow
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Current returns the open group, or "" when none is open.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Prefs returns the preference store.
func (s *Session) Prefs() store.Prefs {
	return s.prefs
}

// Metrics returns the last metrics for the open group.
func (s *Session) Metrics() (poller.MetricsView, bool) {
	if s.poller == nil {
		return poller.MetricsView{}, false
	}
	return s.poller.Snapshot()
}

// Open runs the open sequence for a group:
// validate, stop poller, fetch, reconcile, gate, render, persist last-seen,
// start poller. The steps run strictly in that order. If a later Open or
// Close starts while the fetch is in flight, this Open returns ErrSuperseded
// without touching the display, the store or the poller.
func (s *Session) Open(ctx context.Context, groupID string) (*OpenResult, error) {
	if err := s.validate(groupID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.current = groupID
	s.mu.Unlock()

	if s.poller != nil {
		s.poller.Stop()
	}
	s.display.ClearMetrics()

	state, err := s.api.GroupState(ctx, groupID)
	if !s.isCurrent(seq) {
		return nil, ErrSuperseded
	}
	if err != nil {
		msg := api.Message(err)
		s.notifier.Error("state:"+groupID, "Could not load "+groupID, msg)
		s.display.ShowError(groupID, msg)
		return nil, fmt.Errorf("open %s: %w", groupID, err)
	}

	log := state.Log
	lastSeen, seen := s.prefs.LastSeen(groupID)
	rec := core.Reconcile(log, lastSeen, seen)

	notice := core.Evaluate(groupID, log, s.now(), s.freshWindow)
	s.notifier.NotifyGate(notice)

	view := core.Render(log, rec.AnchorID)
	s.display.ShowLog(groupID, view)

	mark := core.NextLastSeen(lastSeen, seen, s.now())
	if err := s.prefs.SetLastSeen(groupID, mark); err != nil {
		s.logger.Warn("failed to persist last-seen", "group", groupID, "error", err)
	}

	if s.poller != nil && s.isCurrent(seq) {
		s.poller.Open(ctx, groupID)
	}

	s.logger.Debug("group opened", "group", groupID, "entries", len(log),
		"anchor", rec.AnchorID, "unread", len(rec.Unread))

	return &OpenResult{
		GroupID:        groupID,
		View:           view,
		Reconciliation: rec,
		Notice:         notice,
		LastSeen:       mark,
		Skipped:        len(state.Skipped),
	}, nil
}

// Close stops the poller and clears the open group.
func (s *Session) Close() {
	s.mu.Lock()
	s.seq++
	s.current = ""
	s.mu.Unlock()

	if s.poller != nil {
		s.poller.Stop()
	}
	s.display.ClearMetrics()
}

func (s *Session) isCurrent(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

// GroupQuery filters and orders a group listing. The zero value keeps
// every group in server order.
type GroupQuery struct {
	Filter core.GroupFilter
	Sort   *core.SortOptions
}

// Groups lists groups with their unread state. A group has unseen alerts
// when the service flags recent alerts and it changed since it was last
// opened here.
func (s *Session) Groups(ctx context.Context, q GroupQuery) ([]GroupStatus, error) {
	groups, err := s.api.ListGroups(ctx)
	if err != nil {
		s.notifier.Error("groups", "Could not load groups", api.Message(err))
		return nil, fmt.Errorf("list groups: %w", err)
	}

	groups = core.FilterGroups(groups, q.Filter, s.now())
	if q.Sort != nil {
		core.SortGroups(groups, *q.Sort)
	}

	out := make([]GroupStatus, 0, len(groups))
	for _, g := range groups {
		out = append(out, s.Decorate(g))
	}
	return out, nil
}

// Decorate computes a group's unread state from the stored last-seen mark.
func (s *Session) Decorate(g model.Group) GroupStatus {
	lastSeen, seen := s.prefs.LastSeen(g.ID)
	return GroupStatus{
		Group:    g,
		LastSeen: lastSeen,
		Seen:     seen,
		Unseen:   g.HasRecentAlerts && (!seen || g.LastModified.After(lastSeen)),
	}
}

// Ingest posts a message and then reopens the group so the new entry is
// rendered.
func (s *Session) Ingest(ctx context.Context, groupID, author, text string) (*OpenResult, error) {
	if err := s.validate(groupID); err != nil {
		return nil, err
	}
	author, text = strings.TrimSpace(author), strings.TrimSpace(text)
	if author == "" || text == "" {
		return nil, s.validationFailure(errors.New("author and text are required"))
	}

	if err := s.api.Ingest(ctx, groupID, author, text); err != nil {
		return nil, s.mutationFailure("Could not send message", err)
	}
	return s.Open(ctx, groupID)
}

// CreateGroup creates a group, optionally from a template.
func (s *Session) CreateGroup(ctx context.Context, groupID, template string) error {
	if err := s.validate(groupID); err != nil {
		return err
	}
	if err := s.api.CreateGroup(ctx, groupID, strings.TrimSpace(template)); err != nil {
		return s.mutationFailure("Could not create "+groupID, err)
	}
	s.notifier.Info("", "Group created", groupID)
	return nil
}

// RenameGroup renames a group. The last-seen mark follows the group and an
// open group is reopened under its new id.
func (s *Session) RenameGroup(ctx context.Context, groupID, newGroupID string) error {
	if err := s.validate(groupID); err != nil {
		return err
	}
	if err := s.validate(newGroupID); err != nil {
		return err
	}
	if groupID == newGroupID {
		return nil
	}

	if err := s.api.RenameGroup(ctx, groupID, newGroupID); err != nil {
		return s.mutationFailure("Could not rename "+groupID, err)
	}
	if err := s.prefs.RenameGroup(groupID, newGroupID); err != nil {
		s.logger.Warn("failed to move last-seen", "from", groupID, "to", newGroupID, "error", err)
	}
	s.notifier.Info("", "Group renamed", groupID+" → "+newGroupID)

	if s.Current() == groupID {
		if _, err := s.Open(ctx, newGroupID); err != nil && !errors.Is(err, ErrSuperseded) {
			return err
		}
	}
	return nil
}

// DeleteGroup deletes a group. Deleting the open group closes it.
func (s *Session) DeleteGroup(ctx context.Context, groupID string) error {
	if err := s.validate(groupID); err != nil {
		return err
	}
	if err := s.api.DeleteGroup(ctx, groupID); err != nil {
		return s.mutationFailure("Could not delete "+groupID, err)
	}

	if s.Current() == groupID {
		s.Close()
	}
	if err := s.prefs.ForgetGroup(groupID); err != nil {
		s.logger.Warn("failed to forget last-seen", "group", groupID, "error", err)
	}
	s.notifier.Info("", "Group deleted", groupID)
	return nil
}

func (s *Session) validate(groupID string) error {
	if err := model.ValidateGroupID(groupID); err != nil {
		return s.validationFailure(err)
	}
	return nil
}

func (s *Session) validationFailure(err error) error {
	s.notifier.Error("", "Invalid input", err.Error())
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// mutationFailure reports a failed mutation with the server's detail, or
// the status text when the server sent none.
func (s *Session) mutationFailure(title string, err error) error {
	s.notifier.Error("", title, api.Message(err))
	return err
}
