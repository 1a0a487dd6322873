package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/store"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// trace records the order of side effects across the fakes.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(e string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

type fakeAPI struct {
	tr     *trace
	mu     sync.Mutex
	groups []model.Group
	logs   map[string]model.Log
	errs   map[string]error
	calls  []string
	// block, when set, holds GroupState for that group until closed.
	block map[string]chan struct{}
}

func newFakeAPI(tr *trace) *fakeAPI {
	return &fakeAPI{
		tr:    tr,
		logs:  make(map[string]model.Log),
		errs:  make(map[string]error),
		block: make(map[string]chan struct{}),
	}
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.tr.add("api." + call)
	return f.errs[call]
}

func (f *fakeAPI) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) ListGroups(context.Context) ([]model.Group, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return f.groups, nil
}

func (f *fakeAPI) GroupState(_ context.Context, groupID string) (*api.GroupState, error) {
	err := f.record("state:" + groupID)
	f.mu.Lock()
	wait := f.block[groupID]
	f.mu.Unlock()
	if wait != nil {
		<-wait
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &api.GroupState{GroupID: groupID, Log: f.logs[groupID]}, nil
}

func (f *fakeAPI) CreateGroup(_ context.Context, groupID, template string) error {
	return f.record("create:" + groupID + ":" + template)
}

func (f *fakeAPI) RenameGroup(_ context.Context, groupID, newGroupID string) error {
	return f.record("rename:" + groupID + ":" + newGroupID)
}

func (f *fakeAPI) DeleteGroup(_ context.Context, groupID string) error {
	return f.record("delete:" + groupID)
}

func (f *fakeAPI) Ingest(_ context.Context, groupID, author, text string) error {
	return f.record("ingest:" + groupID + ":" + author + ":" + text)
}

type fakePoller struct {
	tr    *trace
	group string
}

func (p *fakePoller) Open(_ context.Context, groupID string) {
	p.tr.add("poller.open:" + groupID)
	p.group = groupID
}

func (p *fakePoller) Stop() {
	p.tr.add("poller.stop")
	p.group = ""
}

func (p *fakePoller) Snapshot() (poller.MetricsView, bool) {
	return poller.MetricsView{}, false
}

type fakeDisplay struct {
	tr    *trace
	views map[string]core.View
	errs  map[string]string
}

func (d *fakeDisplay) ShowLog(groupID string, v core.View) {
	d.tr.add("display.log:" + groupID)
	d.views[groupID] = v
}

func (d *fakeDisplay) ShowError(groupID, msg string) {
	d.tr.add("display.error:" + groupID)
	d.errs[groupID] = msg
}

func (d *fakeDisplay) ClearMetrics() {
	d.tr.add("display.clear")
}

// tracedPrefs records writes of the last-seen mark.
type tracedPrefs struct {
	*store.MemoryPrefs
	tr *trace
}

func (p tracedPrefs) SetLastSeen(groupID string, t time.Time) error {
	p.tr.add("prefs.set:" + groupID)
	return p.MemoryPrefs.SetLastSeen(groupID, t)
}

type harness struct {
	tr       *trace
	api      *fakeAPI
	poller   *fakePoller
	display  *fakeDisplay
	prefs    tracedPrefs
	recorder *notify.Recorder
	now      time.Time
	session  *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tr := &trace{}
	h := &harness{
		tr:       tr,
		api:      newFakeAPI(tr),
		poller:   &fakePoller{tr: tr},
		display:  &fakeDisplay{tr: tr, views: map[string]core.View{}, errs: map[string]string{}},
		prefs:    tracedPrefs{MemoryPrefs: store.NewMemoryPrefs(), tr: tr},
		recorder: &notify.Recorder{},
		now:      t0.Add(time.Hour),
	}
	notifier := notify.New(nil, notify.SinkFunc(func(n notify.Notice) error {
		tr.add("notify:" + n.Level.String())
		return h.recorder.Send(n)
	}))
	h.session = New(Options{
		API:      h.api,
		Prefs:    h.prefs,
		Poller:   h.poller,
		Notifier: notifier,
		Display:  h.display,
		Now:      func() time.Time { return h.now },
	})
	return h
}

func msg(id string, ts time.Time) *model.Message {
	return &model.Message{Header: model.Header{MsgID: id, TS: ts}, Author: "ana", Text: "hola"}
}

func spike(id string, ts time.Time) *model.Alert {
	return &model.Alert{Header: model.Header{MsgID: id, TS: ts}, AlertType: model.AlertTypeArousalSpike, Rationale: "z=2.1"}
}

func TestOpen_StepOrder(t *testing.T) {
	h := newHarness(t)
	// Newest entry is a fresh spike so the gate fires.
	h.api.logs["alpha"] = model.Log{msg("m0", t0), spike("a1", h.now.Add(-time.Second))}

	res, err := h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"poller.stop",
		"display.clear",
		"api.state:alpha",
		"notify:warning",
		"display.log:alpha",
		"prefs.set:alpha",
		"poller.open:alpha",
	}, h.tr.list())

	assert.Equal(t, "alpha", h.session.Current())
	assert.Equal(t, "a1", res.Reconciliation.AnchorID)
	assert.Equal(t, "a1", res.View.AnchorID)
	require.NotNil(t, res.Notice)
	assert.Equal(t, "a1", res.Notice.EntryID)
	assert.Len(t, h.display.views["alpha"].Records, 2)
}

func TestOpen_PersistsLastSeenAfterRender(t *testing.T) {
	h := newHarness(t)
	h.api.logs["alpha"] = model.Log{spike("a1", t0)}

	res, err := h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, "a1", res.Reconciliation.AnchorID, "never seen: every alert is unread")

	ts, ok := h.prefs.LastSeen("alpha")
	require.True(t, ok)
	assert.True(t, ts.Equal(h.now))

	// Reopening with no new alerts has no anchor.
	h.now = h.now.Add(time.Minute)
	res, err = h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Empty(t, res.Reconciliation.AnchorID)
	assert.False(t, res.Reconciliation.HasUnread())
	assert.True(t, res.LastSeen.Equal(h.now))
}

func TestOpen_NewAlertAfterLastSeenBecomesAnchor(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.prefs.MemoryPrefs.SetLastSeen("alpha", t0.Add(30*time.Minute)))
	h.api.logs["alpha"] = model.Log{
		spike("old", t0),
		msg("m1", t0.Add(40*time.Minute)),
		spike("new", t0.Add(45*time.Minute)),
		spike("newer", t0.Add(50*time.Minute)),
	}

	res, err := h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, "new", res.Reconciliation.AnchorID)
	assert.Equal(t, []string{"new", "newer"}, res.Reconciliation.Unread)
	assert.Nil(t, res.Notice, "newest entry is not fresh")
	assert.Empty(t, h.recorder.Notices())
}

func TestOpen_EmptyLog(t *testing.T) {
	h := newHarness(t)

	res, err := h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)
	assert.True(t, res.View.Empty)
	assert.Equal(t, core.NoMessagesPlaceholder, res.View.Placeholder)
	assert.Nil(t, res.Notice)
	assert.Equal(t, "alpha", h.poller.group)
}

func TestOpen_InvalidGroupID(t *testing.T) {
	h := newHarness(t)

	_, err := h.session.Open(context.Background(), "bad id!")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, model.ErrInvalidGroupID)

	assert.Empty(t, h.api.callList(), "no network call for invalid input")
	assert.Empty(t, h.session.Current())

	n, ok := h.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, n.Level)
}

func TestOpen_NetworkFailure(t *testing.T) {
	h := newHarness(t)
	h.api.errs["state:alpha"] = &api.NetworkError{Op: "get state", Err: errors.New("connection refused")}

	_, err := h.session.Open(context.Background(), "alpha")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNetwork)

	assert.Equal(t, []string{
		"poller.stop",
		"display.clear",
		"api.state:alpha",
		"notify:error",
		"display.error:alpha",
	}, h.tr.list())
	assert.Empty(t, h.poller.group, "poller not started")
	_, ok := h.prefs.LastSeen("alpha")
	assert.False(t, ok, "last-seen not written")
}

// Opening B while A's fetch is still in flight discards A's result.
func TestOpen_SupersededByLaterOpen(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.api.block["a"] = release

	done := make(chan error, 1)
	go func() {
		_, err := h.session.Open(context.Background(), "a")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(h.api.callList()) == 1
	}, time.Second, time.Millisecond)

	_, err := h.session.Open(context.Background(), "b")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, "b", h.session.Current())
	assert.Equal(t, "b", h.poller.group)
	_, shown := h.display.views["a"]
	assert.False(t, shown)
	_, ok := h.prefs.LastSeen("a")
	assert.False(t, ok)
}

func TestOpen_RealPollerSingleTimer(t *testing.T) {
	tr := &trace{}
	fa := newFakeAPI(tr)
	sched := poller.NewManualScheduler()
	p := poller.New(metricsStub{}, poller.Options{Scheduler: sched})
	s := New(Options{API: fa, Poller: p})
	ctx := context.Background()

	for _, g := range []string{"a", "b", "c"} {
		_, err := s.Open(ctx, g)
		require.NoError(t, err)
	}

	assert.Len(t, sched.Active(), 1)
	assert.Equal(t, "c", p.Group())
	view, ok := s.Metrics()
	require.True(t, ok)
	assert.Equal(t, "c", view.GroupID)

	s.Close()
	assert.Empty(t, sched.Active())
	assert.Empty(t, s.Current())
	_, ok = s.Metrics()
	assert.False(t, ok)
}

type metricsStub struct{}

func (metricsStub) Metrics(context.Context, string) (model.MetricsSnapshot, error) {
	return model.MetricsSnapshot{FrictionIndex: 0.3}, nil
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)

	h.session.Close()
	assert.Empty(t, h.session.Current())
	assert.Empty(t, h.poller.group)
	events := h.tr.list()
	assert.Equal(t, []string{"poller.stop", "display.clear"}, events[len(events)-2:])
}

func TestGroups_UnseenAlerts(t *testing.T) {
	h := newHarness(t)
	h.api.groups = []model.Group{
		{ID: "never", LastModified: t0, HasRecentAlerts: true},
		{ID: "changed", LastModified: t0.Add(time.Hour), HasRecentAlerts: true},
		{ID: "viewed", LastModified: t0, HasRecentAlerts: true},
		{ID: "quiet", LastModified: t0.Add(time.Hour), HasRecentAlerts: false},
	}
	require.NoError(t, h.prefs.MemoryPrefs.SetLastSeen("changed", t0))
	require.NoError(t, h.prefs.MemoryPrefs.SetLastSeen("viewed", t0.Add(time.Minute)))

	groups, err := h.session.Groups(context.Background(), GroupQuery{})
	require.NoError(t, err)
	require.Len(t, groups, 4)

	unseen := map[string]bool{}
	for _, g := range groups {
		unseen[g.ID] = g.Unseen
	}
	assert.Equal(t, map[string]bool{"never": true, "changed": true, "viewed": false, "quiet": false}, unseen)
	assert.False(t, groups[0].Seen)
	assert.True(t, groups[2].Seen)
}

func TestGroups_FilterAndSort(t *testing.T) {
	h := newHarness(t)
	h.api.groups = []model.Group{
		{ID: "old", LastModified: t0.Add(-48 * time.Hour)},
		{ID: "b", LastModified: t0, HasRecentAlerts: true},
		{ID: "a", LastModified: t0.Add(-time.Hour)},
	}

	groups, err := h.session.Groups(context.Background(), GroupQuery{
		Filter: core.GroupFilter{Since: 24 * time.Hour},
		Sort:   &core.SortOptions{Field: core.SortByName, Order: core.SortAsc},
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].ID)
	assert.Equal(t, "b", groups[1].ID)
	assert.True(t, groups[1].Unseen)
}

func TestGroups_Failure(t *testing.T) {
	h := newHarness(t)
	h.api.errs["list"] = &api.NetworkError{Op: "list groups", StatusCode: http.StatusBadGateway, Status: "Bad Gateway"}

	_, err := h.session.Groups(context.Background(), GroupQuery{})
	require.Error(t, err)
	n, ok := h.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "Could not load groups", n.Title)
	assert.Equal(t, "Bad Gateway", n.Body)
}

func TestIngest_ReopensGroup(t *testing.T) {
	h := newHarness(t)
	h.api.logs["alpha"] = model.Log{msg("m0", t0)}

	res, err := h.session.Ingest(context.Background(), "alpha", " ana ", "hola ")
	require.NoError(t, err)
	assert.Equal(t, "alpha", res.GroupID)
	assert.Equal(t, []string{"ingest:alpha:ana:hola", "state:alpha"}, h.api.callList())
	assert.Equal(t, "alpha", h.poller.group)
}

func TestIngest_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.session.Ingest(context.Background(), "alpha", "ana", "  ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.session.Ingest(context.Background(), "al pha", "ana", "hi")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, h.api.callList())
}

func TestIngest_MutationFailureDoesNotReopen(t *testing.T) {
	h := newHarness(t)
	h.api.errs["ingest:alpha:ana:hi"] = &api.MutationError{Op: "ingest", StatusCode: 422, Detail: "text too long"}

	_, err := h.session.Ingest(context.Background(), "alpha", "ana", "hi")
	assert.ErrorIs(t, err, api.ErrMutation)
	assert.Equal(t, []string{"ingest:alpha:ana:hi"}, h.api.callList())

	n, _ := h.recorder.Last()
	assert.Equal(t, "text too long", n.Body)
}

func TestCreateGroup(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.CreateGroup(context.Background(), "team-1", " standup "))
	assert.Equal(t, []string{"create:team-1:standup"}, h.api.callList())
	n, _ := h.recorder.Last()
	assert.Equal(t, notify.LevelInfo, n.Level)

	err := h.session.CreateGroup(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, h.api.callList(), 1)
}

func TestCreateGroup_Conflict(t *testing.T) {
	h := newHarness(t)
	h.api.errs["create:dup:"] = &api.MutationError{Op: "create group", StatusCode: http.StatusConflict, Detail: "Group already exists"}

	err := h.session.CreateGroup(context.Background(), "dup", "")
	var mErr *api.MutationError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, http.StatusConflict, mErr.StatusCode)

	n, _ := h.recorder.Last()
	assert.Equal(t, notify.LevelError, n.Level)
	assert.Equal(t, "Group already exists", n.Body)
}

func TestRenameGroup_MovesLastSeenAndReopens(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.Open(context.Background(), "old")
	require.NoError(t, err)

	require.NoError(t, h.session.RenameGroup(context.Background(), "old", "new"))

	_, ok := h.prefs.LastSeen("old")
	assert.False(t, ok)
	_, ok = h.prefs.LastSeen("new")
	assert.True(t, ok)
	assert.Equal(t, "new", h.session.Current())
	assert.Equal(t, "new", h.poller.group)
}

func TestRenameGroup_InactiveGroup(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.RenameGroup(context.Background(), "x", "y"))
	assert.Equal(t, []string{"rename:x:y"}, h.api.callList())
	assert.Empty(t, h.session.Current())
}

func TestRenameGroup_Validation(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.session.RenameGroup(context.Background(), "x", "y z"), ErrValidation)
	assert.NoError(t, h.session.RenameGroup(context.Background(), "x", "x"))
	assert.Empty(t, h.api.callList())
}

func TestDeleteGroup_ActiveGroupCloses(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)

	require.NoError(t, h.session.DeleteGroup(context.Background(), "alpha"))
	assert.Empty(t, h.session.Current())
	assert.Empty(t, h.poller.group)
	_, ok := h.prefs.LastSeen("alpha")
	assert.False(t, ok)
}

func TestDeleteGroup_Failure(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.Open(context.Background(), "alpha")
	require.NoError(t, err)
	h.api.errs["delete:alpha"] = &api.MutationError{Op: "delete group", StatusCode: http.StatusNotFound}

	err = h.session.DeleteGroup(context.Background(), "alpha")
	assert.ErrorIs(t, err, api.ErrMutation)
	assert.Equal(t, "alpha", h.session.Current(), "failed delete keeps the group open")
	_, ok := h.prefs.LastSeen("alpha")
	assert.True(t, ok)

	n, _ := h.recorder.Last()
	assert.Equal(t, "Not Found", n.Body)
}
