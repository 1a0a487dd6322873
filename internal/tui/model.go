// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/rlxui/internal/adapter/output"
	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/config"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
	"github.com/jmylchreest/rlxui/internal/store"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeBrowse Mode = iota
	ModeSearch
	ModePrompt
	ModeHelp
)

// Focus selects which pane receives navigation keys.
type Focus int

const (
	FocusGroups Focus = iota
	FocusLog
)

// promptKind identifies what the text input is collecting.
type promptKind int

const (
	promptNone promptKind = iota
	promptCreate
	promptRename
	promptDelete
	promptIngest
)

// Service is the part of the REST client used directly by the TUI.
// *api.Client implements it.
type Service interface {
	Health(ctx context.Context) (*api.HealthStatus, error)
	AffectiveHistory(ctx context.Context, groupID string, sinceHours int) ([]model.AffectivePoint, error)
}

// statusTimeout is how long a status line message stays visible.
const statusTimeout = 4 * time.Second

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg     *config.Config
	session *session.Session
	service Service
	ctx     context.Context
	now     func() time.Time

	// Current mode
	mode  Mode
	focus Focus

	// Components
	groups   list.Model
	viewport viewport.Model
	input    textinput.Model
	help     help.Model

	// Open group state
	groupID     string
	view        core.View
	records     []core.Record // view.Records after search
	offsets     []int         // first viewport line of each record
	cursor      int
	searchQuery string
	logErr      string
	metrics     *poller.MetricsView
	history     []model.AffectivePoint

	// Prompt state
	prompt       promptKind
	promptTarget string

	health       string
	healthy      bool
	initialGroup string

	width  int
	height int
	ready  bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool
	statusSeq int

	// Preference change subscription
	refreshCh <-chan store.ChangeEvent
}

// groupItem wraps a group for the list component.
type groupItem struct {
	status session.GroupStatus
	now    time.Time
}

func (i groupItem) Title() string {
	if i.status.Unseen {
		return i.status.ID + " ●"
	}
	return i.status.ID
}

func (i groupItem) Description() string {
	desc := "never modified"
	if !i.status.LastModified.IsZero() {
		desc = "modified " + humanize.RelTime(i.status.LastModified, i.now, "ago", "from now")
	}
	if i.status.Unseen {
		desc += " · new alerts"
	}
	return desc
}

func (i groupItem) FilterValue() string {
	return i.status.ID
}

// subscriber is implemented by the preference stores.
type subscriber interface {
	Subscribe() <-chan store.ChangeEvent
}

// New creates a new TUI model. svc may be nil.
func New(ctx context.Context, cfg *config.Config, sess *session.Session, svc Service) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Groups"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	input := textinput.New()
	input.CharLimit = 500

	m := Model{
		cfg:      cfg,
		session:  sess,
		service:  svc,
		ctx:      ctx,
		now:      time.Now,
		mode:     ModeBrowse,
		focus:    FocusGroups,
		groups:   l,
		viewport: viewport.New(0, 0),
		input:    input,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		health:   "checking",
	}

	if sub, ok := sess.Prefs().(subscriber); ok {
		m.refreshCh = sub.Subscribe()
	}

	return m
}

// WithInitialGroup opens groupID once the group list has loaded.
func (m Model) WithInitialGroup(groupID string) Model {
	m.initialGroup = groupID
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadGroups(),
		m.checkHealth(),
		m.watchForChanges(),
	)
}

// Messages produced by commands and the bridge.
type (
	groupsMsg struct {
		groups []session.GroupStatus
		err    error
	}
	logMsg struct {
		groupID string
		view    core.View
	}
	logErrorMsg struct {
		groupID string
		message string
	}
	metricsClearedMsg struct{}
	metricsMsg        struct {
		view poller.MetricsView
	}
	historyMsg struct {
		groupID string
		points  []model.AffectivePoint
		err     error
	}
	noticeMsg struct {
		notice notify.Notice
	}
	openedMsg struct {
		groupID string
		skipped int
		err     error
	}
	mutationMsg struct {
		op       string
		err      error
		reopened string
	}
	healthMsg struct {
		status *api.HealthStatus
		err    error
	}
	statusMsg struct {
		text  string
		isErr bool
	}
	clearStatusMsg struct {
		seq int
	}
	copyResultMsg struct {
		err error
	}
	prefsChangedMsg struct{}
)

func (m Model) loadGroups() tea.Cmd {
	sess, ctx, opts := m.session, m.ctx, m.cfg.SortOptions()
	return func() tea.Msg {
		groups, err := sess.Groups(ctx, session.GroupQuery{Sort: &opts})
		return groupsMsg{groups: groups, err: err}
	}
}

func (m Model) checkHealth() tea.Cmd {
	if m.service == nil {
		return nil
	}
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		status, err := svc.Health(ctx)
		return healthMsg{status: status, err: err}
	}
}

// watchForChanges waits for a preference change.
func (m Model) watchForChanges() tea.Cmd {
	ch := m.refreshCh
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return prefsChangedMsg{}
	}
}

func (m Model) openGroup(groupID string) tea.Cmd {
	sess, ctx := m.session, m.ctx
	open := func() tea.Msg {
		res, err := sess.Open(ctx, groupID)
		if err != nil {
			return openedMsg{groupID: groupID, err: err}
		}
		return openedMsg{groupID: groupID, skipped: res.Skipped}
	}
	return tea.Batch(open, m.loadHistory(groupID))
}

func (m Model) loadHistory(groupID string) tea.Cmd {
	if m.service == nil {
		return nil
	}
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		points, err := svc.AffectiveHistory(ctx, groupID, core.DefaultHistoryHours)
		return historyMsg{groupID: groupID, points: points, err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case groupsMsg:
		if msg.err != nil {
			return m, nil // the session already raised a notice
		}
		m.setGroups(msg.groups)
		if m.initialGroup != "" {
			id := m.initialGroup
			m.initialGroup = ""
			return m, m.openGroup(id)
		}
		return m, nil

	case prefsChangedMsg:
		m.redecorateGroups()
		return m, m.watchForChanges()

	case logMsg:
		if msg.groupID != m.groupID {
			m.history = nil
		}
		m.dropForeignMetrics(msg.groupID)
		m.groupID = msg.groupID
		m.view = msg.view
		m.logErr = ""
		m.searchQuery = ""
		m.applyRecords(true)
		return m, nil

	case logErrorMsg:
		m.dropForeignMetrics(msg.groupID)
		m.groupID = msg.groupID
		m.view = core.View{}
		m.records = nil
		m.logErr = msg.message
		m.history = nil
		m.refreshViewport()
		return m, nil

	case metricsClearedMsg:
		m.metrics = nil
		return m, nil

	case metricsMsg:
		if msg.view.GroupID == m.groupID {
			v := msg.view
			m.metrics = &v
		}
		return m, nil

	case historyMsg:
		if msg.err == nil && msg.groupID == m.groupID {
			m.history = msg.points
		}
		return m, nil

	case noticeMsg:
		return m.setStatus(noticeText(msg.notice), msg.notice.Level == notify.LevelError)

	case openedMsg:
		if msg.err == nil && msg.skipped > 0 {
			return m.setStatus(fmt.Sprintf("%d log entries could not be shown", msg.skipped), true)
		}
		return m, nil

	case mutationMsg:
		if msg.err != nil {
			return m, nil // the session already raised a notice
		}
		if msg.op == "delete" && m.session.Current() == "" {
			m.groupID = ""
			m.view = core.View{}
			m.records = nil
			m.metrics = nil
			m.history = nil
			m.refreshViewport()
		}
		return m, m.loadGroups()

	case healthMsg:
		if msg.err != nil {
			m.health = "offline"
			m.healthy = false
		} else {
			m.health = msg.status.Status
			m.healthy = msg.status.Status == "ok"
		}
		return m, nil

	case statusMsg:
		return m.setStatus(msg.text, msg.isErr)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m.setStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m.setStatus("Copied to clipboard", false)
	}

	// Update child components
	var cmd tea.Cmd
	switch m.mode {
	case ModeBrowse:
		if m.focus == FocusGroups {
			m.groups, cmd = m.groups.Update(msg)
		} else {
			m.viewport, cmd = m.viewport.Update(msg)
		}
	case ModeSearch, ModePrompt:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) setStatus(text string, isErr bool) (Model, tea.Cmd) {
	m.statusSeq++
	seq := m.statusSeq
	m.statusMsg = text
	m.statusErr = isErr
	return m, tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func noticeText(n notify.Notice) string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + ": " + n.Body
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Text entry swallows everything except its own controls.
	switch m.mode {
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModePrompt:
		return m.handlePromptKey(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeBrowse
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeBrowse
		}
		return m, nil
	}

	// Keys shared by both panes
	switch {
	case key.Matches(msg, m.keys.Focus):
		if m.focus == FocusGroups {
			m.focus = FocusLog
		} else {
			m.focus = FocusGroups
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		cmds := []tea.Cmd{m.loadGroups(), m.checkHealth()}
		if m.groupID != "" {
			cmds = append(cmds, m.openGroup(m.groupID))
		}
		return m, tea.Batch(cmds...)

	case key.Matches(msg, m.keys.Create):
		return m.startPrompt(promptCreate, "", "group-id [template]")

	case key.Matches(msg, m.keys.Ingest):
		if m.groupID == "" {
			return m.setStatus("Open a group first", true)
		}
		return m.startPrompt(promptIngest, m.groupID, "author: message")
	}

	if m.focus == FocusGroups {
		return m.handleGroupsKey(msg)
	}
	return m.handleLogKey(msg)
}

// handleGroupsKey handles keys when the group list has focus.
func (m Model) handleGroupsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the list's own filter input have the keys while it is active.
	if m.groups.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.groups, cmd = m.groups.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.groups.SelectedItem().(groupItem); ok {
			m.focus = FocusLog
			return m, m.openGroup(item.status.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		if item, ok := m.groups.SelectedItem().(groupItem); ok {
			return m.startPrompt(promptRename, item.status.ID, "new group id")
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if item, ok := m.groups.SelectedItem().(groupItem); ok {
			return m.startPrompt(promptDelete, item.status.ID, "type y to delete "+item.status.ID)
		}
		return m, nil
	}

	// Pass to list
	var cmd tea.Cmd
	m.groups, cmd = m.groups.Update(msg)
	return m, cmd
}

// handleLogKey handles keys when the log has focus.
func (m Model) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(m.cursor - 1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(m.cursor + 1)
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.moveCursor(0)
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.moveCursor(len(m.records) - 1)
		return m, nil

	case key.Matches(msg, m.keys.Anchor):
		if i := core.IndexOf(m.records, m.view.AnchorID); i >= 0 {
			m.moveCursor(i)
			return m, nil
		}
		return m.setStatus("No unread alerts", false)

	case key.Matches(msg, m.keys.Back):
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.applyRecords(false)
			return m, nil
		}
		m.focus = FocusGroups
		return m, nil

	case key.Matches(msg, m.keys.Search):
		if m.groupID == "" {
			return m, nil
		}
		m.mode = ModeSearch
		m.input.Placeholder = "Search log..."
		m.input.SetValue(m.searchQuery)
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Copy):
		if r := m.selectedRecord(); r != nil {
			return m, m.copyToClipboard(recordText(*r))
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyYAML):
		if r := m.selectedRecord(); r != nil {
			text, err := output.MarshalRecord(*r)
			if err != nil {
				return m.setStatus("Failed to marshal YAML: "+err.Error(), true)
			}
			return m, m.copyToClipboard(text)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyAllJSON):
		if m.groupID == "" {
			return m, nil
		}
		var buf bytes.Buffer
		if err := output.NewJSONFormatter(m.cfg.FormatterOptions()).FormatView(&buf, m.groupID, m.view); err != nil {
			return m.setStatus("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(buf.String())
	}

	// Pass to viewport
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleSearchKey handles keys in search mode.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		// Esc exits search mode and clears search
		m.mode = ModeBrowse
		m.input.Blur()
		m.input.SetValue("")
		m.searchQuery = ""
		m.applyRecords(false)
		return m, nil

	case tea.KeyEnter:
		m.mode = ModeBrowse
		m.input.Blur()
		return m, nil
	}

	// Pass to text input
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// Live filtering: update search query and rebuild records on each keystroke
	m.searchQuery = m.input.Value()
	m.applyRecords(false)

	return m, cmd
}

func (m Model) startPrompt(kind promptKind, target, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = ModePrompt
	m.prompt = kind
	m.promptTarget = target
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
	return m, textinput.Blink
}

// handlePromptKey handles keys while a prompt is open.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil

	case tea.KeyEnter:
		kind, target, value := m.prompt, m.promptTarget, strings.TrimSpace(m.input.Value())
		m.closePrompt()
		return m, m.submitPrompt(kind, target, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.mode = ModeBrowse
	m.prompt = promptNone
	m.promptTarget = ""
	m.input.Blur()
	m.input.SetValue("")
}

// submitPrompt turns a completed prompt into a session command. Input is
// validated by the session before any network call.
func (m Model) submitPrompt(kind promptKind, target, value string) tea.Cmd {
	sess, ctx := m.session, m.ctx

	switch kind {
	case promptCreate:
		id, template, _ := strings.Cut(value, " ")
		return func() tea.Msg {
			return mutationMsg{op: "create", err: sess.CreateGroup(ctx, id, strings.TrimSpace(template))}
		}

	case promptRename:
		return func() tea.Msg {
			return mutationMsg{op: "rename", err: sess.RenameGroup(ctx, target, value)}
		}

	case promptDelete:
		if !strings.EqualFold(value, "y") && !strings.EqualFold(value, "yes") {
			return func() tea.Msg { return statusMsg{text: "Delete cancelled"} }
		}
		return func() tea.Msg {
			return mutationMsg{op: "delete", err: sess.DeleteGroup(ctx, target)}
		}

	case promptIngest:
		author, text, ok := strings.Cut(value, ":")
		if !ok {
			return func() tea.Msg { return statusMsg{text: "Use the form author: message", isErr: true} }
		}
		return func() tea.Msg {
			_, err := sess.Ingest(ctx, target, author, text)
			if err != nil && !errors.Is(err, session.ErrSuperseded) {
				return mutationMsg{op: "ingest", err: err}
			}
			return mutationMsg{op: "ingest", reopened: target}
		}
	}
	return nil
}

// setGroups replaces the list items, keeping the selection on the same group.
func (m *Model) setGroups(groups []session.GroupStatus) {
	selected := ""
	if item, ok := m.groups.SelectedItem().(groupItem); ok {
		selected = item.status.ID
	}

	now := m.now()
	items := make([]list.Item, len(groups))
	index := 0
	for i, g := range groups {
		items[i] = groupItem{status: g, now: now}
		if g.ID == selected {
			index = i
		}
	}
	m.groups.SetItems(items)
	if len(items) > 0 {
		m.groups.Select(index)
	}
}

// redecorateGroups recomputes unread markers after a last-seen change
// without another network round trip.
func (m *Model) redecorateGroups() {
	items := m.groups.Items()
	groups := make([]session.GroupStatus, 0, len(items))
	for _, it := range items {
		if gi, ok := it.(groupItem); ok {
			groups = append(groups, m.session.Decorate(gi.status.Group))
		}
	}
	m.setGroups(groups)
}

// applyRecords rebuilds the visible records from the view and the search
// query. When scroll is set the cursor moves to the view's scroll target.
func (m *Model) applyRecords(scroll bool) {
	selected := ""
	if r := m.selectedRecord(); r != nil {
		selected = r.Key
	}

	m.records = core.SearchRecords(m.view.Records, m.searchQuery)

	target := selected
	if scroll || target == "" {
		target = m.view.ScrollTarget
	}
	m.cursor = core.IndexOf(m.records, target)
	if m.cursor < 0 {
		m.cursor = len(m.records) - 1
	}
	m.refreshViewport()
	m.scrollToCursor()
}

func (m *Model) moveCursor(i int) {
	if len(m.records) == 0 {
		return
	}
	m.cursor = max(0, min(i, len(m.records)-1))
	m.refreshViewport()
	m.scrollToCursor()
}

func (m Model) selectedRecord() *core.Record {
	if m.cursor < 0 || m.cursor >= len(m.records) {
		return nil
	}
	r := m.records[m.cursor]
	return &r
}

// dropForeignMetrics clears a metrics panel that belongs to a group other
// than groupID.
func (m *Model) dropForeignMetrics(groupID string) {
	if m.metrics != nil && m.metrics.GroupID != groupID {
		m.metrics = nil
	}
}

func (m *Model) refreshViewport() {
	content, offsets := renderLog(m.records, m.cursor, m.viewport.Width, m.emptyText())
	m.offsets = offsets
	m.viewport.SetContent(content)
}

// scrollToCursor keeps the cursor record within the viewport.
func (m *Model) scrollToCursor() {
	if m.cursor < 0 || m.cursor >= len(m.offsets) {
		return
	}
	top := m.offsets[m.cursor]
	bottom := m.viewport.TotalLineCount()
	if m.cursor+1 < len(m.offsets) {
		bottom = m.offsets[m.cursor+1]
	}

	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(max(top, bottom-m.viewport.Height))
	}
}

func (m Model) emptyText() string {
	switch {
	case m.logErr != "":
		return "Could not load " + m.groupID + ": " + m.logErr
	case m.groupID == "":
		return "Select a group and press enter."
	case m.view.Empty:
		return m.view.Placeholder
	default:
		return "No entries match " + fmt.Sprintf("%q", m.searchQuery)
	}
}

func (m *Model) resize() {
	listWidth := max(24, m.width/3)
	bodyHeight := max(3, m.height-4)

	m.groups.SetSize(listWidth, bodyHeight)
	m.viewport.Width = max(10, m.width-listWidth-1)
	m.viewport.Height = bodyHeight
	m.help.Width = m.width
	m.input.Width = max(10, m.width-20)
	m.refreshViewport()
	m.scrollToCursor()
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.cfg.Clipboard.Command
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, command)}
	}
}

// recordText is the plain text copied for a record.
func recordText(r core.Record) string {
	var sb strings.Builder
	sb.WriteString(r.Title)
	if r.Body != "" {
		sb.WriteString("\n" + r.Body)
	}
	for _, s := range r.Sections {
		sb.WriteString("\n" + s.Title + ":")
		for _, item := range s.Items {
			sb.WriteString("\n- " + item)
		}
	}
	return sb.String()
}
