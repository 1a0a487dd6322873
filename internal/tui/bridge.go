package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

// Sender delivers messages into a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge turns session output, notices and poller updates into tea
// messages. It is created before the program exists and attached once the
// program is built; messages sent before that are dropped.
type Bridge struct {
	mu     sync.Mutex
	target Sender
}

var _ session.Display = (*Bridge)(nil)

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach sets the message target.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = s
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	target := b.target
	b.mu.Unlock()
	if target != nil {
		target.Send(msg)
	}
}

// ShowLog implements session.Display.
func (b *Bridge) ShowLog(groupID string, view core.View) {
	b.send(logMsg{groupID: groupID, view: view})
}

// ShowError implements session.Display.
func (b *Bridge) ShowError(groupID, message string) {
	b.send(logErrorMsg{groupID: groupID, message: message})
}

// ClearMetrics implements session.Display.
func (b *Bridge) ClearMetrics() {
	b.send(metricsClearedMsg{})
}

// OnMetrics forwards a poller update. Pass it as the poller's OnUpdate.
func (b *Bridge) OnMetrics(v poller.MetricsView) {
	b.send(metricsMsg{view: v})
}

// Send implements notify.Sink by showing the notice on the status line.
func (b *Bridge) Send(n notify.Notice) error {
	b.send(noticeMsg{notice: n})
	return nil
}

var _ notify.Sink = (*Bridge)(nil)
