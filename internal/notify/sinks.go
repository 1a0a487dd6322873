package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/rlxui/internal/audio"
	"github.com/jmylchreest/rlxui/internal/dbus"
)

// AppName is the application name shown by notification daemons.
const AppName = "rlxui"

// Styles for the stderr sink.
var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	bodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// LevelStyle returns the lipgloss style used for a level's label.
func LevelStyle(l Level) lipgloss.Style {
	switch l {
	case LevelWarning:
		return warningStyle
	case LevelError:
		return errorStyle
	default:
		return infoStyle
	}
}

// FormatLine renders a notice on one line: "[warning] title: body".
func FormatLine(n Notice) string {
	line := LevelStyle(n.Level).Render("["+n.Level.String()+"]") + " " + n.Title
	if n.Body != "" {
		line += ": " + bodyStyle.Render(n.Body)
	}
	return line
}

// StderrSink writes notices as styled lines.
type StderrSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStderrSink creates a sink writing to w.
func NewStderrSink(w io.Writer) *StderrSink {
	return &StderrSink{w: w}
}

// Send writes the notice.
func (s *StderrSink) Send(n Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, FormatLine(n))
	return err
}

// desktopNotifier is implemented by *dbus.Client.
type desktopNotifier interface {
	Notify(ctx context.Context, n *dbus.Notification) (uint32, error)
}

// DesktopSink posts notices to the desktop notification daemon.
type DesktopSink struct {
	client  desktopNotifier
	timeout time.Duration
}

// NewDesktopSink creates a sink that posts through client.
func NewDesktopSink(client desktopNotifier) *DesktopSink {
	return &DesktopSink{client: client, timeout: 2 * time.Second}
}

// Send posts the notice as a transient desktop notification.
func (s *DesktopSink) Send(n Notice) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	dn := dbus.NewNotification(AppName, n.Title, n.Body, urgencyFor(n.Level))
	dn.AppIcon = iconFor(n.Level)
	dn.ExpireTimeout = 5000
	dn.SetHint("category", categoryFor(n.Level))

	_, err := s.client.Notify(ctx, dn)
	return err
}

func urgencyFor(l Level) dbus.Urgency {
	switch l {
	case LevelInfo:
		return dbus.UrgencyLow
	case LevelError:
		return dbus.UrgencyCritical
	default:
		return dbus.UrgencyNormal
	}
}

func iconFor(l Level) string {
	switch l {
	case LevelWarning:
		return "dialog-warning"
	case LevelError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}

func categoryFor(l Level) string {
	if l == LevelError {
		return "network.error"
	}
	return "im.received"
}

// soundPlayer is implemented by *audio.Player.
type soundPlayer interface {
	Play(path string) error
}

var _ soundPlayer = (*audio.Player)(nil)

// SoundSink plays a configured sound per level.
type SoundSink struct {
	player soundPlayer
	sounds map[Level]string
	logger *slog.Logger
}

// NewSoundSink creates a sink playing sounds[level] for each notice.
// Levels without a sound are silent.
func NewSoundSink(player soundPlayer, sounds map[Level]string, logger *slog.Logger) *SoundSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SoundSink{player: player, sounds: sounds, logger: logger}
}

// Send plays the sound for the notice's level.
func (s *SoundSink) Send(n Notice) error {
	path, ok := s.sounds[n.Level]
	if !ok || path == "" {
		return nil
	}
	if err := s.player.Play(path); err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	return nil
}

// Recorder is a sink that keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Send records the notice.
func (r *Recorder) Send(n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
