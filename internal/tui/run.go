package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/rlxui/internal/config"
	"github.com/jmylchreest/rlxui/internal/session"
	"github.com/jmylchreest/rlxui/internal/store"
)

// RunOptions configures the TUI.
type RunOptions struct {
	Config       *config.Config
	Session      *session.Session
	Service      Service
	Bridge       *Bridge // attached to the program; may be nil
	InitialGroup string  // opened once groups load (empty = none)
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Session == nil {
		return errors.New("tui: session is required")
	}

	applyTheme(opts.Session.Prefs().Theme())

	m := New(ctx, opts.Config, opts.Session, opts.Service).WithInitialGroup(opts.InitialGroup)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if opts.Bridge != nil {
		opts.Bridge.Attach(p)
	}

	_, err := p.Run()

	// Detach before stopping so late poller updates are dropped.
	if opts.Bridge != nil {
		opts.Bridge.Attach(nil)
	}
	opts.Session.Close()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// applyTheme forces the colour scheme unless the terminal should decide.
func applyTheme(t store.Theme) {
	switch t {
	case store.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	case store.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	}
}
