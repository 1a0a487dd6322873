package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmylchreest/rlxui/internal/adapter/output"
	"github.com/jmylchreest/rlxui/internal/api"
	"github.com/jmylchreest/rlxui/internal/audio"
	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/dbus"
	"github.com/jmylchreest/rlxui/internal/notify"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
	"github.com/jmylchreest/rlxui/internal/store"
)

// appOptions selects which parts of the client a command needs.
type appOptions struct {
	display   session.Display
	sinks     []notify.Sink // extra sinks, e.g. the TUI status line
	stderr    bool          // print notices to stderr (when enabled in config)
	desktop   bool          // post notices over D-Bus (when enabled in config)
	poll      bool          // start a metrics poller on open
	onMetrics func(poller.MetricsView)
	watch     bool // reload preferences when another process writes them
}

// app holds the wired client components for one command invocation.
type app struct {
	client   *api.Client
	prefs    *store.FilePrefs
	notifier *notify.Notifier
	poller   *poller.Poller
	session  *session.Session

	closers []func()
}

// newClient creates the REST client from the loaded config.
func newClient() *api.Client {
	opts := getConfig().APIOptions()
	opts.Logger = logger
	return api.New(opts)
}

// newApp wires the REST client, preference store, notifier, poller and
// session. Optional integrations that fail to start are logged and skipped.
func newApp(opts appOptions) (*app, error) {
	c := getConfig()
	a := &app{client: newClient()}

	prefs, err := store.OpenDefaultFilePrefs()
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}
	a.prefs = prefs

	if opts.watch {
		w, err := store.NewPrefsWatcher(prefs, logger)
		if err != nil {
			logger.Warn("failed to create preferences watcher", "error", err)
		} else if err := w.Start(); err != nil {
			logger.Warn("failed to start preferences watcher", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = w.Stop() })
		}
	}

	a.notifier = notify.New(logger, opts.sinks...)
	if d := c.Notify.MinInterval.Duration(); d > 0 {
		a.notifier.SetMinInterval(d)
	}
	if opts.stderr && c.Notify.Stderr {
		a.notifier.AddSink(notify.NewStderrSink(os.Stderr))
	}
	if opts.desktop && c.Notify.Desktop {
		client, err := dbus.Connect(logger)
		if err != nil {
			logger.Warn("desktop notifications unavailable", "error", err)
		} else {
			a.notifier.AddSink(notify.NewDesktopSink(client))
			a.closers = append(a.closers, func() { _ = client.Close() })
		}
	}
	if opts.desktop && c.Audio.Enabled {
		player := audio.NewPlayer(logger)
		player.SetVolume(c.Volume())
		sounds := c.Sounds()
		for _, path := range sounds {
			if err := player.Preload(path); err != nil {
				logger.Warn("failed to load sound", "path", path, "error", err)
			}
		}
		a.notifier.AddSink(notify.NewSoundSink(player, sounds, logger))
		a.closers = append(a.closers, player.Close)
	}

	sessOpts := session.Options{
		API:         a.client,
		Prefs:       prefs,
		Notifier:    a.notifier,
		Display:     opts.display,
		FreshWindow: c.Notify.FreshWindow.Duration(),
		Logger:      logger,
	}
	if opts.poll {
		a.poller = poller.New(a.client, poller.Options{
			Interval:   c.Poll.Interval.Duration(),
			Thresholds: c.Thresholds,
			Logger:     logger,
			OnUpdate:   opts.onMetrics,
		})
		sessOpts.Poller = a.poller
	}
	a.session = session.New(sessOpts)

	return a, nil
}

// Close stops the session and releases integrations in reverse order.
func (a *app) Close() {
	a.session.Close()
	if a.poller != nil {
		st := a.poller.Stats()
		logger.Debug("poller stopped", "fetches", st.Fetches, "failures", st.Failures, "discarded", st.Discarded)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// writerDisplay prints rendered logs with a formatter. Errors go to errw.
type writerDisplay struct {
	w         io.Writer
	errw      io.Writer
	formatter output.Formatter
}

func (d *writerDisplay) ShowLog(groupID string, view core.View) {
	if err := d.formatter.FormatView(d.w, groupID, view); err != nil {
		logger.Warn("failed to write log", "group", groupID, "error", err)
	}
}

func (d *writerDisplay) ShowError(groupID, message string) {
	fmt.Fprintf(d.errw, "%s: %s\n", groupID, message)
}

func (d *writerDisplay) ClearMetrics() {}

// newFormatter creates an output formatter, with flag values taking
// precedence over the config.
func newFormatter(format, template string) output.Formatter {
	c := getConfig()
	if format == "" {
		format = c.Output.Format
	}
	opts := c.FormatterOptions()
	if template != "" {
		opts.Template = template
	}
	return output.NewFormatter(output.FormatType(strings.ToLower(format)), opts)
}

// formatFlagHelp lists the supported output formats.
func formatFlagHelp() string {
	names := make([]string, len(output.FormatTypes))
	for i, f := range output.FormatTypes {
		names[i] = string(f)
	}
	return "Output format (" + strings.Join(names, ", ") + "; default from config)"
}
