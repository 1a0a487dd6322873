// Package poller runs the per-group metrics polling loop.
//
// A Poller is either Stopped or Running for exactly one group. Opening a
// group always cancels the previous timer first, so at most one timer is
// live at any time. Every open is stamped with a generation number and a
// fetch result is applied only if its generation is still current; results
// from a closed group or a replaced timer are discarded.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/rlxui/internal/model"
)

// DefaultInterval is the time between metrics fetches.
const DefaultInterval = 7 * time.Second

// MetricsFetcher fetches derived metrics for a group.
type MetricsFetcher interface {
	Metrics(ctx context.Context, groupID string) (model.MetricsSnapshot, error)
}

// State is the poller lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
)

// String returns the state name.
func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// MetricsView is the displayed metrics panel.
type MetricsView struct {
	GroupID   string                `json:"group_id" yaml:"group_id"`
	Snapshot  model.MetricsSnapshot `json:"metrics" yaml:"metrics"`
	Flags     model.MetricsFlags    `json:"flags" yaml:"flags"`
	UpdatedAt time.Time             `json:"updated_at" yaml:"updated_at"`
}

// Friction returns the formatted friction index.
func (v MetricsView) Friction() string { return model.FormatMetric(v.Snapshot.FrictionIndex) }

// Arousal returns the formatted arousal z-score.
func (v MetricsView) Arousal() string { return model.FormatMetric(v.Snapshot.ArousalZ) }

// Valence returns the formatted valence z-score.
func (v MetricsView) Valence() string { return model.FormatMetric(v.Snapshot.ValenceZ) }

// Stats counts poller activity.
type Stats struct {
	Fetches   uint64 `json:"fetches"`
	Failures  uint64 `json:"failures"`
	Discarded uint64 `json:"discarded"`
}

// Options configures a Poller.
type Options struct {
	Interval   time.Duration
	Thresholds model.Thresholds
	Scheduler  Scheduler
	Logger     *slog.Logger
	Now        func() time.Time
	// OnUpdate is called outside the poller lock after each applied result.
	// It must not call Open or Stop.
	OnUpdate func(MetricsView)
}

// Poller fetches metrics for the open group at a fixed interval.
type Poller struct {
	mu sync.Mutex
	// deliverMu is held while a result is checked and handed to onUpdate.
	deliverMu sync.Mutex

	fetcher    MetricsFetcher
	sched      Scheduler
	interval   time.Duration
	thresholds model.Thresholds
	logger     *slog.Logger
	now        func() time.Time
	onUpdate   func(MetricsView)

	state   State
	groupID string
	timer   Timer
	gen     uint64
	view    *MetricsView
	stats   Stats
}

// New creates a stopped Poller.
func New(fetcher MetricsFetcher, opts Options) *Poller {
	p := &Poller{
		fetcher:    fetcher,
		sched:      opts.Scheduler,
		interval:   opts.Interval,
		thresholds: opts.Thresholds,
		logger:     opts.Logger,
		now:        opts.Now,
		onUpdate:   opts.OnUpdate,
	}
	if p.sched == nil {
		p.sched = RealScheduler{}
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.thresholds == (model.Thresholds{}) {
		p.thresholds = model.DefaultThresholds()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// SetOnUpdate replaces the update callback.
func (p *Poller) SetOnUpdate(fn func(MetricsView)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// Open stops any running timer, fetches metrics for groupID immediately and
// then starts a new recurring timer. ctx bounds every fetch made for this
// group.
func (p *Poller) Open(ctx context.Context, groupID string) {
	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen
	p.state = StateRunning
	p.groupID = groupID
	p.view = nil
	p.mu.Unlock()
	p.waitDelivery()

	p.logger.Debug("metrics poller opened", "group", groupID, "interval", p.interval)
	p.fetch(ctx, gen, groupID)

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another Open or Stop may have happened during the fetch.
	if p.gen != gen {
		return
	}
	p.timer = p.sched.Every(p.interval, func() {
		p.fetch(ctx, gen, groupID)
	})
}

// Stop cancels the timer and clears the displayed metrics. When Stop
// returns, no result for the previous group will reach OnUpdate.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	p.stopLocked()
	p.gen++
	p.state = StateStopped
	p.logger.Debug("metrics poller stopped", "group", p.groupID)
	p.groupID = ""
	p.view = nil
	p.mu.Unlock()
	p.waitDelivery()
}

// waitDelivery blocks until an in-progress OnUpdate call has returned.
// Callers bump the generation first, so later deliveries see it.
func (p *Poller) waitDelivery() {
	p.deliverMu.Lock()
	p.deliverMu.Unlock()
}

func (p *Poller) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// fetch runs one metrics request without holding the lock. Failures are
// logged and counted; the panel keeps its previous value.
func (p *Poller) fetch(ctx context.Context, gen uint64, groupID string) {
	p.mu.Lock()
	p.stats.Fetches++
	p.mu.Unlock()

	snap, err := p.fetcher.Metrics(ctx, groupID)

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if err != nil {
		p.stats.Failures++
		p.mu.Unlock()
		p.logger.Debug("metrics fetch failed", "group", groupID, "error", err)
		return
	}
	if p.gen != gen || p.state != StateRunning {
		p.stats.Discarded++
		p.mu.Unlock()
		p.logger.Debug("discarding stale metrics", "group", groupID)
		return
	}

	view := MetricsView{
		GroupID:   groupID,
		Snapshot:  snap,
		Flags:     snap.Flags(p.thresholds),
		UpdatedAt: p.now(),
	}
	p.view = &view
	onUpdate := p.onUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(view)
	}
}

// State returns the lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Group returns the group being polled, or "" when stopped.
func (p *Poller) Group() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.groupID
}

// Snapshot returns the last applied metrics for the open group.
func (p *Poller) Snapshot() (MetricsView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view == nil {
		return MetricsView{}, false
	}
	return *p.view, true
}

// Stats returns activity counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
