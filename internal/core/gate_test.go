package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/rlxui/internal/model"
)

func TestEvaluate(t *testing.T) {
	now := t0.Add(time.Hour)

	tests := []struct {
		name     string
		last     model.LogEntry
		wantNil  bool
		severity Severity
	}{
		{"fresh arousal spike", alert("a", now.Add(-2*time.Second), model.AlertTypeArousalSpike), false, SeverityWarning},
		{"fresh other alert", alert("a", now.Add(-2*time.Second), "valence_drop"), true, 0},
		{"fresh suggestion", suggestion("s", now.Add(-time.Second)), false, SeverityInfo},
		{"fresh message", msg("m", now), true, 0},
		{"fresh summary", summary("d", now), true, 0},
		{"exactly at window", suggestion("s", now.Add(-5*time.Second)), false, SeverityInfo},
		{"just past window", suggestion("s", now.Add(-5*time.Second-time.Millisecond)), true, 0},
		{"stale spike", alert("a", now.Add(-time.Minute), model.AlertTypeArousalSpike), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := model.Log{msg("m0", t0), tt.last}
			n := Evaluate("alpha", log, now, DefaultFreshWindow)
			if tt.wantNil {
				assert.Nil(t, n)
				return
			}
			require.NotNil(t, n)
			assert.Equal(t, tt.severity, n.Severity)
			assert.Equal(t, tt.last.ID(), n.EntryID)
			assert.Equal(t, "alpha", n.GroupID)
		})
	}
}

func TestEvaluate_EmptyLog(t *testing.T) {
	assert.Nil(t, Evaluate("alpha", nil, t0, DefaultFreshWindow))
}

// Only the newest entry matters, even when older unread alerts exist.
func TestEvaluate_IgnoresOlderEntries(t *testing.T) {
	now := t0.Add(2 * time.Second)
	log := model.Log{
		msg("m0", t0),
		alert("a1", t0.Add(time.Second), model.AlertTypeArousalSpike),
		msg("m2", now),
	}

	assert.Nil(t, Evaluate("alpha", log, now, DefaultFreshWindow))

	r := Reconcile(log, t0.Add(-time.Second), true)
	assert.Equal(t, "a1", r.AnchorID)
}

func TestEvaluate_StaleSuppressesEveryKind(t *testing.T) {
	now := t0.Add(time.Hour)
	stale := now.Add(-6 * time.Second)

	for _, e := range []model.LogEntry{
		msg("m", stale),
		alert("a", stale, model.AlertTypeArousalSpike),
		summary("d", stale),
		suggestion("s", stale),
	} {
		assert.Nil(t, Evaluate("alpha", model.Log{e}, now, DefaultFreshWindow), e.Kind().String())
	}
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
}
