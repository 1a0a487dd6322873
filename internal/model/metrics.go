package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Default metric thresholds used to flag values in the metrics panel.
const (
	DefaultFrictionHigh = 0.25
	DefaultArousalHigh  = 1.0
	DefaultValenceLow   = -0.5
)

// MetricsSnapshot holds the derived metrics for a group at one poll.
// Snapshots are never persisted.
type MetricsSnapshot struct {
	FrictionIndex float64 `json:"friction_index" yaml:"friction_index"`
	ArousalZ      float64 `json:"arousal_z" yaml:"arousal_z"`
	ValenceZ      float64 `json:"valence_z" yaml:"valence_z"`
}

type wireMetrics struct {
	FrictionIndex  float64 `json:"friction_index"`
	AffectiveProxy struct {
		ArousalZ float64 `json:"arousal_z"`
		ValenceZ float64 `json:"valence_z"`
	} `json:"affective_proxy"`
}

// UnmarshalJSON decodes the service's nested metrics payload.
func (m *MetricsSnapshot) UnmarshalJSON(data []byte) error {
	var w wireMetrics
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.FrictionIndex = w.FrictionIndex
	m.ArousalZ = w.AffectiveProxy.ArousalZ
	m.ValenceZ = w.AffectiveProxy.ValenceZ
	return nil
}

// Thresholds configures when metric values are flagged.
type Thresholds struct {
	Friction float64 `toml:"friction"`  // friction above this is high
	ArousalZ float64 `toml:"arousal_z"` // arousal above this is high
	ValenceZ float64 `toml:"valence_z"` // valence below this is low
}

// DefaultThresholds returns the thresholds used by the web client.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Friction: DefaultFrictionHigh,
		ArousalZ: DefaultArousalHigh,
		ValenceZ: DefaultValenceLow,
	}
}

// MetricsFlags marks which metric values are outside their normal range.
type MetricsFlags struct {
	FrictionHigh bool `json:"friction_high" yaml:"friction_high"`
	ArousalHigh  bool `json:"arousal_high" yaml:"arousal_high"`
	ValenceLow   bool `json:"valence_low" yaml:"valence_low"`
}

// Any reports whether any flag is set.
func (f MetricsFlags) Any() bool {
	return f.FrictionHigh || f.ArousalHigh || f.ValenceLow
}

// Flags evaluates the snapshot against the thresholds.
func (m MetricsSnapshot) Flags(t Thresholds) MetricsFlags {
	return MetricsFlags{
		FrictionHigh: m.FrictionIndex > t.Friction,
		ArousalHigh:  m.ArousalZ > t.ArousalZ,
		ValenceLow:   m.ValenceZ < t.ValenceZ,
	}
}

// FormatMetric formats a metric value the way the panel displays it.
func FormatMetric(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// AffectivePoint is one sample of a group's arousal history.
type AffectivePoint struct {
	TS       time.Time `json:"ts" yaml:"ts"`
	ArousalZ float64   `json:"arousal_z" yaml:"arousal_z"`
}

// UnmarshalJSON accepts the service's ISO-8601 timestamps.
func (p *AffectivePoint) UnmarshalJSON(data []byte) error {
	var w struct {
		TS       string  `json:"ts"`
		ArousalZ float64 `json:"arousal_z"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := ParseTimestamp(w.TS)
	if err != nil {
		return err
	}
	p.TS = ts
	p.ArousalZ = w.ArousalZ
	return nil
}
