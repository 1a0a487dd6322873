package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGroupID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"project-a", true},
		{"Team_42", true},
		{"x", true},
		{"", false},
		{"with space", false},
		{"slash/name", false},
		{"ñandú", false},
		{"dot.name", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateGroupID(tt.id)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidGroupID)
			}
		})
	}
}

func TestGroup_UnmarshalJSON(t *testing.T) {
	var resp struct {
		Groups []Group `json:"groups"`
	}
	data := `{"groups":[
		{"group_id":"alpha","last_modified":"2024-05-01T10:00:00.5","has_recent_alerts":true},
		{"group_id":"beta","last_modified":"","has_recent_alerts":false}
	]}`

	require.NoError(t, json.Unmarshal([]byte(data), &resp))
	require.Len(t, resp.Groups, 2)

	assert.Equal(t, "alpha", resp.Groups[0].ID)
	assert.True(t, resp.Groups[0].HasRecentAlerts)
	assert.True(t, resp.Groups[0].LastModified.Equal(time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC)))

	assert.Equal(t, "beta", resp.Groups[1].ID)
	assert.True(t, resp.Groups[1].LastModified.IsZero())
}

func TestGroup_UnmarshalJSON_BadTimestamp(t *testing.T) {
	var g Group
	err := json.Unmarshal([]byte(`{"group_id":"alpha","last_modified":"tuesday"}`), &g)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestMetricsSnapshot_UnmarshalAndFlags(t *testing.T) {
	var m MetricsSnapshot
	data := `{"friction_index":0.31,"affective_proxy":{"arousal_z":1.2,"valence_z":-0.2}}`
	require.NoError(t, json.Unmarshal([]byte(data), &m))

	assert.InDelta(t, 0.31, m.FrictionIndex, 1e-9)
	assert.InDelta(t, 1.2, m.ArousalZ, 1e-9)
	assert.InDelta(t, -0.2, m.ValenceZ, 1e-9)

	flags := m.Flags(DefaultThresholds())
	assert.True(t, flags.FrictionHigh)
	assert.True(t, flags.ArousalHigh)
	assert.False(t, flags.ValenceLow)
	assert.True(t, flags.Any())
	assert.Equal(t, "0.31", FormatMetric(m.FrictionIndex))
}

func TestMetricsFlags_Boundaries(t *testing.T) {
	th := DefaultThresholds()

	// Thresholds are strict comparisons.
	flags := MetricsSnapshot{FrictionIndex: 0.25, ArousalZ: 1.0, ValenceZ: -0.5}.Flags(th)
	assert.False(t, flags.Any())

	flags = MetricsSnapshot{FrictionIndex: 0.2501, ArousalZ: 1.01, ValenceZ: -0.51}.Flags(th)
	assert.Equal(t, MetricsFlags{FrictionHigh: true, ArousalHigh: true, ValenceLow: true}, flags)
}

func TestAffectivePoint_UnmarshalJSON(t *testing.T) {
	var pts []AffectivePoint
	require.NoError(t, json.Unmarshal([]byte(`[{"ts":"2024-05-01T10:00:00Z","arousal_z":0.4}]`), &pts))
	require.Len(t, pts, 1)
	assert.InDelta(t, 0.4, pts[0].ArousalZ, 1e-9)

	err := json.Unmarshal([]byte(`[{"ts":"bad","arousal_z":0.4}]`), &pts)
	assert.Error(t, err)
}
