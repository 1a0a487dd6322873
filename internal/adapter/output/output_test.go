package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/rlxui/internal/core"
	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
	"github.com/jmylchreest/rlxui/internal/session"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testOptions() FormatterOptions {
	opts := DefaultFormatterOptions()
	opts.Now = func() time.Time { return now }
	return opts
}

func testView() core.View {
	log := model.Log{
		&model.Message{Header: model.Header{MsgID: "m0", TS: now.Add(-2 * time.Hour)}, Author: "ana", Text: "hola"},
		&model.Alert{Header: model.Header{MsgID: "a1", TS: now.Add(-5 * time.Minute)}, AlertType: model.AlertTypeArousalSpike, Rationale: "z=2.1"},
		&model.DailySummary{
			Header:  model.Header{MsgID: "d2", TS: now.Add(-time.Minute)},
			Topics:  []string{"launch"},
			Actions: []model.ActionItem{{Assignee: "ana", Task: "ship v2"}},
		},
	}
	return core.Render(log, "a1")
}

func testGroups() []session.GroupStatus {
	return []session.GroupStatus{
		{Group: model.Group{ID: "alpha", LastModified: now.Add(-3 * time.Hour), HasRecentAlerts: true}, Unseen: true},
		{Group: model.Group{ID: "beta", LastModified: now.Add(-10 * time.Minute)}, Seen: true, LastSeen: now},
	}
}

func testMetrics() poller.MetricsView {
	return poller.MetricsView{
		GroupID:   "alpha",
		Snapshot:  model.MetricsSnapshot{FrictionIndex: 0.31, ArousalZ: 0.2, ValenceZ: -0.7},
		Flags:     model.MetricsFlags{FrictionHigh: true, ValenceLow: true},
		UpdatedAt: now,
	}
}

func testPoints() []model.AffectivePoint {
	return []model.AffectivePoint{
		{TS: now.Add(-3 * time.Hour), ArousalZ: -1},
		{TS: now.Add(-2 * time.Hour), ArousalZ: 0},
		{TS: now.Add(-time.Hour), ArousalZ: 1},
	}
}

func TestPlainFormatter_View(t *testing.T) {
	var buf bytes.Buffer
	err := NewPlainFormatter(testOptions()).FormatView(&buf, "alpha", testView())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "alpha (3 entries)")
	assert.Contains(t, out, "[1] message ana")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "    hola\n")
	assert.Contains(t, out, "Topics:")
	assert.Contains(t, out, "      - ana: ship v2\n")
	assert.NotContains(t, out, "Decisions")

	lines := strings.Split(out, "\n")
	var anchorLine string
	for _, l := range lines {
		if strings.Contains(l, AnchorMarker) {
			anchorLine = l
		}
	}
	assert.Contains(t, anchorLine, "arousal_spike_detected", "anchor marks the alert")
}

func TestPlainFormatter_EmptyView(t *testing.T) {
	var buf bytes.Buffer
	err := NewPlainFormatter(testOptions()).FormatView(&buf, "alpha", core.Render(nil, ""))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), core.NoMessagesPlaceholder)
}

func TestPlainFormatter_CustomTemplate(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Index}} {{kindIcon .Record.Kind}} {{.Record.Key}} {{reltime .Record.Timestamp}}\n"

	var buf bytes.Buffer
	err := NewPlainFormatter(opts).FormatView(&buf, "alpha", testView())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "1 - m0 2h", lines[1])
	assert.Equal(t, "2 ! a1 5m", lines[2])
	assert.Equal(t, "3 # d2 1m", lines[3])
}

func TestPlainFormatter_Groups(t *testing.T) {
	var buf bytes.Buffer
	err := NewPlainFormatter(testOptions()).FormatGroups(&buf, testGroups())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[1] alpha")
	assert.Contains(t, lines[0], "modified 3 hours ago")
	assert.Contains(t, lines[0], "[new alerts]")
	assert.NotContains(t, lines[1], "[new alerts]")

	buf.Reset()
	require.NoError(t, NewPlainFormatter(testOptions()).FormatGroups(&buf, nil))
	assert.Equal(t, "No groups.\n", buf.String())
}

func TestPlainFormatter_History(t *testing.T) {
	var buf bytes.Buffer
	err := NewPlainFormatter(testOptions()).FormatHistory(&buf, "alpha", testPoints())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "▁▅█")
	assert.Contains(t, out, "-1.00")
	assert.Contains(t, out, "1 hour ago")

	buf.Reset()
	require.NoError(t, NewPlainFormatter(testOptions()).FormatHistory(&buf, "alpha", nil))
	assert.Equal(t, "alpha: no arousal samples\n", buf.String())
}

func TestMetricsLine(t *testing.T) {
	assert.Equal(t, "friction 0.31 [HIGH]  arousal 0.20  valence -0.70 [LOW]", MetricsLine(testMetrics()))

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).FormatMetrics(&buf, poller.MetricsView{}))
	assert.Equal(t, "friction 0.00  arousal 0.00  valence 0.00\n", buf.String())
}

func TestSparkline(t *testing.T) {
	assert.Empty(t, Sparkline(nil))
	assert.Equal(t, "▁▁", Sparkline([]model.AffectivePoint{{ArousalZ: 2}, {ArousalZ: 2}}))
	assert.Equal(t, "▁▅█", Sparkline(testPoints()))
}

func TestJSONFormatter_View(t *testing.T) {
	var buf bytes.Buffer
	err := NewJSONFormatter(testOptions()).FormatView(&buf, "alpha", testView())
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "alpha", result["group_id"])
	assert.Equal(t, "a1", result["anchor_id"])
	records, ok := result["records"].([]any)
	require.True(t, ok)
	require.Len(t, records, 3)
	first := records[0].(map[string]any)
	assert.Equal(t, "message", first["kind"])
}

func TestJSONFormatter_EmptyCollections(t *testing.T) {
	f := NewJSONFormatter(testOptions())

	var buf bytes.Buffer
	require.NoError(t, f.FormatGroups(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, f.FormatHistory(&buf, "alpha", nil))
	assert.Contains(t, buf.String(), `"points": []`)

	buf.Reset()
	require.NoError(t, f.FormatView(&buf, "alpha", core.View{Empty: true}))
	assert.Contains(t, buf.String(), `"records": []`)
}

func TestJSONFormatter_Groups(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).FormatGroups(&buf, testGroups()))

	var result []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "alpha", result[0]["group_id"])
	assert.Equal(t, true, result[0]["unseen_alerts"])
	assert.Equal(t, true, result[0]["has_recent_alerts"])
}

func TestYAMLFormatter(t *testing.T) {
	f := NewYAMLFormatter(testOptions())

	var buf bytes.Buffer
	require.NoError(t, f.FormatView(&buf, "alpha", testView()))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "alpha", doc["group_id"])
	assert.Equal(t, "a1", doc["scroll_target"])
	records := doc["records"].([]any)
	assert.Equal(t, "alert", records[1].(map[string]any)["kind"])

	buf.Reset()
	require.NoError(t, f.FormatMetrics(&buf, testMetrics()))
	assert.Contains(t, buf.String(), "friction_index: 0.31")
	assert.Contains(t, buf.String(), "friction_high: true")

	buf.Reset()
	require.NoError(t, f.FormatGroups(&buf, testGroups()))
	assert.Contains(t, buf.String(), "- group_id: alpha")
}

func TestMarshalRecord(t *testing.T) {
	v := testView()
	out, err := MarshalRecord(v.Records[1])
	require.NoError(t, err)
	assert.Contains(t, out, "key: a1")
	assert.Contains(t, out, "kind: alert")
	assert.Contains(t, out, "anchor: true")
}

func TestDmenuFormatter(t *testing.T) {
	f := NewDmenuFormatter(testOptions())

	var buf bytes.Buffer
	require.NoError(t, f.FormatView(&buf, "alpha", testView()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1 | 2h | message | ana: hola", lines[0])
	assert.Equal(t, "2 | 5m | alert | "+AnchorMarker+" arousal_spike_detected: z=2.1", lines[1])
	assert.Equal(t, "3 | 1m | daily_summary | Daily summary: Topics: launch; Actions: ana: ship v2", lines[2])

	buf.Reset()
	require.NoError(t, f.FormatGroups(&buf, testGroups()))
	assert.Equal(t, "1 | 3h | alpha !\n2 | 10m | beta\n", buf.String())
}

func TestDmenuFormatter_NoIndex(t *testing.T) {
	opts := testOptions()
	opts.ShowIndex = false
	opts.ShowTime = false
	opts.Separator = "\t"

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).FormatGroups(&buf, testGroups()))
	assert.Equal(t, "alpha !\nbeta\n", buf.String())
}

func TestIDsFormatter(t *testing.T) {
	f := NewIDsFormatter()

	var buf bytes.Buffer
	require.NoError(t, f.FormatGroups(&buf, testGroups()))
	assert.Equal(t, "alpha\nbeta\n", buf.String())

	buf.Reset()
	require.NoError(t, f.FormatView(&buf, "alpha", testView()))
	assert.Equal(t, "m0\na1\nd2\n", buf.String())
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()

	t.Run("json", func(t *testing.T) {
		_, ok := NewFormatter(FormatJSON, opts).(*JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("yaml", func(t *testing.T) {
		_, ok := NewFormatter(FormatYAML, opts).(*YAMLFormatter)
		assert.True(t, ok)
	})

	t.Run("dmenu", func(t *testing.T) {
		_, ok := NewFormatter(FormatDmenu, opts).(*DmenuFormatter)
		assert.True(t, ok)
	})

	t.Run("ids", func(t *testing.T) {
		_, ok := NewFormatter(FormatIDs, opts).(*IDsFormatter)
		assert.True(t, ok)
	})

	t.Run("default", func(t *testing.T) {
		_, ok := NewFormatter("unknown", opts).(*PlainFormatter)
		assert.True(t, ok) // defaults to plain
	})
}

func TestSanitizeBody(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		maxLen         int
		includeNewline bool
		expected       string
	}{
		{"simple", "hello world", 0, false, "hello world"},
		{"with newlines", "hello\nworld", 0, false, "hello world"},
		{"preserve newlines", "hello\nworld", 0, true, "hello\nworld"},
		{"truncate", "hello world", 8, false, "hello..."},
		{"multiple spaces", "hello   world", 0, false, "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeBody(tt.body, tt.maxLen, tt.includeNewline)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		name     string
		ts       time.Time
		expected string
	}{
		{"zero", time.Time{}, "unknown"},
		{"now", now, "now"},
		{"30 seconds", now.Add(-30 * time.Second), "now"},
		{"5 minutes", now.Add(-5 * time.Minute), "5m"},
		{"2 hours", now.Add(-2 * time.Hour), "2h"},
		{"3 days", now.Add(-72 * time.Hour), "3d"},
		{"2 weeks", now.Add(-14 * 24 * time.Hour), "2w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, relativeTime(tt.ts, now))
		})
	}
}
