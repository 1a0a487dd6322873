package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/rlxui/internal/model"
)

func sampleLog() model.Log {
	return model.Log{
		msg("m0", t0),
		alert("a1", t0.Add(time.Second), model.AlertTypeArousalSpike),
		&model.DailySummary{
			Header:    model.Header{MsgID: "d2", TS: t0.Add(2 * time.Second)},
			Topics:    []string{"release", "budget"},
			Decisions: nil,
			Actions: []model.ActionItem{
				{Assignee: "ana", Task: "ship v2"},
				{Task: "book room"},
			},
		},
		suggestion("s3", t0.Add(3*time.Second)),
	}
}

func TestRender_PreservesOrderAndKinds(t *testing.T) {
	v := Render(sampleLog(), "a1")

	require.Len(t, v.Records, 4)
	assert.False(t, v.Empty)

	keys := make([]string, 0, len(v.Records))
	for _, r := range v.Records {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"m0", "a1", "d2", "s3"}, keys)

	assert.Equal(t, model.KindMessage, v.Records[0].Kind)
	assert.Equal(t, "ana", v.Records[0].Title)
	assert.Equal(t, "hola", v.Records[0].Body)

	assert.Equal(t, model.KindAlert, v.Records[1].Kind)
	assert.Equal(t, model.AlertTypeArousalSpike, v.Records[1].Title)

	assert.Equal(t, model.KindSuggestion, v.Records[3].Kind)
	assert.Equal(t, "take a break", v.Records[3].Body)
}

func TestRender_MarksOnlyAnchor(t *testing.T) {
	v := Render(sampleLog(), "a1")

	for _, r := range v.Records {
		assert.Equal(t, r.Key == "a1", r.Anchor, r.Key)
	}
	assert.Equal(t, "a1", v.AnchorID)
	assert.Equal(t, "a1", v.ScrollTarget)
}

func TestRender_NoAnchorScrollsToNewest(t *testing.T) {
	v := Render(sampleLog(), "")

	for _, r := range v.Records {
		assert.False(t, r.Anchor)
	}
	assert.Empty(t, v.AnchorID)
	assert.Equal(t, "s3", v.ScrollTarget)
}

func TestRender_UnknownAnchorIgnored(t *testing.T) {
	v := Render(sampleLog(), "gone")
	assert.Empty(t, v.AnchorID)
	assert.Equal(t, "s3", v.ScrollTarget)
}

func TestRender_SummarySections(t *testing.T) {
	v := Render(sampleLog(), "")
	r := v.Records[2]

	assert.Equal(t, model.KindDailySummary, r.Kind)
	// Decisions is empty and must be omitted entirely.
	require.Len(t, r.Sections, 2)
	assert.Equal(t, Section{Title: SectionTopics, Items: []string{"release", "budget"}}, r.Sections[0])
	assert.Equal(t, Section{Title: SectionActions, Items: []string{"ana: ship v2", "book room"}}, r.Sections[1])
}

func TestRender_EmptySummaryHasNoSections(t *testing.T) {
	v := Render(model.Log{summary("d", t0)}, "")
	require.Len(t, v.Records, 1)
	assert.Nil(t, v.Records[0].Sections)
}

func TestRender_EmptyLog(t *testing.T) {
	v := Render(model.Log{}, "")

	assert.True(t, v.Empty)
	assert.Equal(t, NoMessagesPlaceholder, v.Placeholder)
	assert.NotNil(t, v.Records)
	assert.Empty(t, v.Records)
	assert.Empty(t, v.ScrollTarget)
}

func TestRender_Idempotent(t *testing.T) {
	log := sampleLog()

	first := Render(log, "a1")
	second := Render(log, "a1")
	assert.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestRender_DoesNotAliasEntries(t *testing.T) {
	log := sampleLog()
	v := Render(log, "")

	log[2].(*model.DailySummary).Topics[0] = "changed"
	assert.Equal(t, "release", v.Records[2].Sections[0].Items[0])
}

func TestRecord_JSONKind(t *testing.T) {
	v := Render(model.Log{alert("a", t0, "x")}, "a")
	data, err := json.Marshal(v.Records[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"alert"`)
	assert.Contains(t, string(data), `"anchor":true`)
}
