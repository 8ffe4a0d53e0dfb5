package suggestion

import (
	"testing"

	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/changes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeWordDoc = "aaaa bbbb cccc dddd eeee"

func threeAnchorSuggestion(t *testing.T) *Suggestion {
	t.Helper()
	s, err := New("doc", "analysis", insightAt("repeated",
		analysis.TextAnchor{Start: 0, End: 4, Text: "aaaa"},
		analysis.TextAnchor{Start: 10, End: 14, Text: "cccc"},
		analysis.TextAnchor{Start: 20, End: 24, Text: "eeee"},
	), threeWordDoc, 0.8)
	require.NoError(t, err)
	require.Len(t, s.Anchors, 3)
	return s
}

func editTo(t *testing.T, oldDoc, newDoc string) []changes.DocumentEdit {
	t.Helper()
	e, changed := changes.Diff(oldDoc, newDoc)
	require.True(t, changed)
	return []changes.DocumentEdit{e}
}

func TestUpdateAnchors_MajorityRetractsSuggestion(t *testing.T) {
	s := threeAnchorSuggestion(t)
	newDoc := "ddd eeee"

	out := UpdateAnchors([]*Suggestion{s}, editTo(t, threeWordDoc, newDoc), newDoc, 0.8)

	require.Len(t, out, 1)
	assert.Equal(t, StatusRetracted, out[0].Status)
	assert.NotEmpty(t, out[0].StatusReason)
	// input untouched
	assert.Equal(t, StatusActive, s.Status)
	assert.Len(t, s.Anchors, 3)
}

func TestUpdateAnchors_MinorityDropsAnchor(t *testing.T) {
	s := threeAnchorSuggestion(t)
	newDoc := "aaaa bbbb dddd eeee"

	out := UpdateAnchors([]*Suggestion{s}, editTo(t, threeWordDoc, newDoc), newDoc, 0.8)

	require.Len(t, out, 1)
	assert.Equal(t, StatusActive, out[0].Status)
	require.Len(t, out[0].Anchors, 2)
	assert.Equal(t, "aaaa", out[0].Anchors[0].Text)
	assert.Equal(t, 15, out[0].Anchors[1].Start)
	assert.Equal(t, 19, out[0].Anchors[1].End)
	assert.Equal(t, "eeee", out[0].Anchors[1].Text)
}

func TestUpdateAnchors_ShiftKeepsText(t *testing.T) {
	doc := "The quick brown fox"
	s, err := New("doc", "analysis", insightAt("fox", analysis.TextAnchor{Start: 16, End: 19, Text: "fox"}), doc, 0.8)
	require.NoError(t, err)

	newDoc := "Look! The quick brown fox"
	out := UpdateAnchors([]*Suggestion{s}, editTo(t, doc, newDoc), newDoc, 0.8)

	require.Len(t, out, 1)
	assert.Equal(t, StatusActive, out[0].Status)
	assert.Equal(t, 22, out[0].Anchors[0].Start)
	assert.Equal(t, "fox", out[0].Anchors[0].Text)
}

func TestUpdateAnchors_AdjustedAnchorFollowsEdit(t *testing.T) {
	doc := "The quick brown fox jumps"
	s, err := New("doc", "analysis", insightAt("phrase", analysis.TextAnchor{Start: 4, End: 19, Text: "quick brown fox"}), doc, 0.8)
	require.NoError(t, err)

	newDoc := "The quick very brown fox jumps"
	out := UpdateAnchors([]*Suggestion{s}, editTo(t, doc, newDoc), newDoc, 0.9)

	require.Len(t, out, 1)
	assert.Equal(t, StatusActive, out[0].Status)
	require.Len(t, out[0].Anchors, 1)
	assert.Equal(t, 4, out[0].Anchors[0].Start)
	assert.Equal(t, 24, out[0].Anchors[0].End)
	assert.Equal(t, "quick very brown fox", out[0].Anchors[0].Text)
}

func TestUpdateAnchors_TerminalSuggestionsUntouched(t *testing.T) {
	s := threeAnchorSuggestion(t)
	require.NoError(t, s.Dismiss())
	newDoc := "ddd eeee"

	out := UpdateAnchors([]*Suggestion{s}, editTo(t, threeWordDoc, newDoc), newDoc, 0.8)

	assert.Equal(t, StatusDismissed, out[0].Status)
	assert.Len(t, out[0].Anchors, 3)
}

func TestNeedsReEvaluation_OnlyActive(t *testing.T) {
	s := threeAnchorSuggestion(t)
	edits := []changes.DocumentEdit{{Type: changes.EditInsert, OldStart: 12, OldEnd: 12, NewStart: 12, NewEnd: 13, Delta: 1}}

	assert.True(t, NeedsReEvaluation(s, edits))

	require.NoError(t, s.Resolve())
	assert.False(t, NeedsReEvaluation(s, edits))
	assert.False(t, NeedsReEvaluation(nil, edits))
}
