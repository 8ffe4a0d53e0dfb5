package changes

import (
	"testing"

	"ai-critic-be/pkg/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchor(start, end int) analysis.TextAnchor {
	return analysis.TextAnchor{Start: start, End: end}
}

func TestApplyEdit_RetractThreshold(t *testing.T) {
	a := anchor(100, 200)

	// 31 of 100 runes overlapped
	_, status := ApplyEdit(a, DocumentEdit{Type: EditDelete, OldStart: 169, OldEnd: 300, NewStart: 169, NewEnd: 169, Delta: -131})
	assert.Equal(t, StatusRetracted, status)

	// 29 of 100 runes overlapped
	got, status := ApplyEdit(a, DocumentEdit{Type: EditDelete, OldStart: 171, OldEnd: 300, NewStart: 171, NewEnd: 171, Delta: -129})
	assert.Equal(t, StatusAdjusted, status)
	assert.Equal(t, 100, got.Start)
	assert.Equal(t, 171, got.End)
}

func TestApplyEdit(t *testing.T) {
	tests := []struct {
		name       string
		edit       DocumentEdit
		wantStatus RemapStatus
		wantStart  int
		wantEnd    int
	}{
		{
			name:       "insert before shifts",
			edit:       DocumentEdit{Type: EditInsert, OldStart: 10, OldEnd: 10, NewStart: 10, NewEnd: 15, Delta: 5},
			wantStatus: StatusShifted,
			wantStart:  105, wantEnd: 205,
		},
		{
			name:       "insert at anchor start shifts",
			edit:       DocumentEdit{Type: EditInsert, OldStart: 100, OldEnd: 100, NewStart: 100, NewEnd: 103, Delta: 3},
			wantStatus: StatusShifted,
			wantStart:  103, wantEnd: 203,
		},
		{
			name:       "same-length replace before is unchanged",
			edit:       DocumentEdit{Type: EditReplace, OldStart: 10, OldEnd: 20, NewStart: 10, NewEnd: 20},
			wantStatus: StatusUnchanged,
			wantStart:  100, wantEnd: 200,
		},
		{
			name:       "edit after is unchanged",
			edit:       DocumentEdit{Type: EditDelete, OldStart: 200, OldEnd: 250, NewStart: 200, NewEnd: 200, Delta: -50},
			wantStatus: StatusUnchanged,
			wantStart:  100, wantEnd: 200,
		},
		{
			name:       "insert inside grows",
			edit:       DocumentEdit{Type: EditInsert, OldStart: 150, OldEnd: 150, NewStart: 150, NewEnd: 160, Delta: 10},
			wantStatus: StatusAdjusted,
			wantStart:  100, wantEnd: 210,
		},
		{
			name:       "small edit over the start",
			edit:       DocumentEdit{Type: EditReplace, OldStart: 90, OldEnd: 110, NewStart: 90, NewEnd: 95, Delta: -15},
			wantStatus: StatusAdjusted,
			wantStart:  95, wantEnd: 185,
		},
		{
			name:       "anchor swallowed",
			edit:       DocumentEdit{Type: EditDelete, OldStart: 50, OldEnd: 250, NewStart: 50, NewEnd: 50, Delta: -200},
			wantStatus: StatusRetracted,
			wantStart:  100, wantEnd: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, status := ApplyEdit(anchor(100, 200), tt.edit)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStart, got.Start)
			assert.Equal(t, tt.wantEnd, got.End)
		})
	}
}

func TestApplyEdit_EmptyAnchorTouchedIsRetracted(t *testing.T) {
	_, status := ApplyEdit(anchor(10, 10), DocumentEdit{Type: EditDelete, OldStart: 5, OldEnd: 15, NewStart: 5, NewEnd: 5, Delta: -10})
	assert.Equal(t, StatusRetracted, status)
}

func TestRemap_ShiftComposes(t *testing.T) {
	edits := []DocumentEdit{
		{Type: EditInsert, OldStart: 0, OldEnd: 0, NewStart: 0, NewEnd: 4, Delta: 4},
		{Type: EditDelete, OldStart: 2, OldEnd: 5, NewStart: 2, NewEnd: 2, Delta: -3},
	}

	res := Remap([]analysis.TextAnchor{anchor(20, 30)}, edits)

	require.Len(t, res, 1)
	assert.Equal(t, StatusShifted, res[0].Status)
	assert.Equal(t, 21, res[0].Anchor.Start)
	assert.Equal(t, 31, res[0].Anchor.End)
	assert.Equal(t, -1, res[0].RetractedBy)
}

func TestRemap_RecordsRetractingEdit(t *testing.T) {
	in := []analysis.TextAnchor{anchor(0, 10), anchor(40, 50)}
	edits := []DocumentEdit{
		{Type: EditInsert, OldStart: 20, OldEnd: 20, NewStart: 20, NewEnd: 25, Delta: 5},
		{Type: EditDelete, OldStart: 44, OldEnd: 56, NewStart: 44, NewEnd: 44, Delta: -12},
	}

	res := Remap(in, edits)

	require.Len(t, res, 2)
	assert.Equal(t, StatusUnchanged, res[0].Status)
	assert.Equal(t, StatusRetracted, res[1].Status)
	assert.Equal(t, 1, res[1].RetractedBy)
	// last valid position is kept
	assert.Equal(t, 45, res[1].Anchor.Start)
	assert.Equal(t, 55, res[1].Anchor.End)
	// inputs untouched
	assert.Equal(t, 40, in[1].Start)
}

func TestRemap_NoEditsIsIdentity(t *testing.T) {
	in := []analysis.TextAnchor{anchor(3, 9), anchor(12, 20)}

	res := Remap(in, nil)

	for i, r := range res {
		assert.Equal(t, StatusUnchanged, r.Status)
		assert.Equal(t, in[i], r.Anchor)
	}
}

func TestNeedsReEvaluation(t *testing.T) {
	anchors := []analysis.TextAnchor{anchor(100, 120)}

	tests := []struct {
		name string
		edit DocumentEdit
		want bool
	}{
		{
			name: "overlapping edit",
			edit: DocumentEdit{Type: EditReplace, OldStart: 110, OldEnd: 112, NewStart: 110, NewEnd: 112},
			want: true,
		},
		{
			name: "length change nearby",
			edit: DocumentEdit{Type: EditInsert, OldStart: 160, OldEnd: 160, NewStart: 160, NewEnd: 162, Delta: 2},
			want: true,
		},
		{
			name: "length change far away",
			edit: DocumentEdit{Type: EditInsert, OldStart: 400, OldEnd: 400, NewStart: 400, NewEnd: 402, Delta: 2},
			want: false,
		},
		{
			name: "same-length replace nearby",
			edit: DocumentEdit{Type: EditReplace, OldStart: 125, OldEnd: 127, NewStart: 125, NewEnd: 127},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsReEvaluation(anchors, []DocumentEdit{tt.edit}))
		})
	}
}
