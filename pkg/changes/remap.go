package changes

import "ai-critic-be/pkg/analysis"

const (
	// RetractThreshold is the share of an anchor an edit may overlap before
	// the anchor is no longer trusted.
	RetractThreshold = 0.3

	// ReEvaluationRadius is how close a length-changing edit must come to an
	// anchor boundary to make the anchored insight worth re-checking.
	ReEvaluationRadius = 50
)

// RemapStatus tells what an edit list did to an anchor.
type RemapStatus string

const (
	StatusUnchanged RemapStatus = "unchanged"
	StatusShifted   RemapStatus = "shifted"
	StatusAdjusted  RemapStatus = "adjusted"
	StatusRetracted RemapStatus = "retracted"
)

func (s RemapStatus) weight() int {
	switch s {
	case StatusRetracted:
		return 3
	case StatusAdjusted:
		return 2
	case StatusShifted:
		return 1
	default:
		return 0
	}
}

// RemapResult is one anchor after an edit list was applied.
// RetractedBy is the index of the retracting edit, or -1.
type RemapResult struct {
	Anchor      analysis.TextAnchor `json:"anchor"`
	Status      RemapStatus         `json:"status"`
	RetractedBy int                 `json:"retracted_by"`
}

// Remap moves every anchor through edits, applied in order; each edit is
// expressed in the coordinates produced by the one before it. Inputs are not
// modified. A retracted anchor keeps its last valid position.
func Remap(anchors []analysis.TextAnchor, edits []DocumentEdit) []RemapResult {
	out := make([]RemapResult, len(anchors))
	for i, a := range anchors {
		res := RemapResult{Anchor: a.Clone(), Status: StatusUnchanged, RetractedBy: -1}
		for k, e := range edits {
			next, status := ApplyEdit(res.Anchor, e)
			if status == StatusRetracted {
				res.Status = StatusRetracted
				res.RetractedBy = k
				break
			}
			res.Anchor = next
			if status.weight() > res.Status.weight() {
				res.Status = status
			}
		}
		out[i] = res
	}
	return out
}

// ApplyEdit moves a single anchor through a single edit.
func ApplyEdit(a analysis.TextAnchor, e DocumentEdit) (analysis.TextAnchor, RemapStatus) {
	out := a.Clone()

	// edit entirely before the anchor
	if e.OldEnd <= a.Start {
		if e.Delta == 0 {
			return out, StatusUnchanged
		}
		out.Start += e.Delta
		out.End += e.Delta
		return out, StatusShifted
	}

	// edit entirely after the anchor
	if e.OldStart >= a.End {
		return out, StatusUnchanged
	}

	size := a.Len()
	if size <= 0 {
		return out, StatusRetracted
	}
	overlap := minInt(a.End, e.OldEnd) - maxInt(a.Start, e.OldStart)
	if overlap < 0 {
		overlap = 0
	}
	if float64(overlap)/float64(size) > RetractThreshold {
		return out, StatusRetracted
	}

	switch {
	case e.OldStart <= a.Start:
		// edit eats into the start of the anchor
		out.Start = e.NewEnd
		out.End = a.End + e.Delta
	case e.OldEnd >= a.End:
		// edit eats into the end of the anchor
		out.End = e.NewStart
	default:
		// edit strictly inside the anchor
		out.End = a.End + e.Delta
	}

	if out.End <= out.Start {
		return a.Clone(), StatusRetracted
	}
	return out, StatusAdjusted
}

// NeedsReEvaluation reports whether any edit overlaps an anchor, or changes
// the document length within ReEvaluationRadius of an anchor boundary.
func NeedsReEvaluation(anchors []analysis.TextAnchor, edits []DocumentEdit) bool {
	current := make([]analysis.TextAnchor, len(anchors))
	copy(current, anchors)

	for _, e := range edits {
		for _, a := range current {
			if touches(a, e) {
				return true
			}
			if e.Delta != 0 && distance(a, e) <= ReEvaluationRadius {
				return true
			}
		}
		for i, a := range current {
			current[i], _ = ApplyEdit(a, e)
		}
	}
	return false
}

func touches(a analysis.TextAnchor, e DocumentEdit) bool {
	if e.OldStart == e.OldEnd {
		return a.Start < e.OldStart && e.OldStart < a.End
	}
	return e.OldStart < a.End && e.OldEnd > a.Start
}

// distance between the edit's old range and the nearest anchor boundary.
func distance(a analysis.TextAnchor, e DocumentEdit) int {
	if e.OldEnd <= a.Start {
		return a.Start - e.OldEnd
	}
	if e.OldStart >= a.End {
		return e.OldStart - a.End
	}
	return 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
