package suggestion

import (
	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/changes"
	"ai-critic-be/pkg/similarity"
)

const (
	reasonMajorityRetracted = "most anchors invalidated by an edit"
	reasonNoAnchorLeft      = "no anchor left inside the document"

	// reanchorRadius widens the search region around an adjusted anchor.
	reanchorRadius = 100
)

// UpdateAnchors moves the anchors of every active suggestion through edits
// and returns updated copies; the input suggestions are left untouched.
//
// Per edit, a suggestion loses the anchors the edit retracted. When more
// than half of its anchors are retracted by one edit the whole suggestion is
// retracted. Anchors whose boundary was clipped are searched for again near
// their old place in newDoc.
func UpdateAnchors(suggestions []*Suggestion, edits []changes.DocumentEdit, newDoc string, threshold float64) []*Suggestion {
	docRunes := []rune(newDoc)
	out := make([]*Suggestion, 0, len(suggestions))

	for _, s := range suggestions {
		c := s.Clone()
		if c.Status != StatusActive {
			out = append(out, c)
			continue
		}

		for _, e := range edits {
			results := changes.Remap(c.Anchors, []changes.DocumentEdit{e})

			retracted := 0
			for _, r := range results {
				if r.Status == changes.StatusRetracted {
					retracted++
				}
			}
			if retracted*2 > len(c.Anchors) {
				_ = c.Retract(reasonMajorityRetracted)
				break
			}

			survivors := make([]analysis.TextAnchor, 0, len(results)-retracted)
			for i, r := range results {
				switch r.Status {
				case changes.StatusRetracted:
					continue
				case changes.StatusAdjusted:
					survivors = append(survivors, reanchor(docRunes, c.Anchors[i], r.Anchor, threshold))
				default:
					survivors = append(survivors, r.Anchor)
				}
			}
			c.Anchors = survivors
		}

		if c.Status == StatusActive {
			c.Anchors = refresh(docRunes, c.Anchors)
			if len(c.Anchors) == 0 {
				_ = c.Retract(reasonNoAnchorLeft)
			}
		}
		out = append(out, c)
	}
	return out
}

// NeedsReEvaluation reports whether edits touched an active suggestion
// closely enough that its insight should be checked again.
func NeedsReEvaluation(s *Suggestion, edits []changes.DocumentEdit) bool {
	if s == nil || s.Status != StatusActive {
		return false
	}
	return changes.NeedsReEvaluation(s.Anchors, edits)
}

// reanchor looks for the pre-edit snippet around the adjusted anchor and
// takes the best match when it clears threshold.
func reanchor(doc []rune, before, adjusted analysis.TextAnchor, threshold float64) analysis.TextAnchor {
	snippet := before.OriginalText
	if snippet == "" {
		snippet = before.Text
	}
	if snippet == "" {
		return adjusted
	}

	from := adjusted.Start - reanchorRadius
	if from < 0 {
		from = 0
	}
	to := adjusted.End + reanchorRadius
	if to > len(doc) {
		to = len(doc)
	}
	if from >= to {
		return adjusted
	}

	matches := similarity.FindTextSnippet(string(doc[from:to]), snippet, threshold)
	if len(matches) == 0 {
		return adjusted
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Similarity > best.Similarity {
			best = m
		}
	}
	best.Start += from
	best.End += from
	out := best.Anchor()
	out.OriginalText = snippet
	return out
}

// refresh drops anchors outside the document and re-reads their text.
func refresh(doc []rune, anchors []analysis.TextAnchor) []analysis.TextAnchor {
	kept := make([]analysis.TextAnchor, 0, len(anchors))
	for _, a := range anchors {
		if !a.WithinLength(len(doc)) || a.Start == a.End {
			continue
		}
		a.Text = string(doc[a.Start:a.End])
		kept = append(kept, a)
	}
	return kept
}
