// Package suggestion owns the UI-facing lifecycle of anchored insights:
// creation against a document, resolve/dismiss/retract transitions, and
// keeping anchors valid while the document is edited.
package suggestion

import (
	"errors"
	"fmt"
	"time"

	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/similarity"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusResolved  Status = "resolved"
	StatusRetracted Status = "retracted"
	StatusDismissed Status = "dismissed"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s != StatusActive
}

var (
	ErrInvalidTransition = errors.New("invalid suggestion status transition")
	ErrNoValidAnchor     = errors.New("insight has no anchor inside the document")
)

// Suggestion wraps an insight anchored to the current document version.
type Suggestion struct {
	ID           string                `json:"id"`
	DocumentID   string                `json:"document_id"`
	AnalysisID   string                `json:"analysis_id"`
	Insight      analysis.Insight      `json:"insight"`
	Anchors      []analysis.TextAnchor `json:"anchors"`
	Status       Status                `json:"status"`
	StatusReason string                `json:"status_reason,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// New anchors insight to doc. Anchors whose range no longer denotes their
// text are looked up again with the similarity matcher; anchors that cannot
// be placed are dropped.
func New(documentID, analysisID string, insight analysis.Insight, doc string, threshold float64) (*Suggestion, error) {
	docRunes := []rune(doc)

	var anchors []analysis.TextAnchor
	for _, a := range insight.Anchors {
		if placed, ok := place(docRunes, doc, a, threshold); ok {
			anchors = append(anchors, placed)
		}
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%s: %w", insight.Title, ErrNoValidAnchor)
	}

	now := time.Now()
	in := insight.Clone()
	in.Anchors = nil
	return &Suggestion{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		AnalysisID: analysisID,
		Insight:    in,
		Anchors:    anchors,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// FromInsights builds suggestions for every insight that can be anchored.
func FromInsights(documentID, analysisID, doc string, insights []analysis.Insight, threshold float64) []*Suggestion {
	var out []*Suggestion
	for _, in := range insights {
		if len(in.Anchors) == 0 {
			continue
		}
		s, err := New(documentID, analysisID, in, doc, threshold)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func place(docRunes []rune, doc string, a analysis.TextAnchor, threshold float64) (analysis.TextAnchor, bool) {
	if a.WithinLength(len(docRunes)) && a.Start < a.End {
		span := string(docRunes[a.Start:a.End])
		if a.Text == "" || a.Text == span {
			out := a.Clone()
			out.Text = span
			return out, true
		}
	}
	if a.Text == "" {
		return analysis.TextAnchor{}, false
	}

	matches := similarity.FindTextSnippet(doc, a.Text, threshold)
	if len(matches) == 0 {
		return analysis.TextAnchor{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if absInt(m.Start-a.Start) < absInt(best.Start-a.Start) {
			best = m
		}
	}
	out := best.Anchor()
	if a.OriginalText != "" {
		out.OriginalText = a.OriginalText
	}
	return out, true
}

// Clone returns a deep copy.
func (s *Suggestion) Clone() *Suggestion {
	out := *s
	out.Insight = s.Insight.Clone()
	out.Anchors = make([]analysis.TextAnchor, len(s.Anchors))
	for i, a := range s.Anchors {
		out.Anchors[i] = a.Clone()
	}
	return &out
}

func (s *Suggestion) Resolve() error {
	return s.transition(StatusResolved, "")
}

func (s *Suggestion) Dismiss() error {
	return s.transition(StatusDismissed, "")
}

func (s *Suggestion) Retract(reason string) error {
	return s.transition(StatusRetracted, reason)
}

// transition enforces monotonic status: active may move anywhere, active to
// active is a no-op, terminal statuses never change.
func (s *Suggestion) transition(to Status, reason string) error {
	if s.Status == to && to == StatusActive {
		return nil
	}
	if s.Status.Terminal() || to == StatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	s.StatusReason = reason
	s.UpdatedAt = time.Now()
	return nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
