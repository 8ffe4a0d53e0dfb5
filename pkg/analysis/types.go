package analysis

import (
	"time"
)

// Tier is the latency class a worker belongs to.
type Tier string

const (
	TierFast     Tier = "fast"
	TierResearch Tier = "research"
)

// Priority of an insight. Anything else is ranked as PriorityLow.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting, higher first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// DefaultConfidence is used whenever an insight or result omits its confidence.
const DefaultConfidence = 0.5

// TextAnchor points at a half-open rune range [Start, End) of one document version.
type TextAnchor struct {
	Start        int      `json:"start"`
	End          int      `json:"end"`
	Text         string   `json:"text"`
	Similarity   *float64 `json:"similarity,omitempty"`
	OriginalText string   `json:"original_text,omitempty"`
}

// Len returns the size of the anchored range.
func (a TextAnchor) Len() int {
	return a.End - a.Start
}

// WithinLength reports whether the range fits a document of docLen runes.
func (a TextAnchor) WithinLength(docLen int) bool {
	return a.Start >= 0 && a.End <= docLen && a.Start <= a.End
}

// Insight is a single finding produced by a worker.
type Insight struct {
	Type        string       `json:"type"`
	Priority    Priority     `json:"priority"`
	Confidence  *float64     `json:"confidence,omitempty"`
	Title       string       `json:"title"`
	Feedback    string       `json:"feedback"`
	Suggestion  string       `json:"suggestion,omitempty"`
	Anchors     []TextAnchor `json:"anchors,omitempty"`
	Enhancement bool         `json:"enhancement,omitempty"`
	Source      string       `json:"source,omitempty"`
}

// ConfidenceOrDefault returns the insight confidence, DefaultConfidence when unset.
func (i Insight) ConfidenceOrDefault() float64 {
	if i.Confidence == nil {
		return DefaultConfidence
	}
	return *i.Confidence
}

// Clone deep-copies the insight so callers can tag it without aliasing.
func (i Insight) Clone() Insight {
	out := i
	if i.Confidence != nil {
		c := *i.Confidence
		out.Confidence = &c
	}
	if i.Anchors != nil {
		out.Anchors = make([]TextAnchor, len(i.Anchors))
		for k, a := range i.Anchors {
			out.Anchors[k] = a.Clone()
		}
	}
	return out
}

// Clone deep-copies the anchor.
func (a TextAnchor) Clone() TextAnchor {
	out := a
	if a.Similarity != nil {
		s := *a.Similarity
		out.Similarity = &s
	}
	return out
}

// WorkerResult is what a worker resolves to.
type WorkerResult struct {
	Insights   []Insight `json:"insights"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// WorkerOutcome records how a single worker invocation settled.
type WorkerOutcome struct {
	WorkerID   string        `json:"worker_id"`
	Success    bool          `json:"success"`
	Result     *WorkerResult `json:"result,omitempty"`
	Err        error         `json:"-"`
	ErrMessage string        `json:"error,omitempty"`
	Tier       Tier          `json:"tier"`
	Duration   time.Duration `json:"duration"`
}

// Float is a small helper for optional confidence/similarity fields.
func Float(v float64) *float64 {
	return &v
}
