package analysis

import (
	"sort"
)

const (
	fastWeight     = 0.3
	researchWeight = 0.7
)

// FastResult is the merged output of the fast tier.
type FastResult struct {
	Insights   []Insight `json:"insights"`
	Confidence float64   `json:"confidence"`
}

// FusedResult is the merged output of both tiers.
type FusedResult struct {
	Insights          []Insight `json:"insights"`
	Confidence        float64   `json:"confidence"`
	FastCount         int       `json:"fast_count"`
	EnhancementCount  int       `json:"enhancement_count"`
	ResearchSources   []string  `json:"research_sources,omitempty"`
	ResearchAvailable bool      `json:"research_available"`
}

// ImprovementSummary describes what research added over the fast result.
type ImprovementSummary struct {
	InsightCountDelta int      `json:"insight_count_delta"`
	ConfidenceDelta   float64  `json:"confidence_delta"`
	NewCategories     []string `json:"new_categories"`
}

// SortInsights orders insights by priority, then by descending confidence.
// The sort is stable so equal insights keep their input order.
func SortInsights(insights []Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		pi, pj := insights[i].Priority.Rank(), insights[j].Priority.Rank()
		if pi != pj {
			return pi > pj
		}
		return insights[i].ConfidenceOrDefault() > insights[j].ConfidenceOrDefault()
	})
}

// MergeFast folds the fast tier's successful outcomes into one result.
// Confidence is the mean of the reported worker confidences, or
// DefaultConfidence when none reported one.
func MergeFast(outcomes []WorkerOutcome) FastResult {
	var insights []Insight
	var sum float64
	var n int
	for _, o := range outcomes {
		if !o.Success || o.Result == nil {
			continue
		}
		for _, in := range o.Result.Insights {
			c := in.Clone()
			if c.Source == "" {
				c.Source = o.WorkerID
			}
			insights = append(insights, c)
		}
		if o.Result.Confidence != nil {
			sum += *o.Result.Confidence
			n++
		}
	}
	SortInsights(insights)

	conf := DefaultConfidence
	if n > 0 {
		conf = sum / float64(n)
	}
	if insights == nil {
		insights = []Insight{}
	}
	return FastResult{Insights: insights, Confidence: conf}
}

// Combine fuses fast and research output. Inputs are never mutated, so the
// same inputs always produce the same result.
func Combine(fast FastResult, research []WorkerOutcome) FusedResult {
	combined := make([]Insight, 0, len(fast.Insights))
	for _, in := range fast.Insights {
		combined = append(combined, in.Clone())
	}

	var (
		researchConf []float64
		sources      []string
		enhanced     int
	)
	for _, o := range research {
		if !o.Success || o.Result == nil {
			continue
		}
		sources = append(sources, o.WorkerID)
		for _, in := range o.Result.Insights {
			c := in.Clone()
			c.Enhancement = true
			c.Source = o.WorkerID
			combined = append(combined, c)
			enhanced++
		}
		if o.Result.Confidence != nil {
			researchConf = append(researchConf, *o.Result.Confidence)
		}
	}

	if len(sources) == 0 {
		return FusedResult{
			Insights:   combined,
			Confidence: fast.Confidence,
			FastCount:  len(fast.Insights),
		}
	}

	SortInsights(combined)

	return FusedResult{
		Insights:          combined,
		Confidence:        CombinedConfidence(fast.Confidence, researchConf),
		FastCount:         len(fast.Insights),
		EnhancementCount:  enhanced,
		ResearchSources:   sources,
		ResearchAvailable: true,
	}
}

// CombinedConfidence weights research over fast feedback. Without research
// confidences the fast confidence stands alone.
func CombinedConfidence(fast float64, research []float64) float64 {
	if len(research) == 0 {
		return fast
	}
	var sum float64
	for _, c := range research {
		sum += c
	}
	return fastWeight*fast + researchWeight*(sum/float64(len(research)))
}

// Improvement summarizes what the fused result adds over the fast result.
func Improvement(fast FastResult, fused FusedResult) ImprovementSummary {
	known := make(map[string]bool, len(fast.Insights))
	for _, in := range fast.Insights {
		known[in.Type] = true
	}

	newCats := []string{}
	added := make(map[string]bool)
	for _, in := range fused.Insights {
		if known[in.Type] || added[in.Type] {
			continue
		}
		added[in.Type] = true
		newCats = append(newCats, in.Type)
	}
	sort.Strings(newCats)

	return ImprovementSummary{
		InsightCountDelta: len(fused.Insights) - len(fast.Insights),
		ConfidenceDelta:   fused.Confidence - fast.Confidence,
		NewCategories:     newCats,
	}
}
