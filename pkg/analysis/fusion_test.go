package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(id string, conf *float64, insights ...Insight) WorkerOutcome {
	return WorkerOutcome{WorkerID: id, Success: true, Result: &WorkerResult{Insights: insights, Confidence: conf}}
}

func TestSortInsights(t *testing.T) {
	insights := []Insight{
		{Title: "low", Priority: PriorityLow},
		{Title: "medium-weak", Priority: PriorityMedium, Confidence: Float(0.4)},
		{Title: "high", Priority: PriorityHigh},
		{Title: "medium-strong", Priority: PriorityMedium, Confidence: Float(0.9)},
		{Title: "unknown", Priority: "urgent"},
	}

	SortInsights(insights)

	titles := make([]string, len(insights))
	for i, in := range insights {
		titles[i] = in.Title
	}
	assert.Equal(t, []string{"high", "medium-strong", "medium-weak", "low", "unknown"}, titles)
}

func TestMergeFast(t *testing.T) {
	res := MergeFast([]WorkerOutcome{
		ok("grammar", Float(0.8), Insight{Type: "grammar", Priority: PriorityLow, Title: "a"}),
		ok("clarity", Float(0.6), Insight{Type: "clarity", Priority: PriorityHigh, Title: "b"}),
		{WorkerID: "failed", Success: false},
	})

	require.Len(t, res.Insights, 2)
	assert.Equal(t, "b", res.Insights[0].Title)
	assert.Equal(t, "clarity", res.Insights[0].Source)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
}

func TestMergeFast_DefaultConfidence(t *testing.T) {
	res := MergeFast([]WorkerOutcome{ok("a", nil)})

	assert.NotNil(t, res.Insights)
	assert.Empty(t, res.Insights)
	assert.Equal(t, DefaultConfidence, res.Confidence)
}

func TestCombine_WeightsResearch(t *testing.T) {
	fastRes := FastResult{
		Insights:   []Insight{{Type: "grammar", Priority: PriorityLow, Title: "fast"}},
		Confidence: 0.6,
	}
	research := []WorkerOutcome{
		ok("structure", Float(0.8), Insight{Type: "structure", Priority: PriorityHigh, Title: "deep"}),
		ok("evidence", Float(0.9)),
		{WorkerID: "failed", Success: false},
	}

	fused := Combine(fastRes, research)

	assert.InDelta(t, 0.775, fused.Confidence, 1e-9)
	assert.True(t, fused.ResearchAvailable)
	assert.Equal(t, 1, fused.FastCount)
	assert.Equal(t, 1, fused.EnhancementCount)
	assert.Equal(t, []string{"structure", "evidence"}, fused.ResearchSources)
	require.Len(t, fused.Insights, 2)
	assert.Equal(t, "deep", fused.Insights[0].Title)
	assert.True(t, fused.Insights[0].Enhancement)
	assert.Equal(t, "structure", fused.Insights[0].Source)
	assert.False(t, fused.Insights[1].Enhancement)
}

func TestCombine_WithoutResearchKeepsFastOrder(t *testing.T) {
	fastRes := FastResult{
		Insights: []Insight{
			{Title: "first", Priority: PriorityLow},
			{Title: "second", Priority: PriorityHigh},
		},
		Confidence: 0.42,
	}

	fused := Combine(fastRes, nil)

	assert.Equal(t, "first", fused.Insights[0].Title)
	assert.Equal(t, 0.42, fused.Confidence)
	assert.False(t, fused.ResearchAvailable)
	assert.Zero(t, fused.EnhancementCount)
}

func TestCombine_DoesNotMutateInputs(t *testing.T) {
	insight := Insight{Type: "structure", Title: "deep", Confidence: Float(0.5)}
	research := []WorkerOutcome{ok("structure", Float(0.8), insight)}
	fastRes := FastResult{Confidence: 0.5}

	first := Combine(fastRes, research)
	second := Combine(fastRes, research)

	assert.False(t, research[0].Result.Insights[0].Enhancement)
	assert.Empty(t, research[0].Result.Insights[0].Source)
	assert.Equal(t, first, second)
}

func TestCombinedConfidence(t *testing.T) {
	assert.Equal(t, 0.4, CombinedConfidence(0.4, nil))
	assert.InDelta(t, 0.3*0.5+0.7*1.0, CombinedConfidence(0.5, []float64{1}), 1e-9)
}

func TestImprovement(t *testing.T) {
	fastRes := FastResult{
		Insights:   []Insight{{Type: "grammar"}},
		Confidence: 0.5,
	}
	fused := FusedResult{
		Insights:   []Insight{{Type: "grammar"}, {Type: "structure"}, {Type: "evidence"}, {Type: "structure"}},
		Confidence: 0.8,
	}

	imp := Improvement(fastRes, fused)

	assert.Equal(t, 3, imp.InsightCountDelta)
	assert.InDelta(t, 0.3, imp.ConfidenceDelta, 1e-9)
	assert.Equal(t, []string{"evidence", "structure"}, imp.NewCategories)
}
