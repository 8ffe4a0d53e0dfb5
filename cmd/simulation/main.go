package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/internal/repository/memory"
	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/analysis/session"
	"ai-critic-be/pkg/changes"
	"ai-critic-be/pkg/critic"
	"ai-critic-be/pkg/suggestion"

	"github.com/fatih/color"
)

// Offline run of the progressive engine with simulated research critics.
// No database, broker or LLM is needed.

const document = `The the committee approved the budget after a long debate. ` +
	`Revenue grew by forty percent last year, which proves that the new strategy works in every market we operate in and will continue to work for the foreseeable future regardless of competition or regulation changes.`

type simulatedCritic struct {
	id       string
	tier     analysis.Tier
	delay    time.Duration
	fail     bool
	insights []analysis.Insight
}

func (c *simulatedCritic) ID() string          { return c.id }
func (c *simulatedCritic) Tier() analysis.Tier { return c.tier }

func (c *simulatedCritic) Analyze(ctx context.Context, _ string, opts analysis.AnalyzeOptions) (*analysis.WorkerResult, error) {
	opts.Report(map[string]interface{}{"status": "thinking"})
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if c.fail {
		return nil, errors.New("simulated upstream failure")
	}
	return &analysis.WorkerResult{Insights: c.insights, Confidence: analysis.Float(0.85)}, nil
}

func main() {
	color.Cyan("🚀 Progressive Analysis Simulation\n")

	workers := session.StaticWorkers{
		critic.NewRepeatedWordCritic(),
		critic.NewLongSentenceCritic(20),
		&simulatedCritic{
			id:    "evidence",
			tier:  analysis.TierResearch,
			delay: 800 * time.Millisecond,
			insights: []analysis.Insight{{
				Type:       "evidence",
				Priority:   analysis.PriorityHigh,
				Confidence: analysis.Float(0.9),
				Title:      "Unsupported causal claim",
				Feedback:   "Growth alone does not show the strategy caused it.",
				Anchors:    []analysis.TextAnchor{{Start: 100, End: 140, Text: "which proves that the new strategy works"}},
			}},
		},
		&simulatedCritic{id: "style", tier: analysis.TierResearch, delay: 300 * time.Millisecond, fail: true},
	}

	cfg := session.DefaultConfig()
	cfg.ResearchTimeout = 2 * time.Second
	cfg.CleanupDelay = time.Second

	log := logger.NewNopLogger()
	manager := session.NewManager(memory.NewSessionRepository(), workers, analysis.NewExecutor(log), cfg, log)
	defer manager.Shutdown()

	done := make(chan session.CompletePayload, 1)

	start := time.Now()
	fast, err := manager.Start(context.Background(), document, session.Options{
		Callbacks: session.Callbacks{
			OnProgress: func(ev session.ProgressEvent) {
				color.White("  ↳ [%s/%s] %v", ev.Tier, ev.WorkerID, ev.Payload)
			},
			OnEnhancementAvailable: func(p session.EnhancementPayload) {
				color.Yellow("\n[ENHANCED] +%d insights, confidence Δ %.3f, new categories %v",
					p.Improvement.InsightCountDelta, p.Improvement.ConfidenceDelta, p.Improvement.NewCategories)
			},
			OnComplete: func(p session.CompletePayload) {
				done <- p
			},
			OnError: func(p session.ErrorPayload) {
				color.Red("[ERROR] %s: %s", p.Stage, p.Message)
			},
		},
		DocumentID: "simulation",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}

	color.Green("\n[FAST] %d insights in %v (confidence %.2f, research running: %v)",
		len(fast.Results.Insights), fast.Elapsed, fast.Results.Confidence, fast.EnhancementsInProgress)
	printInsights(fast.Results.Insights)

	final := <-done
	color.Green("\n[COMPLETE] stage=%s enhanced=%v total=%v", final.Stage, final.Enhanced, time.Since(start))
	printInsights(final.Results.Insights)

	simulateEdit(final)
}

func printInsights(insights []analysis.Insight) {
	for _, in := range insights {
		fmt.Printf("  - [%s/%s] %s (%.2f) via %s\n", in.Priority, in.Type, in.Title, in.ConfidenceOrDefault(), in.Source)
	}
}

// simulateEdit moves the final suggestions through a user edit.
func simulateEdit(final session.CompletePayload) {
	color.Cyan("\n[EDIT] Removing the duplicated word and rewriting the claim")

	ctx := context.Background()
	tracker := changes.NewTracker(memory.NewSnapshotRepository(time.Hour))
	if _, err := tracker.AnalyzeChanges(ctx, "simulation", document); err != nil {
		color.Red("Failed: %v", err)
		return
	}

	items := suggestion.FromInsights("simulation", final.AnalysisID, document, final.Results.Insights, 0.8)

	edited := `The committee approved the budget after a long debate. ` +
		`Revenue grew by forty percent last year, which suggests the new strategy helped in the markets we studied.`
	set, err := tracker.AnalyzeChanges(ctx, "simulation", edited)
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}

	updated := suggestion.UpdateAnchors(items, set.Changes, edited, 0.8)
	for _, s := range updated {
		fmt.Printf("  - %-9s %s\n", s.Status, s.Insight.Title)
	}
}
