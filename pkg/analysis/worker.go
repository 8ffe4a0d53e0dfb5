package analysis

import "context"

// Complexity hints how deep a worker should go.
type Complexity string

const (
	ComplexityLow  Complexity = "low"
	ComplexityHigh Complexity = "high"
)

// Urgency of an analysis request.
type Urgency string

const (
	UrgencyRealtime Urgency = "realtime"
	UrgencyHigh     Urgency = "high"
	UrgencyNormal   Urgency = "normal"
)

// ProgressFunc receives partial progress from a worker before it resolves.
type ProgressFunc func(payload map[string]interface{})

// AnalyzeOptions are handed to every worker invocation.
type AnalyzeOptions struct {
	Complexity Complexity
	Urgency    Urgency
	Budget     string
	Progress   ProgressFunc
}

// Report forwards a progress payload when a sink is attached.
func (o AnalyzeOptions) Report(payload map[string]interface{}) {
	if o.Progress != nil {
		o.Progress(payload)
	}
}

// Worker is an external critic the engine dispatches documents to.
type Worker interface {
	ID() string
	Tier() Tier
	Analyze(ctx context.Context, document string, opts AnalyzeOptions) (*WorkerResult, error)
}

// ComplexityFor maps a tier to the complexity hint its workers receive.
func ComplexityFor(tier Tier) Complexity {
	if tier == TierResearch {
		return ComplexityHigh
	}
	return ComplexityLow
}
