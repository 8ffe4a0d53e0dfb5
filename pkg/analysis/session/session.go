package session

import (
	"time"

	"ai-critic-be/pkg/analysis"
)

// Stage is the lifecycle position of an analysis session.
type Stage string

const (
	StageInitializing  Stage = "initializing"
	StageFastPhase     Stage = "fast_phase"
	StageFastComplete  Stage = "fast_complete"
	StageResearchPhase Stage = "research_phase"
	StageEnhancing     Stage = "enhancing"
	StageEnhanced      Stage = "enhanced"
	StageComplete      Stage = "complete"
	StageError         Stage = "error"
	StageCancelled     Stage = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError || s == StageCancelled
}

// transitions lists the forward moves besides error and cancelled, which
// are reachable from every non-terminal stage.
var transitions = map[Stage][]Stage{
	StageInitializing:  {StageFastPhase},
	StageFastPhase:     {StageFastComplete},
	StageFastComplete:  {StageResearchPhase, StageComplete},
	StageResearchPhase: {StageEnhancing, StageComplete},
	StageEnhancing:     {StageEnhanced, StageComplete},
	StageEnhanced:      {StageComplete},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageError || to == StageCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AnalysisSession is the state of one analysis run. Only the Manager
// mutates it.
type AnalysisSession struct {
	ID         string
	DocumentID string
	UserID     string
	Document   string
	Stage      Stage
	CreatedAt  time.Time

	Fast       *analysis.TierResult
	FastResult *analysis.FastResult
	Research   map[string]analysis.WorkerOutcome
	Fused      *analysis.FusedResult
	Err        error

	callbacks Callbacks
}

// ProgressEvent is a worker progress payload tagged by the engine.
type ProgressEvent struct {
	AnalysisID string                 `json:"analysis_id"`
	WorkerID   string                 `json:"worker_id"`
	Tier       analysis.Tier          `json:"tier"`
	Stage      Stage                  `json:"stage"`
	Payload    map[string]interface{} `json:"payload"`
}

// FastCompletePayload is delivered as soon as the fast tier settles.
type FastCompletePayload struct {
	AnalysisID             string              `json:"analysisId"`
	Results                analysis.FastResult `json:"results"`
	Stage                  Stage               `json:"stage"`
	EnhancementsInProgress bool                `json:"enhancementsInProgress"`
	Elapsed                time.Duration       `json:"elapsed"`
	FailedWorkers          []string            `json:"failedWorkers,omitempty"`
}

// EnhancementPayload is delivered when research output was fused in.
type EnhancementPayload struct {
	AnalysisID  string                      `json:"analysisId"`
	Results     analysis.FusedResult        `json:"results"`
	Improvement analysis.ImprovementSummary `json:"improvement"`
	Stage       Stage                       `json:"stage"`
}

// CompletePayload is the final result of a session.
type CompletePayload struct {
	AnalysisID string               `json:"analysisId"`
	Results    analysis.FusedResult `json:"results"`
	Stage      Stage                `json:"stage"`
	Enhanced   bool                 `json:"enhanced"`
	Elapsed    time.Duration        `json:"elapsed"`
}

// ErrorPayload reports a fatal session error.
type ErrorPayload struct {
	AnalysisID string `json:"analysisId"`
	Stage      Stage  `json:"stage"`
	Err        error  `json:"-"`
	Message    string `json:"message"`
}

// Callbacks are invoked while the session is still registered. Progress
// may be called from several worker goroutines at once.
type Callbacks struct {
	OnProgress             func(ProgressEvent)
	OnFastComplete         func(FastCompletePayload)
	OnEnhancementAvailable func(EnhancementPayload)
	OnComplete             func(CompletePayload)
	OnError                func(ErrorPayload)
}

// Options configure a single Start call.
type Options struct {
	Callbacks

	DocumentID        string
	UserID            string
	Urgency           analysis.Urgency
	Budget            string
	MaxParallelAgents int
}

// Status is a read-only snapshot of a session.
type Status struct {
	AnalysisID      string        `json:"analysis_id"`
	DocumentID      string        `json:"document_id"`
	Stage           Stage         `json:"stage"`
	CreatedAt       time.Time     `json:"created_at"`
	Elapsed         time.Duration `json:"elapsed"`
	FastInsights    int           `json:"fast_insights"`
	ResearchResults int           `json:"research_results"`
	FusedInsights   int           `json:"fused_insights"`
	Confidence      float64       `json:"confidence"`
	Error           string        `json:"error,omitempty"`
}

// Store is the registry of live sessions owned by one Manager.
type Store interface {
	Save(s *AnalysisSession)
	Get(id string) (*AnalysisSession, bool)
	Delete(id string)
	Count() int
}

// WorkerSource supplies the registered workers, in registration order.
type WorkerSource interface {
	Workers() []analysis.Worker
}

// StaticWorkers is a fixed worker list.
type StaticWorkers []analysis.Worker

func (w StaticWorkers) Workers() []analysis.Worker {
	return w
}

// Recorder receives session lifecycle measurements.
type Recorder interface {
	SessionStarted()
	SessionEnded(stage Stage, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()                   {}
func (nopRecorder) SessionEnded(Stage, time.Duration) {}
