package events

import "time"

// Event is anything published on the lifecycle bus.
type Event interface {
	// EventType is the dotted subject suffix, e.g. "analysis.completed".
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// Lifecycle event types.
const (
	AnalysisStarted      = "analysis.started"
	AnalysisFastComplete = "analysis.fast_complete"
	AnalysisEnhanced     = "analysis.enhanced"
	AnalysisCompleted    = "analysis.completed"
	AnalysisFailed       = "analysis.failed"
	AnalysisCancelled    = "analysis.cancelled"

	SuggestionResolved  = "suggestion.resolved"
	SuggestionDismissed = "suggestion.dismissed"
	SuggestionRetracted = "suggestion.retracted"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

// New builds an event stamped with the current time.
func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
