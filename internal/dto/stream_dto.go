package dto

import "time"

// Stream event types pushed to websocket clients.
const (
	StreamProgress       = "analysis.progress"
	StreamFastComplete   = "analysis.fast_complete"
	StreamEnhancement    = "analysis.enhancement"
	StreamComplete       = "analysis.complete"
	StreamError          = "analysis.error"
	StreamSuggestionsNew = "suggestions.created"
	StreamRetracted      = "suggestions.retracted"
)

// StreamMessage travels over the internal bus to the websocket consumer.
type StreamMessage struct {
	UserId     string      `json:"user_id"`
	DocumentId string      `json:"document_id"`
	AnalysisId string      `json:"analysis_id,omitempty"`
	Type       string      `json:"type"`
	Data       interface{} `json:"data"`
	SentAt     time.Time   `json:"sent_at"`
}
