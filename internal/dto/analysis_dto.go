package dto

import (
	"time"

	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/analysis/session"
)

type StartAnalysisRequest struct {
	DocumentId        string `json:"document_id" validate:"required,max=200"`
	Content           string `json:"content" validate:"required"`
	Urgency           string `json:"urgency" validate:"omitempty,oneof=realtime high normal"`
	Budget            string `json:"budget" validate:"omitempty,max=50"`
	MaxParallelAgents int    `json:"max_parallel_agents" validate:"omitempty,min=1,max=16"`
}

type FastAnalysisResponse struct {
	AnalysisId             string             `json:"analysis_id"`
	Stage                  string             `json:"stage"`
	Insights               []analysis.Insight `json:"insights"`
	Confidence             float64            `json:"confidence"`
	EnhancementsInProgress bool               `json:"enhancements_in_progress"`
	ElapsedMs              int64              `json:"elapsed_ms"`
	FailedWorkers          []string           `json:"failed_workers,omitempty"`
	Suggestions            []SuggestionItem   `json:"suggestions"`
}

type AnalysisStatusResponse struct {
	AnalysisId      string    `json:"analysis_id"`
	DocumentId      string    `json:"document_id"`
	Stage           string    `json:"stage"`
	CreatedAt       time.Time `json:"created_at"`
	ElapsedMs       int64     `json:"elapsed_ms"`
	FastInsights    int       `json:"fast_insights"`
	ResearchResults int       `json:"research_results"`
	FusedInsights   int       `json:"fused_insights"`
	Confidence      float64   `json:"confidence"`
	Error           string    `json:"error,omitempty"`
}

func NewAnalysisStatusResponse(st session.Status) *AnalysisStatusResponse {
	return &AnalysisStatusResponse{
		AnalysisId:      st.AnalysisID,
		DocumentId:      st.DocumentID,
		Stage:           string(st.Stage),
		CreatedAt:       st.CreatedAt,
		ElapsedMs:       st.Elapsed.Milliseconds(),
		FastInsights:    st.FastInsights,
		ResearchResults: st.ResearchResults,
		FusedInsights:   st.FusedInsights,
		Confidence:      st.Confidence,
		Error:           st.Error,
	}
}
