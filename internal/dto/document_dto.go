package dto

import (
	"time"

	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/changes"
	"ai-critic-be/pkg/suggestion"
)

type UpdateContentRequest struct {
	Content string `json:"content"`
}

type ContentUpdateResponse struct {
	DocumentId        string                 `json:"document_id"`
	ChangeType        string                 `json:"change_type"`
	Changes           []changes.DocumentEdit `json:"changes"`
	Suggestions       []SuggestionItem       `json:"suggestions"`
	Retracted         []string               `json:"retracted"`
	NeedsReEvaluation []string               `json:"needs_re_evaluation"`
}

type UpdateSuggestionRequest struct {
	Action string `json:"action" validate:"required,oneof=resolve dismiss"`
}

type SuggestionItem struct {
	Id           string                `json:"id"`
	AnalysisId   string                `json:"analysis_id"`
	Status       string                `json:"status"`
	StatusReason string                `json:"status_reason,omitempty"`
	Insight      analysis.Insight      `json:"insight"`
	Anchors      []analysis.TextAnchor `json:"anchors"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func NewSuggestionItem(s *suggestion.Suggestion) SuggestionItem {
	return SuggestionItem{
		Id:           s.ID,
		AnalysisId:   s.AnalysisID,
		Status:       string(s.Status),
		StatusReason: s.StatusReason,
		Insight:      s.Insight,
		Anchors:      s.Anchors,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func NewSuggestionItems(items []*suggestion.Suggestion) []SuggestionItem {
	out := make([]SuggestionItem, 0, len(items))
	for _, s := range items {
		out = append(out, NewSuggestionItem(s))
	}
	return out
}
