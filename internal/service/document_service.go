package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/internal/repository/contract"
	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/changes"
	"ai-critic-be/pkg/events"
	"ai-critic-be/pkg/suggestion"

	"github.com/gofiber/fiber/v2"
)

// SuggestionObserver counts suggestions leaving the active status.
type SuggestionObserver interface {
	ObserveSuggestion(status string)
}

type IDocumentService interface {
	// Sync records content as the latest version of the document and moves
	// the document's suggestions through the edit.
	Sync(ctx context.Context, userID, documentID, content string) (*dto.ContentUpdateResponse, error)
	ListSuggestions(ctx context.Context, documentID, status string) ([]dto.SuggestionItem, error)
	UpdateSuggestion(ctx context.Context, userID, documentID, suggestionID string, req *dto.UpdateSuggestionRequest) (*dto.SuggestionItem, error)
	// AddFromInsights stores suggestions already anchored against the
	// latest version.
	AddFromInsights(ctx context.Context, documentID string, created []*suggestion.Suggestion) error
	// AnchorInsights anchors insights against the content they were produced
	// from, moves them through any edit made since, and stores the survivors.
	AnchorInsights(ctx context.Context, documentID, analysisID, analysed string, insights []analysis.Insight) ([]*suggestion.Suggestion, error)
	Current(ctx context.Context, documentID string) (string, bool, error)
	// Close forgets the document; the next Sync starts a new history.
	Close(ctx context.Context, documentID string) error
}

type documentService struct {
	tracker     *changes.Tracker
	suggestions contract.ISuggestionRepository
	stream      IStreamPublisher
	events      EventPublisher
	observer    SuggestionObserver
	threshold   float64
	logger      logger.ILogger
	locks       *documentLocks
}

func NewDocumentService(
	tracker *changes.Tracker,
	suggestions contract.ISuggestionRepository,
	stream IStreamPublisher,
	events EventPublisher,
	observer SuggestionObserver,
	threshold float64,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		tracker:     tracker,
		suggestions: suggestions,
		stream:      stream,
		events:      events,
		observer:    observer,
		threshold:   threshold,
		logger:      log,
		locks:       newDocumentLocks(),
	}
}

func (s *documentService) Sync(ctx context.Context, userID, documentID, content string) (*dto.ContentUpdateResponse, error) {
	unlock := s.locks.lock(documentID)
	defer unlock()

	set, err := s.tracker.AnalyzeChanges(ctx, documentID, content)
	if err != nil {
		return nil, err
	}

	current, err := s.suggestions.FindByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	res := &dto.ContentUpdateResponse{
		DocumentId:        documentID,
		ChangeType:        string(set.Type),
		Changes:           set.Changes,
		Retracted:         []string{},
		NeedsReEvaluation: []string{},
	}

	if len(set.Changes) == 0 {
		res.Suggestions = dto.NewSuggestionItems(current)
		return res, nil
	}

	updated := suggestion.UpdateAnchors(current, set.Changes, content, s.threshold)
	for i, before := range current {
		after := updated[i]
		if before.Status == suggestion.StatusActive && after.Status == suggestion.StatusRetracted {
			res.Retracted = append(res.Retracted, after.ID)
			continue
		}
		if after.Status == suggestion.StatusActive && suggestion.NeedsReEvaluation(before, set.Changes) {
			res.NeedsReEvaluation = append(res.NeedsReEvaluation, after.ID)
		}
	}

	if err := s.suggestions.Replace(ctx, documentID, updated); err != nil {
		return nil, err
	}
	res.Suggestions = dto.NewSuggestionItems(updated)

	if len(res.Retracted) > 0 {
		for range res.Retracted {
			s.observe(string(suggestion.StatusRetracted))
		}
		s.publishStream(ctx, userID, documentID, "", dto.StreamRetracted, map[string]interface{}{
			"suggestion_ids": res.Retracted,
		})
		for _, id := range res.Retracted {
			publishEvent(ctx, s.events, s.logger, events.SuggestionRetracted, map[string]interface{}{
				"document_id":   documentID,
				"suggestion_id": id,
			})
		}
	}

	s.logger.Info("DocumentService", "Document synced", map[string]interface{}{
		"document_id":         documentID,
		"edits":               len(set.Changes),
		"suggestions":         len(updated),
		"retracted":           len(res.Retracted),
		"needs_re_evaluation": len(res.NeedsReEvaluation),
	})
	return res, nil
}

func (s *documentService) ListSuggestions(ctx context.Context, documentID, status string) ([]dto.SuggestionItem, error) {
	all, err := s.suggestions.FindByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return dto.NewSuggestionItems(all), nil
	}
	filtered := make([]*suggestion.Suggestion, 0, len(all))
	for _, sg := range all {
		if string(sg.Status) == status {
			filtered = append(filtered, sg)
		}
	}
	return dto.NewSuggestionItems(filtered), nil
}

func (s *documentService) UpdateSuggestion(ctx context.Context, userID, documentID, suggestionID string, req *dto.UpdateSuggestionRequest) (*dto.SuggestionItem, error) {
	unlock := s.locks.lock(documentID)
	defer unlock()

	sg, err := s.suggestions.FindByID(ctx, documentID, suggestionID)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, contract.ErrSuggestionNotFound
	}

	var eventType string
	switch req.Action {
	case "resolve":
		err = sg.Resolve()
		eventType = events.SuggestionResolved
	case "dismiss":
		err = sg.Dismiss()
		eventType = events.SuggestionDismissed
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
	}
	if err != nil {
		if errors.Is(err, suggestion.ErrInvalidTransition) {
			return nil, fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return nil, err
	}

	if err := s.suggestions.Update(ctx, sg); err != nil {
		return nil, err
	}
	s.observe(string(sg.Status))
	publishEvent(ctx, s.events, s.logger, eventType, map[string]interface{}{
		"document_id":   documentID,
		"suggestion_id": sg.ID,
		"user_id":       userID,
	})

	item := dto.NewSuggestionItem(sg)
	return &item, nil
}

func (s *documentService) AddFromInsights(ctx context.Context, documentID string, created []*suggestion.Suggestion) error {
	if len(created) == 0 {
		return nil
	}
	unlock := s.locks.lock(documentID)
	defer unlock()
	return s.suggestions.Append(ctx, documentID, created...)
}

func (s *documentService) AnchorInsights(ctx context.Context, documentID, analysisID, analysed string, insights []analysis.Insight) ([]*suggestion.Suggestion, error) {
	unlock := s.locks.lock(documentID)
	defer unlock()

	created := suggestion.FromInsights(documentID, analysisID, analysed, insights, s.threshold)
	if len(created) == 0 {
		return nil, nil
	}

	latest, found, err := s.tracker.Snapshot(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if found && latest != analysed {
		edit, changed := changes.Diff(analysed, latest)
		if changed {
			moved := suggestion.UpdateAnchors(created, []changes.DocumentEdit{edit}, latest, s.threshold)
			created = created[:0]
			for _, sg := range moved {
				if sg.Status == suggestion.StatusActive {
					created = append(created, sg)
				}
			}
		}
	}
	if len(created) == 0 {
		return nil, nil
	}

	if err := s.suggestions.Append(ctx, documentID, created...); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *documentService) Current(ctx context.Context, documentID string) (string, bool, error) {
	return s.tracker.Snapshot(ctx, documentID)
}

func (s *documentService) Close(ctx context.Context, documentID string) error {
	unlock := s.locks.lock(documentID)
	defer unlock()

	if err := s.tracker.Forget(ctx, documentID); err != nil {
		return err
	}
	if err := s.suggestions.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	s.logger.Info("DocumentService", "Document closed", map[string]interface{}{"document_id": documentID})
	return nil
}

func (s *documentService) observe(status string) {
	if s.observer != nil {
		s.observer.ObserveSuggestion(status)
	}
}

func (s *documentService) publishStream(ctx context.Context, userID, documentID, analysisID, eventType string, data interface{}) {
	if s.stream == nil || userID == "" {
		return
	}
	if err := s.stream.Publish(ctx, dto.StreamMessage{
		UserId:     userID,
		DocumentId: documentID,
		AnalysisId: analysisID,
		Type:       eventType,
		Data:       data,
		SentAt:     time.Now(),
	}); err != nil {
		s.logger.Warn("DocumentService", "Failed to queue stream event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
