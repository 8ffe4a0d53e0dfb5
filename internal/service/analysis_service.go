package service

import (
	"context"
	"errors"
	"time"

	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/analysis/session"
	"ai-critic-be/pkg/events"
	"ai-critic-be/pkg/suggestion"

	"github.com/gofiber/fiber/v2"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

type IAnalysisService interface {
	Start(ctx context.Context, userID string, req *dto.StartAnalysisRequest) (*dto.FastAnalysisResponse, error)
	Status(ctx context.Context, analysisID string) (*dto.AnalysisStatusResponse, error)
	Cancel(ctx context.Context, userID, analysisID string) error
}

type analysisService struct {
	manager   *session.Manager
	documents IDocumentService
	stream    IStreamPublisher
	events    EventPublisher
	logger    logger.ILogger
}

func NewAnalysisService(
	manager *session.Manager,
	documents IDocumentService,
	stream IStreamPublisher,
	events EventPublisher,
	log logger.ILogger,
) IAnalysisService {
	return &analysisService{
		manager:   manager,
		documents: documents,
		stream:    stream,
		events:    events,
		logger:    log,
	}
}

func (s *analysisService) Start(ctx context.Context, userID string, req *dto.StartAnalysisRequest) (*dto.FastAnalysisResponse, error) {
	// existing suggestions follow the edit before new ones are added
	if _, err := s.documents.Sync(ctx, userID, req.DocumentId, req.Content); err != nil {
		return nil, err
	}

	urgency := analysis.Urgency(req.Urgency)
	if urgency == "" {
		urgency = analysis.UrgencyNormal
	}

	// set by OnFastComplete, which runs before Start returns
	var fastSuggestions []*suggestion.Suggestion

	cb := s.callbacks(userID, req.DocumentId, req.Content)
	onFast := cb.OnFastComplete
	cb.OnFastComplete = func(p session.FastCompletePayload) {
		created, err := s.documents.AnchorInsights(ctx, req.DocumentId, p.AnalysisID, req.Content, p.Results.Insights)
		fastSuggestions = created
		if err != nil {
			s.logger.Error("AnalysisService", "Failed to store fast suggestions", map[string]interface{}{
				"analysis_id": p.AnalysisID,
				"error":       err.Error(),
			})
		}
		onFast(p)
	}

	payload, err := s.manager.Start(ctx, req.Content, session.Options{
		Callbacks:         cb,
		DocumentID:        req.DocumentId,
		UserID:            userID,
		Urgency:           urgency,
		Budget:            req.Budget,
		MaxParallelAgents: req.MaxParallelAgents,
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.events, s.logger, events.AnalysisStarted, map[string]interface{}{
		"analysis_id": payload.AnalysisID,
		"document_id": req.DocumentId,
		"user_id":     userID,
	})

	return &dto.FastAnalysisResponse{
		AnalysisId:             payload.AnalysisID,
		Stage:                  string(payload.Stage),
		Insights:               payload.Results.Insights,
		Confidence:             payload.Results.Confidence,
		EnhancementsInProgress: payload.EnhancementsInProgress,
		ElapsedMs:              payload.Elapsed.Milliseconds(),
		FailedWorkers:          payload.FailedWorkers,
		Suggestions:            dto.NewSuggestionItems(fastSuggestions),
	}, nil
}

// callbacks turn session lifecycle into stream messages, stored suggestions
// and bus events. Everything after OnFastComplete runs off the request, so
// it uses its own context.
func (s *analysisService) callbacks(userID, documentID, content string) session.Callbacks {
	bg := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), 10*time.Second)
	}

	return session.Callbacks{
		OnProgress: func(ev session.ProgressEvent) {
			ctx, cancel := bg()
			defer cancel()
			s.publish(ctx, userID, documentID, ev.AnalysisID, dto.StreamProgress, ev)
		},
		OnFastComplete: func(p session.FastCompletePayload) {
			ctx, cancel := bg()
			defer cancel()
			s.publish(ctx, userID, documentID, p.AnalysisID, dto.StreamFastComplete, p)
			publishEvent(ctx, s.events, s.logger, events.AnalysisFastComplete, map[string]interface{}{
				"analysis_id": p.AnalysisID,
				"document_id": documentID,
				"insights":    len(p.Results.Insights),
				"elapsed_ms":  p.Elapsed.Milliseconds(),
			})
		},
		OnEnhancementAvailable: func(p session.EnhancementPayload) {
			ctx, cancel := bg()
			defer cancel()

			var enhancements []analysis.Insight
			for _, in := range p.Results.Insights {
				if in.Enhancement {
					enhancements = append(enhancements, in)
				}
			}
			// anchored against the analysed content, then carried through
			// whatever the user typed while research ran
			created, err := s.documents.AnchorInsights(ctx, documentID, p.AnalysisID, content, enhancements)
			if err != nil {
				s.logger.Error("AnalysisService", "Failed to store research suggestions", map[string]interface{}{
					"analysis_id": p.AnalysisID,
					"error":       err.Error(),
				})
			}

			s.publish(ctx, userID, documentID, p.AnalysisID, dto.StreamEnhancement, p)
			if len(created) > 0 {
				s.publish(ctx, userID, documentID, p.AnalysisID, dto.StreamSuggestionsNew, dto.NewSuggestionItems(created))
			}
			publishEvent(ctx, s.events, s.logger, events.AnalysisEnhanced, map[string]interface{}{
				"analysis_id":    p.AnalysisID,
				"document_id":    documentID,
				"new_insights":   p.Improvement.InsightCountDelta,
				"confidence":     p.Results.Confidence,
				"new_categories": p.Improvement.NewCategories,
			})
		},
		OnComplete: func(p session.CompletePayload) {
			ctx, cancel := bg()
			defer cancel()
			s.publish(ctx, userID, documentID, p.AnalysisID, dto.StreamComplete, p)
			publishEvent(ctx, s.events, s.logger, events.AnalysisCompleted, map[string]interface{}{
				"analysis_id": p.AnalysisID,
				"document_id": documentID,
				"enhanced":    p.Enhanced,
				"insights":    len(p.Results.Insights),
				"elapsed_ms":  p.Elapsed.Milliseconds(),
			})
		},
		OnError: func(p session.ErrorPayload) {
			ctx, cancel := bg()
			defer cancel()
			s.publish(ctx, userID, documentID, p.AnalysisID, dto.StreamError, p)
			publishEvent(ctx, s.events, s.logger, events.AnalysisFailed, map[string]interface{}{
				"analysis_id": p.AnalysisID,
				"document_id": documentID,
				"stage":       string(p.Stage),
				"error":       p.Message,
			})
		},
	}
}

func (s *analysisService) Status(_ context.Context, analysisID string) (*dto.AnalysisStatusResponse, error) {
	st, ok := s.manager.GetStatus(analysisID)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, ErrAnalysisNotFound.Error())
	}
	return dto.NewAnalysisStatusResponse(st), nil
}

func (s *analysisService) Cancel(ctx context.Context, userID, analysisID string) error {
	if !s.manager.Cancel(analysisID) {
		return fiber.NewError(fiber.StatusNotFound, ErrAnalysisNotFound.Error())
	}
	publishEvent(ctx, s.events, s.logger, events.AnalysisCancelled, map[string]interface{}{
		"analysis_id": analysisID,
		"user_id":     userID,
	})
	return nil
}

func (s *analysisService) publish(ctx context.Context, userID, documentID, analysisID, eventType string, data interface{}) {
	if s.stream == nil || userID == "" {
		return
	}
	if err := s.stream.Publish(ctx, dto.StreamMessage{
		UserId:     userID,
		DocumentId: documentID,
		AnalysisId: analysisID,
		Type:       eventType,
		Data:       data,
	}); err != nil {
		s.logger.Warn("AnalysisService", "Failed to queue stream event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
