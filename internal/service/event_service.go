package service

import (
	"context"

	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/pkg/events"
	pktNats "ai-critic-be/pkg/nats"
)

// EventPublisher publishes lifecycle events (NATS in production).
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// publishEvent is a no-op without a publisher; failures are only logged.
func publishEvent(ctx context.Context, pub EventPublisher, log logger.ILogger, eventType string, data map[string]interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, events.New(eventType, data)); err != nil {
		log.Warn("EventPublisher", "Failed to publish lifecycle event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

// AuditService writes every lifecycle event seen on the bus to the audit log.
type AuditService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewAuditService(subscriber *pktNats.Subscriber, log logger.ILogger) *AuditService {
	return &AuditService{subscriber: subscriber, logger: log}
}

func (s *AuditService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, "events.>", "critic-audit", s.Handle)
}

// Handle records one event.
func (s *AuditService) Handle(_ context.Context, event events.Event) error {
	details := map[string]interface{}{
		"type":        event.EventType(),
		"occurred_at": event.Timestamp(),
	}
	for k, v := range event.Payload() {
		details[k] = v
	}
	s.logger.Info("Audit", "Lifecycle event", details)
	return nil
}
