package service

import (
	"context"
	"encoding/json"

	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StreamDelivery pushes an encoded message to a user's open connections.
type StreamDelivery interface {
	SendToUser(ctx context.Context, userID string, data []byte)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	delivery   StreamDelivery
	logger     logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topicName string, delivery StreamDelivery, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		delivery:   delivery,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.StreamMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Warn("StreamConsumer", "Dropping malformed stream message", map[string]interface{}{"error": err.Error()})
		// a malformed message would be redelivered forever
		msg.Ack()
		return
	}
	if payload.UserId == "" {
		msg.Ack()
		return
	}

	frame, err := json.Marshal(map[string]interface{}{
		"type":        payload.Type,
		"document_id": payload.DocumentId,
		"analysis_id": payload.AnalysisId,
		"data":        payload.Data,
		"sent_at":     payload.SentAt,
	})
	if err != nil {
		msg.Ack()
		return
	}

	cs.delivery.SendToUser(ctx, payload.UserId, frame)
	cs.logger.Debug("StreamConsumer", "Delivered stream event", map[string]interface{}{
		"type":        payload.Type,
		"user_id":     payload.UserId,
		"analysis_id": payload.AnalysisId,
	})
	msg.Ack()
}
