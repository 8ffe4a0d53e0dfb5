package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-critic-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IStreamPublisher queues events for connected websocket clients.
type IStreamPublisher interface {
	Publish(ctx context.Context, msg dto.StreamMessage) error
}

type streamPublisher struct {
	topicName string
	publisher message.Publisher
}

func NewStreamPublisher(topicName string, publisher message.Publisher) IStreamPublisher {
	return &streamPublisher{topicName: topicName, publisher: publisher}
}

func (p *streamPublisher) Publish(ctx context.Context, msg dto.StreamMessage) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	m := message.NewMessage(watermill.NewUUID(), payload)
	m.SetContext(ctx)
	return p.publisher.Publish(p.topicName, m)
}
