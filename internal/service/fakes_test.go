package service

import (
	"context"
	"sync"

	"ai-critic-be/internal/dto"
	"ai-critic-be/pkg/events"
)

type recordingStream struct {
	mu       sync.Mutex
	messages []dto.StreamMessage
}

func (r *recordingStream) Publish(_ context.Context, msg dto.StreamMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingStream) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	for i, m := range r.messages {
		out[i] = m.Type
	}
	return out
}

type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingEvents) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.EventType())
	return nil
}

func (r *recordingEvents) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type recordingObserver struct {
	statuses []string
}

func (r *recordingObserver) ObserveSuggestion(status string) {
	r.statuses = append(r.statuses, status)
}
