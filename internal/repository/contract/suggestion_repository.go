package contract

import (
	"context"
	"errors"

	"ai-critic-be/pkg/suggestion"
)

var ErrSuggestionNotFound = errors.New("suggestion not found")

// ISuggestionRepository keeps the suggestions shown for each document.
type ISuggestionRepository interface {
	FindByDocument(ctx context.Context, documentID string) ([]*suggestion.Suggestion, error)
	FindByID(ctx context.Context, documentID, id string) (*suggestion.Suggestion, error)
	Append(ctx context.Context, documentID string, items ...*suggestion.Suggestion) error
	Replace(ctx context.Context, documentID string, items []*suggestion.Suggestion) error
	Update(ctx context.Context, s *suggestion.Suggestion) error
	DeleteDocument(ctx context.Context, documentID string) error
}
