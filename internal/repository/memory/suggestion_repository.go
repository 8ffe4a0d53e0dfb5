package memory

import (
	"context"
	"sync"
	"time"

	"ai-critic-be/internal/repository/contract"
	"ai-critic-be/pkg/suggestion"

	"github.com/patrickmn/go-cache"
)

type suggestionRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

// NewSuggestionRepository stores suggestions per document. Callers get
// copies, so mutating a returned suggestion never changes the store.
func NewSuggestionRepository(ttl time.Duration) contract.ISuggestionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &suggestionRepository{cache: cache.New(ttl, 30*time.Minute)}
}

func (r *suggestionRepository) load(documentID string) []*suggestion.Suggestion {
	if x, found := r.cache.Get(documentID); found {
		return x.([]*suggestion.Suggestion)
	}
	return nil
}

func cloneAll(in []*suggestion.Suggestion) []*suggestion.Suggestion {
	out := make([]*suggestion.Suggestion, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func (r *suggestionRepository) FindByDocument(_ context.Context, documentID string) ([]*suggestion.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.load(documentID)), nil
}

func (r *suggestionRepository) FindByID(_ context.Context, documentID, id string) (*suggestion.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.load(documentID) {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (r *suggestionRepository) Append(_ context.Context, documentID string, items ...*suggestion.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.load(documentID)
	next := make([]*suggestion.Suggestion, 0, len(current)+len(items))
	next = append(next, current...)
	next = append(next, cloneAll(items)...)
	r.cache.Set(documentID, next, cache.DefaultExpiration)
	return nil
}

func (r *suggestionRepository) Replace(_ context.Context, documentID string, items []*suggestion.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(documentID, cloneAll(items), cache.DefaultExpiration)
	return nil
}

func (r *suggestionRepository) Update(_ context.Context, s *suggestion.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.load(s.DocumentID)
	for i, existing := range current {
		if existing.ID == s.ID {
			next := cloneAll(current)
			next[i] = s.Clone()
			r.cache.Set(s.DocumentID, next, cache.DefaultExpiration)
			return nil
		}
	}
	return contract.ErrSuggestionNotFound
}

func (r *suggestionRepository) DeleteDocument(_ context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(documentID)
	return nil
}
