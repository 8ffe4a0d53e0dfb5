package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// SnapshotRepository keeps the last seen content of each document in
// process memory. Documents untouched for ttl are forgotten.
type SnapshotRepository struct {
	cache *cache.Cache
}

func NewSnapshotRepository(ttl time.Duration) *SnapshotRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotRepository{cache: cache.New(ttl, 30*time.Minute)}
}

func (r *SnapshotRepository) Get(_ context.Context, documentID string) (string, bool, error) {
	if x, found := r.cache.Get(documentID); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (r *SnapshotRepository) Set(_ context.Context, documentID, content string) error {
	r.cache.Set(documentID, content, cache.DefaultExpiration)
	return nil
}

func (r *SnapshotRepository) Delete(_ context.Context, documentID string) error {
	r.cache.Delete(documentID)
	return nil
}
