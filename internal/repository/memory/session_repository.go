package memory

import (
	"time"

	"ai-critic-be/pkg/analysis/session"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the in-process registry of analysis sessions.
// The manager evicts finished sessions itself; the cache expiration only
// catches sessions whose owner went away.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(s *session.AnalysisSession) {
	r.cache.Set(s.ID, s, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(id string) (*session.AnalysisSession, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*session.AnalysisSession), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(id string) {
	r.cache.Delete(id)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
