package critic

import (
	"sync"

	"ai-critic-be/pkg/analysis"
)

// Registry holds the built-in critics plus the configurable ones, in
// registration order. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builtins []analysis.Worker
	dynamic  []analysis.Worker
}

func NewRegistry(builtins ...analysis.Worker) *Registry {
	return &Registry{builtins: builtins}
}

// Defaults returns the built-in fast critics.
func Defaults() []analysis.Worker {
	return []analysis.Worker{
		NewRepeatedWordCritic(),
		NewLongSentenceCritic(DefaultMaxSentenceWords),
	}
}

// SetDynamic replaces the configurable critics.
func (r *Registry) SetDynamic(workers []analysis.Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamic = append([]analysis.Worker(nil), workers...)
}

// Workers returns built-ins first, then configurable critics.
func (r *Registry) Workers() []analysis.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]analysis.Worker, 0, len(r.builtins)+len(r.dynamic))
	out = append(out, r.builtins...)
	out = append(out, r.dynamic...)
	return out
}

// IDs lists the registered worker ids.
func (r *Registry) IDs() []string {
	workers := r.Workers()
	ids := make([]string, len(workers))
	for i, w := range workers {
		ids[i] = w.ID()
	}
	return ids
}
