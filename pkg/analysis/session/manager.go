// Package session drives progressive analysis: the fast tier answers
// synchronously, the research tier enhances the result in the background.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/pkg/analysis"

	"github.com/google/uuid"
)

const managerModule = "AnalysisSessionManager"

// DefaultCleanupDelay is how long a finished session stays queryable.
const DefaultCleanupDelay = 5 * time.Second

// Config holds the tier timing and capacity used for every session.
//
// A StragglerGrace below zero keeps collecting a timed-out tier until every
// worker settles; zero or more is a hard cutoff at Timeout+grace. With the
// default ResearchStragglerGrace of 0, research workers still running at
// ResearchTimeout are recorded as timed out and their late results are
// discarded. Caps are upper bounds; Options.MaxParallelAgents can only
// lower them.
type Config struct {
	FastTimeout            time.Duration
	FastStragglerGrace     time.Duration
	ResearchTimeout        time.Duration
	ResearchStragglerGrace time.Duration
	Caps                   analysis.TierCaps
	CleanupDelay           time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		FastTimeout:            3 * time.Second,
		FastStragglerGrace:     -1,
		ResearchTimeout:        60 * time.Second,
		ResearchStragglerGrace: 0,
		Caps:                   analysis.DefaultTierCaps,
		CleanupDelay:           DefaultCleanupDelay,
	}
}

// Manager owns the registry of analysis sessions.
type Manager struct {
	store    Store
	workers  WorkerSource
	executor *analysis.Executor
	cfg      Config
	logger   logger.ILogger
	recorder Recorder

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	closed  bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionRecorder attaches session metrics.
func WithSessionRecorder(r Recorder) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

func NewManager(store Store, workers WorkerSource, executor *analysis.Executor, cfg Config, log logger.ILogger, opts ...ManagerOption) *Manager {
	if cfg.Caps.Fast <= 0 && cfg.Caps.Research <= 0 {
		cfg.Caps = analysis.DefaultTierCaps
	}
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = DefaultCleanupDelay
	}
	m := &Manager{
		store:    store,
		workers:  workers,
		executor: executor,
		cfg:      cfg,
		logger:   log,
		recorder: nopRecorder{},
		cancels:  make(map[string]context.CancelFunc),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ErrManagerClosed is returned by Start after Shutdown.
var ErrManagerClosed = errors.New("analysis session manager is shut down")

// Start runs the fast tier and returns its merged result. When research
// workers exist they keep running after Start returns and report through
// the callbacks in opts. A cancel issued while the fast tier runs yields a
// cancelled payload and no error.
func (m *Manager) Start(ctx context.Context, document string, opts Options) (*FastCompletePayload, error) {
	id := uuid.NewString()
	now := time.Now()

	// research outlives the request, so the session context is detached
	sessCtx, cancelSession := context.WithCancel(context.WithoutCancel(ctx))
	fastCtx, cancelFast := context.WithCancel(ctx)
	defer cancelFast()
	cancel := func() {
		cancelFast()
		cancelSession()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return nil, ErrManagerClosed
	}
	m.store.Save(&AnalysisSession{
		ID:         id,
		DocumentID: opts.DocumentID,
		UserID:     opts.UserID,
		Document:   document,
		Stage:      StageInitializing,
		CreatedAt:  now,
		Research:   make(map[string]analysis.WorkerOutcome),
		callbacks:  opts.Callbacks,
	})
	m.cancels[id] = cancel
	m.mu.Unlock()
	m.recorder.SessionStarted()

	m.logger.Info(managerModule, "Analysis started", map[string]interface{}{
		"analysis_id": id,
		"document_id": opts.DocumentID,
		"length":      len([]rune(document)),
	})

	pools, err := analysis.SelectWorkers(m.workers.Workers(), m.caps(opts.MaxParallelAgents))
	if err != nil {
		m.fail(id, err)
		return nil, err
	}

	if !m.transition(id, StageFastPhase, nil) {
		return m.cancelledPayload(id), nil
	}

	analyzeOpts := analysis.AnalyzeOptions{Urgency: opts.Urgency, Budget: opts.Budget}
	fastRes, err := m.executor.Execute(fastCtx, pools.Fast, document, analysis.TierConfig{
		Tier:           analysis.TierFast,
		Timeout:        m.cfg.FastTimeout,
		StragglerGrace: m.cfg.FastStragglerGrace,
		Options:        analyzeOpts,
		Progress:       m.progressSink(id, analysis.TierFast),
	})
	if err != nil {
		if m.isCancelled(id) {
			return m.cancelledPayload(id), nil
		}
		m.fail(id, err)
		return nil, err
	}

	merged := analysis.MergeFast(fastRes.Outcomes)
	if !m.transition(id, StageFastComplete, func(s *AnalysisSession) {
		s.Fast = fastRes
		s.FastResult = &merged
	}) {
		payload := m.cancelledPayload(id)
		payload.Results = merged
		return payload, nil
	}

	payload := FastCompletePayload{
		AnalysisID:             id,
		Results:                merged,
		Stage:                  StageFastComplete,
		EnhancementsInProgress: len(pools.Research) > 0,
		Elapsed:                time.Since(now),
	}
	for _, f := range fastRes.Failures {
		payload.FailedWorkers = append(payload.FailedWorkers, f.WorkerID)
	}

	m.fire(id, func(cb Callbacks) {
		if cb.OnFastComplete != nil {
			cb.OnFastComplete(payload)
		}
	})

	if len(pools.Research) == 0 {
		m.finalize(id)
		return &payload, nil
	}

	m.wg.Add(1)
	go m.runResearch(sessCtx, id, pools.Research, document, analyzeOpts)

	return &payload, nil
}

func (m *Manager) runResearch(ctx context.Context, id string, workers []analysis.Worker, document string, opts analysis.AnalyzeOptions) {
	defer m.wg.Done()

	if !m.transition(id, StageResearchPhase, nil) {
		return
	}

	res, err := m.executor.Execute(ctx, workers, document, analysis.TierConfig{
		Tier:           analysis.TierResearch,
		Timeout:        m.cfg.ResearchTimeout,
		StragglerGrace: m.cfg.ResearchStragglerGrace,
		AllowEmpty:     true,
		Options:        opts,
		Progress:       m.progressSink(id, analysis.TierResearch),
	})
	if err != nil {
		if m.isCancelled(id) {
			return
		}
		m.logger.Warn(managerModule, "Research phase failed, keeping fast results", map[string]interface{}{
			"analysis_id": id,
			"error":       fmt.Errorf("%w: %w", analysis.ErrResearchPhaseFailure, err).Error(),
		})
		m.finalize(id)
		return
	}
	if len(res.Outcomes) == 0 {
		m.finalize(id)
		return
	}

	if !m.transition(id, StageEnhancing, func(s *AnalysisSession) {
		for _, o := range res.Outcomes {
			s.Research[o.WorkerID] = o
		}
	}) {
		return
	}

	var (
		fused       analysis.FusedResult
		improvement analysis.ImprovementSummary
	)
	if !m.transition(id, StageEnhanced, func(s *AnalysisSession) {
		fast := analysis.FastResult{Insights: []analysis.Insight{}, Confidence: analysis.DefaultConfidence}
		if s.FastResult != nil {
			fast = *s.FastResult
		}
		fused = analysis.Combine(fast, res.Outcomes)
		improvement = analysis.Improvement(fast, fused)
		s.Fused = &fused
	}) {
		return
	}

	m.fire(id, func(cb Callbacks) {
		if cb.OnEnhancementAvailable != nil {
			cb.OnEnhancementAvailable(EnhancementPayload{
				AnalysisID:  id,
				Results:     fused,
				Improvement: improvement,
				Stage:       StageEnhanced,
			})
		}
	})
	m.finalize(id)
}

// finalize completes the session with whatever results it holds.
func (m *Manager) finalize(id string) {
	var (
		payload CompletePayload
		elapsed time.Duration
	)
	if !m.transition(id, StageComplete, func(s *AnalysisSession) {
		if s.Fused == nil {
			fast := analysis.FastResult{Insights: []analysis.Insight{}, Confidence: analysis.DefaultConfidence}
			if s.FastResult != nil {
				fast = *s.FastResult
			}
			fused := analysis.Combine(fast, nil)
			s.Fused = &fused
		}
		elapsed = time.Since(s.CreatedAt)
		payload = CompletePayload{
			AnalysisID: id,
			Results:    *s.Fused,
			Stage:      StageComplete,
			Enhanced:   s.Fused.ResearchAvailable,
			Elapsed:    elapsed,
		}
	}) {
		return
	}

	m.fire(id, func(cb Callbacks) {
		if cb.OnComplete != nil {
			cb.OnComplete(payload)
		}
	})
	m.recorder.SessionEnded(StageComplete, elapsed)
	m.logger.Info(managerModule, "Analysis complete", map[string]interface{}{
		"analysis_id": id,
		"enhanced":    payload.Enhanced,
		"insights":    len(payload.Results.Insights),
		"elapsed":     elapsed.String(),
	})
}

func (m *Manager) fail(id string, cause error) {
	var (
		stage   Stage
		elapsed time.Duration
	)
	m.mu.Lock()
	if s, ok := m.store.Get(id); ok {
		stage = s.Stage
	}
	m.mu.Unlock()

	if !m.transition(id, StageError, func(s *AnalysisSession) {
		s.Err = cause
		elapsed = time.Since(s.CreatedAt)
	}) {
		return
	}

	m.fire(id, func(cb Callbacks) {
		if cb.OnError != nil {
			cb.OnError(ErrorPayload{AnalysisID: id, Stage: stage, Err: cause, Message: cause.Error()})
		}
	})
	m.recorder.SessionEnded(StageError, elapsed)
	m.logger.Error(managerModule, "Analysis failed", map[string]interface{}{
		"analysis_id": id,
		"stage":       stage,
		"error":       cause.Error(),
	})
}

// transition moves a registered session to stage, applying mutate under the
// lock. It returns false when the session is gone or the move is illegal.
// Terminal stages schedule eviction and release the session context.
func (m *Manager) transition(id string, to Stage, mutate func(*AnalysisSession)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.store.Get(id)
	if !ok || !CanTransition(s.Stage, to) {
		return false
	}
	if mutate != nil {
		mutate(s)
	}
	s.Stage = to
	m.store.Save(s)

	if to.Terminal() {
		m.releaseLocked(id)
		m.scheduleEvictionLocked(id)
	}
	return true
}

func (m *Manager) releaseLocked(id string) {
	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
}

func (m *Manager) scheduleEvictionLocked(id string) {
	if m.closed {
		return
	}
	m.timers[id] = time.AfterFunc(m.cfg.CleanupDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.timers, id)
		if s, ok := m.store.Get(id); ok && s.Stage.Terminal() {
			m.store.Delete(id)
		}
	})
}

// fire calls fn with the session's callbacks if it is still registered.
// The lock is not held while fn runs.
func (m *Manager) fire(id string, fn func(Callbacks)) {
	m.mu.Lock()
	s, ok := m.store.Get(id)
	if !ok || s.Stage == StageCancelled {
		m.mu.Unlock()
		return
	}
	cb := s.callbacks
	m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(managerModule, "Callback panicked", map[string]interface{}{
				"analysis_id": id,
				"panic":       fmt.Sprint(r),
			})
		}
	}()
	fn(cb)
}

func (m *Manager) progressSink(id string, tier analysis.Tier) func(string, map[string]interface{}) {
	return func(workerID string, payload map[string]interface{}) {
		m.mu.Lock()
		s, ok := m.store.Get(id)
		var stage Stage
		if ok {
			stage = s.Stage
		}
		m.mu.Unlock()
		if !ok {
			return
		}
		m.fire(id, func(cb Callbacks) {
			if cb.OnProgress != nil {
				cb.OnProgress(ProgressEvent{
					AnalysisID: id,
					WorkerID:   workerID,
					Tier:       tier,
					Stage:      stage,
					Payload:    payload,
				})
			}
		})
	}
}

func (m *Manager) caps(maxParallel int) analysis.TierCaps {
	caps := m.cfg.Caps
	if maxParallel > 0 {
		// a request may lower the configured caps, never raise them
		if caps.Fast > maxParallel {
			caps.Fast = maxParallel
		}
		if caps.Research > maxParallel {
			caps.Research = maxParallel
		}
	}
	return caps
}

func (m *Manager) isCancelled(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store.Get(id)
	return !ok || s.Stage == StageCancelled
}

func (m *Manager) cancelledPayload(id string) *FastCompletePayload {
	return &FastCompletePayload{
		AnalysisID: id,
		Results:    analysis.FastResult{Insights: []analysis.Insight{}, Confidence: analysis.DefaultConfidence},
		Stage:      StageCancelled,
	}
}

// GetStatus returns a snapshot of a registered session.
func (m *Manager) GetStatus(id string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.store.Get(id)
	if !ok {
		return Status{}, false
	}
	st := Status{
		AnalysisID:      s.ID,
		DocumentID:      s.DocumentID,
		Stage:           s.Stage,
		CreatedAt:       s.CreatedAt,
		Elapsed:         time.Since(s.CreatedAt),
		ResearchResults: len(s.Research),
	}
	if s.FastResult != nil {
		st.FastInsights = len(s.FastResult.Insights)
		st.Confidence = s.FastResult.Confidence
	}
	if s.Fused != nil {
		st.FusedInsights = len(s.Fused.Insights)
		st.Confidence = s.Fused.Confidence
	}
	if s.Err != nil {
		st.Error = s.Err.Error()
	}
	return st, true
}

// Cancel stops a session that has not finished yet and removes it at once.
// Background research is abandoned and its results discarded.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	s, ok := m.store.Get(id)
	if !ok || s.Stage.Terminal() {
		m.mu.Unlock()
		return false
	}
	s.Stage = StageCancelled
	m.store.Delete(id)
	m.releaseLocked(id)
	elapsed := time.Since(s.CreatedAt)
	m.mu.Unlock()

	m.recorder.SessionEnded(StageCancelled, elapsed)
	m.logger.Info(managerModule, "Analysis cancelled", map[string]interface{}{
		"analysis_id": id,
	})
	return true
}

// Active returns the number of registered sessions, finished ones included
// until they are evicted.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Count()
}

// Wait blocks until all background research has settled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown cancels every running session, stops pending evictions and waits
// for background research to return.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
	}
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info(managerModule, "Session manager stopped", nil)
}
