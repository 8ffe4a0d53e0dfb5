package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/pkg/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	sessions map[string]*AnalysisSession
}

func newMapStore() *mapStore {
	return &mapStore{sessions: map[string]*AnalysisSession{}}
}

// the manager serializes access, so no lock here
func (s *mapStore) Get(id string) (*AnalysisSession, bool) {
	a, ok := s.sessions[id]
	return a, ok
}

func (s *mapStore) Save(a *AnalysisSession) { s.sessions[a.ID] = a }
func (s *mapStore) Delete(id string)        { delete(s.sessions, id) }
func (s *mapStore) Count() int              { return len(s.sessions) }

type stubWorker struct {
	id      string
	tier    analysis.Tier
	delay   time.Duration
	err     error
	result  *analysis.WorkerResult
	calls   int32
	started chan struct{}
}

func (w *stubWorker) ID() string          { return w.id }
func (w *stubWorker) Tier() analysis.Tier { return w.tier }

func (w *stubWorker) Analyze(ctx context.Context, _ string, opts analysis.AnalyzeOptions) (*analysis.WorkerResult, error) {
	atomic.AddInt32(&w.calls, 1)
	opts.Report(map[string]interface{}{"status": "started"})
	if w.started != nil {
		close(w.started)
	}
	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.result, nil
}

func fastWorker(id string, insight analysis.Insight) *stubWorker {
	return &stubWorker{
		id:     id,
		tier:   analysis.TierFast,
		result: &analysis.WorkerResult{Insights: []analysis.Insight{insight}, Confidence: analysis.Float(0.6)},
	}
}

func researchWorker(id string, insight analysis.Insight) *stubWorker {
	return &stubWorker{
		id:     id,
		tier:   analysis.TierResearch,
		delay:  30 * time.Millisecond,
		result: &analysis.WorkerResult{Insights: []analysis.Insight{insight}, Confidence: analysis.Float(0.9)},
	}
}

type stageRecorder struct {
	mu      sync.Mutex
	started int
	ended   []Stage
}

func (r *stageRecorder) SessionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *stageRecorder) SessionEnded(stage Stage, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, stage)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FastTimeout = time.Second
	cfg.ResearchTimeout = time.Second
	cfg.CleanupDelay = time.Minute
	return cfg
}

func newTestManager(workers []analysis.Worker, cfg Config, opts ...ManagerOption) *Manager {
	log := logger.NewNopLogger()
	return NewManager(newMapStore(), StaticWorkers(workers), analysis.NewExecutor(log), cfg, log, opts...)
}

// events records callback order.
type events struct {
	mu       sync.Mutex
	order    []string
	complete chan CompletePayload
	errs     chan ErrorPayload
	enhanced chan EnhancementPayload
	progress []ProgressEvent
}

func newEvents() *events {
	return &events{
		complete: make(chan CompletePayload, 1),
		errs:     make(chan ErrorPayload, 1),
		enhanced: make(chan EnhancementPayload, 1),
	}
}

func (e *events) add(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order = append(e.order, name)
}

func (e *events) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func (e *events) callbacks() Callbacks {
	return Callbacks{
		OnProgress: func(ev ProgressEvent) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.progress = append(e.progress, ev)
		},
		OnFastComplete: func(FastCompletePayload) { e.add("fast") },
		OnEnhancementAvailable: func(p EnhancementPayload) {
			e.add("enhanced")
			e.enhanced <- p
		},
		OnComplete: func(p CompletePayload) {
			e.add("complete")
			e.complete <- p
		},
		OnError: func(p ErrorPayload) {
			e.add("error")
			e.errs <- p
		},
	}
}

func waitComplete(t *testing.T, ev *events) CompletePayload {
	t.Helper()
	select {
	case p := <-ev.complete:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("session did not complete")
		return CompletePayload{}
	}
}

func TestStart_FastThenEnhancement(t *testing.T) {
	workers := []analysis.Worker{
		fastWorker("grammar", analysis.Insight{Type: "grammar", Priority: analysis.PriorityLow, Title: "typo"}),
		researchWorker("structure", analysis.Insight{Type: "structure", Priority: analysis.PriorityHigh, Title: "flow"}),
	}
	rec := &stageRecorder{}
	m := newTestManager(workers, testConfig(), WithSessionRecorder(rec))
	defer m.Shutdown()
	ev := newEvents()

	payload, err := m.Start(context.Background(), "some document", Options{Callbacks: ev.callbacks(), DocumentID: "doc-1"})

	require.NoError(t, err)
	assert.Equal(t, StageFastComplete, payload.Stage)
	assert.True(t, payload.EnhancementsInProgress)
	require.Len(t, payload.Results.Insights, 1)
	assert.Equal(t, "grammar", payload.Results.Insights[0].Source)

	enh := <-ev.enhanced
	assert.Equal(t, 1, enh.Improvement.InsightCountDelta)
	assert.Equal(t, []string{"structure"}, enh.Improvement.NewCategories)
	assert.InDelta(t, 0.3*0.6+0.7*0.9, enh.Results.Confidence, 1e-9)

	final := waitComplete(t, ev)
	assert.True(t, final.Enhanced)
	assert.Equal(t, StageComplete, final.Stage)
	require.Len(t, final.Results.Insights, 2)
	assert.Equal(t, "flow", final.Results.Insights[0].Title)

	assert.Equal(t, []string{"fast", "enhanced", "complete"}, ev.names())

	st, ok := m.GetStatus(payload.AnalysisID)
	require.True(t, ok)
	assert.Equal(t, StageComplete, st.Stage)
	assert.Equal(t, "doc-1", st.DocumentID)
	assert.Equal(t, 1, st.FastInsights)
	assert.Equal(t, 1, st.ResearchResults)
	assert.Equal(t, 2, st.FusedInsights)

	m.Wait()
	rec.mu.Lock()
	assert.Equal(t, 1, rec.started)
	assert.Equal(t, []Stage{StageComplete}, rec.ended)
	rec.mu.Unlock()
}

func TestStart_ProgressIsTagged(t *testing.T) {
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{Type: "grammar"})}, testConfig())
	defer m.Shutdown()
	ev := newEvents()

	payload, err := m.Start(context.Background(), "doc", Options{Callbacks: ev.callbacks()})
	require.NoError(t, err)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	require.Len(t, ev.progress, 1)
	assert.Equal(t, payload.AnalysisID, ev.progress[0].AnalysisID)
	assert.Equal(t, "grammar", ev.progress[0].WorkerID)
	assert.Equal(t, analysis.TierFast, ev.progress[0].Tier)
	assert.Equal(t, StageFastPhase, ev.progress[0].Stage)
}

func TestStart_FastOnlyCompletesSynchronously(t *testing.T) {
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{Type: "grammar"})}, testConfig())
	defer m.Shutdown()
	ev := newEvents()

	payload, err := m.Start(context.Background(), "doc", Options{Callbacks: ev.callbacks()})

	require.NoError(t, err)
	assert.False(t, payload.EnhancementsInProgress)
	assert.Equal(t, []string{"fast", "complete"}, ev.names())
	final := <-ev.complete
	assert.False(t, final.Enhanced)
}

func TestStart_NoFastWorkers(t *testing.T) {
	m := newTestManager([]analysis.Worker{researchWorker("structure", analysis.Insight{})}, testConfig())
	defer m.Shutdown()
	ev := newEvents()

	_, err := m.Start(context.Background(), "doc", Options{Callbacks: ev.callbacks()})

	assert.ErrorIs(t, err, analysis.ErrNoWorkersAvailable)
	p := <-ev.errs
	assert.Equal(t, StageInitializing, p.Stage)
}

func TestStart_AllFastWorkersFail(t *testing.T) {
	bad := fastWorker("grammar", analysis.Insight{})
	bad.err = errors.New("model unavailable")
	m := newTestManager([]analysis.Worker{bad}, testConfig())
	defer m.Shutdown()
	ev := newEvents()

	_, err := m.Start(context.Background(), "doc", Options{Callbacks: ev.callbacks()})

	assert.ErrorIs(t, err, analysis.ErrAllWorkersFailed)
	p := <-ev.errs
	assert.Equal(t, StageFastPhase, p.Stage)
	assert.Contains(t, p.Message, "model unavailable")
	assert.Equal(t, []string{"error"}, ev.names())
}

func TestStart_PartialFastFailureIsReported(t *testing.T) {
	bad := fastWorker("style", analysis.Insight{})
	bad.err = errors.New("boom")
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{Type: "grammar"}), bad}, testConfig())
	defer m.Shutdown()

	payload, err := m.Start(context.Background(), "doc", Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"style"}, payload.FailedWorkers)
	assert.Len(t, payload.Results.Insights, 1)
}

func TestStart_ResearchTimeoutKeepsFastResults(t *testing.T) {
	slow := researchWorker("structure", analysis.Insight{Type: "structure"})
	slow.delay = 5 * time.Second
	cfg := testConfig()
	cfg.ResearchTimeout = 80 * time.Millisecond
	cfg.ResearchStragglerGrace = 0
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{Type: "grammar"}), slow}, cfg)
	defer m.Shutdown()
	ev := newEvents()

	start := time.Now()
	_, err := m.Start(context.Background(), "doc", Options{Callbacks: ev.callbacks()})
	require.NoError(t, err)

	final := waitComplete(t, ev)
	assert.Less(t, time.Since(start), cfg.FastTimeout+cfg.ResearchTimeout+500*time.Millisecond)
	assert.False(t, final.Enhanced)
	assert.Len(t, final.Results.Insights, 1)
	assert.NotContains(t, ev.names(), "enhanced")
}

func TestStart_ResearchFailureKeepsFastResults(t *testing.T) {
	bad := researchWorker("structure", analysis.Insight{})
	bad.err = errors.New("rate limited")
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{Type: "grammar"}), bad}, testConfig())
	defer m.Shutdown()
	ev := newEvents()

	payload, err := m.Start(context.Background(), "doc", Options{Callbacks: ev.callbacks()})
	require.NoError(t, err)

	final := waitComplete(t, ev)
	assert.False(t, final.Enhanced)
	assert.Equal(t, []string{"fast", "complete"}, ev.names())

	st, ok := m.GetStatus(payload.AnalysisID)
	require.True(t, ok)
	assert.Equal(t, StageComplete, st.Stage)
	assert.Empty(t, st.Error)
}

func TestStart_RequestContextDoesNotStopResearch(t *testing.T) {
	m := newTestManager([]analysis.Worker{
		fastWorker("grammar", analysis.Insight{Type: "grammar"}),
		researchWorker("structure", analysis.Insight{Type: "structure"}),
	}, testConfig())
	defer m.Shutdown()
	ev := newEvents()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := m.Start(ctx, "doc", Options{Callbacks: ev.callbacks()})
	require.NoError(t, err)
	cancel()

	final := waitComplete(t, ev)
	assert.True(t, final.Enhanced)
}

func TestCancel_DuringResearch(t *testing.T) {
	slow := researchWorker("structure", analysis.Insight{Type: "structure"})
	slow.delay = 5 * time.Second
	slow.started = make(chan struct{})
	rec := &stageRecorder{}
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{Type: "grammar"}), slow}, testConfig(), WithSessionRecorder(rec))
	defer m.Shutdown()
	ev := newEvents()

	payload, err := m.Start(context.Background(), "doc", Options{Callbacks: ev.callbacks()})
	require.NoError(t, err)
	<-slow.started

	assert.True(t, m.Cancel(payload.AnalysisID))

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("research did not stop after cancel")
	}

	_, ok := m.GetStatus(payload.AnalysisID)
	assert.False(t, ok)
	assert.Equal(t, []string{"fast"}, ev.names())
	assert.False(t, m.Cancel(payload.AnalysisID))

	rec.mu.Lock()
	assert.Equal(t, []Stage{StageCancelled}, rec.ended)
	rec.mu.Unlock()
}

func TestCancel_DuringFastPhase(t *testing.T) {
	slow := fastWorker("grammar", analysis.Insight{Type: "grammar"})
	slow.delay = 5 * time.Second
	slow.started = make(chan struct{})
	m := newTestManager([]analysis.Worker{slow}, testConfig())
	defer m.Shutdown()

	var analysisID string
	ev := newEvents()
	cb := ev.callbacks()
	cb.OnProgress = func(p ProgressEvent) { analysisID = p.AnalysisID }

	go func() {
		<-slow.started
		m.Cancel(analysisID)
	}()

	payload, err := m.Start(context.Background(), "doc", Options{Callbacks: cb})

	require.NoError(t, err)
	assert.Equal(t, StageCancelled, payload.Stage)
	assert.Empty(t, ev.names())
}

func TestCancel_UnknownOrFinished(t *testing.T) {
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{})}, testConfig())
	defer m.Shutdown()

	assert.False(t, m.Cancel("missing"))

	payload, err := m.Start(context.Background(), "doc", Options{})
	require.NoError(t, err)
	assert.False(t, m.Cancel(payload.AnalysisID))
}

func TestFinishedSessionsAreEvicted(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupDelay = 50 * time.Millisecond
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{})}, cfg)
	defer m.Shutdown()

	payload, err := m.Start(context.Background(), "doc", Options{})
	require.NoError(t, err)

	_, ok := m.GetStatus(payload.AnalysisID)
	assert.True(t, ok)
	assert.Eventually(t, func() bool {
		_, ok := m.GetStatus(payload.AnalysisID)
		return !ok
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, m.Active())
}

func TestFailedSessionsAreEvicted(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupDelay = 50 * time.Millisecond
	m := newTestManager(nil, cfg)
	defer m.Shutdown()

	_, err := m.Start(context.Background(), "doc", Options{})
	require.Error(t, err)

	assert.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, 10*time.Millisecond)
}

func TestMaxParallelAgents(t *testing.T) {
	a := fastWorker("a", analysis.Insight{})
	b := fastWorker("b", analysis.Insight{})
	m := newTestManager([]analysis.Worker{a, b}, testConfig())
	defer m.Shutdown()

	_, err := m.Start(context.Background(), "doc", Options{MaxParallelAgents: 1})

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&a.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&b.calls))
}

func TestMaxParallelAgents_CannotRaiseConfiguredCap(t *testing.T) {
	workers := make([]*stubWorker, 5)
	pool := make([]analysis.Worker, 5)
	for i := range workers {
		workers[i] = fastWorker(fmt.Sprintf("fast-%d", i), analysis.Insight{})
		pool[i] = workers[i]
	}
	cfg := testConfig()
	cfg.Caps = analysis.TierCaps{Fast: 3, Research: 2}
	m := newTestManager(pool, cfg)
	defer m.Shutdown()

	_, err := m.Start(context.Background(), "doc", Options{MaxParallelAgents: 5})
	require.NoError(t, err)

	var ran int32
	for _, w := range workers {
		ran += atomic.LoadInt32(&w.calls)
	}
	assert.Equal(t, int32(3), ran)
}

func TestCallbackPanicDoesNotBreakSession(t *testing.T) {
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{})}, testConfig())
	defer m.Shutdown()

	completed := make(chan struct{}, 1)
	payload, err := m.Start(context.Background(), "doc", Options{Callbacks: Callbacks{
		OnFastComplete: func(FastCompletePayload) { panic("listener bug") },
		OnComplete:     func(CompletePayload) { completed <- struct{}{} },
	}})

	require.NoError(t, err)
	assert.Equal(t, StageFastComplete, payload.Stage)
	<-completed
}

func TestShutdown(t *testing.T) {
	slow := researchWorker("structure", analysis.Insight{})
	slow.delay = 5 * time.Second
	m := newTestManager([]analysis.Worker{fastWorker("grammar", analysis.Insight{}), slow}, testConfig())

	_, err := m.Start(context.Background(), "doc", Options{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not wait for research to stop")
	}

	_, err = m.Start(context.Background(), "doc", Options{})
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageInitializing, StageFastPhase, true},
		{StageInitializing, StageFastComplete, false},
		{StageFastPhase, StageFastComplete, true},
		{StageFastComplete, StageComplete, true},
		{StageFastComplete, StageResearchPhase, true},
		{StageResearchPhase, StageEnhancing, true},
		{StageResearchPhase, StageComplete, true},
		{StageEnhancing, StageEnhanced, true},
		{StageEnhanced, StageComplete, true},
		{StageEnhanced, StageResearchPhase, false},
		{StageFastPhase, StageError, true},
		{StageResearchPhase, StageCancelled, true},
		{StageComplete, StageError, false},
		{StageCancelled, StageComplete, false},
		{StageError, StageCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
