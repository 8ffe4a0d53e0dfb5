package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-critic-be/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const executorModule = "TieredExecutor"

// TierConfig controls a single tier run.
type TierConfig struct {
	Tier Tier

	// Timeout is the soft deadline for the whole tier. Zero waits for every worker.
	Timeout time.Duration

	// StragglerGrace is how long to keep collecting after Timeout fires.
	// Negative means wait for every straggler (bounded only by the workers
	// themselves); zero or positive discards whatever is still running once
	// it elapses.
	StragglerGrace time.Duration

	// AllowEmpty turns a tier that timed out with zero successes into an
	// empty result instead of ErrAllWorkersFailed.
	AllowEmpty bool

	Options AnalyzeOptions

	// Progress receives worker progress tagged with the worker id.
	Progress func(workerID string, payload map[string]interface{})
}

// TierResult is the best achievable result of a tier run.
type TierResult struct {
	Tier        Tier            `json:"tier"`
	Outcomes    []WorkerOutcome `json:"outcomes"`
	Failures    []WorkerOutcome `json:"failures,omitempty"`
	Elapsed     time.Duration   `json:"elapsed"`
	WorkerCount int             `json:"worker_count"`
	TimedOut    bool            `json:"timed_out"`
}

// Partial reports whether some, but not all, workers failed.
func (r *TierResult) Partial() bool {
	return r != nil && len(r.Failures) > 0 && len(r.Outcomes) > 0
}

// Warning returns ErrPartialTierFailure joined with the individual worker
// errors when the tier only partly succeeded.
func (r *TierResult) Warning() error {
	if !r.Partial() {
		return nil
	}
	errs := []error{ErrPartialTierFailure}
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.WorkerID, f.Err))
	}
	return errors.Join(errs...)
}

// Recorder receives execution measurements. Implemented by the Prometheus
// metrics in internal/observability.
type Recorder interface {
	ObserveTier(tier Tier, elapsed time.Duration, succeeded, failed int, timedOut bool)
	ObserveWorker(tier Tier, workerID string, success bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTier(Tier, time.Duration, int, int, bool) {}
func (nopRecorder) ObserveWorker(Tier, string, bool, time.Duration) {}

// Executor runs the workers of one tier concurrently.
type Executor struct {
	logger   logger.ILogger
	recorder Recorder
	tracer   trace.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewExecutor creates an executor logging through log.
func NewExecutor(log logger.ILogger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger:   log,
		recorder: nopRecorder{},
		tracer:   otel.Tracer("ai-critic-be/pkg/analysis"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type settled struct {
	index   int
	outcome WorkerOutcome
}

// Execute invokes every worker concurrently and returns the successful
// outcomes. A worker failure never aborts its siblings.
func (e *Executor) Execute(ctx context.Context, workers []Worker, document string, cfg TierConfig) (*TierResult, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "analysis.tier."+string(cfg.Tier), trace.WithAttributes(
		attribute.String("tier", string(cfg.Tier)),
		attribute.Int("workers", len(workers)),
	))
	defer span.End()

	if len(workers) == 0 {
		if cfg.AllowEmpty {
			return &TierResult{Tier: cfg.Tier}, nil
		}
		return nil, ErrNoWorkersAvailable
	}

	workerCtx := ctx
	if cfg.Timeout > 0 && cfg.StragglerGrace >= 0 {
		var cancel context.CancelFunc
		workerCtx, cancel = context.WithTimeout(ctx, cfg.Timeout+cfg.StragglerGrace)
		defer cancel()
	}

	results := make(chan settled, len(workers))
	var g errgroup.Group
	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			results <- settled{index: i, outcome: e.invoke(workerCtx, w, document, cfg)}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	collected, timedOut := e.collect(ctx, results, len(workers), cfg)

	seen := make(map[int]bool, len(collected))
	var successes, failures []WorkerOutcome
	for _, s := range collected {
		seen[s.index] = true
		if s.outcome.Success {
			successes = append(successes, s.outcome)
		} else {
			failures = append(failures, s.outcome)
		}
	}
	for i, w := range workers {
		if seen[i] {
			continue
		}
		cause := ErrTierTimeout
		if ctx.Err() != nil {
			cause = ctx.Err()
		}
		failures = append(failures, WorkerOutcome{
			WorkerID:   w.ID(),
			Tier:       cfg.Tier,
			Err:        cause,
			ErrMessage: cause.Error(),
			Duration:   time.Since(start),
		})
	}

	elapsed := time.Since(start)
	for _, o := range append(append([]WorkerOutcome{}, successes...), failures...) {
		e.recorder.ObserveWorker(cfg.Tier, o.WorkerID, o.Success, o.Duration)
	}
	e.recorder.ObserveTier(cfg.Tier, elapsed, len(successes), len(failures), timedOut)
	span.SetAttributes(
		attribute.Int("succeeded", len(successes)),
		attribute.Int("failed", len(failures)),
		attribute.Bool("timed_out", timedOut),
	)

	result := &TierResult{
		Tier:        cfg.Tier,
		Outcomes:    successes,
		Failures:    failures,
		Elapsed:     elapsed,
		WorkerCount: len(workers),
		TimedOut:    timedOut,
	}

	if len(successes) == 0 {
		if cfg.AllowEmpty && timedOut {
			e.logger.Warn(executorModule, "Tier timed out without results, continuing empty", map[string]interface{}{
				"tier":    cfg.Tier,
				"workers": len(workers),
				"elapsed": elapsed.String(),
			})
			return result, nil
		}

		errs := []error{ErrAllWorkersFailed}
		for _, f := range failures {
			errs = append(errs, fmt.Errorf("%s: %w", f.WorkerID, f.Err))
		}
		err := fmt.Errorf("%s tier (%d workers): %w", cfg.Tier, len(workers), errors.Join(errs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, "all workers failed")
		e.logger.Error(executorModule, "All workers failed", map[string]interface{}{
			"tier":  cfg.Tier,
			"error": err.Error(),
		})
		return nil, err
	}

	if warn := result.Warning(); warn != nil {
		e.logger.Warn(executorModule, "Partial tier failure", map[string]interface{}{
			"tier":      cfg.Tier,
			"succeeded": len(successes),
			"failed":    len(failures),
			"error":     warn.Error(),
		})
	}

	e.logger.Info(executorModule, "Tier settled", map[string]interface{}{
		"tier":      cfg.Tier,
		"succeeded": len(successes),
		"failed":    len(failures),
		"timed_out": timedOut,
		"elapsed":   elapsed.String(),
	})
	return result, nil
}

// collect reads settled outcomes until all workers are done, the parent
// context ends, or the straggler grace after the tier timeout runs out.
func (e *Executor) collect(ctx context.Context, results <-chan settled, total int, cfg TierConfig) ([]settled, bool) {
	var out []settled
	timedOut := false

	var deadline <-chan time.Time
	if cfg.Timeout > 0 {
		t := time.NewTimer(cfg.Timeout)
		defer t.Stop()
		deadline = t.C
	}
	var grace <-chan time.Time

	for len(out) < total {
		select {
		case s, ok := <-results:
			if !ok {
				return out, timedOut
			}
			out = append(out, s)
		case <-deadline:
			deadline = nil
			timedOut = true
			e.logger.Warn(executorModule, "Tier timeout elapsed, collecting stragglers", map[string]interface{}{
				"tier":    cfg.Tier,
				"settled": len(out),
				"pending": total - len(out),
			})
			if cfg.StragglerGrace >= 0 {
				t := time.NewTimer(cfg.StragglerGrace)
				defer t.Stop()
				grace = t.C
			}
		case <-grace:
			// last non-blocking sweep for anything that settled meanwhile
			for {
				select {
				case s, ok := <-results:
					if !ok {
						return out, timedOut
					}
					out = append(out, s)
					if len(out) == total {
						return out, timedOut
					}
				default:
					return out, timedOut
				}
			}
		case <-ctx.Done():
			return out, timedOut
		}
	}
	return out, timedOut
}

func (e *Executor) invoke(ctx context.Context, w Worker, document string, cfg TierConfig) (out WorkerOutcome) {
	start := time.Now()
	out = WorkerOutcome{WorkerID: w.ID(), Tier: cfg.Tier}

	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Result = nil
			out.Err = fmt.Errorf("worker %s panicked: %v", w.ID(), r)
		}
		out.Duration = time.Since(start)
		if out.Err != nil {
			out.ErrMessage = out.Err.Error()
			e.logger.Warn(executorModule, "Worker failed", map[string]interface{}{
				"tier":      cfg.Tier,
				"worker_id": out.WorkerID,
				"error":     out.ErrMessage,
			})
		}
	}()

	opts := cfg.Options
	if opts.Complexity == "" {
		opts.Complexity = ComplexityFor(cfg.Tier)
	}
	if cfg.Progress != nil {
		id := w.ID()
		opts.Progress = func(payload map[string]interface{}) {
			cfg.Progress(id, payload)
		}
	}

	res, err := w.Analyze(ctx, document, opts)
	if err != nil {
		out.Err = err
		return out
	}
	if res == nil {
		res = &WorkerResult{}
	}
	out.Success = true
	out.Result = res
	return out
}
