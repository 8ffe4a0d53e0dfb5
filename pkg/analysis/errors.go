package analysis

import "errors"

var (
	// ErrNoWorkersAvailable means the fast tier is empty; nothing can run.
	ErrNoWorkersAvailable = errors.New("no workers available for the fast tier")

	// ErrAllWorkersFailed means every worker of a tier errored or timed out.
	ErrAllWorkersFailed = errors.New("all workers in tier failed")

	// ErrPartialTierFailure marks a tier where some workers failed but others succeeded.
	ErrPartialTierFailure = errors.New("some workers in tier failed")

	// ErrTierTimeout is recorded on workers that never settled within the tier deadline.
	ErrTierTimeout = errors.New("tier timeout elapsed before worker settled")

	// ErrResearchPhaseFailure wraps research tier errors; sessions recover from it.
	ErrResearchPhaseFailure = errors.New("research phase failed")
)
