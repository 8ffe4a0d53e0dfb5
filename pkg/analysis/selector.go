package analysis

// TierCaps bounds how many workers of each tier run for one analysis.
type TierCaps struct {
	Fast     int
	Research int
}

// DefaultTierCaps keeps cost and latency exposure bounded.
var DefaultTierCaps = TierCaps{Fast: 3, Research: 2}

// Pools is the outcome of worker selection.
type Pools struct {
	Fast     []Worker
	Research []Worker
}

// FastOnly reports whether the analysis degrades to fast feedback only.
func (p Pools) FastOnly() bool {
	return len(p.Research) == 0
}

// SelectWorkers partitions registered workers by tier affinity, keeping
// registration order and at most the cap per tier.
func SelectWorkers(workers []Worker, caps TierCaps) (Pools, error) {
	var pools Pools
	for _, w := range workers {
		if w == nil {
			continue
		}
		switch w.Tier() {
		case TierFast:
			if len(pools.Fast) < caps.Fast {
				pools.Fast = append(pools.Fast, w)
			}
		case TierResearch:
			if len(pools.Research) < caps.Research {
				pools.Research = append(pools.Research, w)
			}
		}
	}

	if len(pools.Fast) == 0 {
		return Pools{}, ErrNoWorkersAvailable
	}
	return pools, nil
}
