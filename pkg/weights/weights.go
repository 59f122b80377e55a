// Package weights holds the process-wide OptimizationWeights and the
// hot-swappable store that serves a consistent snapshot to each
// optimization run.
package weights

import (
	"sync/atomic"

	"tourweave/pkg/model"
)

// DefaultWeights returns the static defaults, ported from
// optimization_weights.py's OptimizationWeights dataclass.
func DefaultWeights() model.OptimizationWeights {
	return model.OptimizationWeights{
		DistanceWeight:   0.35,
		PopularityWeight: 0.30,
		UrgencyWeight:    0.20,
		RatingWeight:     0.15,

		TravelTimePenalty:       0.1,
		CostPenalty:             0.5,
		ConstraintViolation:     2.0,
		WaitPenalty:             0.5,
		MissedPOIPenalty:        200,
		InsufficientTimePenalty: 150,
		AvoidedCategoryPenalty:  50,
		MandatoryMissingPenalty: 100,
		NonVisitablePenalty:     300,
	}
}

// Store holds the active OptimizationWeights instance. An external
// weight-learner may atomically replace it; an in-flight optimization reads
// one consistent snapshot per run (configuration-by-value), so a concurrent
// Set never perturbs results already in progress.
type Store struct {
	current atomic.Pointer[model.OptimizationWeights]
}

// NewStore creates a Store seeded with DefaultWeights.
func NewStore() *Store {
	s := &Store{}
	w := DefaultWeights()
	s.current.Store(&w)
	return s
}

// Snapshot returns the active weights by value.
func (s *Store) Snapshot() model.OptimizationWeights {
	return *s.current.Load()
}

// Set atomically replaces the active weights.
func (s *Store) Set(w model.OptimizationWeights) {
	s.current.Store(&w)
}
