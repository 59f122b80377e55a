// Package errs defines the sentinel errors for the optimization error
// taxonomy. Callers use errors.Is against these; HoursLib and the Evaluator
// return them only on contract violations, never for in-band domain
// outcomes like "POI closed" or "too crowded" (those are scored penalties).
package errs

import "errors"

var (
	// ErrInvalidRequest marks a parameter out of range or a malformed time string.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoAvailablePOIs marks an empty result from the availability filter.
	ErrNoAvailablePOIs = errors.New("no available pois")

	// ErrNoFeasibleRoute marks both ACO and GA returning an empty route.
	ErrNoFeasibleRoute = errors.New("no feasible route")

	// ErrDimensionMismatch marks a distance matrix whose size disagrees with
	// the route referencing it. Internal contract violation, fatal.
	ErrDimensionMismatch = errors.New("distance matrix dimension mismatch")

	// ErrInvalidIndex marks a route index outside [0, N). Internal contract
	// violation, fatal.
	ErrInvalidIndex = errors.New("route index out of range")

	// ErrOracleUnavailable marks every DistanceOracle provider, including the
	// great-circle fallback, failing. Should never occur in practice.
	ErrOracleUnavailable = errors.New("distance oracle unavailable")

	// ErrCancelled marks a caller deadline or cancel signal firing mid-run.
	ErrCancelled = errors.New("optimization cancelled")
)
