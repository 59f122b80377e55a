// Package aco implements the Ant Colony Optimization constructor: a
// probabilistic sequence builder over POI indices driven by a pheromone
// matrix and a multi-factor heuristic sharing weights with pkg/toptw.
package aco

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"tourweave/pkg/geo"
	"tourweave/pkg/hours"
	"tourweave/pkg/model"
	"tourweave/pkg/toptw"
)

// Config holds the ACO hyperparameters, mirroring config.ACOConfig.
type Config struct {
	Alpha      float64
	Beta       float64
	Rho        float64 // evaporation rate
	Q          float64 // deposit factor
	NumAnts    int
	Iterations int
	InitialTau float64
}

// MaxWaitMinutes mirrors pkg/hours.MaxWaitMinutes; ants never wait longer
// than this for a POI to open.
const MaxWaitMinutes = hours.MaxWaitMinutes

// IterationRecord captures one iteration's fitness distribution, mirroring
// the source's fitness_history for observability.
type IterationRecord struct {
	Iteration   int
	BestFitness float64
	AvgFitness  float64
}

// Result is the outcome of one Run: the global best route/fitness plus the
// per-iteration history (P8: best must be non-decreasing across entries).
type Result struct {
	BestRoute   model.Route
	BestFitness float64
	History     []IterationRecord
}

// Optimizer runs ACO over one fixed candidate set, distance matrix, and
// constraints. Pheromone state is per-optimization, never shared across
// requests.
type Optimizer struct {
	pois        []model.POI
	constraints model.Constraints
	distMatrix  [][]float64
	startToEach []float64
	weights     model.OptimizationWeights
	startLoc    *geo.Point
	cfg         Config
	rng         *rand.Rand

	pheromone *model.PheromoneMatrix
}

// New builds an Optimizer. rng is the single injected PRNG spec.md §4.6
// requires for reproducibility; pass rand.New(rand.NewSource(seed)).
func New(pois []model.POI, constraints model.Constraints, distMatrix [][]float64, startToEach []float64, startLoc *geo.Point, weights model.OptimizationWeights, cfg Config, rng *rand.Rand) *Optimizer {
	return &Optimizer{
		pois:        pois,
		constraints: constraints,
		distMatrix:  distMatrix,
		startToEach: startToEach,
		weights:     weights,
		startLoc:    startLoc,
		cfg:         cfg,
		rng:         rng,
		pheromone:   model.NewPheromoneMatrix(len(pois), cfg.InitialTau),
	}
}

// Run executes the full ACO loop and returns the global best route. Honors
// ctx cancellation between iterations, per spec.md §5: on cancellation it
// returns the best-so-far found up to that point.
func (o *Optimizer) Run(ctx context.Context) Result {
	result := Result{}

	for iter := 0; iter < o.cfg.Iterations; iter++ {
		select {
		case <-ctx.Done():
			return result
		default:
		}

		routes, fitnesses := o.runIteration()

		sum := 0.0
		for i, f := range fitnesses {
			sum += f
			if f > result.BestFitness {
				result.BestFitness = f
				result.BestRoute = append(model.Route{}, routes[i]...)
			}
		}
		avg := 0.0
		if len(fitnesses) > 0 {
			avg = sum / float64(len(fitnesses))
		}
		result.History = append(result.History, IterationRecord{
			Iteration:   iter,
			BestFitness: result.BestFitness,
			AvgFitness:  avg,
		})

		o.updatePheromones(routes, fitnesses)
	}

	return result
}

// runIteration constructs one route per ant in parallel against a frozen
// pheromone snapshot (double-buffer read side), then returns all routes and
// fitnesses for the serial pheromone-update step.
func (o *Optimizer) runIteration() ([]model.Route, []float64) {
	snapshot := o.pheromone.Snapshot()

	routes := make([]model.Route, o.cfg.NumAnts)
	fitnesses := make([]float64, o.cfg.NumAnts)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for a := 0; a < o.cfg.NumAnts; a++ {
		ant := a
		g.Go(func() error {
			mu.Lock()
			seed := o.rng.Int63()
			mu.Unlock()
			antRNG := rand.New(rand.NewSource(seed))

			route := o.constructSolution(snapshot, antRNG)
			fitness, err := toptw.Fitness(route, o.constraints.DayOfWeek, o.evalInput())
			if err != nil {
				return err
			}
			routes[ant] = route
			fitnesses[ant] = fitness
			return nil
		})
	}
	_ = g.Wait() // Fitness() only errors on internal contract violations we cannot recover from here; a zero route/fitness is recorded and the iteration proceeds.

	return routes, fitnesses
}

func (o *Optimizer) evalInput() toptw.Input {
	return toptw.Input{
		POIs:        o.pois,
		Constraints: o.constraints,
		DistMatrix:  o.distMatrix,
		StartToEach: o.startToEach,
		Weights:     o.weights,
	}
}

// travelTime returns the travel time in minutes from i to j, or from the
// start location to j when i < 0.
func (o *Optimizer) travelTime(i, j int) float64 {
	if i < 0 {
		if o.startToEach != nil && j < len(o.startToEach) {
			return o.startToEach[j]
		}
		return 0
	}
	return o.distMatrix[i][j]
}

// heuristic computes eta(i->j, now) per spec.md §4.4: four normalized 0..1
// sub-scores combined with the shared OptimizationWeights, scaled by a
// wait-time penalty multiplier. Returns 0 when j is infeasible from now.
func (o *Optimizer) heuristic(i, j int, now int) float64 {
	next := o.pois[j]
	travel := o.travelTime(i, j)

	distScore := math.Max(0, 1.0-travel/60.0)
	popScore := math.Min(1.0, float64(next.Popularity)/100.0)

	arrival := float64(now) + travel
	openMin, closeMin, closed := hours.ParseOpeningHours(nil, next.OpeningHours, o.constraints.DayOfWeek)
	if closed || arrival >= float64(closeMin) {
		return 0
	}

	wait := 0.0
	if arrival < float64(openMin) {
		wait = float64(openMin) - arrival
		if wait > MaxWaitMinutes {
			return 0
		}
	}
	effectiveArrival := math.Max(arrival, float64(openMin))
	slack := float64(closeMin) - effectiveArrival
	urgencyScore := clamp01(1.0 - slack/300.0)

	ratingScore := 0.5
	if next.Rating > 0 {
		ratingScore = next.Rating / 5.0
	}

	waitPenaltyMul := 1.0
	if wait > 0 {
		waitPenaltyMul = 1.0 - wait/MaxWaitMinutes
	}

	total := distScore*o.weights.DistanceWeight +
		popScore*o.weights.PopularityWeight +
		urgencyScore*o.weights.UrgencyWeight +
		ratingScore*o.weights.RatingWeight

	return total * waitPenaltyMul
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// selectSeed picks the first POI per spec.md §4.6 step 1: among POIs with
// positive urgency at start_time, the one maximizing urgency * proximity to
// start_location; falling back to nearest-by-geodesic, falling back further
// to a uniform sample among POIs opening within an hour of start_time.
func (o *Optimizer) selectSeed(rng *rand.Rand) int {
	startTime := o.constraints.StartTime
	day := o.constraints.DayOfWeek

	bestIdx := -1
	bestScore := -1.0
	for idx, poi := range o.pois {
		urgency := hours.Urgency(nil, poi.OpeningHours, day, startTime, poi.VisitDuration)
		if urgency <= 0 {
			continue
		}
		proximity := 1.0
		if o.startLoc != nil {
			distKm := geo.Distance(*o.startLoc, geo.Point{Lat: poi.Lat, Lon: poi.Lon}) / 1000.0
			proximity = 1.0 / (1.0 + distKm*0.2)
		}
		score := urgency * proximity
		if score > bestScore {
			bestScore = score
			bestIdx = idx
		}
	}
	if bestIdx >= 0 {
		return bestIdx
	}

	var candidates []int
	for idx, poi := range o.pois {
		openMin, _, closed := hours.ParseOpeningHours(nil, poi.OpeningHours, day)
		if !closed && openMin <= startTime+60 {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		for idx := range o.pois {
			candidates = append(candidates, idx)
		}
	}

	if o.startLoc != nil {
		bestIdx = candidates[0]
		bestDist := math.MaxFloat64
		for _, idx := range candidates {
			poi := o.pois[idx]
			d := geo.Distance(*o.startLoc, geo.Point{Lat: poi.Lat, Lon: poi.Lon})
			if d < bestDist {
				bestDist = d
				bestIdx = idx
			}
		}
		return bestIdx
	}

	return candidates[rng.Intn(len(candidates))]
}

// constructSolution builds one ant's route against a frozen pheromone
// snapshot, per spec.md §4.4's seed-selection-then-roulette-wheel procedure.
func (o *Optimizer) constructSolution(snapshot *model.PheromoneMatrix, rng *rand.Rand) model.Route {
	n := len(o.pois)
	if n == 0 {
		return model.Route{}
	}

	seed := o.selectSeed(rng)
	route := model.Route{seed}
	visited := make(map[int]bool, n)
	visited[seed] = true

	seedPOI := o.pois[seed]
	openMin, _, _ := hours.ParseOpeningHours(nil, seedPOI.OpeningHours, o.constraints.DayOfWeek)
	currentTime := o.constraints.StartTime
	if o.startToEach != nil && seed < len(o.startToEach) {
		currentTime += int(o.startToEach[seed])
	}
	if currentTime < openMin {
		currentTime = openMin
	}
	currentTime += seedPOI.VisitDuration

	current := seed
	for {
		next, ok := o.selectNext(snapshot, current, visited, currentTime, rng)
		if !ok {
			break
		}

		travel := o.travelTime(current, next)
		nextPOI := o.pois[next]
		arrival := currentTime + int(travel)

		openMin, _, _ := hours.ParseOpeningHours(nil, nextPOI.OpeningHours, o.constraints.DayOfWeek)
		if arrival < openMin {
			wait := openMin - arrival
			if wait > MaxWaitMinutes {
				visited[next] = true // exhausted this candidate for the rest of construction
				continue
			}
		}

		departure := arrival
		if departure < openMin {
			departure = openMin
		}
		departure += nextPOI.VisitDuration

		if departure-o.constraints.StartTime > o.constraints.MaxDuration {
			break
		}

		route = append(route, next)
		visited[next] = true
		currentTime = departure
		current = next
	}

	return route
}

// selectNext implements the roulette-wheel transition rule: p(j) ∝
// tau(c,j)^alpha * eta(c->j,t)^beta over unvisited j with eta > 0.
func (o *Optimizer) selectNext(snapshot *model.PheromoneMatrix, current int, visited map[int]bool, now int, rng *rand.Rand) (int, bool) {
	var candidates []int
	var probs []float64
	total := 0.0

	for j := range o.pois {
		if visited[j] {
			continue
		}
		eta := o.heuristic(current, j, now)
		if eta <= 0 {
			continue
		}
		tau := snapshot.At(current, j)
		p := math.Pow(tau, o.cfg.Alpha) * math.Pow(eta, o.cfg.Beta)
		candidates = append(candidates, j)
		probs = append(probs, p)
		total += p
	}

	if len(candidates) == 0 {
		return 0, false
	}
	if total == 0 {
		return candidates[rng.Intn(len(candidates))], true
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for i, p := range probs {
		cumulative += p
		if r <= cumulative {
			return candidates[i], true
		}
	}
	return candidates[len(candidates)-1], true
}

// updatePheromones applies evaporation then symmetric deposit per spec.md
// §4.4, serially on the orchestrator's goroutine between iterations.
func (o *Optimizer) updatePheromones(routes []model.Route, fitnesses []float64) {
	for i := 0; i < o.pheromone.N; i++ {
		for j := 0; j < o.pheromone.N; j++ {
			o.pheromone.Set(i, j, o.pheromone.At(i, j)*(1.0-o.cfg.Rho))
		}
	}

	for r, route := range routes {
		fitness := fitnesses[r]
		if fitness <= 0 {
			continue
		}
		deposit := o.cfg.Q * fitness
		for i := 0; i+1 < len(route); i++ {
			u, v := route[i], route[i+1]
			o.pheromone.Set(u, v, o.pheromone.At(u, v)+deposit)
			o.pheromone.Set(v, u, o.pheromone.At(v, u)+deposit)
		}
	}
}
