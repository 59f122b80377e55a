// Package ga implements the Genetic Algorithm constructor: population-based
// search over permutations of candidate POI indices, sharing the Evaluator's
// Fitness function with pkg/aco.
package ga

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"tourweave/pkg/hours"
	"tourweave/pkg/model"
	"tourweave/pkg/toptw"
)

// Config holds the GA hyperparameters, mirroring config.GAConfig.
type Config struct {
	Population           int
	Generations           int
	MutationRate          float64
	CrossoverRate         float64
	EliteRatio            float64
	TournamentSize        int
	EarlyStopGenerations  int
}

// GenerationRecord captures one generation's fitness distribution.
type GenerationRecord struct {
	Generation  int
	BestFitness float64
	AvgFitness  float64
	WorstFitness float64
}

// Result is the outcome of one Run.
type Result struct {
	BestRoute   model.Route
	BestFitness float64
	History     []GenerationRecord
}

// Optimizer runs the GA over one fixed candidate set, distance matrix, and
// constraints.
type Optimizer struct {
	pois        []model.POI
	constraints model.Constraints
	distMatrix  [][]float64
	startToEach []float64
	weights     model.OptimizationWeights
	cfg         Config
	rng         *rand.Rand
}

// New builds an Optimizer. rng is the single injected PRNG spec.md §4.6
// requires for reproducibility.
func New(pois []model.POI, constraints model.Constraints, distMatrix [][]float64, startToEach []float64, weights model.OptimizationWeights, cfg Config, rng *rand.Rand) *Optimizer {
	return &Optimizer{
		pois:        pois,
		constraints: constraints,
		distMatrix:  distMatrix,
		startToEach: startToEach,
		weights:     weights,
		cfg:         cfg,
		rng:         rng,
	}
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

// Run executes the full GA loop. Returns an empty Result if the candidate
// set is empty (mirrors ga_optimizer.py's evolve() early return).
func (o *Optimizer) Run(ctx context.Context) Result {
	population := o.initializePopulation()
	if len(population) == 0 {
		return Result{}
	}

	result := Result{}

	for gen := 0; gen < o.cfg.Generations; gen++ {
		select {
		case <-ctx.Done():
			return result
		default:
		}

		fitnesses := o.evaluateAll(population)

		best, avg, worst := 0.0, 0.0, fitnesses[0]
		bestIdx := 0
		sum := 0.0
		for i, f := range fitnesses {
			sum += f
			if f > best || i == 0 {
				best = f
				bestIdx = i
			}
			if f < worst {
				worst = f
			}
		}
		avg = sum / float64(len(fitnesses))

		if best > result.BestFitness || result.BestRoute == nil {
			result.BestFitness = best
			result.BestRoute = append(model.Route{}, population[bestIdx]...)
		}
		result.History = append(result.History, GenerationRecord{
			Generation:   gen,
			BestFitness:  result.BestFitness,
			AvgFitness:   avg,
			WorstFitness: worst,
		})

		if o.shouldStopEarly(result.History) {
			break
		}

		population = o.nextGeneration(population, fitnesses)
	}

	return result
}

// shouldStopEarly implements the source's plateau check: once past
// EarlyStopGenerations generations, if the best fitness over the trailing
// window hasn't moved at all, stop.
func (o *Optimizer) shouldStopEarly(history []GenerationRecord) bool {
	window := o.cfg.EarlyStopGenerations
	if window <= 0 || len(history) <= window {
		return false
	}
	recent := history[len(history)-window:]
	min, max := recent[0].BestFitness, recent[0].BestFitness
	for _, h := range recent {
		if h.BestFitness < min {
			min = h.BestFitness
		}
		if h.BestFitness > max {
			max = h.BestFitness
		}
	}
	return min == max
}

// initializePopulation mixes random-length random routes with greedy-seeded
// routes, per spec.md §4.5 / ga_optimizer.py's initialize_population.
func (o *Optimizer) initializePopulation() []model.Route {
	n := len(o.pois)
	if n == 0 {
		return nil
	}

	maxLen := min(12, n)
	minLen := min(3, n)

	greedyCount := min(10, o.cfg.Population/10)
	greedy := o.generateGreedyRoutes(greedyCount)

	population := make([]model.Route, 0, o.cfg.Population)
	for i := len(greedy); i < o.cfg.Population; i++ {
		length := minLen
		if maxLen > minLen {
			length = minLen + o.rng.Intn(maxLen-minLen+1)
		}
		population = append(population, o.randomRoute(length))
	}
	population = append(population, greedy...)

	if len(population) > o.cfg.Population {
		population = population[:o.cfg.Population]
	}
	return population
}

func (o *Optimizer) randomRoute(length int) model.Route {
	n := len(o.pois)
	indices := o.rng.Perm(n)
	return model.Route(append([]int{}, indices[:length]...))
}

// generateGreedyRoutes builds count routes by repeatedly picking the
// unvisited candidate maximizing popularity - 0.5*travel_time, stopping once
// max_duration is exhausted, per ga_optimizer.py's _generate_greedy_routes.
func (o *Optimizer) generateGreedyRoutes(count int) []model.Route {
	n := len(o.pois)
	if n == 0 {
		return nil
	}

	routes := make([]model.Route, 0, count)
	for i := 0; i < count; i++ {
		start := o.rng.Intn(n)
		route := model.Route{start}
		visited := map[int]bool{start: true}

		totalTime := float64(o.pois[start].VisitDuration)
		currentTime := o.constraints.StartTime + o.pois[start].VisitDuration
		current := start

		for {
			bestIdx := -1
			bestScore := -1e18
			for j := 0; j < n; j++ {
				if visited[j] {
					continue
				}
				travel := o.travelTime(current, j)
				arrival := float64(currentTime) + travel
				if arrival >= float64(o.closeMinute(j)) {
					continue
				}
				score := float64(o.pois[j].Popularity) - travel*0.5
				if score > bestScore {
					bestScore = score
					bestIdx = j
				}
			}
			if bestIdx < 0 {
				break
			}

			travel := o.travelTime(current, bestIdx)
			visitDuration := float64(o.pois[bestIdx].VisitDuration)
			if totalTime+travel+visitDuration >= float64(o.constraints.MaxDuration) {
				break
			}

			route = append(route, bestIdx)
			visited[bestIdx] = true
			totalTime += travel + visitDuration
			currentTime += int(travel) + o.pois[bestIdx].VisitDuration
			current = bestIdx
		}

		if len(route) >= 3 {
			routes = append(routes, route)
		}
	}
	return routes
}

func (o *Optimizer) travelTime(i, j int) float64 {
	if i < 0 {
		if o.startToEach != nil && j < len(o.startToEach) {
			return o.startToEach[j]
		}
		return 0
	}
	return o.distMatrix[i][j]
}

func (o *Optimizer) closeMinute(idx int) int {
	_, closeMin, closed := hours.ParseOpeningHours(nil, o.pois[idx].OpeningHours, o.constraints.DayOfWeek)
	if closed {
		return o.constraints.StartTime
	}
	return closeMin
}

func (o *Optimizer) evaluateAll(population []model.Route) []float64 {
	fitnesses := make([]float64, len(population))
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, route := range population {
		i, route := i, route
		g.Go(func() error {
			f, err := toptw.Fitness(route, o.constraints.DayOfWeek, o.evalInput())
			if err != nil {
				mu.Lock()
				fitnesses[i] = 0
				mu.Unlock()
				return nil
			}
			fitnesses[i] = f
			return nil
		})
	}
	_ = g.Wait()
	return fitnesses
}

// tournamentSelection picks TournamentSize random individuals and returns a
// copy of the fittest.
func (o *Optimizer) tournamentSelection(population []model.Route, fitnesses []float64) model.Route {
	size := o.cfg.TournamentSize
	if size > len(population) {
		size = len(population)
	}
	bestIdx := o.rng.Intn(len(population))
	bestFitness := fitnesses[bestIdx]
	for i := 1; i < size; i++ {
		idx := o.rng.Intn(len(population))
		if fitnesses[idx] > bestFitness {
			bestFitness = fitnesses[idx]
			bestIdx = idx
		}
	}
	return append(model.Route{}, population[bestIdx]...)
}

// orderedCrossover implements classic OX between two parents.
func (o *Optimizer) orderedCrossover(p1, p2 model.Route) model.Route {
	size := len(p1)
	if len(p2) < size {
		size = len(p2)
	}
	if size == 0 {
		return model.Route{}
	}

	a := o.rng.Intn(size)
	b := o.rng.Intn(size)
	if a > b {
		a, b = b, a
	}

	child := make(model.Route, size)
	for i := range child {
		child[i] = -1
	}
	used := make(map[int]bool)
	for i := a; i < b; i++ {
		child[i] = p1[i]
		used[p1[i]] = true
	}

	pos := b % size
	free := size - (b - a)
	for _, gene := range p2 {
		if free == 0 {
			break
		}
		if used[gene] {
			continue
		}
		for child[pos] != -1 {
			pos = (pos + 1) % size
		}
		child[pos] = gene
		used[gene] = true
		free--
	}

	out := make(model.Route, 0, size)
	for _, v := range child {
		if v != -1 {
			out = append(out, v)
		}
	}
	return out
}

var mutationOperators = []string{"swap", "insert", "shuffle", "add", "remove"}

// mutate applies one of five operators to route, gated by MutationRate, per
// ga_optimizer.py's mutate(). visited POIs not in route are candidates for
// "add".
func (o *Optimizer) mutate(route model.Route) model.Route {
	if o.rng.Float64() >= o.cfg.MutationRate {
		return route
	}

	mutated := append(model.Route{}, route...)

	if len(mutated) < 2 {
		if unused := o.unusedPOI(mutated); unused >= 0 {
			mutated = append(mutated, unused)
		}
		return mutated
	}

	switch mutationOperators[o.rng.Intn(len(mutationOperators))] {
	case "swap":
		i, j := o.rng.Intn(len(mutated)), o.rng.Intn(len(mutated))
		mutated[i], mutated[j] = mutated[j], mutated[i]
	case "insert":
		i := o.rng.Intn(len(mutated))
		gene := mutated[i]
		mutated = append(mutated[:i], mutated[i+1:]...)
		j := o.rng.Intn(len(mutated) + 1)
		mutated = insertAt(mutated, j, gene)
	case "shuffle":
		if len(mutated) >= 4 {
			start := o.rng.Intn(len(mutated) - 1)
			end := start + 1 + o.rng.Intn(len(mutated)-start)
			o.rng.Shuffle(end-start, func(i, j int) {
				mutated[start+i], mutated[start+j] = mutated[start+j], mutated[start+i]
			})
		}
	case "add":
		if unused := o.unusedPOI(mutated); unused >= 0 && len(mutated) < 15 {
			j := o.rng.Intn(len(mutated) + 1)
			mutated = insertAt(mutated, j, unused)
		}
	case "remove":
		if len(mutated) > 3 {
			i := o.rng.Intn(len(mutated))
			mutated = append(mutated[:i], mutated[i+1:]...)
		}
	}

	return mutated
}

func insertAt(route model.Route, pos, gene int) model.Route {
	out := make(model.Route, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, gene)
	out = append(out, route[pos:]...)
	return out
}

func (o *Optimizer) unusedPOI(route model.Route) int {
	present := make(map[int]bool, len(route))
	for _, idx := range route {
		present[idx] = true
	}
	var candidates []int
	for idx := range o.pois {
		if !present[idx] {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[o.rng.Intn(len(candidates))]
}

// nextGeneration builds the next population: elitism carries the top
// EliteRatio fraction unchanged, the rest is bred via tournament selection,
// OX crossover (gated by CrossoverRate), and mutation.
func (o *Optimizer) nextGeneration(population []model.Route, fitnesses []float64) []model.Route {
	n := len(population)
	eliteCount := int(o.cfg.EliteRatio * float64(n))
	if eliteCount < 1 {
		eliteCount = 1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return fitnesses[order[i]] > fitnesses[order[j]] })

	next := make([]model.Route, 0, n)
	for i := 0; i < eliteCount && i < n; i++ {
		next = append(next, append(model.Route{}, population[order[i]]...))
	}

	for len(next) < n {
		parent1 := o.tournamentSelection(population, fitnesses)
		parent2 := o.tournamentSelection(population, fitnesses)

		var child1, child2 model.Route
		if o.rng.Float64() < o.cfg.CrossoverRate {
			child1 = o.orderedCrossover(parent1, parent2)
			child2 = o.orderedCrossover(parent2, parent1)
		} else {
			child1 = parent1
			child2 = parent2
		}

		next = append(next, o.mutate(child1))
		if len(next) < n {
			next = append(next, o.mutate(child2))
		}
	}

	return next
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
