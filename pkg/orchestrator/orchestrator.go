// Package orchestrator wires HoursLib, the DistanceOracle, ACO, GA, and the
// Evaluator together into the single entry point described by spec.md §4.6:
// availability filter -> candidate narrowing -> distance acquisition ->
// ACO-then-GA construction -> final scheduling.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/uber/h3-go/v4"

	"tourweave/pkg/aco"
	"tourweave/pkg/catalog"
	"tourweave/pkg/config"
	"tourweave/pkg/distance"
	"tourweave/pkg/errs"
	"tourweave/pkg/ga"
	"tourweave/pkg/geo"
	"tourweave/pkg/hours"
	"tourweave/pkg/model"
	"tourweave/pkg/toptw"
	"tourweave/pkg/weather"
	"tourweave/pkg/weights"
)

// narrowingH3Resolution bounds the candidate-narrowing cell size; resolution
// 7 cells average about 5 km2, matching the narrowing step's "a few blocks
// around start_location" intent.
const narrowingH3Resolution = 7

// narrowingTopK is the candidate cap applied after availability filtering,
// per spec.md §4.6 step 2 (K ~= 15-20).
const narrowingTopK = 18

// Orchestrator is the OptimizerOrchestrator: a single entry point that
// accepts a Request and produces a Response, per spec.md §4.6.
type Orchestrator struct {
	Catalog  catalog.Provider
	Oracle   distance.Oracle
	Weather  weather.Provider
	Weights  *weights.Store
	ACOCfg   config.ACOConfig
	GACfg    config.GAConfig
}

// New builds an Orchestrator from its explicit collaborators. Per spec.md
// §9, global singletons (weights, distance oracle, catalog) are
// re-architected as configuration values passed in at construction rather
// than module-level state.
func New(cat catalog.Provider, oracle distance.Oracle, wp weather.Provider, w *weights.Store, acoCfg config.ACOConfig, gaCfg config.GAConfig) *Orchestrator {
	return &Orchestrator{Catalog: cat, Oracle: oracle, Weather: wp, Weights: w, ACOCfg: acoCfg, GACfg: gaCfg}
}

// Run executes one full optimization request and produces a Response.
// rng is the single injected PRNG spec.md §4.6 requires for determinism
// given a seed; ctx carries the caller's deadline/cancel signal, checked
// between ACO iterations and GA generations.
func (o *Orchestrator) Run(ctx context.Context, req model.Request, rng *rand.Rand) (model.Response, error) {
	candidates := req.Candidates
	if len(candidates) == 0 && o.Catalog != nil {
		all, err := o.Catalog.ListAllActive(ctx)
		if err != nil {
			return model.Response{}, fmt.Errorf("catalog lookup: %w", err)
		}
		candidates = all
	}

	if len(req.SelectedPOIIDs) > 0 {
		candidates = selectByID(candidates, req.SelectedPOIIDs)
	}

	available := o.filterAvailable(candidates, req.Constraints)
	if len(available) == 0 {
		return model.Response{}, errs.ErrNoAvailablePOIs
	}

	narrowed := narrowCandidates(available, req.StartLocation, narrowingTopK)

	coords := make([]geo.Point, len(narrowed))
	for i, p := range narrowed {
		coords[i] = geo.Point{Lat: p.Lat, Lon: p.Lon}
	}

	matrixResult, err := o.Oracle.Matrix(ctx, coords, req.Constraints.TransportProfile)
	if err != nil {
		return model.Response{}, fmt.Errorf("distance matrix: %w", err)
	}

	var startToEach []float64
	if req.StartLocation != nil {
		origin := geo.Point{Lat: req.StartLocation.Lat, Lon: req.StartLocation.Lon}
		res, err := o.Oracle.StartToEach(ctx, origin, coords, req.Constraints.TransportProfile)
		if err != nil {
			return model.Response{}, fmt.Errorf("start-to-each distances: %w", err)
		}
		startToEach = res.Times
	}

	weatherCtx, err := o.resolveWeather(ctx, req, narrowed)
	if err != nil {
		return model.Response{}, err
	}

	weightsSnapshot := o.Weights.Snapshot()
	constraints := req.Constraints
	constraints.Weather = weatherCtx

	var startLoc *geo.Point
	if req.StartLocation != nil {
		p := geo.Point{Lat: req.StartLocation.Lat, Lon: req.StartLocation.Lon}
		startLoc = &p
	}

	acoOpt := aco.New(narrowed, constraints, matrixResult.Matrix, startToEach, startLoc, weightsSnapshot, acoConfig(o.ACOCfg), rand.New(rand.NewSource(rng.Int63())))
	acoResult := acoOpt.Run(ctx)

	route := acoResult.BestRoute
	fitness := acoResult.BestFitness

	if len(route) == 0 {
		select {
		case <-ctx.Done():
			return model.Response{}, errs.ErrCancelled
		default:
		}

		gaOpt := ga.New(narrowed, constraints, matrixResult.Matrix, startToEach, weightsSnapshot, gaConfig(o.GACfg), rand.New(rand.NewSource(rng.Int63())))
		gaResult := gaOpt.Run(ctx)
		route = gaResult.BestRoute
		fitness = gaResult.BestFitness
	}

	if len(route) == 0 {
		select {
		case <-ctx.Done():
			return model.Response{}, errs.ErrCancelled
		default:
		}
		return model.Response{}, errs.ErrNoFeasibleRoute
	}

	in := toptw.Input{
		POIs:        narrowed,
		Constraints: constraints,
		DistMatrix:  matrixResult.Matrix,
		StartToEach: startToEach,
		Weights:     weightsSnapshot,
	}
	timeline, err := toptw.Schedule(route, constraints.DayOfWeek, in)
	if err != nil {
		return model.Response{}, err
	}

	orderedIDs := make([]int, 0, len(timeline.Entries))
	for _, e := range timeline.Entries {
		orderedIDs = append(orderedIDs, e.POIID)
	}

	return model.Response{
		RouteID:       uuid.NewString(),
		OrderedPOIIDs: orderedIDs,
		Timeline:      timeline.Entries,
		TotalDuration: timeline.TotalMinutes,
		TotalCost:     timeline.TotalCost,
		FitnessScore:  fitness,
		StartTime:     timeline.StartTime,
		EndTime:       timeline.EndTime,
		NumPOIs:       timeline.NumPOIs,
	}, nil
}

// filterAvailable retains POIs HoursLib considers visitable at start_time,
// per spec.md §4.6 step 1. selected_poi_ids does not bypass this filter
// (spec.md §9's open question, resolved here in favor of uniform
// enforcement).
func (o *Orchestrator) filterAvailable(pois []model.POI, c model.Constraints) []model.POI {
	var out []model.POI
	for _, p := range pois {
		if hours.IsVisitable(nil, p.OpeningHours, c.DayOfWeek, c.StartTime, p.VisitDuration) {
			out = append(out, p)
		}
	}
	return out
}

// selectByID restricts pois to the given ids, preserving pois' order.
func selectByID(pois []model.POI, ids []int) []model.POI {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.POI
	for _, p := range pois {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// narrowCandidates caps the candidate set to topK by popularity, per
// spec.md §4.6 step 2. When a start_location is given, narrowing first
// restricts to the H3 resolution-7 cell containing start_location plus its
// immediate k-ring neighbors, so the distance matrix stays local; if that
// leaves fewer than topK candidates the wider pool is used instead.
func narrowCandidates(pois []model.POI, start *model.Location, topK int) []model.POI {
	pool := pois
	if start != nil {
		originCell, err := h3.LatLngToCell(h3.NewLatLng(start.Lat, start.Lon), narrowingH3Resolution)
		if err == nil {
			ring, err := h3.GridDisk(originCell, 1)
			if err == nil {
				allowed := make(map[h3.Cell]bool, len(ring))
				for _, c := range ring {
					allowed[c] = true
				}
				var local []model.POI
				for _, p := range pois {
					cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), narrowingH3Resolution)
					if err == nil && allowed[cell] {
						local = append(local, p)
					}
				}
				if len(local) >= topK {
					pool = local
				}
			}
		}
	}

	if len(pool) <= topK {
		return pool
	}

	sorted := append([]model.POI{}, pool...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Popularity > sorted[j].Popularity })
	return sorted[:topK]
}

// resolveWeather fetches one weather observation for the centroid of
// narrowed, applied uniformly to every candidate; weather forecasting is
// itself an external collaborator (spec.md §1), so a nil Weather provider
// is a valid no-op configuration.
func (o *Orchestrator) resolveWeather(ctx context.Context, req model.Request, narrowed []model.POI) (*model.WeatherContext, error) {
	if o.Weather == nil || len(narrowed) == 0 {
		return nil, nil
	}
	lat, lon := centroid(narrowed)
	wc, err := o.Weather.Forecast(ctx, lat, lon, req.Constraints.StartTime)
	if err != nil {
		return nil, fmt.Errorf("weather forecast: %w", err)
	}
	return wc, nil
}

func centroid(pois []model.POI) (lat, lon float64) {
	for _, p := range pois {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(pois))
	return lat / n, lon / n
}

func acoConfig(c config.ACOConfig) aco.Config {
	return aco.Config{
		Alpha:      c.Alpha,
		Beta:       c.Beta,
		Rho:        c.Evaporation,
		Q:          c.Deposit,
		NumAnts:    c.NumAnts,
		Iterations: c.Iterations,
		InitialTau: c.InitialTau,
	}
}

func gaConfig(c config.GAConfig) ga.Config {
	return ga.Config{
		Population:           c.Population,
		Generations:           c.Generations,
		MutationRate:          c.MutationRate,
		CrossoverRate:         c.CrossoverRate,
		EliteRatio:            c.EliteRatio,
		TournamentSize:        c.TournamentSize,
		EarlyStopGenerations:  c.EarlyStopGenerations,
	}
}
