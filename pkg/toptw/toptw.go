// Package toptw implements the Scheduler/Evaluator shared by ACO and GA: the
// canonical fitness function and the final schedule walk that produces a
// Timeline. Both walk the route identically; schedule additionally applies
// the visit-time redistribution refinement, which never feeds back into
// fitness.
package toptw

import (
	"fmt"

	"tourweave/pkg/errs"
	"tourweave/pkg/hours"
	"tourweave/pkg/model"
)

// MaxWaitMinutes bounds how long a route may wait for a POI to open.
const MaxWaitMinutes = hours.MaxWaitMinutes

// Input bundles everything one Fitness/Schedule call needs, so ACO/GA can
// build it once per optimization and reuse it across every candidate route.
type Input struct {
	POIs        []model.POI
	Constraints model.Constraints
	DistMatrix  [][]float64
	StartToEach []float64 // optional, nil if no start_location
	Weights     model.OptimizationWeights
}

// validate checks the Evaluator's internal contract: distMatrix dimensions
// and route indices. Violations are fatal per spec.md §7, never scored.
func validate(route model.Route, in Input) error {
	n := len(in.POIs)
	if len(in.DistMatrix) != 0 && len(in.DistMatrix) != n {
		return fmt.Errorf("%w: matrix has %d rows, want %d", errs.ErrDimensionMismatch, len(in.DistMatrix), n)
	}
	for _, idx := range route {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: index %d, n=%d", errs.ErrInvalidIndex, idx, n)
		}
	}
	return nil
}

// travelTime returns the travel time in minutes to poi at route position i.
func travelTime(in Input, route model.Route, i int) float64 {
	idx := route[i]
	if i == 0 {
		if in.StartToEach != nil && idx < len(in.StartToEach) {
			return in.StartToEach[idx]
		}
		return 0
	}
	prev := route[i-1]
	return in.DistMatrix[prev][idx]
}

// weatherWeight implements spec.md §6's weather_weight table.
func weatherWeight(poi model.POI, w *model.WeatherContext) float64 {
	weight := 1.0
	if w == nil {
		return weight
	}

	hasTag := func(tags ...string) bool {
		for _, want := range tags {
			for _, t := range poi.Tags {
				if t == want {
					return true
				}
			}
		}
		return false
	}

	if w.PrecipitationMMPerHour > 2 {
		if hasTag("outdoor", "park", "beach") {
			weight *= 0.5
		} else if hasTag("museum", "indoor", "cultural") {
			weight *= 1.3
		}
	}
	if w.TemperatureC > 30 {
		if hasTag("outdoor") {
			weight *= 0.7
		} else if hasTag("indoor") {
			weight *= 1.2
		}
	} else if w.TemperatureC < 15 {
		if hasTag("beach") {
			weight *= 0.6
		}
	}
	if w.WindSpeedKmh > 30 {
		if hasTag("beach", "outdoor") {
			weight *= 0.8
		}
	}
	return weight
}

// userWeight implements spec.md §4.3's user_weight rule.
func userWeight(poi model.POI, c model.Constraints) float64 {
	weight := 1.0
	if contains(c.MandatoryCategories, poi.Category) {
		weight *= 1.5
	}
	if contains(c.AvoidCategories, poi.Category) {
		weight *= 0.2
	}
	if len(c.PreferredDistricts) > 0 {
		if contains(c.PreferredDistricts, poi.District) {
			weight *= 1.3
		} else {
			weight *= 0.8
		}
	}
	return weight
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// stepOutcome is the per-POI result of one evaluator step, shared by
// Fitness and Schedule so the two never drift apart on the walk logic.
type stepOutcome struct {
	visited   bool
	arrival   int
	wait      int
	departure int
	travel    int
	urgency   float64
}

// walk runs the shared left-to-right evaluator over route, recording a
// visited stepOutcome for every POI that is actually visited (wait<=MaxWait,
// not closed, not avoided, enough time before closing, urgency>0). It
// returns the per-position outcomes, the categories of visited POIs (for the
// mandatory-category check), total elapsed time, total cost, and the
// accumulated score minus accumulated penalties as one value.
func walk(in Input, route model.Route, day model.Weekday) ([]stepOutcome, map[string]bool, float64, float64, float64) {
	outcomes := make([]stepOutcome, len(route))
	visitedCategories := make(map[string]bool)

	currentTime := float64(in.Constraints.StartTime)
	totalTime := 0.0
	totalCost := 0.0
	score := 0.0
	penalties := 0.0

	for i, idx := range route {
		poi := in.POIs[idx]
		travel := travelTime(in, route, i)
		currentTime += travel
		totalTime += travel

		if contains(in.Constraints.AvoidCategories, poi.Category) {
			penalties += in.Weights.AvoidedCategoryPenalty
			continue
		}

		openMin, closeMin, closed := hours.ParseOpeningHours(nil, poi.OpeningHours, day)
		if closed {
			penalties += in.Weights.MissedPOIPenalty
			continue
		}

		wait := 0.0
		if currentTime < float64(openMin) {
			wait = float64(openMin) - currentTime
			if wait > MaxWaitMinutes {
				penalties += in.Weights.NonVisitablePenalty
				continue
			}
			penalties += in.Weights.WaitPenalty * wait
			currentTime = float64(openMin)
			totalTime += wait
		}

		if currentTime >= float64(closeMin) {
			penalties += in.Weights.MissedPOIPenalty
			continue
		}
		if currentTime+float64(poi.VisitDuration) > float64(closeMin) {
			penalties += in.Weights.InsufficientTimePenalty
			continue
		}

		arrival := currentTime
		currentTime += float64(poi.VisitDuration)
		totalTime += float64(poi.VisitDuration)
		totalCost += poi.Price

		urgency := hours.Urgency(nil, poi.OpeningHours, day, int(arrival), poi.VisitDuration)
		if urgency == 0 {
			penalties += in.Weights.NonVisitablePenalty
			continue
		}

		visitedCategories[poi.Category] = true
		poiScore := float64(poi.Popularity) * weatherWeight(poi, in.Constraints.Weather) *
			userWeight(poi, in.Constraints) * learnedWeight(poi) * urgency * (poi.Rating / 5.0)
		score += poiScore

		outcomes[i] = stepOutcome{
			visited:   true,
			arrival:   int(arrival),
			wait:      int(wait),
			departure: int(currentTime),
			travel:    int(travel),
			urgency:   urgency,
		}
	}

	return outcomes, visitedCategories, totalTime, totalCost, score - penalties
}

func learnedWeight(poi model.POI) float64 {
	if poi.LearnedWeight == 0 {
		return 1.0
	}
	return poi.LearnedWeight
}

// Fitness computes the canonical objective shared by ACO and GA.
func Fitness(route model.Route, day model.Weekday, in Input) (float64, error) {
	if err := validate(route, in); err != nil {
		return 0, err
	}
	if len(route) == 0 {
		return 0, nil
	}

	_, visitedCategories, totalTime, totalCost, scoreMinusPenalties := walk(in, route, day)

	for _, cat := range in.Constraints.MandatoryCategories {
		if !visitedCategories[cat] {
			scoreMinusPenalties -= in.Weights.MandatoryMissingPenalty
		}
	}

	if totalTime > float64(in.Constraints.MaxDuration) {
		overtime := totalTime - float64(in.Constraints.MaxDuration)
		scoreMinusPenalties -= overtime * in.Weights.ConstraintViolation
	}
	if totalCost > in.Constraints.MaxBudget {
		overBudget := totalCost - in.Constraints.MaxBudget
		scoreMinusPenalties -= overBudget * in.Weights.CostPenalty * 10
	}

	paceMultiplier := in.Constraints.Pace.Multiplier()
	adjustedTime := totalTime * paceMultiplier
	if adjustedTime > float64(in.Constraints.MaxDuration) {
		scoreMinusPenalties -= (adjustedTime - float64(in.Constraints.MaxDuration)) * in.Weights.ConstraintViolation
	}

	fitness := scoreMinusPenalties - in.Weights.TravelTimePenalty*totalTime - in.Weights.CostPenalty*totalCost
	if fitness < 0 {
		return 0, nil
	}
	return fitness, nil
}

// Schedule reproduces the walk and emits a Timeline: one entry per visited
// POI, skipped POIs omitted. It then applies the visit-time redistribution
// refinement (proportional to popularity, clamped [30,180]) purely for
// presentation; feasibility was already decided using each POI's original
// visit_duration.
func Schedule(route model.Route, day model.Weekday, in Input) (model.Timeline, error) {
	if err := validate(route, in); err != nil {
		return model.Timeline{}, err
	}
	if len(route) == 0 {
		return model.Timeline{StartTime: in.Constraints.StartTime, EndTime: in.Constraints.StartTime}, nil
	}

	outcomes, _, _, totalCost, _ := walk(in, route, day)

	var visitBudget float64
	totalTravel := 0.0
	for i := range route {
		totalTravel += float64(outcomes[i].travel)
	}
	visitBudget = float64(in.Constraints.MaxDuration) - totalTravel
	if visitBudget < 0 {
		visitBudget = 0
	}

	totalPopularity := 0
	for i, idx := range route {
		if outcomes[i].visited {
			totalPopularity += in.POIs[idx].Popularity
		}
	}

	entries := make([]model.TimelineEntry, 0, len(route))
	for i, idx := range route {
		o := outcomes[i]
		if !o.visited {
			continue
		}
		poi := in.POIs[idx]

		visitDuration := poi.VisitDuration
		if totalPopularity > 0 {
			allocated := (float64(poi.Popularity) / float64(totalPopularity)) * visitBudget
			visitDuration = clampInt(int(allocated), 30, 180)
		}

		entries = append(entries, model.TimelineEntry{
			POIID:           poi.ID,
			ArrivalMinute:   o.arrival,
			WaitMinutes:     o.wait,
			DepartureMinute: o.arrival + visitDuration,
			TravelMinutes:   o.travel,
			VisitDuration:   visitDuration,
			Price:           poi.Price,
			IsFree:          poi.Price == 0,
			District:        poi.District,
			Category:        poi.Category,
			Rating:          poi.Rating,
		})
	}

	endTime := in.Constraints.StartTime
	if len(entries) > 0 {
		endTime = entries[len(entries)-1].DepartureMinute
	}

	return model.Timeline{
		Entries:      entries,
		TotalCost:    totalCost,
		NumPOIs:      len(entries),
		StartTime:    in.Constraints.StartTime,
		EndTime:      endTime,
		TotalMinutes: endTime - in.Constraints.StartTime,
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

