package toptw

import (
	"errors"
	"testing"

	"tourweave/pkg/errs"
	"tourweave/pkg/model"
	"tourweave/pkg/weights"
)

func poi(id, popularity, visitDuration int, price, rating float64, category string) model.POI {
	return model.POI{
		ID:            id,
		DisplayName:   "poi",
		Popularity:    popularity,
		VisitDuration: visitDuration,
		Category:      category,
		Price:         price,
		Rating:        rating,
		LearnedWeight: 1.0,
	}
}

func squareMatrix(n int, v float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i != j {
				m[i][j] = v
			}
		}
	}
	return m
}

func baseConstraints() model.Constraints {
	return model.Constraints{
		MaxDuration: 480,
		MaxBudget:   1000,
		StartTime:   540, // 09:00
		Pace:        model.PaceMedium,
		DayOfWeek:   model.Monday,
	}
}

func TestFitness_NonNegative(t *testing.T) {
	pois := []model.POI{
		poi(1, 80, 60, 10, 4.5, "museum"),
		poi(2, 50, 45, 5, 3.8, "park"),
		poi(3, 90, 30, 0, 4.9, "landmark"),
	}
	in := Input{
		POIs:        pois,
		Constraints: baseConstraints(),
		DistMatrix:  squareMatrix(3, 15),
		Weights:     weights.DefaultWeights(),
	}

	for _, route := range []model.Route{{0, 1, 2}, {2, 1, 0}, {}, {1}} {
		f, err := Fitness(route, model.Monday, in)
		if err != nil {
			t.Fatalf("Fitness(%v) error = %v", route, err)
		}
		if f < 0 {
			t.Errorf("Fitness(%v) = %v, want >= 0", route, f)
		}
	}
}

func TestFitness_DimensionMismatch(t *testing.T) {
	pois := []model.POI{poi(1, 80, 60, 10, 4.5, "museum"), poi(2, 50, 45, 5, 3.8, "park")}
	in := Input{
		POIs:        pois,
		Constraints: baseConstraints(),
		DistMatrix:  squareMatrix(3, 15), // wrong size
		Weights:     weights.DefaultWeights(),
	}
	_, err := Fitness(model.Route{0, 1}, model.Monday, in)
	if err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
	if !errors.Is(err, errs.ErrDimensionMismatch) {
		t.Errorf("error = %v, want wrapping ErrDimensionMismatch", err)
	}
}

func TestFitness_InvalidIndex(t *testing.T) {
	pois := []model.POI{poi(1, 80, 60, 10, 4.5, "museum")}
	in := Input{
		POIs:        pois,
		Constraints: baseConstraints(),
		DistMatrix:  squareMatrix(1, 15),
		Weights:     weights.DefaultWeights(),
	}
	_, err := Fitness(model.Route{5}, model.Monday, in)
	if err == nil || !errors.Is(err, errs.ErrInvalidIndex) {
		t.Fatalf("error = %v, want wrapping ErrInvalidIndex", err)
	}
}

func TestSchedule_SinglePOITrivial(t *testing.T) {
	pois := []model.POI{poi(1, 80, 60, 10, 4.5, "museum")}
	in := Input{
		POIs:        pois,
		Constraints: baseConstraints(),
		DistMatrix:  squareMatrix(1, 0),
		Weights:     weights.DefaultWeights(),
	}
	tl, err := Schedule(model.Route{0}, model.Monday, in)
	if err != nil {
		t.Fatalf("Schedule error = %v", err)
	}
	if tl.NumPOIs != 1 {
		t.Fatalf("NumPOIs = %d, want 1", tl.NumPOIs)
	}
	if tl.Entries[0].POIID != 1 {
		t.Errorf("entry poi_id = %d, want 1", tl.Entries[0].POIID)
	}
}

func TestSchedule_OrderPreservingSubset(t *testing.T) {
	opening := "09:00-09:30"
	pois := []model.POI{
		poi(1, 80, 60, 10, 4.5, "museum"),
		{ID: 2, Popularity: 50, VisitDuration: 60, Category: "park", Rating: 4.0, LearnedWeight: 1.0,
			OpeningHours: model.OpeningHours{model.Monday: &opening}}, // closes before this POI is reached
		poi(3, 90, 30, 0, 4.9, "landmark"),
	}
	in := Input{
		POIs:        pois,
		Constraints: baseConstraints(),
		DistMatrix:  squareMatrix(3, 10),
		Weights:     weights.DefaultWeights(),
	}

	tl, err := Schedule(model.Route{0, 1, 2}, model.Monday, in)
	if err != nil {
		t.Fatalf("Schedule error = %v", err)
	}

	var ids []int
	for _, e := range tl.Entries {
		ids = append(ids, e.POIID)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("entries = %v, want [1 3] (poi 2 skipped, order preserved)", ids)
	}
}

func TestSchedule_DurationBound(t *testing.T) {
	pois := []model.POI{
		poi(1, 80, 60, 10, 4.5, "museum"),
		poi(2, 50, 45, 5, 3.8, "park"),
		poi(3, 90, 30, 0, 4.9, "landmark"),
	}
	in := Input{
		POIs:        pois,
		Constraints: baseConstraints(),
		DistMatrix:  squareMatrix(3, 10),
		Weights:     weights.DefaultWeights(),
	}
	tl, err := Schedule(model.Route{0, 1, 2}, model.Monday, in)
	if err != nil {
		t.Fatalf("Schedule error = %v", err)
	}
	if tl.TotalMinutes > in.Constraints.MaxDuration {
		t.Errorf("TotalMinutes = %d, exceeds MaxDuration %d", tl.TotalMinutes, in.Constraints.MaxDuration)
	}
}

func TestSchedule_ExcessiveWaitSkipped(t *testing.T) {
	opening := "12:00-18:00"
	pois := []model.POI{
		{ID: 1, Popularity: 80, VisitDuration: 30, Rating: 4.5, Category: "museum", LearnedWeight: 1.0,
			OpeningHours: model.OpeningHours{model.Monday: &opening}},
	}
	c := baseConstraints()
	c.StartTime = 540 // 09:00, opens at 12:00 -> 180min wait > MaxWaitMinutes(30)
	in := Input{
		POIs:        pois,
		Constraints: c,
		DistMatrix:  squareMatrix(1, 0),
		Weights:     weights.DefaultWeights(),
	}
	tl, err := Schedule(model.Route{0}, model.Monday, in)
	if err != nil {
		t.Fatalf("Schedule error = %v", err)
	}
	if tl.NumPOIs != 0 {
		t.Errorf("NumPOIs = %d, want 0 (excessive wait should skip the POI)", tl.NumPOIs)
	}
}

func TestSchedule_NoWaitExceedsMax(t *testing.T) {
	opening := "09:15-18:00"
	pois := []model.POI{
		{ID: 1, Popularity: 80, VisitDuration: 30, Rating: 4.5, Category: "museum", LearnedWeight: 1.0,
			OpeningHours: model.OpeningHours{model.Monday: &opening}},
		poi(2, 50, 30, 0, 4.0, "landmark"),
	}
	c := baseConstraints()
	c.StartTime = 540 // 09:00, poi 1 opens 09:15 -> 15min wait, within bound
	in := Input{
		POIs:        pois,
		Constraints: c,
		DistMatrix:  squareMatrix(2, 0),
		Weights:     weights.DefaultWeights(),
	}
	tl, err := Schedule(model.Route{0, 1}, model.Monday, in)
	if err != nil {
		t.Fatalf("Schedule error = %v", err)
	}
	for _, e := range tl.Entries {
		if e.WaitMinutes > MaxWaitMinutes {
			t.Errorf("entry %d wait = %d, exceeds MaxWaitMinutes %d", e.POIID, e.WaitMinutes, MaxWaitMinutes)
		}
	}
}

func TestFitness_BudgetHardCap(t *testing.T) {
	pois := []model.POI{
		poi(1, 80, 60, 800, 4.5, "museum"),
		poi(2, 50, 60, 800, 4.0, "landmark"),
	}
	c := baseConstraints()
	c.MaxBudget = 100
	in := Input{
		POIs:        pois,
		Constraints: c,
		DistMatrix:  squareMatrix(2, 5),
		Weights:     weights.DefaultWeights(),
	}
	overBudget, err := Fitness(model.Route{0, 1}, model.Monday, in)
	if err != nil {
		t.Fatalf("Fitness error = %v", err)
	}

	c2 := c
	c2.MaxBudget = 2000
	in2 := in
	in2.Constraints = c2
	underBudget, err := Fitness(model.Route{0, 1}, model.Monday, in2)
	if err != nil {
		t.Fatalf("Fitness error = %v", err)
	}

	if overBudget > underBudget {
		t.Errorf("fitness over budget (%v) should not exceed fitness under budget (%v)", overBudget, underBudget)
	}
}

func TestWeatherWeight_OutdoorRain(t *testing.T) {
	p := model.POI{Tags: []string{"outdoor"}}
	w := weatherWeight(p, &model.WeatherContext{PrecipitationMMPerHour: 5})
	if w != 0.5 {
		t.Errorf("weatherWeight = %v, want 0.5", w)
	}
}

func TestUserWeight_MandatoryAndAvoided(t *testing.T) {
	c := model.Constraints{MandatoryCategories: []string{"museum"}}
	p := model.POI{Category: "museum"}
	if w := userWeight(p, c); w != 1.5 {
		t.Errorf("mandatory userWeight = %v, want 1.5", w)
	}

	c2 := model.Constraints{AvoidCategories: []string{"museum"}}
	if w := userWeight(p, c2); w != 0.2 {
		t.Errorf("avoided userWeight = %v, want 0.2", w)
	}
}
